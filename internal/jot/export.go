package jot

import "time"

// ExportSchemaVersion is written in the export header and checked on import.
const ExportSchemaVersion = "1"

// ExportRecord is one line of a JSONL export. The header line shares the
// shape and is recognized by JotExport.
type ExportRecord struct {
	// Header detection field, true only for the header line
	JotExport     bool   `json:"_jot_export,omitempty"`
	SchemaVersion string `json:"schema_version,omitempty"`

	UID        string            `json:"uid"`
	Context    string            `json:"context"`
	Repository *string           `json:"repository,omitempty"`
	Branch     *string           `json:"branch,omitempty"`
	Message    string            `json:"message"`
	Tags       []string          `json:"tags"`
	Metadata   map[string]string `json:"metadata"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
	ExpiresAt  *time.Time        `json:"expires_at"`
}

// NewExportRecord builds the export line for j. c supplies the repository
// and branch labels and may be nil.
func NewExportRecord(j *Jot, c *Context) ExportRecord {
	r := ExportRecord{
		UID:       j.UID,
		Context:   j.ContextName,
		Message:   j.Message,
		Tags:      j.Tags,
		Metadata:  j.Metadata,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
		ExpiresAt: j.ExpiresAt,
	}
	if c != nil {
		r.Repository = c.Repository
		r.Branch = c.Branch
	}
	return r
}
