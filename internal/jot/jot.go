package jot

import "time"

// Context is a named grouping of jots, typically one per repository/branch.
type Context struct {
	// ID is the surrogate key
	ID int64 `json:"id"`

	// Name is unique across all contexts (e.g. "api" or "api/feature-x")
	Name string `json:"name"`

	// Repository is the repository label captured at creation (nullable)
	Repository *string `json:"repository,omitempty"`

	// Branch is the branch label captured at creation (nullable)
	Branch *string `json:"branch,omitempty"`

	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is bumped whenever a jot is added to or updated within the context
	UpdatedAt time.Time `json:"updated_at"`

	// JotCount is computed on every read, never stored
	JotCount int `json:"jot_count"`
}

// Jot is a single timestamped, optionally-expiring, taggable note.
type Jot struct {
	ID int64 `json:"id"`

	// UID is a ULID that identifies the jot across stores (export/import)
	UID string `json:"uid"`

	ContextID   int64  `json:"context_id"`
	ContextName string `json:"context_name"`

	Message string `json:"message"`

	// Tags is a set; stored sorted
	Tags []string `json:"tags"`

	Metadata map[string]string `json:"metadata"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// ExpiresAt is nil for permanent jots
	ExpiresAt *time.Time `json:"expires_at"`
}

// Expired reports whether the jot's expiration has strictly passed at now.
func (j *Jot) Expired(now time.Time) bool {
	return j.ExpiresAt != nil && j.ExpiresAt.Before(now)
}
