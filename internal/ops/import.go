package ops

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/jot/internal/db"
	"github.com/hpungsan/jot/internal/errors"
	"github.com/hpungsan/jot/internal/jot"
)

// maxImportLine bounds a single JSONL line (a message may be large).
const maxImportLine = 4 * 1024 * 1024

// ImportInput contains parameters for Import.
type ImportInput struct {
	Path string // required, .jsonl
}

// ImportOutput contains the result of Import.
type ImportOutput struct {
	Imported int           `json:"imported"`
	Skipped  int           `json:"skipped"`
	Errors   []ImportError `json:"errors"`
}

// ImportError describes a line that could not be imported.
type ImportError struct {
	Line    int    `json:"line"`
	UID     string `json:"uid,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Import reads a JSONL export and inserts every jot whose uid is not already
// present, in one transaction. Known uids are skipped, so importing the same
// file twice is a no-op. Malformed lines are reported and skipped.
func (s *Service) Import(ctx context.Context, input ImportInput) (*ImportOutput, error) {
	if err := ValidatePath(input.Path, PathCheckRead, "."+FormatJSONL, s.exportsDir(), s.cfg); err != nil {
		return nil, err
	}

	file, err := openNoFollow(input.Path, os.O_RDONLY, 0)
	if err != nil {
		if _, ok := err.(*errors.JotError); ok {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open import file: %w", err))
	}
	defer file.Close()

	records, lineErrors, err := parseExportFile(file)
	if err != nil {
		return nil, err
	}

	res, err := s.repo.ImportJots(ctx, records)
	if err != nil {
		return nil, err
	}

	s.logger.Info("import finished", "path", input.Path, "imported", res.Imported, "skipped", res.Skipped, "errors", len(lineErrors))
	return &ImportOutput{
		Imported: res.Imported,
		Skipped:  res.Skipped + len(lineErrors),
		Errors:   lineErrors,
	}, nil
}

// parseExportFile parses JSONL export lines into import records. A header
// with an unsupported schema version fails the whole import; bad records are
// collected as ImportErrors. Duplicate uids within the file keep the first.
func parseExportFile(r io.Reader) ([]db.ImportRecord, []ImportError, error) {
	records := make([]db.ImportRecord, 0)
	lineErrors := make([]ImportError, 0)
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxImportLine)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var rec jot.ExportRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			lineErrors = append(lineErrors, ImportError{
				Line:    lineNum,
				Code:    "PARSE_ERROR",
				Message: fmt.Sprintf("invalid JSON: %v", err),
			})
			continue
		}

		if rec.JotExport {
			if rec.SchemaVersion != jot.ExportSchemaVersion {
				return nil, nil, errors.NewInvalidRequest(
					fmt.Sprintf("unsupported export schema version %q (want %q)", rec.SchemaVersion, jot.ExportSchemaVersion))
			}
			continue
		}

		if msg := checkRecord(&rec); msg != "" {
			lineErrors = append(lineErrors, ImportError{
				Line:    lineNum,
				UID:     rec.UID,
				Code:    "INVALID_RECORD",
				Message: msg,
			})
			continue
		}
		if seen[rec.UID] {
			lineErrors = append(lineErrors, ImportError{
				Line:    lineNum,
				UID:     rec.UID,
				Code:    "DUPLICATE_UID",
				Message: "uid repeated within file",
			})
			continue
		}
		seen[rec.UID] = true

		updatedAt := rec.UpdatedAt
		if updatedAt.IsZero() {
			updatedAt = rec.CreatedAt
		}
		records = append(records, db.ImportRecord{
			UID:         rec.UID,
			ContextName: jot.CleanName(rec.Context),
			Repository:  rec.Repository,
			Branch:      rec.Branch,
			Message:     rec.Message,
			CreatedAt:   rec.CreatedAt,
			UpdatedAt:   updatedAt,
			ExpiresAt:   rec.ExpiresAt,
			Tags:        rec.Tags,
			Metadata:    rec.Metadata,
		})
	}

	if err := scanner.Err(); err != nil {
		lineErrors = append(lineErrors, ImportError{
			Line:    lineNum + 1,
			Code:    "READ_ERROR",
			Message: fmt.Sprintf("failed to read file: %v", err),
		})
	}

	return records, lineErrors, nil
}

// checkRecord returns a reason the record cannot be imported, or "".
func checkRecord(rec *jot.ExportRecord) string {
	switch {
	case rec.UID == "":
		return "missing uid"
	case jot.CleanName(rec.Context) == "":
		return "missing context"
	case strings.TrimSpace(rec.Message) == "":
		return "missing message"
	case rec.CreatedAt.IsZero():
		return "missing created_at"
	}
	if _, err := ulid.ParseStrict(rec.UID); err != nil {
		return fmt.Sprintf("invalid uid: %v", err)
	}
	return ""
}
