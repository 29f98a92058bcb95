package ops

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/hpungsan/jot/internal/errors"
	"github.com/hpungsan/jot/internal/jot"
)

// Export formats.
const (
	FormatJSONL = "jsonl"
	FormatHTML  = "html"
)

// ExportInput contains parameters for Export.
type ExportInput struct {
	Path           string // optional, default: <home>/exports/<context|all>-<timestamp>.<format>
	Format         string // jsonl (default) or html
	ContextID      *int64 // optional filter
	ContextName    string // optional filter, must exist
	IncludeExpired bool
}

// ExportOutput contains the result of Export.
type ExportOutput struct {
	Path       string    `json:"path"`
	Format     string    `json:"format"`
	Count      int       `json:"count"`
	ExportedAt time.Time `json:"exported_at"`
}

// ExportHeader is the first line of a JSONL export.
type ExportHeader struct {
	JotExport     bool      `json:"_jot_export"`
	SchemaVersion string    `json:"schema_version"`
	ExportedAt    time.Time `json:"exported_at"`
	Count         int       `json:"count"`
}

// Export writes jots, oldest first, to a JSONL or HTML file. The file is
// written to a temp name and renamed into place, so a failed export leaves
// any existing file untouched.
func (s *Service) Export(ctx context.Context, input ExportInput) (*ExportOutput, error) {
	if input.Format == "" {
		input.Format = FormatJSONL
	}
	if err := validation.ValidateStruct(&input,
		validation.Field(&input.Format, validation.In(FormatJSONL, FormatHTML)),
	); err != nil {
		return nil, validationError(err)
	}

	var (
		contextID   *int64
		contextName string
	)
	if input.ContextID != nil || jot.CleanName(input.ContextName) != "" {
		c, err := s.findContext(ctx, input.ContextID, input.ContextName)
		if err != nil {
			return nil, err
		}
		contextID, contextName = &c.ID, c.Name
	}

	now := s.repo.Now().UTC()
	exportPath := input.Path
	if exportPath == "" {
		if s.home == "" {
			return nil, errors.NewInvalidRequest("path is required")
		}
		exportPath = defaultExportPath(ExportsDir(s.home), contextName, input.Format, now)
	}
	if err := ValidatePath(exportPath, PathCheckWrite, "."+input.Format, s.exportsDir(), s.cfg); err != nil {
		return nil, err
	}

	jots, err := s.repo.ExportJots(ctx, contextID, input.IncludeExpired)
	if err != nil {
		return nil, err
	}
	contexts, err := s.contextsByID(ctx)
	if err != nil {
		return nil, err
	}

	err = writeAtomic(exportPath, func(w io.Writer) error {
		if input.Format == FormatHTML {
			return writeHTML(w, jots, now)
		}
		return writeJSONL(w, jots, contexts, now)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("export written", "path", exportPath, "format", input.Format, "count", len(jots))
	return &ExportOutput{
		Path:       exportPath,
		Format:     input.Format,
		Count:      len(jots),
		ExportedAt: now,
	}, nil
}

// findContext looks a context up by id or name without creating it.
func (s *Service) findContext(ctx context.Context, id *int64, name string) (*jot.Context, error) {
	var (
		c   *jot.Context
		err error
		ref string
	)
	if id != nil {
		ref = fmt.Sprint(*id)
		c, err = s.repo.GetContextByID(ctx, *id)
	} else {
		ref = jot.CleanName(name)
		c, err = s.repo.GetContextByName(ctx, ref)
	}
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, errors.NewNotFound("context", ref)
	}
	return c, nil
}

func (s *Service) contextsByID(ctx context.Context) (map[int64]*jot.Context, error) {
	list, err := s.repo.ListContexts(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*jot.Context, len(list))
	for _, c := range list {
		byID[c.ID] = c
	}
	return byID, nil
}

// exportsDir is the default allowed directory, or "" without a home.
func (s *Service) exportsDir() string {
	if s.home == "" {
		return ""
	}
	return ExportsDir(s.home)
}

func writeJSONL(w io.Writer, jots []*jot.Jot, contexts map[int64]*jot.Context, now time.Time) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	header := ExportHeader{
		JotExport:     true,
		SchemaVersion: jot.ExportSchemaVersion,
		ExportedAt:    now,
		Count:         len(jots),
	}
	if err := enc.Encode(header); err != nil {
		return errors.NewInternal(err)
	}
	for _, j := range jots {
		if err := enc.Encode(jot.NewExportRecord(j, contexts[j.ContextID])); err != nil {
			return errors.NewInternal(err)
		}
	}
	return nil
}

// writeAtomic writes through fn to a temp file next to path, then renames it
// into place. The temp file is removed on any failure.
func writeAtomic(path string, fn func(w io.Writer) error) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := path + "." + hex.EncodeToString(randBytes) + ".tmp"

	file, err := openNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0600)
	if err != nil {
		return errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}
	defer func() {
		if file != nil {
			file.Close()
		}
		if err != nil {
			os.Remove(tempPath)
		}
	}()

	bw := bufio.NewWriter(file)
	if err := fn(bw); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return errors.NewInternal(err)
	}
	if err := file.Sync(); err != nil {
		return errors.NewInternal(err)
	}
	// Windows cannot rename an open file.
	if err := file.Close(); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	// os.Rename would follow a symlink planted at the destination.
	if isSymlink(path) {
		return errors.NewInvalidRequest("export path is a symlink")
	}
	if err := os.Rename(tempPath, path); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(path); statErr == nil {
				return errors.NewInvalidRequest("export destination already exists; choose a new path or delete the existing file")
			}
		}
		return errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}
	return nil
}

// defaultExportPath returns <dir>/<context|all>-<timestamp>.<format>.
func defaultExportPath(dir, contextName, format string, now time.Time) string {
	name := "all"
	if contextName != "" {
		name = SanitizeForFilename(contextName)
	}
	return filepath.Join(dir, fmt.Sprintf("%s-%s.%s", name, now.Format("2006-01-02T150405"), format))
}
