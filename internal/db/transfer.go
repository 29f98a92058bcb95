package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/hpungsan/jot/internal/errors"
	"github.com/hpungsan/jot/internal/jot"
)

// ImportRecord is a jot read from an export file. The context is addressed
// by name and created on demand.
type ImportRecord struct {
	UID         string
	ContextName string
	Repository  *string
	Branch      *string
	Message     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ExpiresAt   *time.Time
	Tags        []string
	Metadata    map[string]string
}

// ImportResult summarizes an ImportJots call.
type ImportResult struct {
	Imported int
	Skipped  int
}

// ExportJots returns jots oldest first, optionally restricted to one context.
// Expired jots are included only when includeExpired is true.
func (r *Repository) ExportJots(ctx context.Context, contextID *int64, includeExpired bool) ([]*jot.Jot, error) {
	q := &selectQuery{
		base:    jotSelect,
		orderBy: "j.created_at ASC, j.id ASC",
	}
	if contextID != nil {
		q.where("j.context_id = ?", *contextID)
	}
	if !includeExpired {
		q.where("(j.expires_at IS NULL OR j.expires_at >= ?)", toMillis(r.now()))
	}

	query, args := q.build()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return r.collectJots(ctx, rows)
}

// ImportJots inserts records in a single transaction. Records whose UID is
// already present are skipped, so re-importing the same file is a no-op.
// Original timestamps are preserved; each touched context is bumped to now.
func (r *Repository) ImportJots(ctx context.Context, records []ImportRecord) (ImportResult, error) {
	var res ImportResult
	now := r.now()

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		for _, rec := range records {
			var exists int
			err := tx.QueryRowContext(ctx, `SELECT 1 FROM jots WHERE uid = ?`, rec.UID).Scan(&exists)
			if err == nil {
				res.Skipped++
				continue
			}
			if err != sql.ErrNoRows {
				return errors.NewInternal(err)
			}

			c, err := upsertContext(ctx, tx, rec.ContextName, rec.Repository, rec.Branch, now)
			if err != nil {
				return err
			}

			result, err := tx.ExecContext(ctx, `
				INSERT INTO jots (uid, context_id, message, created_at, updated_at, expires_at)
				VALUES (?, ?, ?, ?, ?, ?)
			`, rec.UID, c.ID, rec.Message, toMillis(rec.CreatedAt), toMillis(rec.UpdatedAt), toNullMillis(rec.ExpiresAt))
			if err != nil {
				return errors.NewInternal(err)
			}
			id, err := result.LastInsertId()
			if err != nil {
				return errors.NewInternal(err)
			}

			if err := insertTags(ctx, tx, id, rec.Tags); err != nil {
				return err
			}
			if err := insertMetadata(ctx, tx, id, rec.Metadata); err != nil {
				return err
			}
			if err := touchContext(ctx, tx, c.ID, now); err != nil {
				return err
			}
			res.Imported++
		}
		return nil
	})
	if err != nil {
		return ImportResult{}, err
	}
	return res, nil
}
