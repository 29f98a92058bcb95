package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hpungsan/jot/internal/errors"
	"github.com/hpungsan/jot/internal/jot"
)

// jotSelect selects jot columns joined with the owning context's name.
const jotSelect = `
	SELECT j.id, j.uid, j.context_id, c.name, j.message, j.created_at, j.updated_at, j.expires_at
	FROM jots j
	JOIN contexts c ON c.id = j.context_id
`

// hydrateChunk bounds the IN list size when loading tags and metadata.
const hydrateChunk = 500

// NewJot contains the fields for CreateJot.
type NewJot struct {
	ContextID int64
	Message   string
	ExpiresAt *time.Time // nil = permanent
	Tags      []string
	Metadata  map[string]string
}

// JotUpdate contains the fields for UpdateJot. Nil fields are left untouched.
// Tags and Metadata, when set, replace the whole collection.
type JotUpdate struct {
	Message *string

	// SetExpiresAt replaces the expiry with ExpiresAt (nil = permanent).
	SetExpiresAt bool
	ExpiresAt    *time.Time

	Tags     *[]string
	Metadata *map[string]string
}

// Empty reports whether the update changes nothing.
func (u JotUpdate) Empty() bool {
	return u.Message == nil && !u.SetExpiresAt && u.Tags == nil && u.Metadata == nil
}

// CreateJot inserts a jot with its tags and metadata and bumps the owning
// context's updated_at, all in one transaction. Duplicate tags collapse.
// Returns NOT_FOUND if the context does not exist.
func (r *Repository) CreateJot(ctx context.Context, in NewJot) (*jot.Jot, error) {
	now := r.now()
	uid, err := newUID(now)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	var id int64
	err = r.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireContext(ctx, tx, in.ContextID); err != nil {
			return err
		}

		ts := toMillis(now)
		result, err := tx.ExecContext(ctx, `
			INSERT INTO jots (uid, context_id, message, created_at, updated_at, expires_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, uid, in.ContextID, in.Message, ts, ts, toNullMillis(in.ExpiresAt))
		if err != nil {
			return errors.NewInternal(err)
		}
		id, err = result.LastInsertId()
		if err != nil {
			return errors.NewInternal(err)
		}

		if err := insertTags(ctx, tx, id, in.Tags); err != nil {
			return err
		}
		if err := insertMetadata(ctx, tx, id, in.Metadata); err != nil {
			return err
		}
		return touchContext(ctx, tx, in.ContextID, now)
	})
	if err != nil {
		return nil, err
	}

	return r.GetJot(ctx, id)
}

// GetJot retrieves a fully hydrated jot. Returns nil, nil when absent.
// Expired jots are returned; expiry filtering belongs to search.
func (r *Repository) GetJot(ctx context.Context, id int64) (*jot.Jot, error) {
	rows, err := r.db.QueryContext(ctx, jotSelect+" WHERE j.id = ?", id)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	jots, err := r.collectJots(ctx, rows)
	if err != nil {
		return nil, err
	}
	if len(jots) == 0 {
		return nil, nil
	}
	return jots[0], nil
}

// UpdateJot applies a partial update in one transaction. Returns nil, nil if
// the jot does not exist. Any change refreshes the jot's updated_at and the
// owning context's updated_at.
func (r *Repository) UpdateJot(ctx context.Context, id int64, u JotUpdate) (*jot.Jot, error) {
	found := true
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var contextID int64
		err := tx.QueryRowContext(ctx, `SELECT context_id FROM jots WHERE id = ?`, id).Scan(&contextID)
		if err == sql.ErrNoRows {
			found = false
			return nil
		}
		if err != nil {
			return errors.NewInternal(err)
		}
		if u.Empty() {
			return nil
		}

		now := r.now()
		q := &updateQuery{table: "jots"}
		if u.Message != nil {
			q.set("message", *u.Message)
		}
		if u.SetExpiresAt {
			q.set("expires_at", toNullMillis(u.ExpiresAt))
		}
		q.set("updated_at", toMillis(now))
		q.where("id = ?", id)

		query, args := q.build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return errors.NewInternal(err)
		}

		if u.Tags != nil {
			if _, err := tx.ExecContext(ctx, `DELETE FROM jot_tags WHERE jot_id = ?`, id); err != nil {
				return errors.NewInternal(err)
			}
			if err := insertTags(ctx, tx, id, *u.Tags); err != nil {
				return err
			}
		}
		if u.Metadata != nil {
			if _, err := tx.ExecContext(ctx, `DELETE FROM jot_metadata WHERE jot_id = ?`, id); err != nil {
				return errors.NewInternal(err)
			}
			if err := insertMetadata(ctx, tx, id, *u.Metadata); err != nil {
				return err
			}
		}

		return touchContext(ctx, tx, contextID, now)
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	return r.GetJot(ctx, id)
}

// DeleteJot removes a jot (tags, metadata and index entries go with it).
// Returns false if no jot had that id.
func (r *Repository) DeleteJot(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM jots WHERE id = ?`, id)
	if err != nil {
		return false, errors.NewInternal(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, errors.NewInternal(err)
	}
	return n > 0, nil
}

// requireContext fails with NOT_FOUND when the context id does not exist.
func requireContext(ctx context.Context, q queryer, contextID int64) error {
	var exists int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM contexts WHERE id = ?`, contextID).Scan(&exists)
	if err == sql.ErrNoRows {
		return errors.NewNotFound("context", fmt.Sprint(contextID))
	}
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// insertTags writes the normalized tag set for a jot.
func insertTags(ctx context.Context, q queryer, jotID int64, tags []string) error {
	for _, tag := range jot.NormalizeTags(tags) {
		if _, err := q.ExecContext(ctx, `INSERT INTO jot_tags (jot_id, tag) VALUES (?, ?)`, jotID, tag); err != nil {
			return errors.NewInternal(err)
		}
	}
	return nil
}

// insertMetadata writes the normalized metadata map for a jot.
func insertMetadata(ctx context.Context, q queryer, jotID int64, md map[string]string) error {
	for key, value := range jot.NormalizeMetadata(md) {
		if _, err := q.ExecContext(ctx, `
			INSERT INTO jot_metadata (jot_id, key, value) VALUES (?, ?, ?)
			ON CONFLICT(jot_id, key) DO UPDATE SET value = excluded.value
		`, jotID, key, value); err != nil {
			return errors.NewInternal(err)
		}
	}
	return nil
}

// collectJots scans jot rows (closing them) and hydrates tags and metadata.
func (r *Repository) collectJots(ctx context.Context, rows *sql.Rows) ([]*jot.Jot, error) {
	defer rows.Close()

	jots := make([]*jot.Jot, 0)
	for rows.Next() {
		j, err := scanJot(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		jots = append(jots, j)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	rows.Close()

	if err := hydrate(ctx, r.db, jots); err != nil {
		return nil, err
	}
	return jots, nil
}

// hydrate loads tags and metadata for the given jots in batches.
func hydrate(ctx context.Context, q queryer, jots []*jot.Jot) error {
	byID := make(map[int64]*jot.Jot, len(jots))
	ids := make([]any, 0, len(jots))
	for _, j := range jots {
		j.Tags = []string{}
		j.Metadata = map[string]string{}
		byID[j.ID] = j
		ids = append(ids, j.ID)
	}

	for start := 0; start < len(ids); start += hydrateChunk {
		end := min(start+hydrateChunk, len(ids))
		chunk := ids[start:end]
		in := placeholders(len(chunk))

		rows, err := q.QueryContext(ctx, `SELECT jot_id, tag FROM jot_tags WHERE jot_id IN (`+in+`) ORDER BY jot_id, tag`, chunk...)
		if err != nil {
			return errors.NewInternal(err)
		}
		for rows.Next() {
			var (
				id  int64
				tag string
			)
			if err := rows.Scan(&id, &tag); err != nil {
				rows.Close()
				return errors.NewInternal(err)
			}
			byID[id].Tags = append(byID[id].Tags, tag)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return errors.NewInternal(err)
		}
		rows.Close()

		rows, err = q.QueryContext(ctx, `SELECT jot_id, key, value FROM jot_metadata WHERE jot_id IN (`+in+`)`, chunk...)
		if err != nil {
			return errors.NewInternal(err)
		}
		for rows.Next() {
			var (
				id         int64
				key, value string
			)
			if err := rows.Scan(&id, &key, &value); err != nil {
				rows.Close()
				return errors.NewInternal(err)
			}
			byID[id].Metadata[key] = value
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return errors.NewInternal(err)
		}
		rows.Close()
	}
	return nil
}

// scanJot scans a single jot row (without tags/metadata).
func scanJot(row rowScanner) (*jot.Jot, error) {
	var (
		j         jot.Jot
		createdAt int64
		updatedAt int64
		expiresAt sql.NullInt64
	)
	err := row.Scan(&j.ID, &j.UID, &j.ContextID, &j.ContextName, &j.Message, &createdAt, &updatedAt, &expiresAt)
	if err != nil {
		return nil, err
	}
	j.CreatedAt = fromMillis(createdAt)
	j.UpdatedAt = fromMillis(updatedAt)
	j.ExpiresAt = fromNullMillis(expiresAt)
	return &j, nil
}
