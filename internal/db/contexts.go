package db

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/hpungsan/jot/internal/errors"
	"github.com/hpungsan/jot/internal/jot"
)

// contextSelect selects context columns plus a live jot count.
const contextSelect = `
	SELECT c.id, c.name, c.repository, c.branch, c.created_at, c.updated_at,
		(SELECT COUNT(*) FROM jots j WHERE j.context_id = c.id) AS jot_count
	FROM contexts c
`

// UpsertContext returns the context named name, creating it with the given
// repository/branch labels if it does not exist. An existing context is
// returned unchanged: its labels are never overwritten.
func (r *Repository) UpsertContext(ctx context.Context, name string, repository, branch *string) (*jot.Context, error) {
	var c *jot.Context
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		c, err = upsertContext(ctx, tx, name, repository, branch, r.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// upsertContext is the lookup-or-insert shared by UpsertContext and import.
func upsertContext(ctx context.Context, q queryer, name string, repository, branch *string, now time.Time) (*jot.Context, error) {
	ts := toMillis(now)
	_, err := q.ExecContext(ctx, `
		INSERT INTO contexts (name, repository, branch, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO NOTHING
	`, name, toNullString(repository), toNullString(branch), ts, ts)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	c, err := scanContext(q.QueryRowContext(ctx, contextSelect+" WHERE c.name = ?", name))
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return c, nil
}

// GetContextByID retrieves a context by id. Returns nil, nil when absent.
func (r *Repository) GetContextByID(ctx context.Context, id int64) (*jot.Context, error) {
	return r.getContext(ctx, " WHERE c.id = ?", id)
}

// GetContextByName retrieves a context by exact name. Returns nil, nil when absent.
func (r *Repository) GetContextByName(ctx context.Context, name string) (*jot.Context, error) {
	return r.getContext(ctx, " WHERE c.name = ?", name)
}

// GetContext looks a context up by id or name. A numeric ref is tried as an
// id first and then as a name, so a context literally named "42" is still
// reachable when no context has id 42. Returns nil, nil when absent.
func (r *Repository) GetContext(ctx context.Context, idOrName string) (*jot.Context, error) {
	if id, err := strconv.ParseInt(idOrName, 10, 64); err == nil {
		c, err := r.GetContextByID(ctx, id)
		if err != nil || c != nil {
			return c, err
		}
	}
	return r.GetContextByName(ctx, idOrName)
}

func (r *Repository) getContext(ctx context.Context, where string, arg any) (*jot.Context, error) {
	c, err := scanContext(r.db.QueryRowContext(ctx, contextSelect+where, arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return c, nil
}

// ListContexts returns all contexts, most recently modified first.
func (r *Repository) ListContexts(ctx context.Context) ([]*jot.Context, error) {
	rows, err := r.db.QueryContext(ctx, contextSelect+" ORDER BY c.updated_at DESC, c.id DESC")
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	contexts := make([]*jot.Context, 0)
	for rows.Next() {
		c, err := scanContext(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		contexts = append(contexts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return contexts, nil
}

// DeleteContext removes a context (by id or name) and, through cascading
// foreign keys, all of its jots with their tags and metadata.
// Returns false if nothing matched.
func (r *Repository) DeleteContext(ctx context.Context, idOrName string) (bool, error) {
	c, err := r.GetContext(ctx, idOrName)
	if err != nil {
		return false, err
	}
	if c == nil {
		return false, nil
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM contexts WHERE id = ?`, c.ID)
	if err != nil {
		return false, errors.NewInternal(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, errors.NewInternal(err)
	}
	return n > 0, nil
}

// touchContext bumps a context's updated_at.
func touchContext(ctx context.Context, q queryer, contextID int64, now time.Time) error {
	if _, err := q.ExecContext(ctx, `UPDATE contexts SET updated_at = ? WHERE id = ?`, toMillis(now), contextID); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanContext scans a single context row.
func scanContext(row rowScanner) (*jot.Context, error) {
	var (
		c          jot.Context
		repository sql.NullString
		branch     sql.NullString
		createdAt  int64
		updatedAt  int64
	)
	if err := row.Scan(&c.ID, &c.Name, &repository, &branch, &createdAt, &updatedAt, &c.JotCount); err != nil {
		return nil, err
	}
	c.Repository = fromNullString(repository)
	c.Branch = fromNullString(branch)
	c.CreatedAt = fromMillis(createdAt)
	c.UpdatedAt = fromMillis(updatedAt)
	return &c, nil
}
