package db

import (
	"context"
	"time"

	"github.com/hpungsan/jot/internal/errors"
	"github.com/hpungsan/jot/internal/jot"
)

// DeleteExpiredJots removes every jot whose expiry has strictly passed and
// returns how many were removed. Permanent jots are never touched.
func (r *Repository) DeleteExpiredJots(ctx context.Context) (int, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM jots WHERE expires_at IS NOT NULL AND expires_at < ?`,
		toMillis(r.now()),
	)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return int(n), nil
}

// GetExpiringSoon returns jots expiring strictly in the future and within
// windowDays days from now, soonest first.
func (r *Repository) GetExpiringSoon(ctx context.Context, windowDays int) ([]*jot.Jot, error) {
	now := r.now()
	horizon := now.Add(time.Duration(windowDays) * 24 * time.Hour)

	rows, err := r.db.QueryContext(ctx, jotSelect+`
		WHERE j.expires_at IS NOT NULL AND j.expires_at > ? AND j.expires_at <= ?
		ORDER BY j.expires_at ASC, j.id ASC
	`, toMillis(now), toMillis(horizon))
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return r.collectJots(ctx, rows)
}
