package ops

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/hpungsan/jot/internal/errors"
	"github.com/hpungsan/jot/internal/jot"
)

// CleanupOutput contains the result of Cleanup.
type CleanupOutput struct {
	Deleted int `json:"deleted"`
}

// ExpiringOutput contains the result of ExpiringSoon.
type ExpiringOutput struct {
	Jots       []*jot.Jot `json:"jots"`
	Count      int        `json:"count"`
	WindowDays int        `json:"window_days"`
}

// Cleanup deletes every jot whose expiry has passed.
func (s *Service) Cleanup(ctx context.Context) (*CleanupOutput, error) {
	n, err := s.repo.DeleteExpiredJots(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("expired jots removed", "count", n)
	return &CleanupOutput{Deleted: n}, nil
}

// ExpiringSoon lists jots expiring within days (config default when nil),
// soonest first.
func (s *Service) ExpiringSoon(ctx context.Context, days *int) (*ExpiringOutput, error) {
	// Min skips zero values, so a zero window is rejected explicitly.
	if days != nil && *days < 1 {
		return nil, errors.NewInvalidRequest("days: must be no less than 1")
	}
	if err := validation.Validate(days, validation.Max(MaxTTLDays)); err != nil {
		return nil, validationError(err)
	}

	window := s.cfg.ExpiringWindowDays
	if days != nil {
		window = *days
	}

	jots, err := s.repo.GetExpiringSoon(ctx, window)
	if err != nil {
		return nil, err
	}

	s.sweepAsync()
	return &ExpiringOutput{Jots: jots, Count: len(jots), WindowDays: window}, nil
}
