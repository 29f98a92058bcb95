package ops

import (
	"context"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/hpungsan/jot/internal/db"
	"github.com/hpungsan/jot/internal/errors"
	"github.com/hpungsan/jot/internal/jot"
)

// MaxQueryLength caps the full-text query, in characters.
const MaxQueryLength = db.MaxSearchQueryChars

// dateOnly is the calendar-date form accepted for date bounds.
const dateOnly = "2006-01-02"

// SearchInput contains parameters for SearchJots. All filters are optional
// and combine with AND.
type SearchInput struct {
	Query          string   // full-text query, index syntax
	ContextID      *int64   // optional filter
	ContextName    string   // optional filter, looked up only
	CurrentContext bool     // filter to the auto-detected context
	Tags           []string // match any
	FromDate       string   // YYYY-MM-DD or RFC3339, inclusive
	ToDate         string   // YYYY-MM-DD (whole day) or RFC3339, inclusive
	IncludeExpired bool
	Limit          int // 0 = config default, max: config max
}

// SearchOutput contains the result of SearchJots.
type SearchOutput struct {
	Jots  []*jot.Jot `json:"jots"`
	Count int        `json:"count"`
}

// SearchJots returns matching jots, newest first. A context filter that names
// an unknown context yields an empty result rather than creating it.
func (s *Service) SearchJots(ctx context.Context, input SearchInput) (*SearchOutput, error) {
	input.Query = strings.TrimSpace(input.Query)
	if err := validation.ValidateStruct(&input,
		validation.Field(&input.Query, validation.RuneLength(0, MaxQueryLength)),
		validation.Field(&input.Limit, validation.Min(0), validation.Max(s.cfg.MaxSearchLimit)),
	); err != nil {
		return nil, validationError(err)
	}

	from, err := parseDateBound(input.FromDate, false)
	if err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("from_date: %v", err))
	}
	to, err := parseDateBound(input.ToDate, true)
	if err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("to_date: %v", err))
	}
	if from != nil && to != nil && from.After(*to) {
		return nil, errors.NewInvalidRequest("from_date must not be after to_date")
	}

	limit := input.Limit
	if limit == 0 {
		limit = s.cfg.DefaultSearchLimit
	}

	contextID, found, err := s.lookupContext(ctx, input.ContextID, input.ContextName, input.CurrentContext)
	if err != nil {
		return nil, err
	}
	if !found {
		return &SearchOutput{Jots: []*jot.Jot{}}, nil
	}

	jots, err := s.repo.SearchJots(ctx, db.SearchFilter{
		ContextID:      contextID,
		Query:          input.Query,
		Tags:           input.Tags,
		From:           from,
		To:             to,
		IncludeExpired: input.IncludeExpired,
		Limit:          limit,
	})
	if err != nil {
		return nil, err
	}

	s.sweepAsync()
	return &SearchOutput{Jots: jots, Count: len(jots)}, nil
}

// parseDateBound parses YYYY-MM-DD (UTC) or RFC3339. A date-only upper bound
// extends to the last millisecond of that day. Empty input means no bound.
func parseDateBound(value string, upper bool) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	if t, err := time.Parse(dateOnly, value); err == nil {
		if upper {
			t = t.Add(24*time.Hour - time.Millisecond)
		}
		return &t, nil
	}

	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, fmt.Errorf("expected YYYY-MM-DD or RFC3339, got %q", value)
	}
	t = t.UTC()
	return &t, nil
}
