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

// MaxTTLDays bounds a TTL in either direction (about a century).
const MaxTTLDays = 36_500

// notBlank rejects a message made only of whitespace. The message itself is
// stored exactly as supplied.
var notBlank = validation.By(func(value any) error {
	v, isNil := validation.Indirect(value)
	if isNil {
		return nil
	}
	if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
		return validation.ErrRequired
	}
	return nil
})

// CreateJotInput contains parameters for CreateJot.
type CreateJotInput struct {
	Message     string // required
	ContextID   *int64 // optional, wins over ContextName
	ContextName string // optional, created on first use
	TTLDays     *int   // nil = config default, 0 = permanent, negative = already expired
	Tags        []string
	Metadata    map[string]string
}

// UpdateJotInput contains parameters for UpdateJot. Nil fields are unchanged;
// Tags and Metadata replace the whole collection.
type UpdateJotInput struct {
	ID       int64
	Message  *string
	TTLDays  *int // recomputed from now; 0 = permanent
	Tags     *[]string
	Metadata *map[string]string
}

// CreateJot resolves the owning context, computes the expiry and stores the jot.
func (s *Service) CreateJot(ctx context.Context, input CreateJotInput) (*jot.Jot, error) {
	if err := validation.ValidateStruct(&input,
		validation.Field(&input.Message, validation.Required, notBlank),
		validation.Field(&input.TTLDays, validation.Min(-MaxTTLDays), validation.Max(MaxTTLDays)),
	); err != nil {
		return nil, validationError(err)
	}

	c, err := s.ResolveContext(ctx, ContextRef{ID: input.ContextID, Name: input.ContextName})
	if err != nil {
		return nil, err
	}

	return s.repo.CreateJot(ctx, db.NewJot{
		ContextID: c.ID,
		Message:   input.Message,
		ExpiresAt: s.expiresAt(input.TTLDays),
		Tags:      input.Tags,
		Metadata:  input.Metadata,
	})
}

// GetJot returns a jot by id, expired or not. NOT_FOUND when absent.
func (s *Service) GetJot(ctx context.Context, id int64) (*jot.Jot, error) {
	j, err := s.repo.GetJot(ctx, id)
	if err != nil {
		return nil, err
	}
	if j == nil {
		return nil, errors.NewNotFound("jot", fmt.Sprint(id))
	}
	s.sweepAsync()
	return j, nil
}

// UpdateJot applies a partial update. At least one field must be given.
func (s *Service) UpdateJot(ctx context.Context, input UpdateJotInput) (*jot.Jot, error) {
	if err := validation.ValidateStruct(&input,
		validation.Field(&input.ID, validation.Required, validation.Min(int64(1))),
		validation.Field(&input.Message, validation.NilOrNotEmpty, notBlank),
		validation.Field(&input.TTLDays, validation.Min(-MaxTTLDays), validation.Max(MaxTTLDays)),
	); err != nil {
		return nil, validationError(err)
	}

	u := db.JotUpdate{
		Message:  input.Message,
		Tags:     input.Tags,
		Metadata: input.Metadata,
	}
	if input.TTLDays != nil {
		u.SetExpiresAt = true
		u.ExpiresAt = s.expiresAt(input.TTLDays)
	}
	if u.Empty() {
		return nil, errors.NewInvalidRequest("at least one of message, ttl_days, tags or metadata is required")
	}

	j, err := s.repo.UpdateJot(ctx, input.ID, u)
	if err != nil {
		return nil, err
	}
	if j == nil {
		return nil, errors.NewNotFound("jot", fmt.Sprint(input.ID))
	}
	return j, nil
}

// DeleteJot removes a jot. Deleting a missing jot reports Deleted=false.
func (s *Service) DeleteJot(ctx context.Context, id int64) (*DeleteOutput, error) {
	deleted, err := s.repo.DeleteJot(ctx, id)
	if err != nil {
		return nil, err
	}
	return &DeleteOutput{Deleted: deleted}, nil
}

// expiresAt computes an expiry from a TTL in days, relative to the
// repository clock. nil applies the configured default; 0 means permanent.
func (s *Service) expiresAt(ttlDays *int) *time.Time {
	days := s.cfg.DefaultTTL()
	if ttlDays != nil {
		days = *ttlDays
	}
	if days == 0 {
		return nil
	}
	t := s.repo.Now().Add(time.Duration(days) * 24 * time.Hour)
	return &t
}
