package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/jot/internal/errors"
	"github.com/hpungsan/jot/internal/jot"
)

// ListContextsOutput contains the result of ListContexts.
type ListContextsOutput struct {
	Contexts []*jot.Context `json:"contexts"`
	Count    int            `json:"count"`
}

// ListContexts returns every context, most recently modified first.
func (s *Service) ListContexts(ctx context.Context) (*ListContextsOutput, error) {
	contexts, err := s.repo.ListContexts(ctx)
	if err != nil {
		return nil, err
	}
	return &ListContextsOutput{Contexts: contexts, Count: len(contexts)}, nil
}

// GetContext looks a context up by id or name. NOT_FOUND when absent.
func (s *Service) GetContext(ctx context.Context, idOrName string) (*jot.Context, error) {
	ref := strings.TrimSpace(idOrName)
	if ref == "" {
		return nil, errors.NewInvalidRequest("context id or name is required")
	}

	c, err := s.repo.GetContext(ctx, ref)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, errors.NewNotFound("context", ref)
	}
	return c, nil
}

// DeleteContext removes a context and all of its jots.
func (s *Service) DeleteContext(ctx context.Context, idOrName string) (*DeleteOutput, error) {
	ref := strings.TrimSpace(idOrName)
	if ref == "" {
		return nil, errors.NewInvalidRequest("context id or name is required")
	}

	deleted, err := s.repo.DeleteContext(ctx, ref)
	if err != nil {
		return nil, err
	}
	if deleted {
		s.logger.Info("context deleted", "context", ref)
	}
	return &DeleteOutput{Deleted: deleted}, nil
}
