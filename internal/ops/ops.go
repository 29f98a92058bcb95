package ops

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hpungsan/jot/internal/config"
	"github.com/hpungsan/jot/internal/db"
	"github.com/hpungsan/jot/internal/errors"
	"github.com/hpungsan/jot/internal/vcs"
)

// sweepTimeout bounds a single opportunistic expiration sweep.
const sweepTimeout = 30 * time.Second

// Service implements the jot operations on top of the repository: context
// resolution, expiry computation, input validation and maintenance sweeps.
type Service struct {
	repo      *db.Repository
	cfg       *config.Config
	inspector vcs.Inspector
	logger    *slog.Logger
	home      string

	sweeps singleflight.Group
	mu     sync.Mutex
	wg     sync.WaitGroup
	closed bool
}

// Option configures a Service.
type Option func(*Service)

// WithInspector sets the source-control inspector used for context auto-detection.
func WithInspector(insp vcs.Inspector) Option {
	return func(s *Service) {
		s.inspector = insp
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithHome sets the base directory; exports default to <home>/exports.
func WithHome(home string) Option {
	return func(s *Service) {
		s.home = home
	}
}

// NewService creates a Service. A nil cfg means config.DefaultConfig().
func NewService(repo *db.Repository, cfg *config.Config, opts ...Option) *Service {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	s := &Service{
		repo:      repo,
		cfg:       cfg,
		inspector: vcs.NewGit(""),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the effective configuration.
func (s *Service) Config() *config.Config {
	return s.cfg
}

// Logger returns the service logger.
func (s *Service) Logger() *slog.Logger {
	return s.logger
}

// Close waits for in-flight sweeps and stops new ones from starting.
// It does not close the database.
func (s *Service) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.wg.Wait()
}

// DeleteOutput reports whether a delete removed anything.
type DeleteOutput struct {
	Deleted bool `json:"deleted"`
}

// sweepAsync starts an expiration sweep in the background after a read.
// Concurrent triggers share one sweep. Failures are logged, never returned.
func (s *Service) sweepAsync() {
	if !s.cfg.AutoCleanupEnabled() {
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		_, _, _ = s.sweeps.Do("sweep", func() (any, error) {
			ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
			defer cancel()

			n, err := s.repo.DeleteExpiredJots(ctx)
			if err != nil {
				s.logger.Warn("expiration sweep failed", "error", err)
				return nil, err
			}
			if n > 0 {
				s.logger.Info("expired jots removed", "count", n)
			}
			return n, nil
		})
	}()
}

// validationError converts an ozzo validation failure into INVALID_REQUEST.
func validationError(err error) error {
	if err == nil {
		return nil
	}
	return errors.NewInvalidRequest(err.Error())
}
