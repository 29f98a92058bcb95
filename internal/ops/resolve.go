package ops

import (
	"context"
	"fmt"
	"slices"

	"github.com/hpungsan/jot/internal/errors"
	"github.com/hpungsan/jot/internal/jot"
	"github.com/hpungsan/jot/internal/vcs"
)

// detachedHead is what git reports as the branch of a detached checkout.
const detachedHead = "HEAD"

// ContextRef names the context an operation applies to. ID wins over Name;
// when both are empty the context is auto-detected.
type ContextRef struct {
	ID   *int64
	Name string
}

// ResolveContext returns the context ref points at.
//
//   - ID set: it must exist, else NOT_FOUND.
//   - Name non-empty after trimming: lookup-or-create by name.
//   - Otherwise: auto-detect (see CurrentContext).
func (s *Service) ResolveContext(ctx context.Context, ref ContextRef) (*jot.Context, error) {
	if ref.ID != nil {
		c, err := s.repo.GetContextByID(ctx, *ref.ID)
		if err != nil {
			return nil, err
		}
		if c == nil {
			return nil, errors.NewNotFound("context", fmt.Sprint(*ref.ID))
		}
		return c, nil
	}

	if name := jot.CleanName(ref.Name); name != "" {
		return s.repo.UpsertContext(ctx, name, nil, nil)
	}

	return s.CurrentContext(ctx)
}

// CurrentContext auto-detects the context for the working tree and returns
// it, creating it on first use.
func (s *Service) CurrentContext(ctx context.Context) (*jot.Context, error) {
	d := s.detect(ctx)
	return s.repo.UpsertContext(ctx, d.name, d.repository, d.branch)
}

// detection is the outcome of context auto-detection.
type detection struct {
	name       string
	repository *string
	branch     *string
}

// detect derives a context name from source control, then the working
// directory, then the configured default. Inspector failures only move the
// chain to the next step.
func (s *Service) detect(ctx context.Context) detection {
	var repoName, branch, dirName string

	if remote, err := s.inspector.RemoteURL(ctx); err == nil {
		repoName = vcs.RepoName(remote)
	}
	if b, err := s.inspector.CurrentBranch(ctx); err == nil {
		branch = b
	}
	if wd, err := s.inspector.WorkingDir(); err == nil {
		dirName = vcs.DirName(wd)
	}

	// A branch without a usable remote still identifies a work tree; the
	// directory stands in for the repository name.
	if repoName == "" && branch != "" {
		repoName = dirName
	}

	switch {
	case repoName != "" && branch != "":
		d := detection{repository: &repoName, branch: &branch}
		if s.isPrimaryBranch(branch) {
			d.name = repoName
		} else {
			d.name = repoName + "/" + branch
		}
		return d
	case repoName != "":
		return detection{name: repoName, repository: &repoName}
	case dirName != "":
		return detection{name: dirName}
	default:
		return detection{name: s.defaultContextName()}
	}
}

func (s *Service) isPrimaryBranch(branch string) bool {
	return branch == detachedHead || slices.Contains(s.cfg.PrimaryBranches, branch)
}

func (s *Service) defaultContextName() string {
	if name := jot.CleanName(s.cfg.DefaultContext); name != "" {
		return name
	}
	return "default"
}

// lookupContext resolves a context filter for reads. It never creates a
// context; found is false when the name or id matches nothing.
func (s *Service) lookupContext(ctx context.Context, id *int64, name string, current bool) (contextID *int64, found bool, err error) {
	switch {
	case id != nil:
		c, err := s.repo.GetContextByID(ctx, *id)
		if err != nil || c == nil {
			return nil, false, err
		}
		return &c.ID, true, nil
	case jot.CleanName(name) != "":
		c, err := s.repo.GetContextByName(ctx, jot.CleanName(name))
		if err != nil || c == nil {
			return nil, false, err
		}
		return &c.ID, true, nil
	case current:
		c, err := s.repo.GetContextByName(ctx, s.detect(ctx).name)
		if err != nil || c == nil {
			return nil, false, err
		}
		return &c.ID, true, nil
	default:
		return nil, true, nil
	}
}
