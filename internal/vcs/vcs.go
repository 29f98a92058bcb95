// Package vcs inspects the source-control state of a working directory.
package vcs

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path"
	"strings"
	"time"
)

// commandTimeout bounds each git invocation.
const commandTimeout = 5 * time.Second

// Inspector reports the remote, branch and directory that context
// auto-detection works from. Every method may fail; callers treat failure
// as "not available".
type Inspector interface {
	RemoteURL(ctx context.Context) (string, error)
	CurrentBranch(ctx context.Context) (string, error)
	WorkingDir() (string, error)
}

// Git queries a local working tree by running the git binary.
type Git struct {
	// Dir is the working tree to inspect; empty means the process working directory.
	Dir string
}

// NewGit returns a Git inspector for dir.
func NewGit(dir string) *Git {
	return &Git{Dir: dir}
}

// RemoteURL returns the URL of the "origin" remote.
func (g *Git) RemoteURL(ctx context.Context) (string, error) {
	return g.run(ctx, "config", "--get", "remote.origin.url")
}

// CurrentBranch returns the checked-out branch name ("HEAD" when detached).
func (g *Git) CurrentBranch(ctx context.Context) (string, error) {
	return g.run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
}

// WorkingDir returns Dir, or the process working directory when unset.
func (g *Git) WorkingDir() (string, error) {
	if g.Dir != "" {
		return g.Dir, nil
	}
	return os.Getwd()
}

func (g *Git) run(ctx context.Context, args ...string) (string, error) {
	execCtx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, "git", args...)
	if g.Dir != "" {
		cmd.Dir = g.Dir
	}

	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}

	out := strings.TrimSpace(string(output))
	if out == "" {
		return "", fmt.Errorf("git %s: empty output", strings.Join(args, " "))
	}
	return out, nil
}

// Static is an Inspector with fixed answers. A field left empty reports an
// error for that method, as if the information were unavailable.
type Static struct {
	Remote string
	Branch string
	Dir    string
}

// RemoteURL implements Inspector.
func (s Static) RemoteURL(context.Context) (string, error) {
	if s.Remote == "" {
		return "", fmt.Errorf("no remote")
	}
	return s.Remote, nil
}

// CurrentBranch implements Inspector.
func (s Static) CurrentBranch(context.Context) (string, error) {
	if s.Branch == "" {
		return "", fmt.Errorf("no branch")
	}
	return s.Branch, nil
}

// WorkingDir implements Inspector.
func (s Static) WorkingDir() (string, error) {
	if s.Dir == "" {
		return "", fmt.Errorf("no working directory")
	}
	return s.Dir, nil
}

// RepoName derives a short repository name from a remote URL: the last path
// segment with any trailing ".git" removed. Handles https, ssh and scp-style
// ("git@host:owner/repo.git") remotes as well as local paths.
// Returns "" when nothing usable remains.
func RepoName(remoteURL string) string {
	u := strings.TrimSpace(remoteURL)
	u = strings.TrimRight(u, "/\\")
	u = strings.TrimSuffix(u, ".git")
	u = strings.TrimRight(u, "/\\")

	if i := strings.LastIndexAny(u, "/\\:"); i >= 0 {
		u = u[i+1:]
	}
	if u == "" || u == "." || u == ".." {
		return ""
	}
	return u
}

// DirName returns the base name of dir, or "" when it is degenerate
// (empty, ".", or a filesystem root).
func DirName(dir string) string {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return ""
	}
	base := path.Base(strings.ReplaceAll(dir, "\\", "/"))
	switch base {
	case "", ".", "/", "..":
		return ""
	}
	if strings.HasSuffix(base, ":") {
		// Windows drive root such as "C:".
		return ""
	}
	return base
}
