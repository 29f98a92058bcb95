package vcs

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepoName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://github.com/acme/api-server.git", "api-server"},
		{"https://github.com/acme/api-server", "api-server"},
		{"https://github.com/acme/api-server/", "api-server"},
		{"git@github.com:acme/widget.git", "widget"},
		{"git@github.com:widget.git", "widget"},
		{"ssh://git@host:2222/team/tool.git", "tool"},
		{"/srv/git/local-repo.git", "local-repo"},
		{"  https://example.com/x/y.git\n", "y"},
		{"", ""},
		{".git", ""},
		{"https://example.com/", "example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, RepoName(tt.in))
		})
	}
}

func TestDirName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/home/me/projects/notes", "notes"},
		{"/home/me/projects/notes/", "notes"},
		{"relative/dir", "dir"},
		{`C:\Users\me\work`, "work"},
		{"/", ""},
		{".", ""},
		{"", ""},
		{`C:\`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, DirName(tt.in))
		})
	}
}

func TestStatic(t *testing.T) {
	ctx := context.Background()

	empty := Static{}
	_, err := empty.RemoteURL(ctx)
	assert.Error(t, err)
	_, err = empty.CurrentBranch(ctx)
	assert.Error(t, err)
	_, err = empty.WorkingDir()
	assert.Error(t, err)

	full := Static{Remote: "git@h:o/r.git", Branch: "main", Dir: "/tmp/r"}
	remote, err := full.RemoteURL(ctx)
	require.NoError(t, err)
	assert.Equal(t, "git@h:o/r.git", remote)
	branch, err := full.CurrentBranch(ctx)
	require.NoError(t, err)
	assert.Equal(t, "main", branch)
	dir, err := full.WorkingDir()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/r", dir)
}

func TestGit_NotARepository(t *testing.T) {
	dir := t.TempDir()
	g := NewGit(dir)

	// Outside a work tree (or without git installed) both lookups fail cleanly.
	_, err := g.RemoteURL(context.Background())
	assert.Error(t, err)

	wd, err := g.WorkingDir()
	require.NoError(t, err)
	assert.Equal(t, dir, wd)
}

func TestGit_Repository(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	dir := filepath.Join(t.TempDir(), "sample")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	gitCmd := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, string(out))
	}
	gitCmd("init", "-q")
	gitCmd("checkout", "-q", "-b", "feature-x")
	gitCmd("-c", "user.email=t@example.com", "-c", "user.name=t", "commit", "-q", "--allow-empty", "-m", "init")
	gitCmd("remote", "add", "origin", "git@example.com:team/sample-repo.git")

	g := NewGit(dir)
	ctx := context.Background()

	remote, err := g.RemoteURL(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sample-repo", RepoName(remote))

	branch, err := g.CurrentBranch(ctx)
	require.NoError(t, err)
	assert.Equal(t, "feature-x", branch)
}

func TestGit_DefaultsToProcessDir(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)

	got, err := NewGit("").WorkingDir()
	require.NoError(t, err)
	assert.Equal(t, wd, got)
}
