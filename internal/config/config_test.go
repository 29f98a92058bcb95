package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

func TestLoad_DefaultWhenMissing(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DefaultTTL() != 30 {
		t.Errorf("DefaultTTL() = %d, want 30", cfg.DefaultTTL())
	}
	if cfg.DefaultContext != "default" {
		t.Errorf("DefaultContext = %q, want %q", cfg.DefaultContext, "default")
	}
	if !cfg.AutoCleanupEnabled() {
		t.Error("AutoCleanupEnabled() = false, want true")
	}
	if len(cfg.PrimaryBranches) != 2 {
		t.Errorf("PrimaryBranches = %v, want [main master]", cfg.PrimaryBranches)
	}
}

func TestLoad_OverridesFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, "default_ttl_days: 7\nexpiring_window_days: 3\ndefault_context: scratch\n")

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DefaultTTL() != 7 {
		t.Errorf("DefaultTTL() = %d, want 7", cfg.DefaultTTL())
	}
	if cfg.ExpiringWindowDays != 3 {
		t.Errorf("ExpiringWindowDays = %d, want 3", cfg.ExpiringWindowDays)
	}
	if cfg.DefaultContext != "scratch" {
		t.Errorf("DefaultContext = %q, want %q", cfg.DefaultContext, "scratch")
	}
}

func TestLoad_ExplicitZeroTTLMeansPermanent(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, "default_ttl_days: 0\n")

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DefaultTTL() != 0 {
		t.Errorf("DefaultTTL() = %d, want 0", cfg.DefaultTTL())
	}
}

func TestLoad_ExpandsEnv(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("JOT_TEST_CONTEXT", "from-env")
	writeConfig(t, tmpDir, "default_context: ${JOT_TEST_CONTEXT}\n")

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DefaultContext != "from-env" {
		t.Errorf("DefaultContext = %q, want %q", cfg.DefaultContext, "from-env")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, "default_ttl_days: [not an int\n")

	if _, err := Load(tmpDir); err == nil {
		t.Fatal("Load() expected error, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"negative ttl", "default_ttl_days: -1\n"},
		{"default limit above max", "default_search_limit: 900\nmax_search_limit: 100\n"},
		{"unknown log level", "log_level: chatty\n"},
		{"negative window", "expiring_window_days: -2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			writeConfig(t, tmpDir, tt.content)
			if _, err := Load(tmpDir); err == nil {
				t.Fatal("Load() expected validation error, got nil")
			}
		})
	}
}

func TestLoadWithRepo_RepoOverridesGlobal(t *testing.T) {
	globalDir := t.TempDir()
	repoRoot := t.TempDir()
	nested := filepath.Join(repoRoot, "pkg", "deep")
	if err := os.MkdirAll(nested, 0700); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}

	writeConfig(t, globalDir, "default_ttl_days: 10\ndisabled_tools: [jot_cleanup]\nauto_cleanup: true\n")
	writeConfig(t, filepath.Join(repoRoot, RepoDirName), "default_ttl_days: 2\ndisabled_tools: [jot_import, jot_cleanup]\nauto_cleanup: false\n")

	cfg, err := LoadWithRepo(globalDir, nested)
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}
	if cfg.DefaultTTL() != 2 {
		t.Errorf("DefaultTTL() = %d, want 2 (repo wins)", cfg.DefaultTTL())
	}
	if cfg.AutoCleanupEnabled() {
		t.Error("AutoCleanupEnabled() = true, want false (repo wins)")
	}
	if len(cfg.DisabledTools) != 2 {
		t.Errorf("DisabledTools = %v, want merged and deduplicated", cfg.DisabledTools)
	}
}

func TestFindRepoConfig_NotFound(t *testing.T) {
	if got := FindRepoConfig(t.TempDir()); got != "" {
		t.Errorf("FindRepoConfig() = %q, want empty", got)
	}
	if got := FindRepoConfig(""); got != "" {
		t.Errorf("FindRepoConfig(\"\") = %q, want empty", got)
	}
}

func TestMerge_StringSlicesTrimmedAndDeduplicated(t *testing.T) {
	base := &Config{AllowedPaths: []string{"/a", " /b "}}
	overlay := &Config{AllowedPaths: []string{"/b", "", "/c"}}

	got := Merge(base, overlay).AllowedPaths
	want := []string{"/a", "/b", "/c"}
	if len(got) != len(want) {
		t.Fatalf("AllowedPaths = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("AllowedPaths[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSlogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
	}
	for in, want := range tests {
		cfg := &Config{LogLevel: in}
		if got := cfg.SlogLevel(); got != want {
			t.Errorf("SlogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestHomeDirAndDBPath(t *testing.T) {
	custom := t.TempDir()
	t.Setenv(EnvHome, custom)
	t.Setenv(EnvDBPath, "")

	home, err := HomeDir()
	if err != nil {
		t.Fatalf("HomeDir() error = %v", err)
	}
	if home != custom {
		t.Errorf("HomeDir() = %q, want %q", home, custom)
	}
	if got := DBPath(home); got != filepath.Join(custom, "jot.db") {
		t.Errorf("DBPath() = %q", got)
	}

	t.Setenv(EnvDBPath, "/elsewhere/notes.db")
	if got := DBPath(home); got != "/elsewhere/notes.db" {
		t.Errorf("DBPath() with override = %q", got)
	}

	t.Setenv(EnvHome, "")
	home, err = HomeDir()
	if err != nil {
		t.Fatalf("HomeDir() error = %v", err)
	}
	if filepath.Base(home) != ".jot" {
		t.Errorf("HomeDir() default = %q, want ~/.jot", home)
	}
}
