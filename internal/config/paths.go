package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Environment variables that relocate jot's files.
const (
	EnvHome   = "JOT_HOME"
	EnvDBPath = "JOT_DB_PATH"
)

// HomeDir returns $JOT_HOME, or ~/.jot when unset.
func HomeDir() (string, error) {
	if dir := os.Getenv(EnvHome); dir != "" {
		return filepath.Abs(dir)
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(userHome, ".jot"), nil
}

// DBPath returns $JOT_DB_PATH, or jot.db inside home when unset.
func DBPath(home string) string {
	if p := os.Getenv(EnvDBPath); p != "" {
		return p
	}
	return filepath.Join(home, "jot.db")
}
