package jot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTags(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{"nil", nil, []string{}},
		{"single", []string{"bug"}, []string{"bug"}},
		{"duplicates collapse", []string{"bug", "urgent", "bug"}, []string{"bug", "urgent"}},
		{"trimmed duplicates collapse", []string{" bug", "bug "}, []string{"bug"}},
		{"empty dropped", []string{"", "  ", "x"}, []string{"x"}},
		{"sorted", []string{"zeta", "alpha"}, []string{"alpha", "zeta"}},
		{"case preserved", []string{"Bug", "bug"}, []string{"Bug", "bug"}},
		{"unicode", []string{"баг", "バグ"}, []string{"баг", "バグ"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeTags(tt.input))
		})
	}
}

func TestNormalizeMetadata(t *testing.T) {
	got := NormalizeMetadata(map[string]string{
		" file ": "main.go",
		"":       "dropped",
		"  ":     "dropped too",
		"line":   "42",
	})
	assert.Equal(t, map[string]string{"file": "main.go", "line": "42"}, got)
}

func TestNormalizeMetadata_Nil(t *testing.T) {
	got := NormalizeMetadata(nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestMetadataFromPairs_LastWriteWins(t *testing.T) {
	got := MetadataFromPairs([]string{"k=first", "other=x", "k=second", "flag", "=novalue"})
	assert.Equal(t, map[string]string{"k": "second", "other": "x", "flag": ""}, got)
}

func TestMetadataFromPairs_ValueKeepsEquals(t *testing.T) {
	got := MetadataFromPairs([]string{"expr=a=b"})
	assert.Equal(t, "a=b", got["expr"])
}

func TestCleanName(t *testing.T) {
	assert.Equal(t, "", CleanName("   "))
	assert.Equal(t, "api/main", CleanName("  api/main \n"))
}

func TestJot_Expired(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	past := now.Add(-time.Second)
	future := now.Add(time.Second)

	assert.False(t, (&Jot{}).Expired(now), "permanent jot never expires")
	assert.True(t, (&Jot{ExpiresAt: &past}).Expired(now))
	assert.False(t, (&Jot{ExpiresAt: &future}).Expired(now))
	assert.False(t, (&Jot{ExpiresAt: &now}).Expired(now), "expiry must strictly pass")
}
