package jot

import (
	"sort"
	"strings"
)

// NormalizeTags trims each tag, drops empty ones, and collapses duplicates.
// The result is sorted; nil input yields an empty (non-nil) slice.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	result := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		result = append(result, t)
	}
	sort.Strings(result)
	return result
}

// NormalizeMetadata trims keys and drops entries with an empty key.
// Values are kept verbatim. When trimming makes two keys collide, the
// lexically last original key wins so the result is deterministic.
func NormalizeMetadata(md map[string]string) map[string]string {
	keys := make([]string, 0, len(md))
	for k := range md {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := make(map[string]string, len(md))
	for _, k := range keys {
		trimmed := strings.TrimSpace(k)
		if trimmed == "" {
			continue
		}
		result[trimmed] = md[k]
	}
	return result
}

// MetadataFromPairs parses "key=value" pairs in order; a repeated key keeps
// the last value. Pairs without "=" get an empty value.
func MetadataFromPairs(pairs []string) map[string]string {
	result := make(map[string]string, len(pairs))
	for _, p := range pairs {
		key, value, _ := strings.Cut(p, "=")
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		result[key] = value
	}
	return result
}

// CleanName trims a context name. An all-whitespace name becomes "".
func CleanName(name string) string {
	return strings.TrimSpace(name)
}
