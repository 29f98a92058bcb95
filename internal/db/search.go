package db

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/hpungsan/jot/internal/errors"
	"github.com/hpungsan/jot/internal/jot"
)

// MaxSearchQueryChars caps the full-text query length.
const MaxSearchQueryChars = 1000

// SearchFilter holds independently optional, AND-combined search criteria.
type SearchFilter struct {
	ContextID *int64

	// Query is matched against the FTS5 index using its native syntax,
	// falling back to a literal phrase when the syntax is invalid.
	Query string

	// Tags matches jots having at least one of the given tags.
	Tags []string

	// From and To are inclusive bounds on created_at.
	From *time.Time
	To   *time.Time

	// IncludeExpired disables the default exclusion of expired jots.
	IncludeExpired bool

	// Limit caps the result count; 0 means no cap.
	Limit int
}

// buildSearchQuery composes the search SELECT for f, evaluated at now.
// Tag matching uses EXISTS so a jot with several matching tags appears once,
// and the FTS join is on jots_fts.rowid = jots.id (the index's content_rowid).
func buildSearchQuery(f SearchFilter, now time.Time) (string, []any) {
	q := &selectQuery{
		base:    jotSelect,
		orderBy: "j.created_at DESC, j.id DESC",
		limit:   f.Limit,
	}

	if f.Query != "" {
		q.join("JOIN jots_fts ON jots_fts.rowid = j.id")
		q.where("jots_fts MATCH ?", f.Query)
	}
	if f.ContextID != nil {
		q.where("j.context_id = ?", *f.ContextID)
	}
	if tags := jot.NormalizeTags(f.Tags); len(tags) > 0 {
		q.whereIn("EXISTS (SELECT 1 FROM jot_tags t WHERE t.jot_id = j.id AND t.tag IN (?))", tags)
	}
	if f.From != nil {
		q.where("j.created_at >= ?", toMillis(*f.From))
	}
	if f.To != nil {
		q.where("j.created_at <= ?", toMillis(*f.To))
	}
	if !f.IncludeExpired {
		q.where("(j.expires_at IS NULL OR j.expires_at >= ?)", toMillis(now))
	}

	return q.build()
}

// SearchJots returns jots matching every active filter, newest first.
// A query that FTS5 rejects is retried once as a single quoted phrase, so
// prose such as "don't" or "e-mail" still matches. If that also fails the
// query is reported as INVALID_REQUEST.
func (r *Repository) SearchJots(ctx context.Context, f SearchFilter) ([]*jot.Jot, error) {
	jots, err := r.searchJots(ctx, f)
	if err == nil || f.Query == "" || !isFTSQueryError(err) {
		return jots, err
	}

	phrase := f
	phrase.Query = quotePhrase(f.Query)
	jots, perr := r.searchJots(ctx, phrase)
	if perr == nil {
		return jots, nil
	}
	if !isFTSQueryError(perr) {
		return nil, perr
	}
	return nil, searchError(err)
}

func (r *Repository) searchJots(ctx context.Context, f SearchFilter) ([]*jot.Jot, error) {
	query, args := buildSearchQuery(f, r.now())

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	// FTS5 may only reject the expression once stepping starts.
	return r.collectJots(ctx, rows)
}

// quotePhrase turns free text into one FTS5 string, doubling embedded quotes.
func quotePhrase(q string) string {
	return `"` + strings.ReplaceAll(q, `"`, `""`) + `"`
}

// searchError reports an FTS5 syntax failure as INVALID_REQUEST, using the
// driver's message rather than the wrapping internal error.
func searchError(err error) error {
	msg := err.Error()
	if cause := stderrors.Unwrap(err); cause != nil {
		msg = cause.Error()
	}
	return errors.NewInvalidRequest("invalid search query: " + msg)
}

// isFTSQueryError reports whether err comes from FTS5 rejecting the MATCH
// expression rather than from storage.
func isFTSQueryError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "fts5:") ||
		strings.Contains(msg, "no such column") ||
		strings.Contains(msg, "unterminated string") ||
		strings.Contains(msg, "unknown special query")
}
