package db

import "strings"

// selectQuery accumulates joins, predicates and bound parameters for a
// SELECT. Every user-supplied value goes through args; clause strings are
// constants owned by this package.
type selectQuery struct {
	base    string
	joins   []string
	preds   []string
	args    []any
	orderBy string
	limit   int
}

// join adds a JOIN clause.
func (q *selectQuery) join(clause string) {
	q.joins = append(q.joins, clause)
}

// where adds a predicate ANDed with the others, with its bound parameters.
func (q *selectQuery) where(pred string, args ...any) {
	q.preds = append(q.preds, pred)
	q.args = append(q.args, args...)
}

// whereIn adds a predicate containing the marker "IN (?)", which is expanded
// to one placeholder per value. values must be non-empty.
func (q *selectQuery) whereIn(pred string, values []string) {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	q.where(strings.Replace(pred, "IN (?)", "IN ("+placeholders(len(values))+")", 1), args...)
}

// build renders the SQL and its arguments in placeholder order.
func (q *selectQuery) build() (string, []any) {
	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(q.base))
	for _, j := range q.joins {
		sb.WriteString("\n")
		sb.WriteString(j)
	}
	if len(q.preds) > 0 {
		sb.WriteString("\nWHERE ")
		sb.WriteString(strings.Join(q.preds, "\n  AND "))
	}
	if q.orderBy != "" {
		sb.WriteString("\nORDER BY ")
		sb.WriteString(q.orderBy)
	}

	args := append([]any{}, q.args...)
	if q.limit > 0 {
		sb.WriteString("\nLIMIT ?")
		args = append(args, q.limit)
	}
	return sb.String(), args
}

// updateQuery accumulates SET assignments and predicates for an UPDATE.
type updateQuery struct {
	table    string
	sets     []string
	setArgs  []any
	preds    []string
	predArgs []any
}

// set adds "column = ?".
func (q *updateQuery) set(column string, value any) {
	q.sets = append(q.sets, column+" = ?")
	q.setArgs = append(q.setArgs, value)
}

// where adds a predicate ANDed with the others.
func (q *updateQuery) where(pred string, args ...any) {
	q.preds = append(q.preds, pred)
	q.predArgs = append(q.predArgs, args...)
}

// build renders the UPDATE statement; SET arguments precede WHERE arguments.
func (q *updateQuery) build() (string, []any) {
	var sb strings.Builder
	sb.WriteString("UPDATE ")
	sb.WriteString(q.table)
	sb.WriteString(" SET ")
	sb.WriteString(strings.Join(q.sets, ", "))
	if len(q.preds) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(q.preds, " AND "))
	}
	args := make([]any, 0, len(q.setArgs)+len(q.predArgs))
	args = append(args, q.setArgs...)
	args = append(args, q.predArgs...)
	return sb.String(), args
}
