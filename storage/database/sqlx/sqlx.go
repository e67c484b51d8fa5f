// Package sqlxrepos implements the domain repositories on PostgreSQL through sqlx.
package sqlxrepos

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/innocell/innocell/core"
)

const uniqueViolation = "23505"

// isUniqueViolation reports whether err is a postgres unique constraint violation, optionally on constraint.
func isUniqueViolation(err error, constraint ...string) bool {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	if !ok || pqErr.Code != uniqueViolation {
		return false
	}
	return len(constraint) == 0 || pqErr.Constraint == constraint[0]
}

// trapNoRowsErr maps "no rows" errors to notFound.
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// withTx runs fn in a transaction, committing when it returns nil.
func withTx(ctx context.Context, db core.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

// where accumulates positional postgres conditions.
type where struct {
	conds []string
	args  []interface{}
}

// add appends cond, replacing each "?" with the next positional placeholder.
func (w *where) add(cond string, args ...interface{}) {
	var sb strings.Builder
	for _, r := range cond {
		if r == '?' {
			w.args = append(w.args, args[0])
			args = args[1:]
			sb.WriteString("$" + strconv.Itoa(len(w.args)))
			continue
		}
		sb.WriteRune(r)
	}
	w.conds = append(w.conds, "("+sb.String()+")")
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// limit renders the LIMIT/OFFSET clause of page, appending its args to w.
func (w *where) limit(page core.Pagination) string {
	var sb strings.Builder
	if page.Limit > 0 {
		w.args = append(w.args, page.Limit)
		sb.WriteString(" LIMIT $" + strconv.Itoa(len(w.args)))
	}
	if page.Offset > 0 {
		w.args = append(w.args, page.Offset)
		sb.WriteString(" OFFSET $" + strconv.Itoa(len(w.args)))
	}
	return sb.String()
}

func likeArg(s string) string {
	return "%" + s + "%"
}

func namedExec(ctx context.Context, exec core.DBExecutor, query string, arg interface{}) (sql.Result, error) {
	return sqlx.NamedExecContext(ctx, exec, query, arg)
}
