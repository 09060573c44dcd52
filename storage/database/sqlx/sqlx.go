// Package sqlxrepos implements the repositories on PostgreSQL with sqlx.
package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// trapNoRowsErr maps "no rows" to notFound
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// conditions accumulates WHERE clauses written with `?` bindvars.
type conditions struct {
	clauses []string
	args    []interface{}
}

func (c *conditions) add(clause string, args ...interface{}) {
	c.clauses = append(c.clauses, "("+clause+")")
	c.args = append(c.args, args...)
}

func (c conditions) where() string {
	if len(c.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(c.clauses, " AND ")
}

func likeArg(s string) string { return "%" + s + "%" }

// selectIn runs a select whose `?` args may hold slices (expanded by sqlx.In).
func selectIn(ctx context.Context, db *sqlx.DB, dest interface{}, query string, args ...interface{}) error {
	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return err
	}
	return db.SelectContext(ctx, dest, db.Rebind(query), args...)
}

func execIn(ctx context.Context, db sqlx.ExtContext, query string, args ...interface{}) (int, error) {
	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return 0, err
	}
	res, err := db.ExecContext(ctx, db.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// insertReturningID runs a named INSERT ... RETURNING id.
func insertReturningID(ctx context.Context, db sqlx.ExtContext, query string, arg interface{}) (int, error) {
	query, args, err := sqlx.Named(query, arg)
	if err != nil {
		return 0, err
	}
	var id int
	err = db.QueryRowxContext(ctx, db.Rebind(query), args...).Scan(&id)
	return id, err
}

// namedExec runs a named statement and returns the number of affected rows.
func namedExec(ctx context.Context, db sqlx.ExtContext, query string, arg interface{}) (int, error) {
	query, args, err := sqlx.Named(query, arg)
	if err != nil {
		return 0, err
	}
	res, err := db.ExecContext(ctx, db.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// inTx runs fn in a transaction, rolled back when fn fails.
func inTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}
