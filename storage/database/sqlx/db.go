package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

const uniqueViolation = "23505"

// Postgres runs queries on the database, or on a transaction when started by RunInTx.
type Postgres struct {
	db   *sqlx.DB
	tx   *sqlx.Tx
	psql squirrel.StatementBuilderType
}

func New(db *sqlx.DB) *Postgres {
	return &Postgres{
		db:   db,
		psql: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// RunInTx runs `fn` in a transaction, committed when `fn` returns nil.
func (pg *Postgres) RunInTx(ctx context.Context, fn func(tx *Postgres) error) (err error) {
	if pg.tx != nil {
		return fn(pg)
	}

	tx, err := pg.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	txPG := &Postgres{db: pg.db, tx: tx, psql: pg.psql}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(txPG); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

func (pg *Postgres) executor() sqlx.ExtContext {
	if pg.tx != nil {
		return pg.tx
	}
	return pg.db
}

func (pg *Postgres) get(ctx context.Context, dest interface{}, q squirrel.Sqlizer) error {
	query, args, err := q.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	return sqlx.GetContext(ctx, pg.executor(), dest, query, args...)
}

func (pg *Postgres) selectAll(ctx context.Context, dest interface{}, q squirrel.Sqlizer) error {
	query, args, err := q.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	return sqlx.SelectContext(ctx, pg.executor(), dest, query, args...)
}

func (pg *Postgres) exec(ctx context.Context, q squirrel.Sqlizer) (sql.Result, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	return pg.executor().ExecContext(ctx, query, args...)
}

// execAffected returns the number of rows affected by `q`.
func (pg *Postgres) execAffected(ctx context.Context, q squirrel.Sqlizer) (int, error) {
	res, err := pg.exec(ctx, q)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (pg *Postgres) count(ctx context.Context, q squirrel.SelectBuilder) (int, error) {
	var n int
	err := pg.get(ctx, &n, q)
	return n, err
}

// trapNoRowsErr replaces sql.ErrNoRows with `notFound`.
func trapNoRowsErr(err, notFound error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	return err
}

// isUniqueViolation reports whether `err` is a unique constraint violation, for both drivers.
func isUniqueViolation(err error, constraint ...string) bool {
	var (
		code, name string
		pqErr      *pq.Error
		pgErr      *pgconn.PgError
	)
	switch {
	case errors.As(err, &pqErr):
		code, name = string(pqErr.Code), pqErr.Constraint
	case errors.As(err, &pgErr):
		code, name = pgErr.Code, pgErr.ConstraintName
	default:
		return false
	}
	if code != uniqueViolation {
		return false
	}
	if len(constraint) == 0 {
		return true
	}
	for _, c := range constraint {
		if c == name {
			return true
		}
	}
	return false
}
