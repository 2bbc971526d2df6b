// Package database holds the connection, provisioning, and query execution
// layers of pgease. Everything above it talks to the narrow Session, Rows,
// and Tx interfaces — never to pgx directly — so callers can be tested
// against fakes and the driver stays swappable.
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/sonnix-labs/pgease/internal/config"
	"github.com/sonnix-labs/pgease/internal/errs"
	"github.com/sonnix-labs/pgease/internal/logger"
)

// Session is the contract provisioning, execution, and reflection code rely
// on. A Session is exclusively owned by one logical caller at a time; it is
// not safe for concurrent use from multiple goroutines.
type Session interface {
	// Exec runs a statement outside any explicit transaction.
	Exec(ctx context.Context, sql string, args ...any) error

	// Query executes a statement that returns rows.
	// Callers must always Close the returned Rows, even on error.
	Query(ctx context.Context, sql string, args ...any) (Rows, error)

	// Begin opens a transaction on the session.
	Begin(ctx context.Context) (Tx, error)

	// Close releases the underlying connection. Idempotent.
	Close(ctx context.Context) error
}

// Rows is an abstraction over a database result set.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Columns() []string
	Close()
	Err() error
}

// Tx is a transaction scoped to one session.
type Tx interface {
	Exec(ctx context.Context, sql string, args ...any) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Conn is a single PostgreSQL session backed by *pgx.Conn.
type Conn struct {
	pg     *pgx.Conn
	closed bool
}

var _ Session = (*Conn)(nil)

// Connect establishes a session from cfg. When cfg.Schema is non-empty the
// search path is applied before the connection is handed to the caller;
// failing to apply it is a connection failure and the session is released.
func Connect(ctx context.Context, cfg *config.Config) (*Conn, error) {
	pg, err := pgx.Connect(ctx, cfg.DSN())
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "could not establish session", err)
	}

	if cfg.Schema != "" {
		// A plain SET cannot carry a bound parameter through the extended
		// protocol; set_config keeps the schema name parameterized.
		const q = "select set_config('search_path', $1, false)"
		if _, err := pg.Exec(ctx, q, cfg.Schema); err != nil {
			_ = pg.Close(ctx)
			return nil, errs.Wrap(errs.ErrKindConnectionFailed, "could not apply search_path", err)
		}
		logger.Infof("search_path set to %s", cfg.Schema)
	}

	return &Conn{pg: pg}, nil
}

// --- Session implementation ---

func (c *Conn) Exec(ctx context.Context, sql string, args ...any) error {
	if _, err := c.pg.Exec(ctx, sql, args...); err != nil {
		return mapError(err, "exec failed")
	}
	return nil
}

func (c *Conn) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	rows, err := c.pg.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapError(err, "query failed")
	}
	return &pgxRows{rows: rows}, nil
}

func (c *Conn) Begin(ctx context.Context) (Tx, error) {
	tx, err := c.pg.Begin(ctx)
	if err != nil {
		return nil, mapError(err, "begin failed")
	}
	return &pgxTx{tx: tx}, nil
}

// Close releases the session. It is idempotent and best-effort: close
// typically runs during cleanup, so failures are logged, not returned.
func (c *Conn) Close(ctx context.Context) error {
	if c.closed {
		return nil
	}
	c.closed = true
	if err := c.pg.Close(ctx); err != nil {
		logger.Errorf("error closing database session: %v", err)
		return nil
	}
	logger.Info("database session closed")
	return nil
}

// --- pgx type wrappers ---

// pgxRows wraps pgx.Rows to satisfy Rows.
type pgxRows struct {
	rows pgx.Rows
}

func (r *pgxRows) Next() bool             { return r.rows.Next() }
func (r *pgxRows) Scan(dest ...any) error { return r.rows.Scan(dest...) }
func (r *pgxRows) Close()                 { r.rows.Close() }
func (r *pgxRows) Err() error             { return r.rows.Err() }

func (r *pgxRows) Columns() []string {
	descs := r.rows.FieldDescriptions()
	cols := make([]string, len(descs))
	for i, d := range descs {
		cols[i] = d.Name
	}
	return cols
}

// pgxTx wraps pgx.Tx to satisfy Tx.
type pgxTx struct {
	tx pgx.Tx
}

func (t *pgxTx) Exec(ctx context.Context, sql string, args ...any) error {
	if _, err := t.tx.Exec(ctx, sql, args...); err != nil {
		return mapError(err, "exec failed")
	}
	return nil
}

func (t *pgxTx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return mapError(err, "commit failed")
	}
	return nil
}

func (t *pgxTx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil {
		return mapError(err, "rollback failed")
	}
	return nil
}

// --- error mapping ---

const (
	sqlstateUndefinedTable = "42P01"
	sqlstateClassConn      = "08"
)

// mapError translates pgx / pgconn native errors into *errs.Error.
func mapError(err error, msg string) *errs.Error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	}

	// Postgres server-side error (SQLSTATE codes)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		kind := errs.ErrKindQueryFailed
		switch {
		case pgErr.Code == sqlstateUndefinedTable:
			kind = errs.ErrKindTableNotFound
		case len(pgErr.Code) >= 2 && pgErr.Code[:2] == sqlstateClassConn:
			kind = errs.ErrKindConnectionFailed
		}
		return errs.Wrap(kind, fmt.Sprintf("%s: %s", msg, pgErr.Message), err)
	}

	return errs.Wrap(errs.ErrKindQueryFailed, msg, err)
}
