package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/sonnix-labs/pgease/internal/errs"
)

// execCall records one statement and its bound arguments.
type execCall struct {
	sql  string
	args []any
}

// fakeSession is a scriptable Session for tests. execErr, if set, is
// consulted per statement so individual statements can be made to fail.
type fakeSession struct {
	execs   []execCall
	queries []execCall
	begins  int
	closed  int

	execErr  func(sql string) error
	queryErr error
	rows     *fakeRows
	beginErr error
	closeErr error
	tx       *fakeTx
}

func (f *fakeSession) Exec(_ context.Context, sql string, args ...any) error {
	f.execs = append(f.execs, execCall{sql: sql, args: args})
	if f.execErr != nil {
		return f.execErr(sql)
	}
	return nil
}

func (f *fakeSession) Query(_ context.Context, sql string, args ...any) (Rows, error) {
	f.queries = append(f.queries, execCall{sql: sql, args: args})
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	if f.rows == nil {
		f.rows = &fakeRows{}
	}
	return f.rows, nil
}

func (f *fakeSession) Begin(context.Context) (Tx, error) {
	f.begins++
	if f.beginErr != nil {
		return nil, f.beginErr
	}
	if f.tx == nil {
		f.tx = &fakeTx{}
	}
	return f.tx, nil
}

func (f *fakeSession) Close(context.Context) error {
	f.closed++
	return f.closeErr
}

// fakeTx is a scriptable Tx.
type fakeTx struct {
	execs     []execCall
	commits   int
	rollbacks int

	execErr   func(call int) error
	commitErr error
}

func (t *fakeTx) Exec(_ context.Context, sql string, args ...any) error {
	t.execs = append(t.execs, execCall{sql: sql, args: args})
	if t.execErr != nil {
		return t.execErr(len(t.execs))
	}
	return nil
}

func (t *fakeTx) Commit(context.Context) error {
	t.commits++
	return t.commitErr
}

func (t *fakeTx) Rollback(context.Context) error {
	t.rollbacks++
	return nil
}

// fakeRows replays canned result rows.
type fakeRows struct {
	cols    []string
	rows    [][]any
	idx     int
	scanErr error
	iterErr error
	closed  bool
}

func (r *fakeRows) Next() bool {
	if r.idx < len(r.rows) {
		r.idx++
		return true
	}
	return false
}

func (r *fakeRows) Scan(dest ...any) error {
	if r.scanErr != nil {
		return r.scanErr
	}
	row := r.rows[r.idx-1]
	for i, d := range dest {
		*(d.(*any)) = row[i]
	}
	return nil
}

func (r *fakeRows) Columns() []string { return r.cols }
func (r *fakeRows) Close()            { r.closed = true }
func (r *fakeRows) Err() error        { return r.iterErr }

// memSession is an in-memory table store that interprets the exact DDL and
// INSERT statements this package emits, for end-to-end provisioning tests.
type memSession struct {
	tables map[string]*memTable
	closed int
}

type memTable struct {
	cols []string
	rows []map[string]any
}

func newMemSession() *memSession {
	return &memSession{tables: make(map[string]*memTable)}
}

func (m *memSession) table(stmt, marker string) string {
	rest := strings.TrimPrefix(stmt, marker)
	end := strings.Index(rest[1:], `"`)
	return rest[1 : 1+end]
}

func (m *memSession) Exec(_ context.Context, sql string, args ...any) error {
	switch {
	case strings.HasPrefix(sql, "CREATE TABLE IF NOT EXISTS "):
		name := m.table(sql, "CREATE TABLE IF NOT EXISTS ")
		if _, ok := m.tables[name]; !ok {
			m.tables[name] = &memTable{}
		}
		return nil

	case strings.HasPrefix(sql, "ALTER TABLE "):
		name := m.table(sql, "ALTER TABLE ")
		tbl, ok := m.tables[name]
		if !ok {
			return errs.New(errs.ErrKindTableNotFound,
				fmt.Sprintf("relation %q does not exist", name))
		}
		colPart := sql[strings.Index(sql, "ADD COLUMN IF NOT EXISTS ")+len("ADD COLUMN IF NOT EXISTS "):]
		col := strings.Trim(strings.TrimSuffix(colPart, " TEXT"), `"`)
		for _, existing := range tbl.cols {
			if existing == col {
				return nil
			}
		}
		tbl.cols = append(tbl.cols, col)
		return nil

	case strings.HasPrefix(sql, "INSERT INTO "):
		name := m.table(sql, "INSERT INTO ")
		tbl, ok := m.tables[name]
		if !ok {
			return errs.New(errs.ErrKindTableNotFound,
				fmt.Sprintf("relation %q does not exist", name))
		}
		open := strings.Index(sql, "(")
		closeIdx := strings.Index(sql, ")")
		var cols []string
		for _, c := range strings.Split(sql[open+1:closeIdx], ", ") {
			cols = append(cols, strings.Trim(c, `"`))
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			row[c] = args[i]
		}
		tbl.rows = append(tbl.rows, row)
		return nil
	}
	return errs.New(errs.ErrKindQueryFailed, "unrecognized statement: "+sql)
}

func (m *memSession) Query(context.Context, string, ...any) (Rows, error) {
	return nil, errs.New(errs.ErrKindQueryFailed, "queries not supported")
}

func (m *memSession) Begin(context.Context) (Tx, error) {
	return &memTx{m: m}, nil
}

func (m *memSession) Close(context.Context) error {
	m.closed++
	return nil
}

// memTx applies statements directly; the provisioning tests only need
// commit/rollback bookkeeping, not real isolation.
type memTx struct {
	m         *memSession
	commits   int
	rollbacks int
}

func (t *memTx) Exec(ctx context.Context, sql string, args ...any) error {
	return t.m.Exec(ctx, sql, args...)
}

func (t *memTx) Commit(context.Context) error {
	t.commits++
	return nil
}

func (t *memTx) Rollback(context.Context) error {
	t.rollbacks++
	return nil
}
