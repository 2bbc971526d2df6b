package database

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonnix-labs/pgease/internal/errs"
)

func TestEnsureTable(t *testing.T) {
	s := &fakeSession{}

	err := EnsureTable(context.Background(), s, "metrics")
	require.NoError(t, err)

	require.Len(t, s.execs, 1)
	assert.Equal(t, `CREATE TABLE IF NOT EXISTS "metrics" ()`, s.execs[0].sql)
	assert.Empty(t, s.execs[0].args)
}

func TestEnsureTable_Idempotent(t *testing.T) {
	s := newMemSession()
	ctx := context.Background()

	require.NoError(t, EnsureTable(ctx, s, "t1"))
	require.NoError(t, EnsureTable(ctx, s, "t1"))

	assert.Len(t, s.tables, 1)
}

func TestEnsureTable_QuotesIdentifier(t *testing.T) {
	s := &fakeSession{}

	err := EnsureTable(context.Background(), s, `wei"rd`)
	require.NoError(t, err)
	assert.Equal(t, `CREATE TABLE IF NOT EXISTS "wei""rd" ()`, s.execs[0].sql)
}

func TestEnsureColumns(t *testing.T) {
	s := &fakeSession{}

	err := EnsureColumns(context.Background(), s, "metrics", []string{"a", "b"})
	require.NoError(t, err)

	require.Len(t, s.execs, 2)
	assert.Equal(t, `ALTER TABLE "metrics" ADD COLUMN IF NOT EXISTS "a" TEXT`, s.execs[0].sql)
	assert.Equal(t, `ALTER TABLE "metrics" ADD COLUMN IF NOT EXISTS "b" TEXT`, s.execs[1].sql)
}

func TestEnsureColumns_PartialFailureKeepsEarlierColumns(t *testing.T) {
	s := &fakeSession{
		execErr: func(sql string) error {
			if strings.Contains(sql, `"b"`) {
				return errs.New(errs.ErrKindQueryFailed, "boom")
			}
			return nil
		},
	}

	err := EnsureColumns(context.Background(), s, "metrics", []string{"a", "b", "c"})
	require.Error(t, err)
	assert.True(t, errs.IsQueryFailed(err))

	// Column a was issued and committed before the failure; c never ran.
	require.Len(t, s.execs, 2)
	assert.Contains(t, s.execs[0].sql, `"a"`)
	assert.Contains(t, s.execs[1].sql, `"b"`)
}

func TestInsertRows(t *testing.T) {
	s := &fakeSession{}
	ds := NewDataset("a", "b")
	require.NoError(t, ds.AddRow("x", "y"))
	require.NoError(t, ds.AddRow("x2", "y2"))

	err := InsertRows(context.Background(), s, "metrics", ds)
	require.NoError(t, err)

	assert.Equal(t, 1, s.begins)
	require.Len(t, s.tx.execs, 2)
	assert.Equal(t, `INSERT INTO "metrics" ("a", "b") VALUES ($1, $2)`, s.tx.execs[0].sql)
	assert.Equal(t, []any{"x", "y"}, s.tx.execs[0].args)
	assert.Equal(t, []any{"x2", "y2"}, s.tx.execs[1].args)
	assert.Equal(t, 1, s.tx.commits)
	assert.Zero(t, s.tx.rollbacks)
}

func TestInsertRows_NoColumns(t *testing.T) {
	s := &fakeSession{}

	err := InsertRows(context.Background(), s, "metrics", NewDataset())
	require.Error(t, err)
	assert.True(t, errs.IsInvalidInput(err))
	assert.Zero(t, s.begins)
}

func TestInsertRows_RaggedRowRejectedBeforeAnyStatement(t *testing.T) {
	s := &fakeSession{}
	ds := NewDataset("a", "b")
	ds.Rows = append(ds.Rows, []any{"only one"})

	err := InsertRows(context.Background(), s, "metrics", ds)
	require.Error(t, err)
	assert.True(t, errs.IsInvalidInput(err))
	assert.Zero(t, s.begins)
}

func TestInsertRows_EmptyRowsIsNoOp(t *testing.T) {
	s := &fakeSession{}

	err := InsertRows(context.Background(), s, "metrics", NewDataset("a"))
	require.NoError(t, err)
	assert.Zero(t, s.begins)
}

func TestInsertRows_FailureRollsBackWholeBatch(t *testing.T) {
	s := &fakeSession{
		tx: &fakeTx{execErr: func(call int) error {
			if call == 2 {
				return errs.New(errs.ErrKindQueryFailed, "constraint violation")
			}
			return nil
		}},
	}
	ds := NewDataset("a")
	require.NoError(t, ds.AddRow("r1"))
	require.NoError(t, ds.AddRow("r2"))
	require.NoError(t, ds.AddRow("r3"))

	err := InsertRows(context.Background(), s, "metrics", ds)
	require.Error(t, err)
	assert.True(t, errs.IsQueryFailed(err))

	assert.Equal(t, 1, s.tx.rollbacks)
	assert.Zero(t, s.tx.commits)
	assert.Len(t, s.tx.execs, 2) // r3 never attempted
}

func TestPopulateTable_NeverCreated(t *testing.T) {
	s := newMemSession()
	ds := NewDataset("a")
	require.NoError(t, ds.AddRow("x"))

	err := PopulateTable(context.Background(), s, "never_created", ds)
	require.Error(t, err)
	assert.True(t, errs.IsTableNotFound(err))
	assert.Empty(t, s.tables)
}

func TestPopulateTable_ColumnsBeforeRows(t *testing.T) {
	s := &fakeSession{}
	ds := NewDataset("a")
	require.NoError(t, ds.AddRow("x"))

	err := PopulateTable(context.Background(), s, "metrics", ds)
	require.NoError(t, err)

	// The ALTER statements run on the session before the INSERT transaction.
	require.Len(t, s.execs, 1)
	assert.Contains(t, s.execs[0].sql, "ADD COLUMN IF NOT EXISTS")
	require.Len(t, s.tx.execs, 1)
	assert.Contains(t, s.tx.execs[0].sql, "INSERT INTO")
}

// The end-to-end scenario: two populates with overlapping column sets
// converge the table to the union of all columns, with missing values nil.
func TestProvisioning_ColumnSupersetConvergence(t *testing.T) {
	s := newMemSession()
	ctx := context.Background()

	require.NoError(t, EnsureTable(ctx, s, "t1"))

	d1 := NewDataset("a", "b")
	require.NoError(t, d1.AddRow("x", "y"))
	require.NoError(t, PopulateTable(ctx, s, "t1", d1))

	d2 := NewDataset("b", "c")
	require.NoError(t, d2.AddRow("y2", "z"))
	require.NoError(t, PopulateTable(ctx, s, "t1", d2))

	tbl := s.tables["t1"]
	require.NotNil(t, tbl)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, tbl.cols)

	require.Len(t, tbl.rows, 2)
	assert.Equal(t, map[string]any{"a": "x", "b": "y"}, tbl.rows[0])
	assert.Nil(t, tbl.rows[0]["c"])
	assert.Equal(t, map[string]any{"b": "y2", "c": "z"}, tbl.rows[1])
	assert.Nil(t, tbl.rows[1]["a"])
}

func TestInsertStatement(t *testing.T) {
	stmt := insertStatement("t", []string{"x", "y", "z"})
	assert.Equal(t, `INSERT INTO "t" ("x", "y", "z") VALUES ($1, $2, $3)`, stmt)
}
