package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/sonnix-labs/pgease/internal/errs"
	"github.com/sonnix-labs/pgease/internal/logger"
)

// EnsureTable creates the table with no columns if it does not already
// exist. Idempotent: a second call with the same name is a no-op.
func EnsureTable(ctx context.Context, s Session, table Ident) error {
	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s ()", table.Quoted())
	if err := s.Exec(ctx, stmt); err != nil {
		logger.Errorf("error creating table %q: %v", table, err)
		return err
	}
	logger.Infof("table %q created or already present", table)
	return nil
}

// EnsureColumns adds every named column to the table as TEXT if it is not
// already there. Each addition is its own committed statement, so a failure
// partway leaves the earlier columns in place.
func EnsureColumns(ctx context.Context, s Session, table Ident, columns []string) error {
	for _, col := range columns {
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s TEXT",
			table.Quoted(), Ident(col).Quoted())
		if err := s.Exec(ctx, stmt); err != nil {
			logger.Errorf("error adding column %q to table %q: %v", col, table, err)
			return err
		}
	}
	return nil
}

// InsertRows inserts every dataset row into the table inside a single
// transaction: either all rows commit or none do. Values are always bound
// parameters; only the table and column names are interpolated.
func InsertRows(ctx context.Context, s Session, table Ident, ds *Dataset) error {
	if ds == nil || len(ds.Columns) == 0 {
		return errs.New(errs.ErrKindInvalidInput, "dataset has no columns")
	}
	if err := ds.validate(); err != nil {
		return err
	}
	if len(ds.Rows) == 0 {
		logger.Debugf("no rows to insert into %q", table)
		return nil
	}

	stmt := insertStatement(table, ds.Columns)

	tx, err := s.Begin(ctx)
	if err != nil {
		return err
	}
	for _, row := range ds.Rows {
		if err := tx.Exec(ctx, stmt, row...); err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				logger.Errorf("rollback failed: %v", rbErr)
			}
			logger.Errorf("error inserting into table %q: %v", table, err)
			return err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	logger.Infof("inserted %d rows into table %q", len(ds.Rows), table)
	return nil
}

// PopulateTable grows the table's columns to cover the dataset, then
// inserts the rows. It never creates the table: populating a table that was
// never created fails with a table-not-found error, because populate
// presumes a prior explicit EnsureTable.
func PopulateTable(ctx context.Context, s Session, table Ident, ds *Dataset) error {
	if ds == nil || len(ds.Columns) == 0 {
		return errs.New(errs.ErrKindInvalidInput, "dataset has no columns")
	}
	if err := EnsureColumns(ctx, s, table, ds.Columns); err != nil {
		return err
	}
	return InsertRows(ctx, s, table, ds)
}

// insertStatement builds the parameterized INSERT for the dataset's column
// list, in dataset order.
func insertStatement(table Ident, columns []string) string {
	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = Ident(col).Quoted()
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table.Quoted(), strings.Join(quoted, ", "), strings.Join(placeholders, ", "))
}
