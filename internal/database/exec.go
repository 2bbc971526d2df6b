package database

import (
	"context"
	"fmt"

	"github.com/sonnix-labs/pgease/internal/errs"
	"github.com/sonnix-labs/pgease/internal/logger"
)

// Query executes a parameterized read query and materializes every result
// row into a Dataset, preserving column order. When closeAfter is true the
// session is closed before returning, success or failure.
func Query(ctx context.Context, s Session, sql string, args []any, closeAfter bool) (*Dataset, error) {
	if s == nil {
		return nil, errs.New(errs.ErrKindConnectionFailed, "no database session")
	}
	if closeAfter {
		defer closeSession(ctx, s)
	}

	rows, err := s.Query(ctx, sql, args...)
	if err != nil {
		logger.Errorf("query execution error: %v", err)
		return nil, err
	}

	ds, err := collectRows(rows)
	if err != nil {
		logger.Errorf("query execution error: %v", err)
		return nil, err
	}

	logger.Info("query executed successfully")
	return ds, nil
}

// Update executes a mutating statement inside its own transaction:
// commit on success, rollback on failure before returning the error.
// The session is closed per closeAfter regardless of outcome.
func Update(ctx context.Context, s Session, sql string, args []any, closeAfter bool) error {
	if s == nil {
		return errs.New(errs.ErrKindConnectionFailed, "no database session")
	}
	if closeAfter {
		defer closeSession(ctx, s)
	}
	if err := execInTx(ctx, s, sql, args); err != nil {
		logger.Errorf("update execution error: %v", err)
		return err
	}
	logger.Info("update executed successfully")
	return nil
}

// CreateView issues CREATE OR REPLACE VIEW with the same transaction and
// close discipline as Update. The view name is a trusted identifier.
func CreateView(ctx context.Context, s Session, view Ident, selectSQL string, closeAfter bool) error {
	if s == nil {
		return errs.New(errs.ErrKindConnectionFailed, "no database session")
	}
	if closeAfter {
		defer closeSession(ctx, s)
	}
	stmt := fmt.Sprintf("CREATE OR REPLACE VIEW %s AS %s", view.Quoted(), selectSQL)
	if err := execInTx(ctx, s, stmt, nil); err != nil {
		logger.Errorf("error creating view %q: %v", view, err)
		return err
	}
	logger.Infof("view %q created", view)
	return nil
}

// execInTx runs one statement in its own transaction with rollback on error.
func execInTx(ctx context.Context, s Session, sql string, args []any) error {
	tx, err := s.Begin(ctx)
	if err != nil {
		return err
	}
	if err := tx.Exec(ctx, sql, args...); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			logger.Errorf("rollback failed: %v", rbErr)
		}
		return err
	}
	return tx.Commit(ctx)
}

// collectRows drains rows into a Dataset. It always closes rows.
func collectRows(rows Rows) (*Dataset, error) {
	defer rows.Close()

	cols := rows.Columns()
	ds := NewDataset(cols...)

	for rows.Next() {
		// Scan targets are *any so the driver can write any value type.
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, errs.Wrap(errs.ErrKindQueryFailed, "failed to scan row", err)
		}
		ds.Rows = append(ds.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrKindQueryFailed, "error during row iteration", err)
	}
	return ds, nil
}

// closeSession releases s, logging rather than returning any failure since
// this runs during cleanup.
func closeSession(ctx context.Context, s Session) {
	if err := s.Close(ctx); err != nil {
		logger.Errorf("error closing database session: %v", err)
	}
}
