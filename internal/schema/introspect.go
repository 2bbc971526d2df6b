package schema

import (
	"context"
	"fmt"

	"github.com/sonnix-labs/pgease/internal/database"
	"github.com/sonnix-labs/pgease/internal/errs"
)

// Introspector reflects table metadata from the database catalog.
type Introspector interface {
	InspectTable(ctx context.Context, schemaName, table string) (*TableMeta, error)
}

// PgIntrospector implements Introspector for PostgreSQL over
// information_schema.
type PgIntrospector struct {
	s database.Session
}

// NewPgIntrospector creates a Postgres introspector on an existing session.
func NewPgIntrospector(s database.Session) *PgIntrospector {
	return &PgIntrospector{s: s}
}

// InspectTable returns name, type category, and primary-key flag for every
// column of the table, in ordinal position order. A freshly provisioned
// table has no columns yet; that reflects as an empty TableMeta, not as an
// error. Only a table absent from the catalog is table-not-found.
func (p *PgIntrospector) InspectTable(ctx context.Context, schemaName, table string) (*TableMeta, error) {
	const q = `
		SELECT
			c.column_name,
			c.data_type,
			c.column_default,
			COALESCE(pk.is_pk, false) AS is_primary_key
		FROM information_schema.columns c

		LEFT JOIN (
			SELECT kcu.column_name, true AS is_pk
			FROM information_schema.table_constraints tc
			JOIN information_schema.key_column_usage kcu
				ON tc.constraint_name = kcu.constraint_name
				AND tc.table_schema = kcu.table_schema
			WHERE tc.constraint_type = 'PRIMARY KEY'
				AND tc.table_schema = $1
				AND tc.table_name = $2
		) pk ON pk.column_name = c.column_name

		WHERE c.table_schema = $1
			AND c.table_name = $2
		ORDER BY c.ordinal_position`

	rows, err := p.s.Query(ctx, q, schemaName, table)
	if err != nil {
		return nil, fmt.Errorf("inspect table %q: %w", table, err)
	}
	defer rows.Close()

	meta := &TableMeta{Name: table}
	for rows.Next() {
		var (
			name, dataType string
			defaultExpr    *string
			isPK           bool
		)
		if err := rows.Scan(&name, &dataType, &defaultExpr, &isPK); err != nil {
			return nil, errs.Wrap(errs.ErrKindQueryFailed, "failed to scan column metadata", err)
		}
		meta.Columns = append(meta.Columns, ColumnMeta{
			Name:         name,
			Category:     Classify(dataType, defaultExpr),
			IsPrimaryKey: isPK,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrKindQueryFailed, "error iterating column metadata", err)
	}

	if len(meta.Columns) == 0 {
		// Zero reflected columns is ambiguous: the table may be missing,
		// or created with no columns and not yet populated.
		exists, err := p.tableExists(ctx, schemaName, table)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, errs.New(errs.ErrKindTableNotFound,
				fmt.Sprintf("table %q not found in schema %q", table, schemaName))
		}
	}
	return meta, nil
}

// tableExists checks the catalog for the table itself, independent of its
// column count.
func (p *PgIntrospector) tableExists(ctx context.Context, schemaName, table string) (bool, error) {
	const q = `
		SELECT 1
		FROM information_schema.tables
		WHERE table_schema = $1
			AND table_name = $2`

	rows, err := p.s.Query(ctx, q, schemaName, table)
	if err != nil {
		return false, fmt.Errorf("check table %q: %w", table, err)
	}
	exists := rows.Next()
	rows.Close()
	if err := rows.Err(); err != nil {
		return false, errs.Wrap(errs.ErrKindQueryFailed, "error checking table existence", err)
	}
	return exists, nil
}
