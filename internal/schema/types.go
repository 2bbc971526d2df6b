// Package schema reflects table metadata from the PostgreSQL catalog,
// caches it behind a concurrency-safe snapshot, and renders it back into
// CREATE TABLE statements.
package schema

import "strings"

// TypeCategory classifies a reflected column into the fixed set of type
// categories the DDL renderer understands. Classification is total:
// anything unrecognized lands on TypeText.
type TypeCategory int

const (
	TypeText TypeCategory = iota // also the fallback category
	TypeInteger
	TypeBigint
	TypeBoolean
	TypeDate
	TypeFloat
	TypeDouble
	TypeSerial
)

// SQLName returns the DDL type name for the category. TypeText doubles as
// the fallback and renders as a 255-character varchar.
func (c TypeCategory) SQLName() string {
	switch c {
	case TypeInteger:
		return "INT"
	case TypeBigint:
		return "BIGINT"
	case TypeBoolean:
		return "BOOLEAN"
	case TypeDate:
		return "DATE"
	case TypeFloat:
		return "FLOAT"
	case TypeDouble:
		return "DOUBLE PRECISION"
	case TypeSerial:
		return "SERIAL"
	default:
		return "VARCHAR(255)"
	}
}

// Classify maps an information_schema data_type, plus the column's default
// expression, to a TypeCategory. Integer-family columns whose default draws
// from a sequence classify as serial.
func Classify(dataType string, defaultExpr *string) TypeCategory {
	switch strings.ToLower(strings.TrimSpace(dataType)) {
	case "integer", "int", "int4", "smallint", "int2":
		if isSerial(defaultExpr) {
			return TypeSerial
		}
		return TypeInteger
	case "bigint", "int8":
		if isSerial(defaultExpr) {
			return TypeSerial
		}
		return TypeBigint
	case "boolean", "bool":
		return TypeBoolean
	case "date":
		return TypeDate
	case "real", "float4":
		return TypeFloat
	case "double precision", "float8":
		return TypeDouble
	default:
		return TypeText
	}
}

func isSerial(defaultExpr *string) bool {
	return defaultExpr != nil && strings.Contains(*defaultExpr, "nextval(")
}

// ColumnMeta is the cached reflection of one column.
type ColumnMeta struct {
	Name         string
	Category     TypeCategory
	IsPrimaryKey bool
}

// DDL renders the column as it appears inside a CREATE TABLE body.
func (c ColumnMeta) DDL() string {
	s := c.Name + " " + c.Category.SQLName()
	if c.IsPrimaryKey {
		s += " PRIMARY KEY"
	}
	return s
}

// TableMeta is the cached reflection of one table, columns in catalog order.
type TableMeta struct {
	Name    string
	Columns []ColumnMeta
}

// DDL renders a CREATE TABLE statement from the cached metadata.
func (t *TableMeta) DDL() string {
	if len(t.Columns) == 0 {
		// Provisioned but never populated
		return "CREATE TABLE " + t.Name + " ();"
	}
	defs := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		defs[i] = col.DDL()
	}
	return "CREATE TABLE " + t.Name + " (\n    " + strings.Join(defs, ",\n    ") + "\n);"
}
