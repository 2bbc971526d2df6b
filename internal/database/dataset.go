package database

import (
	"fmt"

	"github.com/sonnix-labs/pgease/internal/errs"
)

// Dataset is an ordered tabular result: a sequence of unique column names
// plus rows whose values align positionally with those columns. It is both
// the input to table provisioning and the output of Query.
type Dataset struct {
	Columns []string
	Rows    [][]any
}

// NewDataset returns an empty dataset over the given columns.
func NewDataset(columns ...string) *Dataset {
	return &Dataset{Columns: columns}
}

// AddRow appends a row. The value count must match the column count.
func (d *Dataset) AddRow(values ...any) error {
	if len(values) != len(d.Columns) {
		return errs.New(errs.ErrKindInvalidInput,
			fmt.Sprintf("row has %d values, dataset has %d columns", len(values), len(d.Columns)))
	}
	d.Rows = append(d.Rows, values)
	return nil
}

// NumRows returns the number of rows.
func (d *Dataset) NumRows() int {
	return len(d.Rows)
}

// NumCols returns the number of columns.
func (d *Dataset) NumCols() int {
	return len(d.Columns)
}

// validate checks every row's arity against the column list.
func (d *Dataset) validate() error {
	for i, row := range d.Rows {
		if len(row) != len(d.Columns) {
			return errs.New(errs.ErrKindInvalidInput,
				fmt.Sprintf("row %d has %d values, dataset has %d columns", i, len(row), len(d.Columns)))
		}
	}
	return nil
}
