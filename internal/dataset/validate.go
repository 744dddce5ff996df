package dataset

import (
	"errors"

	"github.com/go-gota/gota/dataframe"
)

// ErrEmptyTable is returned when a table has no rows.
var ErrEmptyTable = errors.New("table has no rows")

// Validate checks that every column the pipeline reads is present and
// complete before any transformation runs. The churn columns are optional
// since the label is always recomputed.
func Validate(df dataframe.DataFrame, schema Schema) error {
	if df.Err != nil {
		return df.Err
	}

	if df.Nrow() == 0 {
		return ErrEmptyTable
	}

	for _, name := range schema.NumericColumns() {
		if _, err := Floats(df, name); err != nil {
			return err
		}
	}

	for _, name := range schema.CategoricalColumns() {
		if _, err := Strings(df, name); err != nil {
			return err
		}
	}

	for _, name := range AuxiliaryColumns {
		if HasColumn(df, name) {
			return &SchemaError{Column: name, Reason: "input collides with a reserved intermediate column"}
		}
	}

	return nil
}
