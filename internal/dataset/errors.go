package dataset

import (
	"errors"
	"fmt"
)

// Sentinel errors matched by the typed errors below via errors.Is.
var (
	ErrDataSource      = errors.New("data source error")
	ErrSchema          = errors.New("schema error")
	ErrDegenerateInput = errors.New("degenerate input")
)

// DataSourceError reports an input file that is missing, unreadable or unparseable.
type DataSourceError struct {
	Path string
	Err  error
}

func (e *DataSourceError) Error() string {
	return fmt.Sprintf("data source %q: %v", e.Path, e.Err)
}

func (e *DataSourceError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrDataSource) hold for every DataSourceError.
func (e *DataSourceError) Is(target error) bool { return target == ErrDataSource }

// SchemaError reports a column that is absent or holds values of the wrong kind.
type SchemaError struct {
	Column string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema: column %q: %s", e.Column, e.Reason)
}

func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

// DegenerateInputError reports a column whose range or variance is zero,
// leaving a normalization step undefined.
type DegenerateInputError struct {
	Column string
	Reason string
}

func (e *DegenerateInputError) Error() string {
	return fmt.Sprintf("degenerate input: column %q: %s", e.Column, e.Reason)
}

func (e *DegenerateInputError) Is(target error) bool { return target == ErrDegenerateInput }
