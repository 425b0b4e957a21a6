package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. Fatal ones abort the current run; per-row errors are
// wrapped in RowError, logged, and counted instead.
var (
	ErrConfig          = errors.New("invalid connection configuration")
	ErrSchema          = errors.New("csv schema mismatch")
	ErrProvider        = errors.New("embedding provider unavailable")
	ErrEmptyQuery      = errors.New("empty query")
	ErrNoRows          = errors.New("csv contains no data rows")
	ErrNothingIndexed  = errors.New("no rows were indexed")
	ErrEmptyImage      = errors.New("empty image payload")
	ErrImageTooLarge   = errors.New("image exceeds size limit")
	ErrUnsupportedMode = errors.New("unsupported index mode")
)

// SchemaError reports required CSV columns missing from the header row.
type SchemaError struct {
	Path    string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema: %s missing columns [%s]", e.Path, strings.Join(e.Missing, ", "))
}

func (e *SchemaError) Unwrap() error { return ErrSchema }

// RowError wraps a single-row failure with its position and the field that
// caused it. It never propagates past the indexing row loop.
type RowError struct {
	Row   int
	Field string
	Err   error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %s: %v", e.Row, e.Field, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// NewRowError creates a RowError.
func NewRowError(row int, field string, err error) *RowError {
	return &RowError{Row: row, Field: field, Err: err}
}
