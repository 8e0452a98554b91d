package rows

import (
	"context"
	"errors"
	"iter"

	"segment-sync/core/utils"
)

// ErrInvalidDefinition is returned when a segment definition is not a query.
var ErrInvalidDefinition = errors.New("segment definition is not a select query")

// Row is one result row. Only the first column is interpreted, as a candidate member id.
type Row []any

// Source executes a segment definition and yields its rows lazily.
// A yielded error is terminal; implementations stop iterating after it.
// Sources must support a fresh call per refresh but need not be restartable mid-stream.
type Source interface {
	Rows(ctx context.Context, definition string) iter.Seq2[Row, error]
}

// CheckDefinition rejects definitions that cannot be a select query.
func CheckDefinition(definition string) error {
	if !utils.ContainsFold(definition, "select") {
		return ErrInvalidDefinition
	}
	return nil
}
