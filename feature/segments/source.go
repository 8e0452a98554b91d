package segments

import (
	"context"
	"fmt"
	"iter"

	"segment-sync/core/rows"

	"gorm.io/gorm"
)

// SQLSource runs segment definitions as raw SQL and yields their rows lazily.
type SQLSource struct {
	db *gorm.DB
}

// NewSQLSource creates a row source backed by db.
func NewSQLSource(db *gorm.DB) *SQLSource {
	return &SQLSource{db: db}
}

// Rows executes definition. The result set is read row by row and closed when the
// consumer stops, so memory does not grow with the number of members.
func (s *SQLSource) Rows(ctx context.Context, definition string) iter.Seq2[rows.Row, error] {
	return func(yield func(rows.Row, error) bool) {
		if err := rows.CheckDefinition(definition); err != nil {
			yield(nil, err)
			return
		}

		result, err := s.db.WithContext(ctx).Raw(definition).Rows()
		if err != nil {
			yield(nil, fmt.Errorf("failed to execute segment definition: %w", err))
			return
		}
		defer result.Close()

		cols, err := result.Columns()
		if err != nil {
			yield(nil, fmt.Errorf("failed to read columns: %w", err))
			return
		}

		for result.Next() {
			values := make([]any, len(cols))
			ptrs := make([]any, len(cols))
			for i := range values {
				ptrs[i] = &values[i]
			}
			if err := result.Scan(ptrs...); err != nil {
				yield(nil, fmt.Errorf("failed to scan row: %w", err))
				return
			}
			if !yield(rows.Row(values), nil) {
				return
			}
		}

		if err := result.Err(); err != nil {
			yield(nil, fmt.Errorf("failed to read rows: %w", err))
		}
	}
}
