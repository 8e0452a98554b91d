package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// QueryProbe describes the result shape of a query.
type QueryProbe struct {
	// Columns lists the result column names in order.
	Columns []string `json:"columns"`
	// HasRows is true if the query produced at least one row.
	HasRows bool `json:"has_rows"`
	// Sample is the first column of the first row, if any.
	Sample any `json:"sample,omitempty"`
}

// ProbeQuery executes query and pulls only its first row.
// It is used to prove a query runs before it is stored.
func ProbeQuery(ctx context.Context, db *gorm.DB, query string) (QueryProbe, error) {
	var probe QueryProbe

	rows, err := db.WithContext(ctx).Raw(query).Rows()
	if err != nil {
		return probe, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return probe, fmt.Errorf("failed to read columns: %w", err)
	}
	probe.Columns = cols
	if len(cols) == 0 {
		return probe, nil
	}

	if rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return probe, fmt.Errorf("failed to scan row: %w", err)
		}
		probe.HasRows = true
		probe.Sample = values[0]
	}

	if err := rows.Err(); err != nil {
		return probe, fmt.Errorf("failed to read rows: %w", err)
	}
	return probe, nil
}
