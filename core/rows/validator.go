package rows

import (
	"context"
	"fmt"
	"iter"
	"strconv"
	"strings"

	"segment-sync/core/metrics"
	"segment-sync/core/utils"

	"go.uber.org/zap"
)

// IsValidMemberID normalizes a raw column value into a member id.
// Positive integers and strings of ASCII digits (after trimming whitespace) are accepted.
// Leading zeros are dropped so "007" and 7 name the same member; zero is rejected.
func IsValidMemberID(val any) (string, bool) {
	switch v := val.(type) {
	case int:
		return signed(int64(v))
	case int64:
		return signed(v)
	case int32:
		return signed(int64(v))
	case int16:
		return signed(int64(v))
	case int8:
		return signed(int64(v))
	case uint:
		return unsigned(uint64(v))
	case uint64:
		return unsigned(v)
	case uint32:
		return unsigned(uint64(v))
	case uint16:
		return unsigned(uint64(v))
	case uint8:
		return unsigned(uint64(v))
	case string:
		return digits(v)
	case []byte:
		return digits(string(v))
	default:
		return "", false
	}
}

func signed(v int64) (string, bool) {
	if v <= 0 {
		return "", false
	}
	return strconv.FormatInt(v, 10), true
}

func unsigned(v uint64) (string, bool) {
	if v == 0 {
		return "", false
	}
	return strconv.FormatUint(v, 10), true
}

func digits(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if !utils.IsDigits(s) {
		return "", false
	}
	s = strings.TrimLeft(s, "0")
	if s == "" {
		return "", false
	}
	return s, true
}

// Validate runs definition against src and yields the valid member ids.
//
// Invalid rows are logged with the offending value and the query, then skipped.
// A row source failure is yielded once as an error and ends the sequence.
// Each call re-executes the definition.
func Validate(ctx context.Context, src Source, definition string, logger *zap.Logger) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for row, err := range src.Rows(ctx, definition) {
			if err != nil {
				yield("", fmt.Errorf("row source: %w", err))
				return
			}

			var raw any
			if len(row) > 0 {
				raw = row[0]
			}

			id, ok := IsValidMemberID(raw)
			if !ok {
				metrics.InvalidRows.Inc()
				logger.Error("Query returned invalid result",
					zap.String("value", utils.ToString(raw)),
					zap.String("query", definition),
				)
				continue
			}

			if !yield(id, nil) {
				return
			}
		}
	}
}
