package mocks

import (
	"context"
	"iter"

	"segment-sync/core/rows"
)

// Source is a fixed rows.Source. It yields Data in order and then Err, if set.
// Calls counts how many times the definition was executed.
type Source struct {
	Data  []rows.Row
	Err   error
	Calls int
	Last  string
}

// Values builds a Source with one single-column row per value.
func Values(values ...any) *Source {
	src := &Source{}
	for _, v := range values {
		src.Data = append(src.Data, rows.Row{v})
	}
	return src
}

// Failing builds a Source that yields values and then fails with err.
func Failing(err error, values ...any) *Source {
	src := Values(values...)
	src.Err = err
	return src
}

func (s *Source) Rows(ctx context.Context, definition string) iter.Seq2[rows.Row, error] {
	s.Calls++
	s.Last = definition
	return func(yield func(rows.Row, error) bool) {
		for _, row := range s.Data {
			if !yield(row, nil) {
				return
			}
		}
		if s.Err != nil {
			yield(nil, s.Err)
		}
	}
}
