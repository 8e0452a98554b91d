package batch

import (
	"context"
	"fmt"
	"iter"

	"segment-sync/core/kvstore"
)

// DefaultSize is the number of items queued per pipeline round trip.
const DefaultSize = 1000

// WriteOp queues the writes for one item on a pipeline.
type WriteOp func(ctx context.Context, p kvstore.Pipeline, item string)

// Executor applies write operations to a stream of items in bounded pipelines.
type Executor struct {
	client kvstore.Client
	size   int
}

// New creates an Executor that flushes every size items.
// A non-positive size falls back to DefaultSize.
func New(client kvstore.Client, size int) *Executor {
	if size <= 0 {
		size = DefaultSize
	}
	return &Executor{client: client, size: size}
}

// Size returns the flush threshold.
func (e *Executor) Size() int {
	return e.size
}

// Run applies op to every item, flushing whenever Size items are queued and once at the end.
// It returns the number of items whose writes were flushed.
//
// Batches are not atomic. If a flush fails, earlier batches stay applied and the error is
// returned. If items yields an error, the unflushed tail is discarded and that error is returned.
func (e *Executor) Run(ctx context.Context, items iter.Seq2[string, error], op WriteOp) (int, error) {
	applied := 0
	pending := 0
	p := e.client.Pipeline()

	flush := func() error {
		if pending == 0 {
			return nil
		}
		if err := p.Exec(ctx); err != nil {
			return fmt.Errorf("batch flush: %w", err)
		}
		applied += pending
		pending = 0
		p = e.client.Pipeline()
		return nil
	}

	for item, err := range items {
		if err != nil {
			p.Discard()
			return applied, err
		}

		op(ctx, p, item)
		pending++

		if pending >= e.size {
			if err := flush(); err != nil {
				return applied, err
			}
		}
	}

	if err := flush(); err != nil {
		return applied, err
	}
	return applied, nil
}

// Slice adapts a slice into an item stream for Run.
func Slice(items []string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, item := range items {
			if !yield(item, nil) {
				return
			}
		}
	}
}
