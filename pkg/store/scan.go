package store

import (
	"context"
	"fmt"
	"iter"
)

// ScanAll iterates the whole keyspace as batches of keys, driving Scan from
// cursor zero until the store hands back cursor zero again. The store is
// always called at least once, so an empty keyspace costs one round trip and
// yields nothing.
//
// Empty batches are skipped. A scan error is yielded once, with a nil batch,
// and ends the sequence; there is no resume, re-ranging starts over from
// cursor zero. Keys written during the scan may or may not appear; keys
// present throughout are yielded exactly once per the store's SCAN contract.
func ScanAll(ctx context.Context, c Client, match string, count int64) iter.Seq2[[]string, error] {
	return func(yield func([]string, error) bool) {
		var cursor uint64
		for {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			keys, next, err := c.Scan(ctx, cursor, match, count)
			if err != nil {
				yield(nil, fmt.Errorf("store: scan: %w", err))
				return
			}
			if len(keys) > 0 && !yield(keys, nil) {
				return
			}
			if next == 0 {
				return
			}
			cursor = next
		}
	}
}
