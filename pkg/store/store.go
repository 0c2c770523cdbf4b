// Package store provides the key-value store capability consumed by the
// export and search engines: a client interface modeled on the redis command
// vocabulary, a go-redis backed implementation, and an in-memory
// implementation for testing.
//
// Sessions are explicit. Callers dial (or construct) a client, run
// operations against it, and close it; the package keeps no global client
// state. Clients are safe for concurrent use, but the engines in pkg/export
// and pkg/search expect to be the only operation in flight on a client at a
// time.
package store

import (
	"context"
	"errors"
)

// Sentinel errors.
var (
	// ErrNil is returned when a key or field does not exist.
	ErrNil = errors.New("store: nil reply")

	// ErrClosed is returned by operations on a closed client.
	ErrClosed = errors.New("store: client closed")
)

// KeyType is the redis TYPE vocabulary for the value stored at a key.
type KeyType string

const (
	TypeString KeyType = "string"
	TypeHash   KeyType = "hash"
	TypeList   KeyType = "list"
	TypeSet    KeyType = "set"
	TypeZSet   KeyType = "zset"

	// TypeNone marks a key that does not exist, including keys that
	// vanish between SCAN and the typed read.
	TypeNone KeyType = "none"
)

// Z is a sorted-set member with its score.
type Z struct {
	Member string  `json:"member"`
	Score  float64 `json:"score"`
}

// Client is the interface to a redis-shaped key-value store.
type Client interface {
	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error

	// Scan returns one batch of keys starting at cursor. A zero next
	// cursor means the scan is complete. count is a batch-size hint; the
	// store may return more or fewer keys, including none, on any call.
	// match filters keys by glob pattern; empty means all keys.
	Scan(ctx context.Context, cursor uint64, match string, count int64) (keys []string, next uint64, err error)

	// Keys returns every key matching the glob pattern in one reply.
	// Unlike Scan it is not paginated and blocks the store for the
	// duration of the call.
	Keys(ctx context.Context, pattern string) ([]string, error)

	// DBSize returns the number of keys in the store. On a live store
	// the value is a snapshot and may drift immediately.
	DBSize(ctx context.Context) (int64, error)

	// Type returns the KeyType of key, TypeNone if it does not exist.
	Type(ctx context.Context, key string) (KeyType, error)

	// Get returns the string value of key. Returns ErrNil if the key
	// does not exist.
	Get(ctx context.Context, key string) (string, error)

	// HGetAll returns all fields of the hash at key. A missing key
	// yields an empty map, not an error.
	HGetAll(ctx context.Context, key string) (map[string]string, error)

	// LRange returns list elements in [start, stop], inclusive, with
	// redis index semantics (negative indices count from the end).
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)

	// SMembers returns all members of the set at key.
	SMembers(ctx context.Context, key string) ([]string, error)

	// ZRangeWithScores returns sorted-set elements in rank range
	// [start, stop], inclusive, ordered by ascending score.
	ZRangeWithScores(ctx context.Context, key string, start, stop int64) ([]Z, error)

	// Pipeline returns a new single-use command pipeline. Queue commands
	// on it and call Exec to send them in one round trip.
	Pipeline() Pipeline

	// Close releases the client. Further operations return ErrClosed or
	// the backend's equivalent.
	Close() error
}
