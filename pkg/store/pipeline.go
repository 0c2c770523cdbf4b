package store

import "context"

// Pipeline queues commands for a single batched round trip. Queue methods
// return typed handles whose results become available after Exec; replies
// resolve in queue order. A Pipeline is single-use: create a new one per
// batch.
type Pipeline interface {
	Type(key string) *TypeCmd
	Get(key string) *StringCmd
	HGetAll(key string) *MapCmd
	LRange(key string, start, stop int64) *SliceCmd
	SMembers(key string) *SliceCmd
	ZRangeWithScores(key string, start, stop int64) *ZSliceCmd

	// Exec sends the queued commands and resolves every handle. It
	// returns the first command error, except ErrNil, which is reported
	// only on the individual handle.
	Exec(ctx context.Context) error
}

// TypeCmd is the handle for a queued Type command.
type TypeCmd struct {
	val KeyType
	err error
}

// Result returns the key type resolved by Exec.
func (c *TypeCmd) Result() (KeyType, error) { return c.val, c.err }

// StringCmd is the handle for a queued Get command.
type StringCmd struct {
	val string
	err error
}

// Result returns the string value resolved by Exec. The error is ErrNil
// when the key did not exist.
func (c *StringCmd) Result() (string, error) { return c.val, c.err }

// MapCmd is the handle for a queued HGetAll command.
type MapCmd struct {
	val map[string]string
	err error
}

// Result returns the hash fields resolved by Exec.
func (c *MapCmd) Result() (map[string]string, error) { return c.val, c.err }

// SliceCmd is the handle for a queued LRange or SMembers command.
type SliceCmd struct {
	val []string
	err error
}

// Result returns the elements resolved by Exec.
func (c *SliceCmd) Result() ([]string, error) { return c.val, c.err }

// ZSliceCmd is the handle for a queued ZRangeWithScores command.
type ZSliceCmd struct {
	val []Z
	err error
}

// Result returns the scored members resolved by Exec.
func (c *ZSliceCmd) Result() ([]Z, error) { return c.val, c.err }
