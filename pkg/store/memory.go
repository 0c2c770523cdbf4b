package store

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"sync"
)

// Memory is an in-memory Client implementation. Keys enumerate in insertion
// order, which makes Scan batches and set membership deterministic in tests.
// It is safe for concurrent use.
type Memory struct {
	mu     sync.RWMutex
	order  []string
	items  map[string]item
	closed bool

	scanCalls  int
	scanFailAt int
	scanErr    error
	pipeErr    error
}

type item struct {
	typ  KeyType
	str  string
	hash map[string]string
	list []string
	set  []string
	zset []Z
}

var _ Client = (*Memory)(nil)

// NewMemory creates an empty in-memory Client.
func NewMemory() *Memory {
	return &Memory{items: make(map[string]item)}
}

// Set stores a string value, replacing any existing value at key.
func (m *Memory) Set(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(key, item{typ: TypeString, str: value})
}

// HSet merges fields into the hash at key, replacing a value of another type.
func (m *Memory) HSet(key string, fields map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[key]
	if !ok || it.typ != TypeHash {
		it = item{typ: TypeHash, hash: make(map[string]string)}
	}
	for f, v := range fields {
		it.hash[f] = v
	}
	m.put(key, it)
}

// RPush appends values to the list at key, replacing a value of another type.
func (m *Memory) RPush(key string, values ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[key]
	if !ok || it.typ != TypeList {
		it = item{typ: TypeList}
	}
	it.list = append(it.list, values...)
	m.put(key, it)
}

// SAdd adds members to the set at key, replacing a value of another type.
// Member order is insertion order.
func (m *Memory) SAdd(key string, members ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[key]
	if !ok || it.typ != TypeSet {
		it = item{typ: TypeSet}
	}
	for _, member := range members {
		found := false
		for _, existing := range it.set {
			if existing == member {
				found = true
				break
			}
		}
		if !found {
			it.set = append(it.set, member)
		}
	}
	m.put(key, it)
}

// ZAdd upserts scored members into the sorted set at key, replacing a value
// of another type.
func (m *Memory) ZAdd(key string, members ...Z) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[key]
	if !ok || it.typ != TypeZSet {
		it = item{typ: TypeZSet}
	}
	for _, z := range members {
		replaced := false
		for i, existing := range it.zset {
			if existing.Member == z.Member {
				it.zset[i].Score = z.Score
				replaced = true
				break
			}
		}
		if !replaced {
			it.zset = append(it.zset, z)
		}
	}
	sort.SliceStable(it.zset, func(i, j int) bool {
		if it.zset[i].Score != it.zset[j].Score {
			return it.zset[i].Score < it.zset[j].Score
		}
		return it.zset[i].Member < it.zset[j].Member
	})
	m.put(key, it)
}

// Remove deletes a key, simulating a key that vanishes mid-scan.
func (m *Memory) Remove(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[key]; !ok {
		return
	}
	delete(m.items, key)
	for i, k := range m.order {
		if k == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// FailScan makes the nth Scan call (1-based, counted from now) return err.
// Test hook.
func (m *Memory) FailScan(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scanCalls = 0
	m.scanFailAt = n
	m.scanErr = err
}

// FailPipeline makes the next pipeline Exec return err. Test hook.
func (m *Memory) FailPipeline(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pipeErr = err
}

// put registers the key in insertion order on first write. Callers hold mu.
func (m *Memory) put(key string, it item) {
	if _, ok := m.items[key]; !ok {
		m.order = append(m.order, key)
	}
	m.items[key] = it
}

func (m *Memory) Ping(context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}
	return nil
}

func (m *Memory) Scan(_ context.Context, cursor uint64, match string, count int64) ([]string, uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, 0, ErrClosed
	}
	m.scanCalls++
	if m.scanFailAt > 0 && m.scanCalls == m.scanFailAt {
		return nil, 0, m.scanErr
	}
	if count <= 0 {
		count = 10
	}
	start := int(cursor)
	if start >= len(m.order) {
		return nil, 0, nil
	}
	end := start + int(count)
	if end > len(m.order) {
		end = len(m.order)
	}
	var keys []string
	for _, k := range m.order[start:end] {
		if matchPattern(match, k) {
			keys = append(keys, k)
		}
	}
	var next uint64
	if end < len(m.order) {
		next = uint64(end)
	}
	return keys, next, nil
}

func (m *Memory) Keys(_ context.Context, pattern string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	var keys []string
	for _, k := range m.order {
		if matchPattern(pattern, k) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (m *Memory) DBSize(context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return 0, ErrClosed
	}
	return int64(len(m.order)), nil
}

func (m *Memory) Type(_ context.Context, key string) (KeyType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return "", ErrClosed
	}
	it, ok := m.items[key]
	if !ok {
		return TypeNone, nil
	}
	return it.typ, nil
}

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return "", ErrClosed
	}
	it, ok := m.items[key]
	if !ok {
		return "", ErrNil
	}
	if it.typ != TypeString {
		return "", wrongType(key)
	}
	return it.str, nil
}

func (m *Memory) HGetAll(_ context.Context, key string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	it, ok := m.items[key]
	if !ok {
		return map[string]string{}, nil
	}
	if it.typ != TypeHash {
		return nil, wrongType(key)
	}
	cp := make(map[string]string, len(it.hash))
	for f, v := range it.hash {
		cp[f] = v
	}
	return cp, nil
}

func (m *Memory) LRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	it, ok := m.items[key]
	if !ok {
		return []string{}, nil
	}
	if it.typ != TypeList {
		return nil, wrongType(key)
	}
	lo, hi, ok := rankRange(int64(len(it.list)), start, stop)
	if !ok {
		return []string{}, nil
	}
	cp := make([]string, hi-lo+1)
	copy(cp, it.list[lo:hi+1])
	return cp, nil
}

func (m *Memory) SMembers(_ context.Context, key string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	it, ok := m.items[key]
	if !ok {
		return []string{}, nil
	}
	if it.typ != TypeSet {
		return nil, wrongType(key)
	}
	cp := make([]string, len(it.set))
	copy(cp, it.set)
	return cp, nil
}

func (m *Memory) ZRangeWithScores(_ context.Context, key string, start, stop int64) ([]Z, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	it, ok := m.items[key]
	if !ok {
		return []Z{}, nil
	}
	if it.typ != TypeZSet {
		return nil, wrongType(key)
	}
	lo, hi, ok := rankRange(int64(len(it.zset)), start, stop)
	if !ok {
		return []Z{}, nil
	}
	cp := make([]Z, hi-lo+1)
	copy(cp, it.zset[lo:hi+1])
	return cp, nil
}

func (m *Memory) Pipeline() Pipeline {
	return &memoryPipeline{m: m}
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// memoryPipeline queues operations and runs them sequentially on Exec.
type memoryPipeline struct {
	m   *Memory
	ops []func(ctx context.Context) error
}

var _ Pipeline = (*memoryPipeline)(nil)

func (p *memoryPipeline) Type(key string) *TypeCmd {
	cmd := &TypeCmd{}
	p.ops = append(p.ops, func(ctx context.Context) error {
		cmd.val, cmd.err = p.m.Type(ctx, key)
		return cmd.err
	})
	return cmd
}

func (p *memoryPipeline) Get(key string) *StringCmd {
	cmd := &StringCmd{}
	p.ops = append(p.ops, func(ctx context.Context) error {
		cmd.val, cmd.err = p.m.Get(ctx, key)
		return cmd.err
	})
	return cmd
}

func (p *memoryPipeline) HGetAll(key string) *MapCmd {
	cmd := &MapCmd{}
	p.ops = append(p.ops, func(ctx context.Context) error {
		cmd.val, cmd.err = p.m.HGetAll(ctx, key)
		return cmd.err
	})
	return cmd
}

func (p *memoryPipeline) LRange(key string, start, stop int64) *SliceCmd {
	cmd := &SliceCmd{}
	p.ops = append(p.ops, func(ctx context.Context) error {
		cmd.val, cmd.err = p.m.LRange(ctx, key, start, stop)
		return cmd.err
	})
	return cmd
}

func (p *memoryPipeline) SMembers(key string) *SliceCmd {
	cmd := &SliceCmd{}
	p.ops = append(p.ops, func(ctx context.Context) error {
		cmd.val, cmd.err = p.m.SMembers(ctx, key)
		return cmd.err
	})
	return cmd
}

func (p *memoryPipeline) ZRangeWithScores(key string, start, stop int64) *ZSliceCmd {
	cmd := &ZSliceCmd{}
	p.ops = append(p.ops, func(ctx context.Context) error {
		cmd.val, cmd.err = p.m.ZRangeWithScores(ctx, key, start, stop)
		return cmd.err
	})
	return cmd
}

func (p *memoryPipeline) Exec(ctx context.Context) error {
	var first error
	for _, op := range p.ops {
		if err := op(ctx); err != nil && first == nil && !errors.Is(err, ErrNil) {
			first = err
		}
	}
	p.m.mu.Lock()
	injected := p.m.pipeErr
	p.m.pipeErr = nil
	p.m.mu.Unlock()
	if injected != nil && first == nil {
		first = injected
	}
	if first != nil {
		return fmt.Errorf("store: pipeline exec: %w", first)
	}
	return nil
}

// rankRange resolves redis rank semantics (negative indices count from the
// end) to inclusive slice bounds.
func rankRange(n, start, stop int64) (lo, hi int64, ok bool) {
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if n == 0 || start > stop || start >= n {
		return 0, 0, false
	}
	return start, stop, true
}

// matchPattern approximates redis MATCH globbing. Good enough for tests;
// redis does not treat '/' specially but path.Match does.
func matchPattern(pattern, key string) bool {
	if pattern == "" || pattern == "*" {
		return true
	}
	ok, err := path.Match(pattern, key)
	return err == nil && ok
}

func wrongType(key string) error {
	return fmt.Errorf("store: wrong type at %q", key)
}
