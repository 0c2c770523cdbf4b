package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis is a Client implementation backed by go-redis.
type Redis struct {
	rdb *redis.Client
}

var _ Client = (*Redis)(nil)

// DialRedis connects to the store at rawURL (redis:// or rediss://) and
// verifies the connection with a ping.
func DialRedis(ctx context.Context, rawURL string) (*Redis, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("store: parse redis url: %w", err)
	}
	r := NewRedis(redis.NewClient(opt))
	if err := r.Ping(ctx); err != nil {
		_ = r.Close()
		return nil, err
	}
	return r, nil
}

// NewRedis wraps an already-configured go-redis client. The returned Client
// owns it: Close closes the underlying client.
func NewRedis(rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb}
}

func (r *Redis) Ping(ctx context.Context) error {
	if err := r.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("store: ping: %w", mapErr(err))
	}
	return nil
}

func (r *Redis) Scan(ctx context.Context, cursor uint64, match string, count int64) ([]string, uint64, error) {
	keys, next, err := r.rdb.Scan(ctx, cursor, match, count).Result()
	if err != nil {
		return nil, 0, mapErr(err)
	}
	return keys, next, nil
}

func (r *Redis) Keys(ctx context.Context, pattern string) ([]string, error) {
	keys, err := r.rdb.Keys(ctx, pattern).Result()
	if err != nil {
		return nil, mapErr(err)
	}
	return keys, nil
}

func (r *Redis) DBSize(ctx context.Context) (int64, error) {
	n, err := r.rdb.DBSize(ctx).Result()
	if err != nil {
		return 0, mapErr(err)
	}
	return n, nil
}

func (r *Redis) Type(ctx context.Context, key string) (KeyType, error) {
	s, err := r.rdb.Type(ctx, key).Result()
	if err != nil {
		return "", mapErr(err)
	}
	return KeyType(s), nil
}

func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	s, err := r.rdb.Get(ctx, key).Result()
	if err != nil {
		return "", mapErr(err)
	}
	return s, nil
}

func (r *Redis) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	m, err := r.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, mapErr(err)
	}
	return m, nil
}

func (r *Redis) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	vals, err := r.rdb.LRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, mapErr(err)
	}
	return vals, nil
}

func (r *Redis) SMembers(ctx context.Context, key string) ([]string, error) {
	vals, err := r.rdb.SMembers(ctx, key).Result()
	if err != nil {
		return nil, mapErr(err)
	}
	return vals, nil
}

func (r *Redis) ZRangeWithScores(ctx context.Context, key string, start, stop int64) ([]Z, error) {
	raw, err := r.rdb.ZRangeWithScores(ctx, key, start, stop).Result()
	if err != nil {
		return nil, mapErr(err)
	}
	return zsFromRedis(raw), nil
}

func (r *Redis) Pipeline() Pipeline {
	return &redisPipeline{rdb: r.rdb}
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}

// redisPipeline defers enqueuing until Exec so every command is issued with
// the Exec context. resolve closures copy go-redis results into the handles
// after the round trip.
type redisPipeline struct {
	rdb  *redis.Client
	adds []func(ctx context.Context, pipe redis.Pipeliner) func() error
}

var _ Pipeline = (*redisPipeline)(nil)

func (p *redisPipeline) Type(key string) *TypeCmd {
	cmd := &TypeCmd{}
	p.adds = append(p.adds, func(ctx context.Context, pipe redis.Pipeliner) func() error {
		rc := pipe.Type(ctx, key)
		return func() error {
			s, err := rc.Result()
			cmd.val, cmd.err = KeyType(s), mapErr(err)
			return cmd.err
		}
	})
	return cmd
}

func (p *redisPipeline) Get(key string) *StringCmd {
	cmd := &StringCmd{}
	p.adds = append(p.adds, func(ctx context.Context, pipe redis.Pipeliner) func() error {
		rc := pipe.Get(ctx, key)
		return func() error {
			cmd.val, cmd.err = rc.Result()
			cmd.err = mapErr(cmd.err)
			return cmd.err
		}
	})
	return cmd
}

func (p *redisPipeline) HGetAll(key string) *MapCmd {
	cmd := &MapCmd{}
	p.adds = append(p.adds, func(ctx context.Context, pipe redis.Pipeliner) func() error {
		rc := pipe.HGetAll(ctx, key)
		return func() error {
			cmd.val, cmd.err = rc.Result()
			cmd.err = mapErr(cmd.err)
			return cmd.err
		}
	})
	return cmd
}

func (p *redisPipeline) LRange(key string, start, stop int64) *SliceCmd {
	cmd := &SliceCmd{}
	p.adds = append(p.adds, func(ctx context.Context, pipe redis.Pipeliner) func() error {
		rc := pipe.LRange(ctx, key, start, stop)
		return func() error {
			cmd.val, cmd.err = rc.Result()
			cmd.err = mapErr(cmd.err)
			return cmd.err
		}
	})
	return cmd
}

func (p *redisPipeline) SMembers(key string) *SliceCmd {
	cmd := &SliceCmd{}
	p.adds = append(p.adds, func(ctx context.Context, pipe redis.Pipeliner) func() error {
		rc := pipe.SMembers(ctx, key)
		return func() error {
			cmd.val, cmd.err = rc.Result()
			cmd.err = mapErr(cmd.err)
			return cmd.err
		}
	})
	return cmd
}

func (p *redisPipeline) ZRangeWithScores(key string, start, stop int64) *ZSliceCmd {
	cmd := &ZSliceCmd{}
	p.adds = append(p.adds, func(ctx context.Context, pipe redis.Pipeliner) func() error {
		rc := pipe.ZRangeWithScores(ctx, key, start, stop)
		return func() error {
			raw, err := rc.Result()
			cmd.val, cmd.err = zsFromRedis(raw), mapErr(err)
			return cmd.err
		}
	})
	return cmd
}

func (p *redisPipeline) Exec(ctx context.Context) error {
	pipe := p.rdb.Pipeline()
	resolvers := make([]func() error, len(p.adds))
	for i, add := range p.adds {
		resolvers[i] = add(ctx, pipe)
	}
	_, execErr := pipe.Exec(ctx)

	// Resolve every handle regardless of the round-trip outcome; on a
	// transport failure go-redis sets the same error on each command.
	var first error
	for _, resolve := range resolvers {
		if err := resolve(); err != nil && first == nil && !errors.Is(err, ErrNil) {
			first = err
		}
	}
	if first == nil && execErr != nil && !errors.Is(execErr, redis.Nil) {
		first = mapErr(execErr)
	}
	if first != nil {
		return fmt.Errorf("store: pipeline exec: %w", first)
	}
	return nil
}

func zsFromRedis(raw []redis.Z) []Z {
	zs := make([]Z, len(raw))
	for i, z := range raw {
		member, ok := z.Member.(string)
		if !ok {
			member = fmt.Sprint(z.Member)
		}
		zs[i] = Z{Member: member, Score: z.Score}
	}
	return zs
}

// mapErr converts go-redis sentinels to this package's.
func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, redis.Nil):
		return ErrNil
	case errors.Is(err, redis.ErrClosed):
		return ErrClosed
	default:
		return err
	}
}
