package track

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/johnnewto/seamap/pkg/models"
)

// Compile-time check to ensure RedisStore implements Store
var _ Store = (*RedisStore)(nil)

// RedisStore keeps the track as a Redis list of JSON waypoints (RPUSH = append, index -1 = latest).
type RedisStore struct {
	client *redis.Client
	key    string
	seqKey string
	maxLen int
}

func NewRedisStore(client *redis.Client, vessel string, maxLen int) *RedisStore {
	return &RedisStore{
		client: client,
		key:    TrackKey("", vessel),
		seqKey: SeqKey("", vessel),
		maxLen: maxLen,
	}
}

func (r *RedisStore) Latest(ctx context.Context) (models.Waypoint, error) {
	raw, err := r.client.LIndex(ctx, r.key, -1).Result()
	if errors.Is(err, redis.Nil) {
		return models.Waypoint{}, ErrEmptyTrack
	}
	if err != nil {
		return models.Waypoint{}, fmt.Errorf("redis LINDEX %s: %w", r.key, err)
	}
	return decode(raw)
}

func (r *RedisStore) Append(ctx context.Context, w models.Waypoint) error {
	payload, err := json.Marshal(w)
	if err != nil {
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, r.key, payload)
	pipe.Incr(ctx, r.seqKey)
	if r.maxLen > 0 {
		pipe.LTrim(ctx, r.key, int64(-r.maxLen), -1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis append %s: %w", r.key, err)
	}
	return nil
}

func (r *RedisStore) Len(ctx context.Context) (int, error) {
	n, err := r.client.LLen(ctx, r.key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis LLEN %s: %w", r.key, err)
	}
	return int(n), nil
}

// Appended reads the append counter. A track written before the counter existed
// falls back to its length.
func (r *RedisStore) Appended(ctx context.Context) (int64, error) {
	n, err := r.client.Get(ctx, r.seqKey).Int64()
	if errors.Is(err, redis.Nil) {
		l, err := r.Len(ctx)
		return int64(l), err
	}
	if err != nil {
		return 0, fmt.Errorf("redis GET %s: %w", r.seqKey, err)
	}
	return n, nil
}

func (r *RedisStore) Recent(ctx context.Context, n int) ([]models.Waypoint, error) {
	start := int64(0)
	if n > 0 {
		start = int64(-n)
	}
	vals, err := r.client.LRange(ctx, r.key, start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis LRANGE %s: %w", r.key, err)
	}

	out := make([]models.Waypoint, 0, len(vals))
	for _, v := range vals {
		w, err := decode(v)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func decode(raw string) (models.Waypoint, error) {
	var w models.Waypoint
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return models.Waypoint{}, fmt.Errorf("decode waypoint: %w", err)
	}
	return w, nil
}
