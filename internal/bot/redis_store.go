package bot

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// RedisStore keeps conversation states in Redis so in-flight flows survive a
// deploy. Entries expire on their own: an abandoned flow should not linger
// forever.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: 24 * time.Hour}
}

func stateKey(tgID int64) string {
	return "convstate:" + strconv.FormatInt(tgID, 10)
}

func (s *RedisStore) Get(ctx context.Context, tgID int64) (State, bool, error) {
	raw, err := s.rdb.Get(ctx, stateKey(tgID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return State{}, false, nil
		}
		return State{}, false, err
	}

	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		return State{}, false, err
	}
	return st, true, nil
}

func (s *RedisStore) Set(ctx context.Context, tgID int64, st State) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, stateKey(tgID), raw, s.ttl).Err()
}

func (s *RedisStore) Clear(ctx context.Context, tgID int64) error {
	return s.rdb.Del(ctx, stateKey(tgID)).Err()
}
