package credential

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the record as four string keys under a prefix.
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
}

// NewRedisStore constructs a RedisStore. Keys are "<prefix>:<logical key>".
func NewRedisStore(rdb redis.UniversalClient, prefix string) *RedisStore {
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = "sentinel"
	}
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (s *RedisStore) key(k string) string { return s.prefix + ":" + k }

func (s *RedisStore) allKeys() []string {
	out := make([]string, len(Keys))
	for i, k := range Keys {
		out[i] = s.key(k)
	}
	return out
}

// Save replaces all keys inside MULTI/EXEC.
func (s *RedisStore) Save(ctx context.Context, r Record) error {
	values, err := encode(r)
	if err != nil {
		return err
	}

	pairs := make([]any, 0, 2*len(Keys))
	for _, k := range Keys {
		pairs = append(pairs, s.key(k), values[k])
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.allKeys()...)
		pipe.MSet(ctx, pairs...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save: %w", err)
	}
	return nil
}

// Load reads all keys with one MGET.
func (s *RedisStore) Load(ctx context.Context) (Record, error) {
	res, err := s.rdb.MGet(ctx, s.allKeys()...).Result()
	if err != nil {
		return Record{}, corrupt("redis", "mget failed", err)
	}

	values := make(map[string]string, len(Keys))
	for i, v := range res {
		if v == nil {
			continue
		}
		str, ok := v.(string)
		if !ok {
			return Record{}, corrupt("redis", "unexpected value type for "+Keys[i], nil)
		}
		values[Keys[i]] = str
	}
	return decode("redis", values)
}

// Clear deletes all keys with one DEL.
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.rdb.Del(ctx, s.allKeys()...).Err(); err != nil {
		return fmt.Errorf("redis clear: %w", err)
	}
	return nil
}
