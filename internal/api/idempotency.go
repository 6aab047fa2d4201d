package api

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const dedupePrefix = "cmd"

// RedisDeduper stores accepted idempotency keys in Redis so every API
// instance drops the same replayed command.
type RedisDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisDeduper(client *redis.Client, ttl time.Duration) *RedisDeduper {
	return &RedisDeduper{client: client, ttl: ttl}
}

func (r *RedisDeduper) key(userID, key string) string {
	return fmt.Sprintf("%s:%s:%s", dedupePrefix, userID, key)
}

// AddMany records the keys in one pipeline. The result tells which keys
// were new. On error the slice holds the results read before the failure
// so callers can roll them back.
func (r *RedisDeduper) AddMany(ctx context.Context, userID string, keys []string) ([]bool, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	results := make([]bool, len(keys))
	cmds, err := r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, key := range keys {
			pipe.SetNX(ctx, r.key(userID, key), 1, r.ttl)
		}
		return nil
	})
	if len(cmds) != len(keys) {
		if err == nil {
			err = fmt.Errorf("deduper pipeline mismatch: expected %d results, got %d", len(keys), len(cmds))
		}
		return results, err
	}
	for i, cmd := range cmds {
		boolCmd, ok := cmd.(*redis.BoolCmd)
		if !ok {
			return results, fmt.Errorf("unexpected redis response type %T", cmd)
		}
		val, cmdErr := boolCmd.Result()
		if cmdErr != nil {
			return results, cmdErr
		}
		results[i] = val
	}
	return results, err
}

// Remove forgets keys so the caller may retry the commands.
func (r *RedisDeduper) Remove(ctx context.Context, userID string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.key(userID, k)
	}
	return r.client.Del(ctx, full...).Err()
}
