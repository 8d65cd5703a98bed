package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter shares rate-limit state across instances. The window is a
// sorted set of request timestamps and the blocked state is a plain key with
// a TTL. On redis errors it fails open so a degraded cache cannot take down
// request handling.
type RedisLimiter struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
	now    func() time.Time
}

// NewRedisLimiter constructs a limiter on the given client.
func NewRedisLimiter(client *redis.Client, prefix string, logger *slog.Logger) *RedisLimiter {
	if prefix == "" {
		prefix = "ratelimit"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisLimiter{client: client, prefix: prefix, logger: logger, now: time.Now}
}

func (l *RedisLimiter) windowKey(key string) string {
	return l.prefix + ":win:" + key
}

func (l *RedisLimiter) blockKey(key string) string {
	return l.prefix + ":block:" + key
}

// Check applies the same state machine as MemoryLimiter against redis.
// Over-admission is prevented by adding the attempt before counting and
// removing it again when the window is full.
func (l *RedisLimiter) Check(ctx context.Context, key string, policy Policy) Result {
	ttl, err := l.client.PTTL(ctx, l.blockKey(key)).Result()
	if err != nil {
		return l.failOpen(err, policy)
	}
	if ttl > 0 {
		return Result{Blocked: true, RetryAfter: ttl}
	}

	now := l.now()
	member := strconv.FormatInt(now.UnixNano(), 10)
	windowStart := now.Add(-policy.Window)

	pipe := l.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, l.windowKey(key), "0", fmt.Sprintf("%d", windowStart.UnixNano()))
	pipe.ZAdd(ctx, l.windowKey(key), redis.Z{Score: float64(now.UnixNano()), Member: member})
	count := pipe.ZCard(ctx, l.windowKey(key))
	pipe.Expire(ctx, l.windowKey(key), policy.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return l.failOpen(err, policy)
	}

	if count.Val() > int64(policy.MaxRequests) {
		rollback := l.client.TxPipeline()
		rollback.ZRem(ctx, l.windowKey(key), member)
		rollback.Set(ctx, l.blockKey(key), "1", policy.BlockFor)
		rollback.Del(ctx, l.windowKey(key))
		if _, err := rollback.Exec(ctx); err != nil {
			l.logger.Warn("ratelimit block write failed", slog.Any("error", err))
		}
		return Result{Blocked: true, RetryAfter: policy.BlockFor}
	}

	return Result{Allowed: true, Remaining: policy.MaxRequests - int(count.Val())}
}

// Cleanup removes idle window sets. Keys carry TTLs, so this only reaps sets
// whose expiry was lost (for example after a redis restore).
func (l *RedisLimiter) Cleanup(ctx context.Context, olderThan time.Duration) {
	var cursor uint64
	for {
		keys, next, err := l.client.Scan(ctx, cursor, l.prefix+":win:*", 100).Result()
		if err != nil {
			l.logger.Warn("ratelimit cleanup scan failed", slog.Any("error", err))
			return
		}
		for _, key := range keys {
			ttl, err := l.client.TTL(ctx, key).Result()
			if err != nil {
				continue
			}
			if ttl == -1 {
				_ = l.client.Expire(ctx, key, olderThan).Err()
			}
		}
		cursor = next
		if cursor == 0 {
			return
		}
	}
}

func (l *RedisLimiter) failOpen(err error, policy Policy) Result {
	l.logger.Warn("ratelimit redis unavailable, failing open", slog.Any("error", err))
	return Result{Allowed: true, Remaining: policy.MaxRequests}
}
