// Package tracker records unique post views and per-user watch history.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// HistoryLimit is the number of most recent posts kept per user.
const HistoryLimit = 100

var errRedisUnavailable = errors.New("view tracker redis unavailable")

type ViewTracker interface {
	// RecordView reports whether viewer had not seen postID before.
	RecordView(ctx context.Context, postID, viewer string) (bool, error)
	PushHistory(ctx context.Context, userID, postID string) error
	History(ctx context.Context, userID string, limit int) ([]string, error)
	Forget(ctx context.Context, postID string) error
}

type RedisTracker struct {
	redis *redis.Client
}

func NewRedisTracker(redisClient *redis.Client) *RedisTracker {
	return &RedisTracker{redis: redisClient}
}

// Open parses url, connects and pings the server.
func Open(ctx context.Context, url string) (*RedisTracker, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %v", errRedisUnavailable, err)
	}

	return NewRedisTracker(client), nil
}

func (t *RedisTracker) Close() error {
	return t.redis.Close()
}

func (t *RedisTracker) RecordView(ctx context.Context, postID, viewer string) (bool, error) {
	added, err := t.redis.SAdd(ctx, viewersKey(postID), viewer).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", errRedisUnavailable, err)
	}
	return added == 1, nil
}

func (t *RedisTracker) PushHistory(ctx context.Context, userID, postID string) error {
	key := historyKey(userID)

	_, err := t.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, key, 0, postID)
		pipe.LPush(ctx, key, postID)
		pipe.LTrim(ctx, key, 0, HistoryLimit-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", errRedisUnavailable, err)
	}
	return nil
}

func (t *RedisTracker) History(ctx context.Context, userID string, limit int) ([]string, error) {
	if limit <= 0 || limit > HistoryLimit {
		limit = HistoryLimit
	}

	ids, err := t.redis.LRange(ctx, historyKey(userID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errRedisUnavailable, err)
	}
	return ids, nil
}

// Forget drops the viewer set of a deleted post. History entries pointing at
// it are filtered out when history is read.
func (t *RedisTracker) Forget(ctx context.Context, postID string) error {
	if err := t.redis.Del(ctx, viewersKey(postID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", errRedisUnavailable, err)
	}
	return nil
}

func viewersKey(postID string) string {
	return "post:" + postID + ":viewers"
}

func historyKey(userID string) string {
	return "user:" + userID + ":history"
}

// Noop counts every view as new and keeps no history.
type Noop struct{}

func (Noop) RecordView(context.Context, string, string) (bool, error) { return true, nil }

func (Noop) PushHistory(context.Context, string, string) error { return nil }

func (Noop) History(context.Context, string, int) ([]string, error) { return nil, nil }

func (Noop) Forget(context.Context, string) error { return nil }
