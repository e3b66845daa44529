package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisQueue appends commands to one Redis stream per device. Players read
// their stream with a consumer group and acknowledge after executing, which
// gives at-least-once delivery.
type RedisQueue struct {
	rdb    redis.Cmdable
	prefix string
	maxLen int64
}

// NewRedisQueue trims streams to roughly maxLen entries; zero disables trimming.
func NewRedisQueue(rdb redis.Cmdable, prefix string, maxLen int64) *RedisQueue {
	return &RedisQueue{rdb: rdb, prefix: prefix, maxLen: maxLen}
}

// Stream returns the stream key for deviceID.
func (q *RedisQueue) Stream(deviceID string) string {
	return q.prefix + deviceID
}

func (q *RedisQueue) Enqueue(ctx context.Context, deviceID string, msg Message) (string, error) {
	payload, err := json.Marshal(msg.Payload)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: q.Stream(deviceID),
		ID:     "*",
		Values: map[string]any{
			"messageId": msg.ID,
			"command":   msg.Command,
			"payload":   string(payload),
			"timestamp": msg.Timestamp.UTC().Format(time.RFC3339Nano),
		},
	}
	if q.maxLen > 0 {
		args.MaxLen = q.maxLen
		args.Approx = true
	}

	id, err := q.rdb.XAdd(ctx, args).Result()
	if err != nil {
		return "", fmt.Errorf("xadd %s: %w", args.Stream, err)
	}
	return id, nil
}
