package message

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisKey returns the Redis key for a room's message list.
func redisKey(room string) string {
	return "room:" + room + ":messages"
}

// RedisStore persists messages in Redis using a list per room.
type RedisStore struct {
	client  redis.Cmdable
	maxSize int64
}

// NewRedisStore creates a RedisStore that retains up to maxSize messages per room.
func NewRedisStore(client redis.Cmdable, maxSize int) *RedisStore {
	return &RedisStore{
		client:  client,
		maxSize: int64(maxSize),
	}
}

// Append adds a message to the room's list in Redis, trimming to maxSize.
// The append is atomic (single pipeline), and an error means the message
// was not durably recorded.
func (s *RedisStore) Append(msg *GroupMessage) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	key := redisKey(msg.Room)
	pipe := s.client.Pipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, -s.maxSize, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// Recent returns up to the last n messages for a room in ascending
// chronological order.
func (s *RedisStore) Recent(room string, n int) ([]*GroupMessage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	vals, err := s.client.LRange(ctx, redisKey(room), int64(-n), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read recent messages: %w", err)
	}

	msgs := make([]*GroupMessage, 0, len(vals))
	for _, v := range vals {
		var m GroupMessage
		if err := json.Unmarshal([]byte(v), &m); err != nil {
			log.Printf("redis: skipping unreadable message in %s: %v", room, err)
			continue
		}
		msgs = append(msgs, &m)
	}
	return msgs, nil
}

// Count returns the number of stored messages for a room.
func (s *RedisStore) Count(room string) int {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	n, err := s.client.LLen(ctx, redisKey(room)).Result()
	if err != nil {
		log.Printf("redis: failed to count messages: %v", err)
		return 0
	}
	return int(n)
}
