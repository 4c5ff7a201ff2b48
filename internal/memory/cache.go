package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/learnly-platform/learnly/internal/agent"
)

// TurnCache keeps the recent plain-turn window per user in a Redis
// list, so the common RecentHistory read skips Postgres entirely.
type TurnCache struct {
	client  *redis.Client
	maxMsgs int
	ttl     time.Duration
}

// NewTurnCache creates a recent-turn cache. maxMsgs bounds the list
// length; ttl expires idle conversations.
func NewTurnCache(client *redis.Client, maxMsgs int, ttl time.Duration) *TurnCache {
	return &TurnCache{client: client, maxMsgs: maxMsgs, ttl: ttl}
}

func convKey(userID string) string {
	return fmt.Sprintf("conv:%s", userID)
}

// Append adds a plain turn to the user's window and trims it.
func (c *TurnCache) Append(ctx context.Context, userID string, turn agent.Turn) error {
	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("marshaling turn: %w", err)
	}

	key := convKey(userID)
	pipe := c.client.Pipeline()
	pipe.RPush(ctx, key, string(data))
	pipe.LTrim(ctx, key, int64(-c.maxMsgs), -1)
	pipe.Expire(ctx, key, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("pipeline exec for %s: %w", key, err)
	}
	return nil
}

// Recent returns the last `limit` cached turns in chronological order.
func (c *TurnCache) Recent(ctx context.Context, userID string, limit int) ([]agent.Turn, error) {
	key := convKey(userID)
	vals, err := c.client.LRange(ctx, key, int64(-limit), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange %s: %w", key, err)
	}

	turns := make([]agent.Turn, 0, len(vals))
	for _, v := range vals {
		var turn agent.Turn
		if err := json.Unmarshal([]byte(v), &turn); err != nil {
			continue // skip malformed entries
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

// Clear deletes the cached window for a user.
func (c *TurnCache) Clear(ctx context.Context, userID string) error {
	return c.client.Del(ctx, convKey(userID)).Err()
}
