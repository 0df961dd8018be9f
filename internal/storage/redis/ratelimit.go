package redis

import (
	"context"
	"fmt"
	"time"

	rdb "quiz-bot/pkg/redis"
)

// RateLimiter counts actions per user in fixed windows using INCR + EXPIRE.
type RateLimiter struct {
	client *rdb.Client
	limit  int64
	window time.Duration
}

func NewRateLimiter(client *rdb.Client, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{client: client, limit: limit, window: window}
}

func (r *RateLimiter) Allow(ctx context.Context, userID int64, action string) (bool, error) {
	key := fmt.Sprintf("quizbot:ratelimit:%d:%s", userID, action)

	count, err := r.client.Incr(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}

	// Set expiry if this is the first increment
	if count == 1 {
		if _, err := r.client.Expire(ctx, key, r.window); err != nil {
			return false, fmt.Errorf("failed to set rate limit window: %w", err)
		}
	}

	return count <= r.limit, nil
}
