package ratelimit

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/redis/go-redis/v9"
)

//go:embed rate_limit.lua
var rateLimitScript string

// Logger interface for logging
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
}

// Result contains the result of a rate limit check
type Result struct {
	Allowed           bool
	CurrentCount      int64
	Limit             int64
	RetryAfterSeconds int64
}

// Limiter throttles expensive operations (cache repopulation above all)
// using a fixed window counter in Redis, evaluated atomically via Lua.
type Limiter struct {
	redis  *redis.Client
	script *redis.Script
	logger Logger

	windowSeconds int64
}

// NewLimiter creates a rate limiter with the embedded Lua script
func NewLimiter(redisClient *redis.Client, windowSeconds int64, logger Logger) *Limiter {
	return &Limiter{
		redis:         redisClient,
		script:        redis.NewScript(rateLimitScript),
		logger:        logger,
		windowSeconds: windowSeconds,
	}
}

// Check checks and consumes one unit from the limit for the given scope.
// Scope is typically "populate:<user_id>" or "populate:global".
func (l *Limiter) Check(ctx context.Context, scope string, limit int64) (*Result, error) {
	key := fmt.Sprintf("ratelimit:%s", scope)

	raw, err := l.script.Run(ctx, l.redis, []string{key}, limit, l.windowSeconds).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to run rate limit script: %w", err)
	}

	values, ok := raw.([]interface{})
	if !ok || len(values) != 3 {
		return nil, fmt.Errorf("unexpected rate limit script result: %v", raw)
	}

	result := &Result{
		Allowed:           values[0].(int64) == 1,
		CurrentCount:      values[1].(int64),
		Limit:             limit,
		RetryAfterSeconds: values[2].(int64),
	}

	if !result.Allowed {
		l.logger.Warn("rate limit exceeded",
			"scope", scope,
			"count", result.CurrentCount,
			"limit", limit,
		)
	}

	return result, nil
}
