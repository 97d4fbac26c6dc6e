package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"eyegic/internal/config"
	"eyegic/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	challengeKeyPrefix = "otp:challenge:"
	attemptsKeyPrefix  = "otp:attempts:"
	rateLimitKeyPrefix = "otp:rate:"
)

// addAttemptScript bumps the attempt counter of a live challenge and keeps it
// expiring with the challenge. Returns 0 when the challenge is gone.
var addAttemptScript = redis.NewScript(`
local ttl = redis.call('PTTL', KEYS[1])
if ttl <= 0 then
	return 0
end
local n = redis.call('INCR', KEYS[2])
redis.call('PEXPIRE', KEYS[2], ttl)
return n
`)

type RedisOTPRepository struct {
	client *redis.Client
}

func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewRedisOTPRepository(client *redis.Client) *RedisOTPRepository {
	return &RedisOTPRepository{client: client}
}

func (r *RedisOTPRepository) GetChallenge(ctx context.Context, mobile string) (*models.OTPChallenge, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	vals, err := r.client.MGet(ctx, challengeKeyPrefix+mobile, attemptsKeyPrefix+mobile).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get challenge from redis: %w", err)
	}
	raw, ok := vals[0].(string)
	if !ok {
		return nil, nil
	}

	var challenge models.OTPChallenge
	if err := json.Unmarshal([]byte(raw), &challenge); err != nil {
		return nil, fmt.Errorf("failed to unmarshal challenge: %w", err)
	}
	if attempts, ok := vals[1].(string); ok {
		if n, err := strconv.Atoi(attempts); err == nil {
			challenge.Attempts = n
		}
	}
	return &challenge, nil
}

// SetChallenge stores the challenge until its ExpiresAt.
func (r *RedisOTPRepository) SetChallenge(ctx context.Context, challenge *models.OTPChallenge) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	ttl := time.Until(challenge.ExpiresAt)
	if ttl <= 0 {
		return r.ClearChallenge(ctx, challenge.MobileNumber)
	}

	data, err := json.Marshal(challenge)
	if err != nil {
		return fmt.Errorf("failed to marshal challenge: %w", err)
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, challengeKeyPrefix+challenge.MobileNumber, data, ttl)
		pipe.Set(ctx, attemptsKeyPrefix+challenge.MobileNumber, challenge.Attempts, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to set challenge in redis: %w", err)
	}
	return nil
}

func (r *RedisOTPRepository) ClearChallenge(ctx context.Context, mobile string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, challengeKeyPrefix+mobile, attemptsKeyPrefix+mobile).Err(); err != nil {
		return fmt.Errorf("failed to delete challenge from redis: %w", err)
	}
	return nil
}

// AddAttempt counts a failed guess atomically and returns the new total, or 0
// when no challenge is pending.
func (r *RedisOTPRepository) AddAttempt(ctx context.Context, mobile string) (int, error) {
	if r.client == nil {
		return 0, fmt.Errorf("redis client is nil")
	}
	n, err := addAttemptScript.Run(ctx, r.client, []string{challengeKeyPrefix + mobile, attemptsKeyPrefix + mobile}).Int()
	if err != nil {
		return 0, fmt.Errorf("failed to count otp attempt: %w", err)
	}
	return n, nil
}

func (r *RedisOTPRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	redisKey := rateLimitKeyPrefix + key

	count, err := r.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit: %w", err)
	}
	if count == 1 {
		if err := r.client.Expire(ctx, redisKey, window).Err(); err != nil {
			return false, fmt.Errorf("failed to set rate limit window: %w", err)
		}
	}

	return count <= int64(limit), nil
}

func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
