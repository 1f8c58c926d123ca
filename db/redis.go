// db/redis.go
package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	logger "github.com/gestore-cpu/gestione-doc-security/logging"
	"github.com/gestore-cpu/gestione-doc-security/model"
)

var RedisClient *redis.Client

const activePoliciesKey = "policies:active"

func InitRedis() error {
	RedisClient = redis.NewClient(&redis.Options{
		Addr:         viper.GetString("redis.addr"),
		Password:     viper.GetString("redis.password"),
		DB:           viper.GetInt("redis.db"),
		DialTimeout:  viper.GetDuration("redis.dialTimeout"),
		ReadTimeout:  viper.GetDuration("redis.readTimeout"),
		WriteTimeout: viper.GetDuration("redis.writeTimeout"),
		PoolSize:     viper.GetInt("redis.poolSize"),
		PoolTimeout:  viper.GetDuration("redis.poolTimeout"),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := RedisClient.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Successfully connected to Redis")
	return nil
}

func CloseRedis() {
	if RedisClient != nil {
		if err := RedisClient.Close(); err != nil {
			logger.Error("Error closing Redis connection", zap.Error(err))
		}
	}
}

// CacheActivePolicies stores the ordered active policy set for the
// evaluation hot path. The TTL keeps the cache from drifting far behind
// administrative changes; mutations invalidate it explicitly as well.
func CacheActivePolicies(ctx context.Context, policies []*model.AutoPolicy) error {
	data, err := json.Marshal(policies)
	if err != nil {
		return fmt.Errorf("failed to marshal active policies: %w", err)
	}

	ttl := viper.GetDuration("redis.defaultCacheTTL")
	if err := RedisClient.Set(ctx, activePoliciesKey, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache active policies: %w", err)
	}

	logger.Debug("Active policy set cached", zap.Int("count", len(policies)))
	return nil
}

// GetCachedActivePolicies returns the cached active policy set, or nil on
// a cache miss.
func GetCachedActivePolicies(ctx context.Context) ([]*model.AutoPolicy, error) {
	data, err := RedisClient.Get(ctx, activePoliciesKey).Result()
	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get active policies from cache: %w", err)
	}

	var policies []*model.AutoPolicy
	if err := json.Unmarshal([]byte(data), &policies); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached policies: %w", err)
	}

	// Conditions travel through the cache in raw form only; re-parse.
	for _, p := range policies {
		if cond, err := model.ParseCondition([]byte(p.RawCondition)); err == nil {
			p.Condition = cond
		}
	}

	return policies, nil
}

// InvalidateActivePolicies drops the cached policy set after a mutation.
func InvalidateActivePolicies(ctx context.Context) error {
	if err := RedisClient.Del(ctx, activePoliciesKey).Err(); err != nil {
		return fmt.Errorf("failed to invalidate policy cache: %w", err)
	}
	logger.Debug("Active policy cache invalidated")
	return nil
}

// RateLimit implements a fixed-window limiter keyed on the caller.
func RateLimit(ctx context.Context, key string, limit int, per time.Duration) (bool, error) {
	redisKey := fmt.Sprintf("ratelimit:%s", key)

	count, err := RedisClient.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}
	if count == 1 {
		if err := RedisClient.Expire(ctx, redisKey, per).Err(); err != nil {
			return false, fmt.Errorf("failed to set rate limit expiry: %w", err)
		}
	}

	return count <= int64(limit), nil
}
