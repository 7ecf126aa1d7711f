package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/txrace/types"
)

// RedisCache publishes analysis results for dashboards. All keys carry the configured prefix.
type RedisCache struct {
	logger           logrus.FieldLogger
	redisRemoteCache *redis.Client
	keyPrefix        string
}

func InitRedisCache(ctx context.Context, logger logrus.FieldLogger, config *types.RedisConfig) (*RedisCache, error) {
	rdc := redis.NewClient(&redis.Options{
		Addr:        config.Addr,
		Password:    config.Password,
		DB:          config.DB,
		ReadTimeout: time.Second * 20,
	})

	if err := rdc.Ping(ctx).Err(); err != nil {
		rdc.Close()
		return nil, fmt.Errorf("redis ping %v failed: %w", config.Addr, err)
	}

	r := &RedisCache{
		logger:           logger.WithField("module", "cache"),
		redisRemoteCache: rdc,
		keyPrefix:        config.KeyPrefix,
	}
	return r, nil
}

func (cache *RedisCache) Close() error {
	return cache.redisRemoteCache.Close()
}

func (cache *RedisCache) key(key string) string {
	return fmt.Sprintf("%s%s", cache.keyPrefix, key)
}

// Set stores value json encoded.
func (cache *RedisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	valueMarshal, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return cache.redisRemoteCache.Set(ctx, cache.key(key), valueMarshal, expiration).Err()
}

// Get decodes a json value into returnValue. Undecodable entries are dropped.
func (cache *RedisCache) Get(ctx context.Context, key string, returnValue interface{}) (interface{}, error) {
	value, err := cache.redisRemoteCache.Get(ctx, cache.key(key)).Result()
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal([]byte(value), returnValue)
	if err != nil {
		cache.redisRemoteCache.Del(ctx, cache.key(key))
		cache.logger.WithError(err).WithField("key", key).Error("error unmarshalling data for key")
		return nil, err
	}

	return returnValue, nil
}

// PushRecent prepends value to a list and trims it to limit entries.
func (cache *RedisCache) PushRecent(ctx context.Context, key string, value string, limit int64) error {
	listKey := cache.key(key)

	_, err := cache.redisRemoteCache.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, listKey, value)
		if limit > 0 {
			pipe.LTrim(ctx, listKey, 0, limit-1)
		}
		return nil
	})
	return err
}

// GetRecent returns up to limit entries of a list pushed with PushRecent, newest first.
func (cache *RedisCache) GetRecent(ctx context.Context, key string, limit int64) ([]string, error) {
	if limit <= 0 {
		limit = 1
	}
	return cache.redisRemoteCache.LRange(ctx, cache.key(key), 0, limit-1).Result()
}
