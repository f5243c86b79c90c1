package database

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

var RedisClient *redis.Client

func InitRedis(addr string, db int) error {
	if addr == "" {
		return fmt.Errorf("REDIS_HOST is not set")
	}

	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	// Ping the Redis server to check if connection is alive
	if _, err := client.Ping(context.Background()).Result(); err != nil {
		Logger.Error("Failed to connect to Redis", zap.String("addr", addr), zap.Error(err))
		client.Close()
		return fmt.Errorf("ping redis: %w", err)
	}

	RedisClient = client
	Logger.Info(fmt.Sprintf("Connected with Redis: %s", addr))
	return nil
}

func CloseRedis() {
	if RedisClient != nil {
		if err := RedisClient.Close(); err != nil {
			Logger.Error("Error closing Redis connection", zap.Error(err))
			return
		}
		Logger.Info("Redis connection closed")
	}
}
