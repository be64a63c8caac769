package redis

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// IRedis is a capped, newest-first list store used for recent-activity feeds.
type IRedis interface {
	PushRecent(ctx context.Context, key string, value []byte, keep int64, ttl time.Duration) error
	Recent(ctx context.Context, key string, limit int64) ([][]byte, error)
	Ping(ctx context.Context) error
	Close() error
}

type redisClient struct {
	client *redis.Client
}

func New() IRedis {
	db, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	redisAddr := os.Getenv("REDIS_ADDRESS")
	redisPassword := os.Getenv("REDIS_PASSWORD")

	logrus.Info(fmt.Sprintf("Connecting to Redis at %s...", redisAddr))

	client := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		logrus.Error(fmt.Sprintf("Failed to connect to Redis: %v", err))
	} else {
		logrus.Info("Successfully connected to Redis")
	}

	return &redisClient{client: client}
}

func NewFromClient(client *redis.Client) IRedis {
	return &redisClient{client: client}
}

// PushRecent prepends value and trims the list to keep entries. A positive
// ttl refreshes the key's expiry.
func (r *redisClient) PushRecent(ctx context.Context, key string, value []byte, keep int64, ttl time.Duration) error {
	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, key, value)
	if keep > 0 {
		pipe.LTrim(ctx, key, 0, keep-1)
	}
	if ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		logrus.Error(fmt.Sprintf("Error pushing to list %s: %v", key, err))
		return err
	}

	logrus.Debug(fmt.Sprintf("Pushed entry to list %s", key))
	return nil
}

func (r *redisClient) Recent(ctx context.Context, key string, limit int64) ([][]byte, error) {
	if limit <= 0 {
		return nil, nil
	}

	values, err := r.client.LRange(ctx, key, 0, limit-1).Result()
	if err != nil {
		logrus.Error(fmt.Sprintf("Error reading list %s: %v", key, err))
		return nil, err
	}

	out := make([][]byte, 0, len(values))
	for _, v := range values {
		out = append(out, []byte(v))
	}

	return out, nil
}

func (r *redisClient) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *redisClient) Close() error {
	return r.client.Close()
}
