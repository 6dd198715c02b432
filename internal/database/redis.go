package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClients holds separate connections for the shared request guard state
// and for chat pub/sub fan-out.
type RedisClients struct {
	State  *redis.Client
	PubSub *redis.Client
}

func NewRedisClients(redisURL string) (*RedisClients, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Guard state client
	stateClient := redis.NewClient(opt)
	if err := stateClient.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis (state): %w", err)
	}

	// PubSub client (separate connection)
	pubsubOpt := *opt
	pubsubClient := redis.NewClient(&pubsubOpt)
	if err := pubsubClient.Ping(ctx).Err(); err != nil {
		stateClient.Close()
		return nil, fmt.Errorf("failed to ping Redis (pubsub): %w", err)
	}

	return &RedisClients{
		State:  stateClient,
		PubSub: pubsubClient,
	}, nil
}

func (r *RedisClients) Close() {
	r.State.Close()
	r.PubSub.Close()
}
