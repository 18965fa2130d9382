package oauthstate

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps OAuth authorize states in Redis. Each state maps to the
// user who started the flow and expires on its own so abandoned flows leave
// nothing behind.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed state store
func NewRedisStore(redisHost, redisPort string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", redisHost, redisPort),
		Password:     "", // no password
		DB:           0,  // default DB
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{
		client: client,
	}, nil
}

func stateKey(state string) string {
	return fmt.Sprintf("oauth:state:%s", state)
}

// Put stores state -> userID with a TTL
func (s *RedisStore) Put(ctx context.Context, state string, userID uuid.UUID, ttl time.Duration) error {
	if err := s.client.Set(ctx, stateKey(state), userID.String(), ttl).Err(); err != nil {
		return fmt.Errorf("failed to store oauth state: %w", err)
	}
	return nil
}

// Consume looks up and deletes a state in one pass. The second return is
// false when the state is unknown or already consumed.
func (s *RedisStore) Consume(ctx context.Context, state string) (uuid.UUID, bool, error) {
	key := stateKey(state)
	result := s.client.Get(ctx, key)
	if result.Err() == redis.Nil {
		return uuid.Nil, false, nil
	}
	if result.Err() != nil {
		return uuid.Nil, false, fmt.Errorf("failed to read oauth state: %w", result.Err())
	}

	userID, err := uuid.Parse(result.Val())
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("corrupt oauth state value: %w", err)
	}

	s.client.Del(ctx, key)
	return userID, true, nil
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}
