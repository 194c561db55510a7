package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vladimiradmaev/menupro-bot/internal/config"
)

// RedisManager stores conversations in Redis as JSON with a TTL
type RedisManager struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisManager connects and pings Redis
func NewRedisManager(cfg config.RedisConfig) (*RedisManager, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisManagerWithClient(client, cfg.SessionTTL), nil
}

func NewRedisManagerWithClient(client *redis.Client, ttl time.Duration) *RedisManager {
	return &RedisManager{client: client, ttl: ttl}
}

func conversationKey(chatID int64) string {
	return fmt.Sprintf("conversation:%d", chatID)
}

// Get returns the conversation of a chat
func (m *RedisManager) Get(ctx context.Context, chatID int64) (*Conversation, error) {
	data, err := m.client.Get(ctx, conversationKey(chatID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}

	var conv Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("failed to decode conversation: %w", err)
	}
	return &conv, nil
}

// Set stores the conversation and refreshes its TTL
func (m *RedisManager) Set(ctx context.Context, conv *Conversation) error {
	conv.UpdatedAt = time.Now()
	data, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("failed to encode conversation: %w", err)
	}
	if err := m.client.Set(ctx, conversationKey(conv.ChatID), data, m.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	}
	return nil
}

// Clear removes the conversation of a chat
func (m *RedisManager) Clear(ctx context.Context, chatID int64) error {
	if err := m.client.Del(ctx, conversationKey(chatID)).Err(); err != nil {
		return fmt.Errorf("failed to clear conversation: %w", err)
	}
	return nil
}

// Ping checks the connection, for the health endpoint.
func (m *RedisManager) Ping(ctx context.Context) error {
	return m.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (m *RedisManager) Close() error {
	return m.client.Close()
}
