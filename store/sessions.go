package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisSessions stores bearer tokens in Redis. A zero TTL keeps sessions
// until they are deleted.
type RedisSessions struct {
	Client *redis.Client
	TTL    time.Duration
}

var _ Sessions = (*RedisSessions)(nil)

func NewRedisSessions(client *redis.Client, ttl time.Duration) *RedisSessions {
	return &RedisSessions{Client: client, TTL: ttl}
}

func (s *RedisSessions) key(token string) string {
	return "session:" + token
}

func (s *RedisSessions) Create(ctx context.Context, userID int) (string, error) {
	token := uuid.NewString()
	if err := s.Client.Set(ctx, s.key(token), strconv.Itoa(userID), s.TTL).Err(); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return token, nil
}

func (s *RedisSessions) Lookup(ctx context.Context, token string) (int, error) {
	val, err := s.Client.Get(ctx, s.key(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("lookup session: %w", err)
	}
	id, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("corrupt session %q: %w", token, err)
	}
	return id, nil
}

func (s *RedisSessions) Delete(ctx context.Context, token string) error {
	return s.Client.Del(ctx, s.key(token)).Err()
}
