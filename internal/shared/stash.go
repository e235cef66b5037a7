package shared

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrStashMiss indicates the token is unknown or already consumed.
var ErrStashMiss = errors.New("stash miss")

// Stash stores short-lived payloads under one-time tokens. It carries staged
// sign-up results across the post/redirect/get round trip so form state never
// rides on mutable session values.
type Stash struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStash constructs a Stash with the given payload lifetime.
func NewStash(client *redis.Client, ttl time.Duration) *Stash {
	return &Stash{client: client, ttl: ttl}
}

// Put stores the value and returns the token required to retrieve it.
func (s *Stash) Put(ctx context.Context, value any) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	token := uuid.NewString()
	if err := s.client.Set(ctx, s.redisKey(token), data, s.ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// Take retrieves and deletes the value stored under token.
func (s *Stash) Take(ctx context.Context, token string, target any) error {
	if token == "" {
		return ErrStashMiss
	}
	key := s.redisKey(token)
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrStashMiss
		}
		return err
	}
	_ = s.client.Del(ctx, key).Err()
	return json.Unmarshal(data, target)
}

func (s *Stash) redisKey(token string) string {
	return "stash:" + token
}
