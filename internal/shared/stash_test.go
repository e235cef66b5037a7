package shared_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/atrium-id/atrium/internal/shared"
	_ "github.com/atrium-id/atrium/testing"
)

type stagedValue struct {
	Message string `json:"message"`
}

func newStash(t *testing.T, ttl time.Duration) (*shared.Stash, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return shared.NewStash(client, ttl), mr
}

func TestStashRoundTrip(t *testing.T) {
	stash, _ := newStash(t, time.Minute)
	ctx := context.Background()

	token, err := stash.Put(ctx, stagedValue{Message: "hello"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if token == "" {
		t.Fatalf("expected non-empty token")
	}

	var got stagedValue
	if err := stash.Take(ctx, token, &got); err != nil {
		t.Fatalf("take: %v", err)
	}
	if got.Message != "hello" {
		t.Fatalf("expected round-tripped value, got %q", got.Message)
	}
}

func TestStashTokenIsOneTime(t *testing.T) {
	stash, _ := newStash(t, time.Minute)
	ctx := context.Background()

	token, err := stash.Put(ctx, stagedValue{Message: "once"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}

	var got stagedValue
	if err := stash.Take(ctx, token, &got); err != nil {
		t.Fatalf("first take: %v", err)
	}
	if err := stash.Take(ctx, token, &got); !errors.Is(err, shared.ErrStashMiss) {
		t.Fatalf("expected miss on replay, got %v", err)
	}
}

func TestStashEmptyAndUnknownTokens(t *testing.T) {
	stash, _ := newStash(t, time.Minute)
	ctx := context.Background()

	var got stagedValue
	if err := stash.Take(ctx, "", &got); !errors.Is(err, shared.ErrStashMiss) {
		t.Fatalf("expected miss for empty token, got %v", err)
	}
	if err := stash.Take(ctx, "no-such-token", &got); !errors.Is(err, shared.ErrStashMiss) {
		t.Fatalf("expected miss for unknown token, got %v", err)
	}
}

func TestStashExpiry(t *testing.T) {
	stash, mr := newStash(t, time.Second)
	ctx := context.Background()

	token, err := stash.Put(ctx, stagedValue{Message: "fleeting"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}

	mr.FastForward(2 * time.Second)

	var got stagedValue
	if err := stash.Take(ctx, token, &got); !errors.Is(err, shared.ErrStashMiss) {
		t.Fatalf("expected miss after expiry, got %v", err)
	}
}
