//go:build integration

package ratelimit

import (
	"context"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a Redis container and returns a client
func setupRedis(t *testing.T) (*redis.Client, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	endpoint, err := redisContainer.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get Redis endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: endpoint,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("Failed to connect to Redis: %v", err)
	}

	cleanup := func() {
		client.Close()
		redisContainer.Terminate(ctx)
	}

	return client, cleanup
}

func TestRedisStore_Integration_SharedState(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	ctx := context.Background()

	// Two trackers on one Redis see the same quota.
	writer := NewTracker(NewRedisStore(redisClient), logger)
	reader := NewTracker(NewRedisStore(redisClient), logger)

	state, err := reader.State(ctx)
	if err != nil {
		t.Fatalf("State() error = %v", err)
	}
	if state != nil {
		t.Fatalf("State() on empty Redis = %+v, want nil", state)
	}

	headers := http.Header{}
	headers.Set("RateLimit-Remaining", "75")
	headers.Set("RateLimit-Limit", "100")
	headers.Set("RateLimit-Reset", "120")
	if err := writer.UpdateFromHeaders(ctx, headers); err != nil {
		t.Fatalf("UpdateFromHeaders() error = %v", err)
	}

	state, err = reader.State(ctx)
	if err != nil {
		t.Fatalf("State() after update error = %v", err)
	}
	if state == nil || state.Remaining != 75 || state.Limit != 100 {
		t.Fatalf("State() = %+v, want remaining 75 limit 100", state)
	}

	tolerance := 5 * time.Second
	if d := state.TimeUntilReset(); d < 120*time.Second-tolerance || d > 120*time.Second+tolerance {
		t.Errorf("TimeUntilReset = %v, want approximately 120s", d)
	}

	ttl, err := redisClient.TTL(ctx, RedisKeyState).Result()
	if err != nil {
		t.Fatalf("TTL() error = %v", err)
	}
	if ttl <= 0 || ttl > 125*time.Second {
		t.Errorf("state key TTL = %v, want bounded by the reset window", ttl)
	}
}

func TestRedisStore_Integration_WaitForReset(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	tracker := NewTracker(NewRedisStore(redisClient), logger)
	ctx := context.Background()

	headers := http.Header{}
	headers.Set("RateLimit-Remaining", "0")
	headers.Set("RateLimit-Reset", "1")
	if err := tracker.UpdateFromHeaders(ctx, headers); err != nil {
		t.Fatalf("UpdateFromHeaders() error = %v", err)
	}

	start := time.Now()
	if err := tracker.Wait(ctx); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 500*time.Millisecond {
		t.Errorf("Wait() returned after %v, want to hold until reset", elapsed)
	}
}
