package sessionx

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// TestRedisIntegration shares one session between two managers through a
// real Redis server.
func TestRedisIntegration(t *testing.T) {
	if os.Getenv("RUN_INTEGRATION_TESTS") != "true" {
		t.Skip("RUN_INTEGRATION_TESTS not set to true")
	}

	redisURL := strings.TrimSpace(os.Getenv("REDIS_URL"))
	if redisURL == "" {
		t.Fatal("REDIS_URL environment variable required")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		t.Fatalf("parse REDIS_URL: %v", err)
	}
	client := redis.NewClient(opts)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("ping redis: %v", err)
	}

	prefix := "sessionx-it:" + uuid.NewString() + ":"
	t.Cleanup(func() {
		keys, err := client.Keys(context.Background(), prefix+"*").Result()
		if err == nil && len(keys) > 0 {
			client.Del(context.Background(), keys...)
		}
	})

	newManager := func() *Manager {
		storage := NewRedisStorage(client, prefix)
		m, err := NewManager(Config{}, NewStorageCookieStore(storage, nil), WithPersistentStorage(storage))
		if err != nil {
			t.Fatalf("NewManager: %v", err)
		}
		t.Cleanup(m.Close)
		return m
	}

	token, err := MintDevToken(DefaultDevClaims(), []byte("integration"), time.Now())
	if err != nil {
		t.Fatalf("MintDevToken: %v", err)
	}

	first := newManager()
	if !first.Login(token) {
		t.Fatal("login rejected")
	}
	ttl, err := client.TTL(ctx, prefix+cookieKey(DefaultCookieName)).Result()
	if err != nil {
		t.Fatalf("ttl: %v", err)
	}
	if ttl <= 0 || ttl > DefaultCookieTTL {
		t.Fatalf("unexpected cookie ttl %s", ttl)
	}

	second := newManager()
	state := second.Initialize()
	if !state.IsAuthenticated || state.Identity.Nickname != "Dev User" {
		t.Fatalf("second manager did not see the session: %+v", state)
	}

	first.Logout()
	if second.CheckAuthStatus().IsAuthenticated {
		t.Fatal("logout was not observed by the second manager")
	}
}
