package pkg

import (
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/SAP-F-2025/attempt-engine/internal/config"
)

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)
	url := "redis://" + mr.Addr() + "/0"

	client, err := NewRedisClient(&config.Config{RedisURL: url})
	if err != nil {
		t.Fatalf("NewRedisClient: %v", err)
	}
	defer client.Close()

	mr.Close()
	if _, err := NewRedisClient(&config.Config{RedisURL: url}); err == nil {
		t.Fatal("expected ping failure against a closed server")
	}
}

func TestNewRedisClient_InvalidURL(t *testing.T) {
	if _, err := NewRedisClient(&config.Config{RedisURL: "http://nope"}); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestInitDatabase_RequiresURL(t *testing.T) {
	if _, err := InitDatabase(&config.Config{}); err == nil {
		t.Fatal("expected error without DATABASE_URL")
	}
}
