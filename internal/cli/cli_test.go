package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/SAP-F-2025/attempt-engine/internal/config"
	"github.com/SAP-F-2025/attempt-engine/internal/repositories/memory"
)

func TestRootCommand(t *testing.T) {
	cmd := newRootCmd()

	for _, name := range []string{"serve", "migrate"} {
		sub, _, err := cmd.Find([]string{name})
		if err != nil || sub.Name() != name {
			t.Errorf("missing %s subcommand: %v", name, err)
		}
	}
	if cmd.PersistentFlags().Lookup("port") == nil {
		t.Error("missing --port flag")
	}
}

func TestMigrateRequiresDatabase(t *testing.T) {
	discard := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := runMigrations(&config.Config{}, discard); err == nil {
		t.Fatal("expected error without DATABASE_URL")
	}
}

func TestOpenRepositoryFallsBackToMemory(t *testing.T) {
	discard := slog.New(slog.NewTextHandler(io.Discard, nil))

	repo, closeRepo, err := openRepository(&config.Config{}, nil, memory.NewUserDirectory(), discard)
	if err != nil {
		t.Fatalf("openRepository: %v", err)
	}
	if _, ok := repo.(*memory.Store); !ok {
		t.Fatalf("expected the in-memory store, got %T", repo)
	}
	if err := closeRepo(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestOpenPublisherDefaultsToGoChannel(t *testing.T) {
	discard := slog.New(slog.NewTextHandler(io.Discard, nil))

	publisher, err := openPublisher(&config.Config{KafkaTopic: "test"}, discard)
	if err != nil {
		t.Fatalf("openPublisher: %v", err)
	}
	if err := publisher.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestCheckAuth(t *testing.T) {
	casdoor := config.CasdoorConfig{Endpoint: "https://auth.example.com", Cert: "cert"}

	tests := []struct {
		name    string
		cfg     config.Config
		wantErr bool
	}{
		{"development without casdoor", config.Config{Environment: "development"}, false},
		{"production with casdoor", config.Config{Environment: "production", Casdoor: casdoor}, false},
		{"production without casdoor", config.Config{Environment: "production"}, true},
		{"production with endpoint only", config.Config{Environment: "production", Casdoor: config.CasdoorConfig{Endpoint: "https://auth.example.com"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkAuth(&tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("checkAuth() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRunServerRefusesHeaderAuthInProduction(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("CASDOOR_ENDPOINT", "")
	t.Setenv("CASDOOR_CERT", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("KAFKA_BROKERS", "")

	err := runServer(context.Background(), "0")
	if !errors.Is(err, errHeaderAuthInProduction) {
		t.Fatalf("expected startup refusal, got %v", err)
	}
}
