package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestLoadWritesDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	logger := zerolog.Nop()

	cfg, resolved, err := Load(&logger, path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if resolved != path {
		t.Fatalf("expected resolved path %s, got %s", path, resolved)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected default config to be written: %v", err)
	}

	want := Default()
	if cfg.Addr != want.Addr || cfg.APIHistoryLimit != want.APIHistoryLimit {
		t.Fatalf("unexpected server defaults: %+v", cfg)
	}
	if cfg.Client.PollInterval != 15*time.Second {
		t.Fatalf("expected 15s poll interval, got %s", cfg.Client.PollInterval)
	}
	if cfg.Client.NoticeTTL != 5*time.Second {
		t.Fatalf("expected 5s notice ttl, got %s", cfg.Client.NoticeTTL)
	}
}

func TestLoadReadsFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("addr: \":9090\"\nclient:\n  room_id: \"3\"\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("ROOMCHAT_CLIENT_POLL_INTERVAL", "30s")
	t.Setenv("ROOMCHAT_DATABASE_PATH", "/tmp/other.db")

	cfg, _, err := Load(nil, path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":9090" {
		t.Errorf("expected addr from file, got %s", cfg.Addr)
	}
	if cfg.Client.RoomID != "3" {
		t.Errorf("expected room id from file, got %q", cfg.Client.RoomID)
	}
	if cfg.Client.PollInterval != 30*time.Second {
		t.Errorf("expected poll interval from env, got %s", cfg.Client.PollInterval)
	}
	if cfg.DatabasePath != "/tmp/other.db" {
		t.Errorf("expected database path from env, got %s", cfg.DatabasePath)
	}
	if cfg.Client.SubmitResetDelay != 100*time.Millisecond {
		t.Errorf("expected default submit reset delay, got %s", cfg.Client.SubmitResetDelay)
	}
}

func TestUpdateFromKeepsZeroValues(t *testing.T) {
	cfg := Default()
	cfg.UpdateFrom(Config{Addr: ":1", Client: ClientConfig{RoomID: "9"}})

	if cfg.Addr != ":1" || cfg.Client.RoomID != "9" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.DatabasePath != Default().DatabasePath {
		t.Fatalf("zero override should keep default database path, got %s", cfg.DatabasePath)
	}
}

func TestLoadRejectsInvalidLimits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("api_history_limit: 0\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, _, err := Load(nil, path); err == nil {
		t.Fatal("expected validation error for a zero history limit")
	}
}
