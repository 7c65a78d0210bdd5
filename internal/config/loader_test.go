package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestLoadWritesDefaultConfigWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, resolved, err := Load(nil, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if resolved != path {
		t.Fatalf("unexpected path %q", resolved)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoadReadsFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("host: chat.example\nport: 9001\npath: /rooms\nname: alice\nseed_rooms: [lobby, dev]\ndial_timeout: 3s\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("ROOMCHAT_NAME", "bob")

	cfg, _, err := Load(nil, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Host != "chat.example" || cfg.Port != 9001 {
		t.Fatalf("unexpected endpoint %s:%d", cfg.Host, cfg.Port)
	}
	if cfg.Name != "bob" {
		t.Fatalf("env must override file, got name %q", cfg.Name)
	}
	if cfg.DialTimeout != 3*time.Second {
		t.Fatalf("unexpected dial timeout %v", cfg.DialTimeout)
	}
	if !reflect.DeepEqual(cfg.SeedRooms, []string{"lobby", "dev"}) {
		t.Fatalf("unexpected seed rooms %v", cfg.SeedRooms)
	}
	if got := cfg.URL(); got != "ws://chat.example:9001/rooms" {
		t.Fatalf("unexpected url %q", got)
	}
}

func TestLoadRejectsInvalidPort(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("port: 70000\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, _, err := Load(nil, path); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestUpdateFromKeepsZeroValues(t *testing.T) {
	cfg := Default()
	cfg.UpdateFrom(Config{Port: 9000, Name: "carol"})

	if cfg.Port != 9000 || cfg.Name != "carol" || cfg.Host != "localhost" || cfg.Path != "demo_chatroom" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if got := cfg.URL(); got != "ws://localhost:9000/demo_chatroom" {
		t.Fatalf("unexpected url %q", got)
	}
}

func TestLoadSeedsCommentedDefaultsAndReadsListEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(envConfigDefaultPath, dir)
	t.Setenv("ROOMCHAT_SEED_ROOMS", "lobby,dev,ops")
	t.Setenv("ROOMCHAT_SHUTDOWN_TIMEOUT", "2s")

	cfg, path, err := Load(nil, "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if path != filepath.Join(dir, defaultConfigName) {
		t.Fatalf("unexpected path %q", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read seeded config: %v", err)
	}
	if !strings.Contains(string(data), configHeader) {
		t.Fatalf("seeded config lacks header:\n%s", data)
	}
	if !strings.Contains(string(data), "dial_timeout: 10s") {
		t.Fatalf("seeded config lacks defaults:\n%s", data)
	}

	if !reflect.DeepEqual(cfg.SeedRooms, []string{"lobby", "dev", "ops"}) {
		t.Fatalf("unexpected seed rooms %v", cfg.SeedRooms)
	}
	if cfg.ShutdownTimeout != 2*time.Second {
		t.Fatalf("unexpected shutdown timeout %v", cfg.ShutdownTimeout)
	}
}
