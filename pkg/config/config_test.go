package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HTTP_PORT", "")
	t.Setenv("WS_RECONNECT_DELAY", "")
	t.Setenv("BACKEND_URL", "")

	cfg := Load()
	if cfg.HTTPPort != 8080 {
		t.Fatalf("http port: got %d", cfg.HTTPPort)
	}
	if cfg.WSReconnectDelay != 3*time.Second {
		t.Fatalf("reconnect delay: got %v", cfg.WSReconnectDelay)
	}
	if cfg.WaiterFallback != "Vendedor" {
		t.Fatalf("waiter fallback: got %q", cfg.WaiterFallback)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("WS_RECONNECT_DELAY", "250ms")
	t.Setenv("GRPC_PORT", "not-a-number")

	cfg := Load()
	if cfg.HTTPPort != 9000 {
		t.Fatalf("http port: got %d", cfg.HTTPPort)
	}
	if cfg.WSReconnectDelay != 250*time.Millisecond {
		t.Fatalf("reconnect delay: got %v", cfg.WSReconnectDelay)
	}
	if cfg.GRPCPort != 8081 {
		t.Fatalf("invalid int should fall back, got %d", cfg.GRPCPort)
	}
}

func TestLoadFileOverlay(t *testing.T) {
	t.Setenv("HTTP_PORT", "")
	path := filepath.Join(t.TempDir(), "pos.yaml")
	body := "http_port: 7070\nws_reconnect_delay: 5s\nrelay:\n  port: 9999\n  webhook_secret: s3cret\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.HTTPPort != 7070 || cfg.WSReconnectDelay != 5*time.Second {
		t.Fatalf("overlay not applied: %+v", cfg)
	}
	if cfg.Relay.Port != 9999 || cfg.Relay.WebhookSecret != "s3cret" {
		t.Fatalf("relay overlay not applied: %+v", cfg.Relay)
	}
	if cfg.DefaultCurrency == "" {
		t.Fatalf("env default lost after overlay")
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestPushURL(t *testing.T) {
	t.Run("explicit ws url wins", func(t *testing.T) {
		c := Config{WSURL: "ws://node:1/ws", BackendURL: "http://x"}
		if got := c.PushURL(); got != "ws://node:1/ws" {
			t.Fatalf("got %s", got)
		}
	})

	t.Run("derived from https backend", func(t *testing.T) {
		c := Config{BackendURL: "https://pos.example.com/"}
		if got := c.PushURL(); got != "wss://pos.example.com/ws/payments" {
			t.Fatalf("got %s", got)
		}
	})

	t.Run("empty backend", func(t *testing.T) {
		if got := (Config{}).PushURL(); got != "ws://localhost:9154/ws/payments" {
			t.Fatalf("got %s", got)
		}
	})
}

func TestYAMLRedactsSecrets(t *testing.T) {
	c := Config{BackendToken: "tok", Relay: Relay{WebhookSecret: "sec"}}
	out, err := c.YAML()
	if err != nil {
		t.Fatalf("YAML: %v", err)
	}
	s := string(out)
	if strings.Contains(s, "tok\n") || strings.Contains(s, "sec\n") {
		t.Fatalf("secret leaked: %s", s)
	}
	if !strings.Contains(s, "backend_token: '***'") && !strings.Contains(s, `backend_token: "***"`) {
		t.Fatalf("expected redacted token: %s", s)
	}
}
