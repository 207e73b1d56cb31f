package config

import (
	"bytes"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != DefaultConfig() {
		t.Fatalf("expected defaults %+v, got %+v", DefaultConfig(), cfg)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("COMPOSITOR_DB", "/tmp/ledger.db")
	t.Setenv("COMPOSITOR_CATALOG", "catalogue.yaml")
	t.Setenv("COMPOSITOR_LOG_PREFIX", "[compositor] ")
	t.Setenv("COMPOSITOR_WORKERS", "16")
	t.Setenv("COMPOSITOR_SWEEP_SEEDS", "250")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Config{DB: "/tmp/ledger.db", Catalog: "catalogue.yaml", LogPrefix: "[compositor] ", Workers: 16, SweepSeeds: 250}
	if cfg != want {
		t.Fatalf("expected %+v, got %+v", want, cfg)
	}
}

func TestParseEnvError(t *testing.T) {
	t.Setenv("COMPOSITOR_WORKERS", "many")

	var cfg Config
	err := ParseEnv(&cfg)
	if err == nil || !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workers = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected zero workers to be rejected")
	}

	t.Setenv("COMPOSITOR_SWEEP_SEEDS", "0")
	if _, err := Load(); err == nil {
		t.Fatal("expected zero sweep seeds to be rejected")
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.LogPrefix = "[test] "
	cfg.Logger(&buf).Print("hello")
	if !strings.HasPrefix(buf.String(), "[test] ") || !strings.Contains(buf.String(), "hello") {
		t.Fatalf("unexpected log line %q", buf.String())
	}
}
