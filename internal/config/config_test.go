package config

import (
	"encoding/base64"
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ListenAddr != ":8080" {
		t.Fatalf("unexpected ListenAddr: %q", cfg.ListenAddr)
	}
	if cfg.TargetWeekday != time.Wednesday {
		t.Fatalf("unexpected TargetWeekday: %s", cfg.TargetWeekday)
	}
	if cfg.Players != 4 || cfg.Holes != 9 {
		t.Fatalf("unexpected group defaults: players=%d holes=%d", cfg.Players, cfg.Holes)
	}
	if cfg.Cart != "Any" {
		t.Fatalf("unexpected Cart: %q", cfg.Cart)
	}
	if !cfg.Headless {
		t.Fatal("expected headless by default")
	}
	if cfg.SettleDelay != 3*time.Second {
		t.Fatalf("unexpected SettleDelay: %s", cfg.SettleDelay)
	}
	if cfg.RunTimeout != 3*time.Minute {
		t.Fatalf("unexpected RunTimeout: %s", cfg.RunTimeout)
	}
}

func TestFromEnv_InvalidTargetWeekday(t *testing.T) {
	t.Setenv("TARGET_WEEKDAY", "7")
	if _, err := FromEnv(); err == nil {
		t.Fatal("expected error for TARGET_WEEKDAY=7")
	}
}

func TestFromEnv_InvalidRunTimeout(t *testing.T) {
	t.Setenv("RUN_TIMEOUT", "soon")
	if _, err := FromEnv(); err == nil {
		t.Fatal("expected error for invalid RUN_TIMEOUT")
	}
}

func TestFromEnv_InvalidHoles(t *testing.T) {
	t.Setenv("HOLES", "12")
	if _, err := FromEnv(); err == nil {
		t.Fatal("expected validation error for HOLES=12")
	}
}

func TestCookieKeys(t *testing.T) {
	hash := base64.StdEncoding.EncodeToString(make([]byte, 32))
	block := base64.StdEncoding.EncodeToString(make([]byte, 32))
	t.Setenv("COOKIE_HASH_KEY", hash)
	t.Setenv("COOKIE_BLOCK_KEY", block)

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	h, b, err := cfg.CookieKeys()
	if err != nil {
		t.Fatalf("decode keys: %v", err)
	}
	if len(h) != 32 || len(b) != 32 {
		t.Fatalf("unexpected key lengths: %d %d", len(h), len(b))
	}
}

func TestCookieKeys_MissingIsError(t *testing.T) {
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if _, _, err := cfg.CookieKeys(); err == nil {
		t.Fatal("expected error when keys unset")
	}
}
