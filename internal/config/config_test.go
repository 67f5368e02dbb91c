package config

import (
	"testing"
	"time"
)

func TestRuntimeConfigDefaults(t *testing.T) {
	cfg := DefaultRuntimeConfig()
	if cfg.GraceWindow != 5*time.Second || cfg.ImmediateDelay != 100*time.Millisecond {
		t.Fatalf("unexpected timing defaults: %+v", cfg)
	}
	if cfg.DebounceWindow != time.Second || cfg.WriteWorkers != 4 {
		t.Fatalf("unexpected runtime defaults: %+v", cfg)
	}
	if cfg.PurgeAfter != 30*24*time.Hour {
		t.Fatalf("unexpected purge default: %+v", cfg)
	}
}

func TestRuntimeConfigFromEnv(t *testing.T) {
	t.Setenv("REMINDERD_DB", "state/tasks.db")
	t.Setenv("REMINDERD_GRACE_WINDOW", "1s")
	t.Setenv("REMINDERD_WRITE_WORKERS", "8")
	t.Setenv("REMINDERD_EXACT_PRIVILEGE", "off")
	t.Setenv("REMINDERD_DESKTOP_NOTIFICATIONS", "true")
	t.Setenv("REMINDERD_TELEGRAM_CHAT_ID", "123456789")

	cfg := RuntimeConfigFromEnv(DefaultRuntimeConfig())
	if cfg.DBPath != "state/tasks.db" {
		t.Fatalf("unexpected db path override: %+v", cfg)
	}
	if cfg.GraceWindow != time.Second || cfg.WriteWorkers != 8 {
		t.Fatalf("unexpected config overrides: %+v", cfg)
	}
	if cfg.ExactPrivilege {
		t.Fatal("expected exact privilege disabled from env")
	}
	if !cfg.DesktopNotifications || cfg.TelegramChatID != 123456789 {
		t.Fatalf("unexpected notification overrides: %+v", cfg)
	}
}

func TestRuntimeConfigIgnoresMalformedValues(t *testing.T) {
	t.Setenv("REMINDERD_GRACE_WINDOW", "soon")
	t.Setenv("REMINDERD_WRITE_WORKERS", "-3")
	t.Setenv("REMINDERD_EXACT_PRIVILEGE", "maybe")

	base := DefaultRuntimeConfig()
	cfg := RuntimeConfigFromEnv(base)
	if cfg.GraceWindow != base.GraceWindow || cfg.WriteWorkers != base.WriteWorkers || cfg.ExactPrivilege != base.ExactPrivilege {
		t.Fatalf("malformed env must keep defaults: %+v", cfg)
	}
}
