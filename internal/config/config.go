// Package config reads the daemon's runtime settings from REMINDERD_*
// environment variables layered over defaults.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type RuntimeConfig struct {
	DBPath               string
	PrefsPath            string
	LogLevel             string
	FireBuffer           int
	MaxPendingAlarms     int
	InexactWindow        time.Duration
	GraceWindow          time.Duration
	ImmediateDelay       time.Duration
	DebounceWindow       time.Duration
	DismissGrace         time.Duration
	WriteWorkers         int
	PurgeAfter           time.Duration
	PurgeSpec            string
	ResyncSpec           string
	ExactPrivilege       bool
	PrivilegedTier       bool
	DesktopNotifications bool
	TelegramToken        string
	TelegramChatID       int64
}

func DefaultRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		DBPath:               "reminderd.db",
		PrefsPath:            "reminderd.yaml",
		LogLevel:             "info",
		FireBuffer:           64,
		MaxPendingAlarms:     500,
		InexactWindow:        time.Minute,
		GraceWindow:          5 * time.Second,
		ImmediateDelay:       100 * time.Millisecond,
		DebounceWindow:       time.Second,
		DismissGrace:         3 * time.Second,
		WriteWorkers:         4,
		PurgeAfter:           30 * 24 * time.Hour,
		PurgeSpec:            "0 0 3 * * *",
		ResyncSpec:           "@every 1m",
		ExactPrivilege:       true,
		PrivilegedTier:       true,
		DesktopNotifications: false,
	}
}

func RuntimeConfigFromEnv(base RuntimeConfig) RuntimeConfig {
	cfg := base
	if v, ok := getEnvString("REMINDERD_DB"); ok {
		cfg.DBPath = v
	}
	if v, ok := getEnvString("REMINDERD_PREFS"); ok {
		cfg.PrefsPath = v
	}
	if v, ok := getEnvString("REMINDERD_LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}
	if v, ok := getEnvInt("REMINDERD_FIRE_BUFFER"); ok && v > 0 {
		cfg.FireBuffer = v
	}
	if v, ok := getEnvInt("REMINDERD_MAX_PENDING"); ok && v >= 0 {
		cfg.MaxPendingAlarms = v
	}
	if v, ok := getEnvDuration("REMINDERD_INEXACT_WINDOW"); ok && v >= 0 {
		cfg.InexactWindow = v
	}
	if v, ok := getEnvDuration("REMINDERD_GRACE_WINDOW"); ok && v > 0 {
		cfg.GraceWindow = v
	}
	if v, ok := getEnvDuration("REMINDERD_IMMEDIATE_DELAY"); ok && v > 0 {
		cfg.ImmediateDelay = v
	}
	if v, ok := getEnvDuration("REMINDERD_DEBOUNCE_WINDOW"); ok && v >= 0 {
		cfg.DebounceWindow = v
	}
	if v, ok := getEnvDuration("REMINDERD_DISMISS_GRACE"); ok && v > 0 {
		cfg.DismissGrace = v
	}
	if v, ok := getEnvInt("REMINDERD_WRITE_WORKERS"); ok && v > 0 {
		cfg.WriteWorkers = v
	}
	if v, ok := getEnvDuration("REMINDERD_PURGE_AFTER"); ok && v > 0 {
		cfg.PurgeAfter = v
	}
	if v, ok := getEnvString("REMINDERD_PURGE_SPEC"); ok {
		cfg.PurgeSpec = v
	}
	if v, ok := getEnvString("REMINDERD_RESYNC_SPEC"); ok {
		cfg.ResyncSpec = v
	}
	if v, ok := getEnvBool("REMINDERD_EXACT_PRIVILEGE"); ok {
		cfg.ExactPrivilege = v
	}
	if v, ok := getEnvBool("REMINDERD_PRIVILEGED_TIER"); ok {
		cfg.PrivilegedTier = v
	}
	if v, ok := getEnvBool("REMINDERD_DESKTOP_NOTIFICATIONS"); ok {
		cfg.DesktopNotifications = v
	}
	if v, ok := getEnvString("REMINDERD_TELEGRAM_TOKEN"); ok {
		cfg.TelegramToken = v
	}
	if v, ok := getEnvInt64("REMINDERD_TELEGRAM_CHAT_ID"); ok {
		cfg.TelegramChatID = v
	}
	return cfg
}

func getEnvString(name string) (string, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return "", false
	}
	return raw, true
}

func getEnvInt(name string) (int, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func getEnvInt64(name string) (int64, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func getEnvDuration(name string) (time.Duration, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return 0, false
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func getEnvBool(name string) (bool, bool) {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return false, false
	}
	switch raw {
	case "1", "true", "yes", "y", "on":
		return true, true
	case "0", "false", "no", "n", "off":
		return false, true
	default:
		return false, false
	}
}
