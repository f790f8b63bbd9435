package config

import (
	"testing"
)

func setEnv(t *testing.T, kv map[string]string) {
	t.Helper()
	for k, v := range kv {
		t.Setenv(k, v)
	}
}

func TestLoadConfigRequiresGeography(t *testing.T) {
	setEnv(t, map[string]string{"CHANNELS": "air_alert_ua"})
	if _, err := loadConfig("testdata/does-not-exist.env"); err == nil {
		t.Fatal("expected an error when no geography stem is configured")
	}
}

func TestLoadConfigRequiresChannels(t *testing.T) {
	setEnv(t, map[string]string{"MY_OBLAST": "київська"})
	if _, err := loadConfig("testdata/does-not-exist.env"); err == nil {
		t.Fatal("expected an error when no channel is configured")
	}
}

func TestLoadConfigDefaultsAndLowercasesStems(t *testing.T) {
	setEnv(t, map[string]string{
		"MY_OBLAST": "Київська, Одеська",
		"CHANNELS":  "Air_Alert_UA, other_channel",
	})
	cfg, err := loadConfig("testdata/does-not-exist.env")
	if err != nil {
		t.Fatalf("loadConfig() error: %v", err)
	}
	if len(cfg.Env.MyOblast) != 2 || cfg.Env.MyOblast[0] != "київська" {
		t.Fatalf("MyOblast = %v, want lowercased trimmed stems", cfg.Env.MyOblast)
	}
	if cfg.Env.Channels[0] != "air_alert_ua" {
		t.Fatalf("Channels = %v, want lowercased", cfg.Env.Channels)
	}
	if cfg.Env.DedupWindowSecs != defaultDedupWindowSecs {
		t.Fatalf("DedupWindowSecs = %d, want default %d", cfg.Env.DedupWindowSecs, defaultDedupWindowSecs)
	}
	if cfg.Env.RunMode != RunLive {
		t.Fatalf("RunMode = %v, want RunLive default", cfg.Env.RunMode)
	}
}

func TestLoadConfigInvalidIntFallsBackWithWarning(t *testing.T) {
	setEnv(t, map[string]string{
		"MY_OBLAST":         "київська",
		"CHANNELS":          "air_alert_ua",
		"DEDUP_WINDOW_SECS": "not-a-number",
	})
	cfg, err := loadConfig("testdata/does-not-exist.env")
	if err != nil {
		t.Fatalf("loadConfig() error: %v", err)
	}
	if cfg.Env.DedupWindowSecs != defaultDedupWindowSecs {
		t.Fatalf("DedupWindowSecs = %d, want default %d on invalid input", cfg.Env.DedupWindowSecs, defaultDedupWindowSecs)
	}
	if len(cfg.warnings) == 0 {
		t.Fatal("expected a defaulting warning for the invalid integer")
	}
}

func TestLoadConfigInvalidRunModeFallsBackToLive(t *testing.T) {
	setEnv(t, map[string]string{
		"MY_OBLAST": "київська",
		"CHANNELS":  "air_alert_ua",
		"RUN_MODE":  "bogus",
	})
	cfg, err := loadConfig("testdata/does-not-exist.env")
	if err != nil {
		t.Fatalf("loadConfig() error: %v", err)
	}
	if cfg.Env.RunMode != RunLive {
		t.Fatalf("RunMode = %v, want RunLive fallback", cfg.Env.RunMode)
	}
}
