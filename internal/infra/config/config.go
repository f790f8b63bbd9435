// Package config loads and validates the process's environment-sourced
// configuration: user geography, the tunables for the dedup/context/cooldown
// windows, the optional LLM verifier, channel list, and run mode.
//
// Grounded on the teacher's own config package: godotenv.Load, a warnings
// slice accumulated by defaulting helpers rather than failing the whole
// load, and a thread-safe singleton behind Load/Env.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

// RunMode selects the top-level entry point behavior.
type RunMode string

const (
	RunLive      RunMode = "live"
	RunDumpToday RunMode = "dump_today"
	RunReplay    RunMode = "replay"
)

// EnvConfig is the fully parsed, defaulted configuration surface (spec.md
// §6's "Configuration surface").
type EnvConfig struct {
	MyOblast   []string
	MyCity     []string
	MyDistrict []string
	Channels   []string

	DedupWindowSecs            int
	ContextWindowSecs          int
	UrgentCooldownSecs         int
	NegativeStatusCooldownSecs int
	ForwardAllThreats          bool

	LLMEnabled  bool
	LLMModel    string
	LLMEndpoint string
	LLMTimeoutMS int

	RunMode          RunMode
	ReplaySpeed      float64
	ReplayStepMS     int
	ReplayMinDelayMS int
	ReplayMaxDelayMS int
	DumpFile         string

	LogLevel       string
	LogFile        string
	SubscribersDB  string

	BroadcastRatePerSec float64
	ReconnectRatePerSec float64
}

// Config is the thread-safe holder for a loaded EnvConfig plus any
// defaulting warnings accumulated along the way.
type Config struct {
	Env      EnvConfig
	warnings []string
	mu       sync.RWMutex
}

const (
	defaultDedupWindowSecs            = 180
	defaultContextWindowSecs          = 300
	defaultUrgentCooldownSecs         = 20
	defaultNegativeStatusCooldownSecs = 120
	defaultLLMModel                   = "qwen2.5:7b"
	defaultLLMEndpoint                = "http://127.0.0.1:11434"
	defaultLLMTimeoutMS               = 3000
	defaultLogLevel                   = "info"
	defaultSubscribersDB              = "data/subscribers.bbolt"
	defaultDumpFile                   = "data/dump.jsonl"
	defaultReplaySpeed                = 1.0
	defaultReplayMinDelayMS           = 0
	defaultReplayMaxDelayMS           = 5000
	defaultBroadcastRatePerSec        = 10.0
	defaultReconnectRatePerSec        = 0.5
)

var (
	cfgInstance *Config
	cfgDone     bool
)

// Load is the entry point for initializing the global configuration
// singleton. A repeat call returns an error, matching the teacher's
// once-only startup discipline.
func Load(envPath string) error {
	if cfgDone {
		return errors.New("config already loaded")
	}
	if cfgInstance == nil {
		cfgInstance = &Config{}
	}
	cfgInstance.mu.Lock()
	defer cfgInstance.mu.Unlock()

	newCfg, err := loadConfig(envPath)
	if err != nil {
		return err
	}
	cfgInstance = newCfg
	cfgDone = true
	return nil
}

// loadConfig performs the actual parse/validate without touching global
// state, so tests can build an isolated Config.
func loadConfig(envPath string) (*Config, error) {
	// A missing .env file is not fatal: the process may be configured purely
	// through the real environment (container deployments commonly are).
	_ = godotenv.Load(envPath)

	oblast := splitLowerCSV(os.Getenv("MY_OBLAST"))
	city := splitLowerCSV(os.Getenv("MY_CITY"))
	district := splitLowerCSV(os.Getenv("MY_DISTRICT"))
	if len(oblast) == 0 && len(city) == 0 && len(district) == 0 {
		return nil, errors.New("env MY_OBLAST, MY_CITY, or MY_DISTRICT must configure at least one geography stem")
	}

	channels := splitLowerCSV(os.Getenv("CHANNELS"))
	if len(channels) == 0 {
		return nil, errors.New("env CHANNELS must list at least one source channel")
	}

	var warnings []string

	env := EnvConfig{
		MyOblast:   oblast,
		MyCity:     city,
		MyDistrict: district,
		Channels:   channels,

		DedupWindowSecs:            parseIntDefault("DEDUP_WINDOW_SECS", defaultDedupWindowSecs, nonNegative, &warnings),
		ContextWindowSecs:          parseIntDefault("CONTEXT_WINDOW_SECS", defaultContextWindowSecs, nonNegative, &warnings),
		UrgentCooldownSecs:         parseIntDefault("URGENT_COOLDOWN_SECS", defaultUrgentCooldownSecs, nonNegative, &warnings),
		NegativeStatusCooldownSecs: parseIntDefault("NEGATIVE_STATUS_COOLDOWN_SECS", defaultNegativeStatusCooldownSecs, nonNegative, &warnings),
		ForwardAllThreats:          parseBoolDefault("FORWARD_ALL_THREATS", false),

		LLMEnabled:   parseBoolDefault("LLM_ENABLED", false),
		LLMModel:     stringDefault("LLM_MODEL", defaultLLMModel),
		LLMEndpoint:  stringDefault("LLM_ENDPOINT", defaultLLMEndpoint),
		LLMTimeoutMS: parseIntDefault("LLM_TIMEOUT_MS", defaultLLMTimeoutMS, greaterThanZero, &warnings),

		RunMode:          sanitizeRunMode(os.Getenv("RUN_MODE"), &warnings),
		ReplaySpeed:      parseFloatDefault("REPLAY_SPEED", defaultReplaySpeed, &warnings),
		ReplayStepMS:     parseIntDefault("REPLAY_STEP_MS", 0, nonNegative, &warnings),
		ReplayMinDelayMS: parseIntDefault("REPLAY_MIN_DELAY_MS", defaultReplayMinDelayMS, nonNegative, &warnings),
		ReplayMaxDelayMS: parseIntDefault("REPLAY_MAX_DELAY_MS", defaultReplayMaxDelayMS, greaterThanZero, &warnings),
		DumpFile:         stringDefault("DUMP_FILE", defaultDumpFile),

		LogLevel:      sanitizeLogLevel(os.Getenv("LOG_LEVEL"), &warnings),
		LogFile:       os.Getenv("LOG_FILE"),
		SubscribersDB: stringDefault("SUBSCRIBERS_DB", defaultSubscribersDB),

		BroadcastRatePerSec: parseFloatDefault("BROADCAST_RATE_PER_SEC", defaultBroadcastRatePerSec, &warnings),
		ReconnectRatePerSec: parseFloatDefault("RECONNECT_RATE_PER_SEC", defaultReconnectRatePerSec, &warnings),
	}

	return &Config{Env: env, warnings: warnings}, nil
}

// Warnings returns a copy of the defaulting warnings accumulated while
// loading the global singleton.
func Warnings() []string {
	cfgInstance.mu.RLock()
	defer cfgInstance.mu.RUnlock()
	out := make([]string, len(cfgInstance.warnings))
	copy(out, cfgInstance.warnings)
	return out
}

// Env returns the last-loaded EnvConfig snapshot from the global singleton.
func Env() EnvConfig {
	return cfgInstance.Env
}

func appendWarningf(warnings *[]string, format string, args ...any) {
	if warnings == nil {
		return
	}
	*warnings = append(*warnings, fmt.Sprintf(format, args...))
}

func greaterThanZero(v int) bool { return v > 0 }
func nonNegative(v int) bool     { return v >= 0 }

func parseIntDefault(name string, defaultVal int, validator func(int) bool, warnings *[]string) int {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		appendWarningf(warnings, "env %s value %q is not a valid integer; using default %d", name, value, defaultVal)
		return defaultVal
	}
	if validator != nil && !validator(v) {
		appendWarningf(warnings, "env %s value %d does not satisfy constraints; using default %d", name, v, defaultVal)
		return defaultVal
	}
	return v
}

func parseFloatDefault(name string, defaultVal float64, warnings *[]string) float64 {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return defaultVal
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil || v <= 0 {
		appendWarningf(warnings, "env %s value %q is invalid; using default %v", name, value, defaultVal)
		return defaultVal
	}
	return v
}

func parseBoolDefault(name string, defaultVal bool) bool {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return defaultVal
	}
	v, err := strconv.ParseBool(value)
	if err != nil {
		return defaultVal
	}
	return v
}

func stringDefault(name, defaultVal string) string {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return defaultVal
	}
	return v
}

// splitLowerCSV splits a comma-separated env value into trimmed, lowercased,
// non-empty tokens. Used for geography stems and the channel list, both of
// which are matched/compared case-insensitively downstream.
func splitLowerCSV(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.ToLower(strings.TrimSpace(p))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

func sanitizeLogLevel(level string, warnings *[]string) string {
	lvl := strings.ToLower(strings.TrimSpace(level))
	switch lvl {
	case "debug", "info", "warn", "error":
		return lvl
	case "":
		return defaultLogLevel
	default:
		appendWarningf(warnings, "env LOG_LEVEL value %q is invalid; using default %q", level, defaultLogLevel)
		return defaultLogLevel
	}
}

func sanitizeRunMode(mode string, warnings *[]string) RunMode {
	m := RunMode(strings.ToLower(strings.TrimSpace(mode)))
	switch m {
	case RunLive, RunDumpToday, RunReplay:
		return m
	case "":
		return RunLive
	default:
		appendWarningf(warnings, "env RUN_MODE value %q is invalid; using default %q", mode, RunLive)
		return RunLive
	}
}
