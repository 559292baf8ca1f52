package config

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	ModeCLI      = "CLI"
	ModeTelegram = "TELEGRAM"
)

var (
	ErrMissingBotToken = errors.New("BOT_TOKEN is required in TELEGRAM mode")
	ErrMissingStoreDSN = errors.New("STORE_DSN is required for sqlite and postgres stores")
)

type Config struct {
	AppMode   string
	BotToken  string
	ConfigKey string

	Store     StoreConfig
	Redis     RedisConfig
	Providers ProvidersConfig
	Metrics   MetricsConfig
	Crypto    CryptoConfig
	Log       LogConfig
}

type StoreConfig struct {
	Driver string
	DSN    string
	Dir    string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

type ProvidersConfig struct {
	OpenAIURL     string
	AnthropicURL  string
	ClientTimeout time.Duration
}

type MetricsConfig struct {
	// ListenAddr empty disables the metrics server.
	ListenAddr  string
	HealthPath  string
	MetricsPath string
}

// CryptoConfig is empty when no master keys are configured; credentials are then
// stored unsealed.
type CryptoConfig struct {
	CurrentKeyID string
	Keys         map[string][]byte
}

func (c CryptoConfig) Enabled() bool { return len(c.Keys) > 0 }

type LogConfig struct {
	Level string
}

func Load() (*Config, error) {
	cfg := &Config{
		AppMode:   strings.ToUpper(mustEnv("APP_MODE", ModeCLI)),
		BotToken:  mustEnv("BOT_TOKEN", ""),
		ConfigKey: mustEnv("CONFIG_KEY", "chatbot-config"),
		Store: StoreConfig{
			Driver: strings.ToLower(mustEnv("STORE_DRIVER", "file")),
			DSN:    mustEnv("STORE_DSN", ""),
			Dir:    mustEnv("STORE_DIR", defaultStoreDir()),
		},
		Redis: RedisConfig{
			Addr:     mustEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: mustEnv("REDIS_PASSWORD", ""),
			DB:       mustInt("REDIS_DB", 0),
			Prefix:   mustEnv("REDIS_PREFIX", "supportchat:kv:"),
		},
		Providers: ProvidersConfig{
			OpenAIURL:     mustEnv("OPENAI_BASE_URL", "https://api.openai.com/v1/chat/completions"),
			AnthropicURL:  mustEnv("ANTHROPIC_BASE_URL", "https://api.anthropic.com/v1/messages"),
			ClientTimeout: mustDuration("HTTP_TIMEOUT", 0),
		},
		Metrics: MetricsConfig{
			ListenAddr:  mustEnv("METRICS_ADDR", ""),
			HealthPath:  mustEnv("HEALTH_PATH", "/healthz"),
			MetricsPath: mustEnv("METRICS_PATH", "/metrics"),
		},
		Log: LogConfig{
			Level: strings.ToLower(mustEnv("LOG_LEVEL", "info")),
		},
	}

	if cfg.AppMode != ModeCLI && cfg.AppMode != ModeTelegram {
		return nil, fmt.Errorf("unsupported APP_MODE %q", cfg.AppMode)
	}
	if cfg.AppMode == ModeTelegram && cfg.BotToken == "" {
		return nil, ErrMissingBotToken
	}
	switch cfg.Store.Driver {
	case "file", "redis":
	case "sqlite", "sqlite3", "postgres", "pgx":
		if cfg.Store.DSN == "" {
			return nil, ErrMissingStoreDSN
		}
	default:
		return nil, fmt.Errorf("unsupported STORE_DRIVER %q", cfg.Store.Driver)
	}

	cc, err := loadCryptoConfig()
	if err != nil {
		return nil, err
	}
	cfg.Crypto = cc

	return cfg, nil
}

// loadCryptoConfig collects master keys from MASTER_KEYS_JSON, MASTER_KEY_<ID>_B64
// and MASTER_KEY_B64. Having none is not an error.
func loadCryptoConfig() (CryptoConfig, error) {
	keysB64 := map[string]string{}

	if raw := mustEnv("MASTER_KEYS_JSON", ""); raw != "" {
		var parsed map[string]string
		if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
			return CryptoConfig{}, fmt.Errorf("parse MASTER_KEYS_JSON: %w", err)
		}
		for id, val := range parsed {
			if strings.TrimSpace(id) == "" || strings.TrimSpace(val) == "" {
				continue
			}
			keysB64[id] = val
		}
	}

	for _, e := range os.Environ() {
		k, v, ok := strings.Cut(e, "=")
		if !ok || k == "MASTER_KEY_B64" {
			continue
		}
		if !strings.HasPrefix(k, "MASTER_KEY_") || !strings.HasSuffix(k, "_B64") {
			continue
		}
		id := strings.TrimSuffix(strings.TrimPrefix(k, "MASTER_KEY_"), "_B64")
		if id == "" || v == "" {
			continue
		}
		keysB64[id] = v
	}

	current := mustEnv("MASTER_KEY_CURRENT_ID", "")
	if singleton := mustEnv("MASTER_KEY_B64", ""); singleton != "" {
		if current == "" {
			current = "default"
		}
		keysB64[current] = singleton
	}

	if len(keysB64) == 0 {
		return CryptoConfig{}, nil
	}

	keys := make(map[string][]byte, len(keysB64))
	for id, b64 := range keysB64 {
		raw, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return CryptoConfig{}, fmt.Errorf("decode master key %q: %w", id, err)
		}
		if len(raw) != 32 {
			return CryptoConfig{}, fmt.Errorf("master key %q must be 32 bytes after base64 decode", id)
		}
		keys[id] = raw
	}

	if current == "" {
		if len(keys) > 1 {
			return CryptoConfig{}, errors.New("MASTER_KEY_CURRENT_ID is required when several master keys are set")
		}
		for id := range keys {
			current = id
		}
	}
	if _, ok := keys[current]; !ok {
		return CryptoConfig{}, fmt.Errorf("MASTER_KEY_CURRENT_ID=%q does not exist in provided keys", current)
	}

	return CryptoConfig{
		CurrentKeyID: current,
		Keys:         keys,
	}, nil
}

func defaultStoreDir() string {
	dir, err := os.UserConfigDir()
	if err != nil || strings.TrimSpace(dir) == "" {
		return filepath.Join(os.TempDir(), "supportchat")
	}
	return filepath.Join(dir, "supportchat")
}

func mustEnv(key string, def string) string {
	if v := os.Getenv(key); v != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func mustInt(key string, def int) int {
	v := mustEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func mustDuration(key string, def time.Duration) time.Duration {
	v := mustEnv(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
