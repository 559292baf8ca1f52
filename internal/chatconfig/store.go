package chatconfig

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"supportchat/internal/crypto"
	"supportchat/internal/kv"
	"supportchat/internal/metrics"
)

// DefaultKey is the key the configuration is persisted under.
const DefaultKey = "chatbot-config"

// Repository is the key-value collaborator the Store persists to. Load returns
// kv.ErrNotFound when nothing is stored under key.
type Repository interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
}

type Sealer interface {
	Seal(plaintext string) (string, error)
	Open(sealed string) (string, error)
}

type LoadStatus string

const (
	// LoadRestored means a stored configuration was read and decoded.
	LoadRestored LoadStatus = "restored"
	// LoadDefaulted means nothing was stored yet.
	LoadDefaulted LoadStatus = "defaulted"
	// LoadDegraded means stored data could not be read or decoded and defaults
	// were used instead.
	LoadDegraded LoadStatus = "degraded"
)

type StoreConfig struct {
	Repo    Repository
	Key     string
	Sealer  Sealer
	Logger  zerolog.Logger
	Metrics *metrics.Metrics
}

// Store owns the current Config and writes it through to the Repository on every
// change.
type Store struct {
	repo    Repository
	key     string
	sealer  Sealer
	logger  zerolog.Logger
	metrics *metrics.Metrics

	// writeMu orders compute-and-persist so the repository ends with the
	// latest in-memory value.
	writeMu sync.Mutex

	mu      sync.Mutex
	current Config
	status  LoadStatus
	loadErr error
}

func NewStore(cfg StoreConfig) *Store {
	m := cfg.Metrics
	if m == nil {
		m = metrics.Global()
	}
	if cfg.Key == "" {
		cfg.Key = DefaultKey
	}
	return &Store{
		repo:    cfg.Repo,
		key:     cfg.Key,
		sealer:  cfg.Sealer,
		logger:  cfg.Logger.With().Str("component", "config_store").Str("key", cfg.Key).Logger(),
		metrics: m,
		current: Default(),
		status:  LoadDefaulted,
	}
}

// Load restores the configuration from the repository. It never fails: a read or
// decode error leaves the defaults in place and is reported as LoadDegraded.
func (s *Store) Load(ctx context.Context) (Config, LoadStatus) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	cfg, status, err := s.read(ctx)

	s.mu.Lock()
	s.current = cfg
	s.status = status
	s.loadErr = err
	s.mu.Unlock()

	s.metrics.ConfigLoads.WithLabelValues(string(status)).Inc()
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to restore saved config, using defaults")
	} else {
		s.logger.Debug().Str("status", string(status)).Msg("config loaded")
	}
	return cfg, status
}

func (s *Store) read(ctx context.Context) (Config, LoadStatus, error) {
	raw, err := s.repo.Load(ctx, s.key)
	if errors.Is(err, kv.ErrNotFound) {
		return Default(), LoadDefaulted, nil
	}
	if err != nil {
		return Default(), LoadDegraded, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return Default(), LoadDegraded, fmt.Errorf("decode config: %w", err)
	}
	if crypto.IsSealed(cfg.APIKey) {
		if s.sealer == nil {
			return Default(), LoadDegraded, errors.New("stored credential is sealed but no keys are configured")
		}
		key, err := s.sealer.Open(cfg.APIKey)
		if err != nil {
			return Default(), LoadDegraded, fmt.Errorf("open credential: %w", err)
		}
		cfg.APIKey = key
	}
	return cfg, LoadRestored, nil
}

// Save replaces the current configuration and persists it. The in-memory value is
// updated even when the write fails.
func (s *Store) Save(ctx context.Context, cfg Config) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.Lock()
	s.current = cfg
	s.mu.Unlock()
	return s.persist(ctx, cfg)
}

func (s *Store) persist(ctx context.Context, cfg Config) error {
	stored := cfg
	if s.sealer != nil && cfg.APIKey != "" {
		sealed, err := s.sealer.Seal(cfg.APIKey)
		if err != nil {
			s.logger.Error().Err(err).Msg("failed to seal credential")
			return fmt.Errorf("seal credential: %w", err)
		}
		stored.APIKey = sealed
	}
	b, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := s.repo.Save(ctx, s.key, b); err != nil {
		s.logger.Error().Err(err).Msg("failed to save config")
		return fmt.Errorf("save config: %w", err)
	}
	s.metrics.ConfigSaves.Inc()
	return nil
}

func (s *Store) Current() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Status returns the outcome of the last Load and, when degraded, its cause.
func (s *Store) Status() (LoadStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status, s.loadErr
}

func (s *Store) SetAPIKey(ctx context.Context, key string) (Config, error) {
	return s.update(ctx, func(c Config) Config { return c.WithAPIKey(key) })
}

// SetProvider changes only the provider; see Config.WithProvider.
func (s *Store) SetProvider(ctx context.Context, p Provider) (Config, error) {
	return s.update(ctx, func(c Config) Config { return c.WithProvider(p) })
}

func (s *Store) SwitchProvider(ctx context.Context, p Provider) (Config, error) {
	return s.update(ctx, func(c Config) Config { return c.SwitchProvider(p) })
}

func (s *Store) SetModel(ctx context.Context, model string) (Config, error) {
	return s.update(ctx, func(c Config) Config { return c.WithModel(model) })
}

func (s *Store) SetTemperature(ctx context.Context, t float64) (Config, error) {
	return s.update(ctx, func(c Config) Config { return c.WithTemperature(t) })
}

func (s *Store) SetMaxTokens(ctx context.Context, n int) (Config, error) {
	return s.update(ctx, func(c Config) Config { return c.WithMaxTokens(n) })
}

func (s *Store) update(ctx context.Context, fn func(Config) Config) (Config, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.Lock()
	next := fn(s.current)
	s.current = next
	s.mu.Unlock()
	return next, s.persist(ctx, next)
}
