package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"supportchat/internal/chatconfig"
	"supportchat/internal/config"
	"supportchat/internal/crypto"
	"supportchat/internal/kv"
	"supportchat/internal/metrics"
	"supportchat/internal/providers/registry"
	"supportchat/internal/repl"
	"supportchat/internal/session"
	"supportchat/internal/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// The terminal owns stdout in CLI mode.
	logOut := io.Writer(os.Stdout)
	if cfg.AppMode == config.ModeCLI {
		logOut = os.Stderr
	}
	setupLogger(cfg.Log.Level, logOut)
	log.Info().
		Str("mode", cfg.AppMode).
		Str("store_driver", cfg.Store.Driver).
		Bool("sealing", cfg.Crypto.Enabled()).
		Msg("starting supportchat")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	repo, err := kv.Open(ctx, kv.Options{
		Driver: cfg.Store.Driver,
		DSN:    cfg.Store.DSN,
		Dir:    cfg.Store.Dir,
		Redis: &redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		RedisPrefix: cfg.Redis.Prefix,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize store")
	}
	defer repo.Close()

	var sealer chatconfig.Sealer
	if cfg.Crypto.Enabled() {
		s, err := crypto.NewSealer(cfg.Crypto.CurrentKeyID, cfg.Crypto.Keys)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize sealer")
		}
		sealer = s
	}

	m := metrics.Global()
	providers := registry.New(registry.Options{
		OpenAIEndpoint:    cfg.Providers.OpenAIURL,
		AnthropicEndpoint: cfg.Providers.AnthropicURL,
		HTTPClient:        &http.Client{Timeout: cfg.Providers.ClientTimeout},
		Logger:            log.Logger,
		Metrics:           m,
	})

	errCh := make(chan error, 2)
	var httpServer *http.Server
	if cfg.Metrics.ListenAddr != "" {
		mux := http.NewServeMux()
		mux.HandleFunc(cfg.Metrics.HealthPath, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
		mux.Handle(cfg.Metrics.MetricsPath, promhttp.Handler())
		httpServer = &http.Server{
			Addr:              cfg.Metrics.ListenAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Info().Str("addr", cfg.Metrics.ListenAddr).Msg("http server started")
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- fmt.Errorf("http server: %w", err)
			}
		}()
	}

	var updater *ext.Updater
	switch cfg.AppMode {
	case config.ModeCLI:
		store := chatconfig.NewStore(chatconfig.StoreConfig{
			Repo:    repo,
			Key:     cfg.ConfigKey,
			Sealer:  sealer,
			Logger:  log.Logger,
			Metrics: m,
		})
		store.Load(ctx)
		sess := session.New(session.Config{Configs: store, Providers: providers, Logger: log.Logger})
		r := repl.New(repl.Config{Store: store, Session: sess, Logger: log.Logger})
		go func() {
			errCh <- r.Run(ctx)
		}()

	case config.ModeTelegram:
		bot, err := gotgbot.NewBot(cfg.BotToken, nil)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create telegram bot")
		}
		log.Info().Str("bot_username", bot.User.Username).Int64("bot_id", bot.User.Id).Msg("telegram bot initialized")

		logTelegramErr := func(err error) {
			log.Error().Str("component", "telegram").Msg(sanitizeTelegramErr(err, cfg.BotToken))
		}
		dispatcher := ext.NewDispatcher(&ext.DispatcherOpts{
			MaxRoutines:      100,
			UnhandledErrFunc: logTelegramErr,
			Processor: telegram.Processor{
				Metrics: m,
				Logger:  log.Logger,
			},
		})
		service := telegram.NewService(telegram.Config{
			Repo:      repo,
			Sealer:    sealer,
			Providers: providers,
			KeyPrefix: cfg.ConfigKey,
			Logger:    log.Logger,
			Metrics:   m,
		})
		service.Register(dispatcher)
		updater = ext.NewUpdater(dispatcher, &ext.UpdaterOpts{
			UnhandledErrFunc: logTelegramErr,
		})
		if err := updater.StartPolling(bot, &ext.PollingOpts{
			EnableWebhookDeletion: true,
			DropPendingUpdates:    true,
			GetUpdatesOpts: &gotgbot.GetUpdatesOpts{
				Timeout: 50,
				RequestOpts: &gotgbot.RequestOpts{
					Timeout: 60 * time.Second,
				},
			},
		}); err != nil {
			log.Fatal().Err(err).Msg("failed to start polling")
		}
		log.Info().Msg("polling mode started")
	}

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("runtime error")
		}
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if updater != nil {
		if err := updater.Stop(); err != nil {
			log.Error().Err(err).Msg("failed to stop updater")
		}
	}
	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("failed to stop http server")
		}
	}

	log.Info().Msg("stopped")
}

func setupLogger(level string, out io.Writer) {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(parseLogLevel(level))
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
}

func parseLogLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func sanitizeTelegramErr(err error, token string) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if strings.TrimSpace(token) == "" {
		return msg
	}

	msg = strings.ReplaceAll(msg, token, "<redacted-token>")
	if idx := strings.Index(token, ":"); idx > 0 {
		botID := token[:idx]
		msg = strings.ReplaceAll(msg, "/bot"+botID+":", "/bot<redacted>:")
		msg = strings.ReplaceAll(msg, "bot"+botID+"/", "bot<redacted>/")
	}
	return msg
}
