package telegram

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers/filters/callbackquery"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers/filters/message"
	"github.com/rs/zerolog"

	"supportchat/internal/chatconfig"
	"supportchat/internal/metrics"
	"supportchat/internal/session"
)

// Service keeps one configuration store and one conversation per Telegram chat.
type Service struct {
	repo      chatconfig.Repository
	sealer    chatconfig.Sealer
	providers session.Resolver
	keyPrefix string
	logger    zerolog.Logger
	metrics   *metrics.Metrics

	mu    sync.Mutex
	chats map[int64]*chatState
}

type chatState struct {
	store   *chatconfig.Store
	session *session.Session
}

type Config struct {
	Repo      chatconfig.Repository
	Sealer    chatconfig.Sealer
	Providers session.Resolver
	// KeyPrefix is suffixed with ":<chat id>" to form each chat's record key.
	KeyPrefix string
	Logger    zerolog.Logger
	Metrics   *metrics.Metrics
}

func NewService(cfg Config) *Service {
	m := cfg.Metrics
	if m == nil {
		m = metrics.Global()
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = chatconfig.DefaultKey
	}
	return &Service{
		repo:      cfg.Repo,
		sealer:    cfg.Sealer,
		providers: cfg.Providers,
		keyPrefix: cfg.KeyPrefix,
		logger:    cfg.Logger.With().Str("component", "telegram").Logger(),
		metrics:   m,
		chats:     make(map[int64]*chatState),
	}
}

func (s *Service) Register(d *ext.Dispatcher) {
	d.AddHandler(handlers.NewCommand("start", s.start))
	d.AddHandler(handlers.NewCommand("help", s.help))
	d.AddHandler(handlers.NewCommand("key", s.key))
	d.AddHandler(handlers.NewCommand("provider", s.provider))
	d.AddHandler(handlers.NewCommand("model", s.model))
	for _, name := range []string{"models", "temperature", "max_tokens", "config", "status", "clear"} {
		d.AddHandler(handlers.NewCommand(name, s.command))
	}
	d.AddHandler(handlers.NewCallback(callbackquery.Prefix(cbPrefix), s.onCallback))
	d.AddHandler(handlers.NewMessage(func(msg *gotgbot.Message) bool {
		return message.Text(msg) && !strings.HasPrefix(msg.GetText(), "/")
	}, s.chatText))
}

func (s *Service) chatKey(chatID int64) string {
	return fmt.Sprintf("%s:%d", s.keyPrefix, chatID)
}

// state returns the chat's store and session, loading its saved configuration on
// first use. The load runs outside s.mu so a slow backend only delays this chat.
func (s *Service) state(ctx context.Context, chatID int64) *chatState {
	s.mu.Lock()
	st, ok := s.chats[chatID]
	s.mu.Unlock()
	if ok {
		return st
	}

	logger := s.logger.With().Int64("chat_id", chatID).Logger()
	store := chatconfig.NewStore(chatconfig.StoreConfig{
		Repo:    s.repo,
		Key:     s.chatKey(chatID),
		Sealer:  s.sealer,
		Logger:  logger,
		Metrics: s.metrics,
	})
	if _, status := store.Load(ctx); status == chatconfig.LoadRestored {
		logger.Debug().Msg("chat configuration restored")
	}
	fresh := &chatState{
		store:   store,
		session: session.New(session.Config{Configs: store, Providers: s.providers, Logger: logger}),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.chats[chatID]; ok {
		return st
	}
	s.chats[chatID] = fresh
	return fresh
}
