// Package session holds one conversation: its messages, the in-flight flag and the
// last error, and drives a provider exchange for every line the user sends.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"supportchat/internal/chatconfig"
	"supportchat/internal/providers"
)

// HistoryWindow is how many prior messages are given to the provider as context.
const HistoryWindow = 6

const MissingCredentialMessage = "Please configure your API key first"

var (
	ErrMissingCredential = &providers.Error{Kind: providers.KindMissingCredential, Message: MissingCredentialMessage}
	ErrBusy              = errors.New("a message is already being sent")
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	ID        string
	Content   string
	Role      Role
	Timestamp time.Time
}

type ConfigSource interface {
	Current() chatconfig.Config
}

type Resolver interface {
	For(p chatconfig.Provider) (providers.ChatProvider, error)
}

type Config struct {
	Configs   ConfigSource
	Providers Resolver
	Logger    zerolog.Logger
	Now       func() time.Time
}

type Session struct {
	configs   ConfigSource
	providers Resolver
	logger    zerolog.Logger
	now       func() time.Time

	mu       sync.Mutex
	messages []Message
	inFlight bool
	lastErr  string
}

func New(cfg Config) *Session {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Session{
		configs:   cfg.Configs,
		providers: cfg.Providers,
		logger:    cfg.Logger.With().Str("component", "session").Logger(),
		now:       cfg.Now,
	}
}

// Send appends text as a user message, exchanges it with the configured provider
// and appends the reply. Blank text is ignored and returns (nil, nil). On failure
// the error message is recorded as LastError and no reply is appended.
func (s *Session) Send(ctx context.Context, text string) (*Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	cfg := s.configs.Current()

	s.mu.Lock()
	if !cfg.HasCredential() {
		s.lastErr = MissingCredentialMessage
		s.mu.Unlock()
		return nil, ErrMissingCredential
	}
	if s.inFlight {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	history := FormatHistory(s.messages)
	s.messages = append(s.messages, s.newMessage(RoleUser, text))
	s.inFlight = true
	s.lastErr = ""
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()

	reply, err := s.exchange(ctx, cfg, text, history)
	if err != nil {
		s.mu.Lock()
		s.lastErr = err.Error()
		s.mu.Unlock()
		return nil, err
	}

	msg := s.newMessage(RoleAssistant, reply)
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
	return &msg, nil
}

func (s *Session) exchange(ctx context.Context, cfg chatconfig.Config, text, history string) (string, error) {
	p, err := s.providers.For(cfg.Provider)
	if err != nil {
		s.logger.Error().Err(err).Str("provider", string(cfg.Provider)).Msg("no client for provider")
		return "", &providers.Error{Kind: providers.KindProvider, Message: fmt.Sprintf("unsupported provider %q", cfg.Provider), Err: err}
	}
	return p.Exchange(ctx, providers.ExchangeRequest{
		UserText:    text,
		History:     history,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		APIKey:      cfg.APIKey,
	})
}

// Clear drops all messages and the last error. Configuration is not touched.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
	s.lastErr = ""
}

func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Session) InFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

// LastError returns the message of the last failed send, or "".
func (s *Session) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// FormatHistory renders the last HistoryWindow messages as "Customer: ..." and
// "Assistant: ..." lines.
func FormatHistory(messages []Message) string {
	if len(messages) > HistoryWindow {
		messages = messages[len(messages)-HistoryWindow:]
	}
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		speaker := "Assistant"
		if m.Role == RoleUser {
			speaker = "Customer"
		}
		lines = append(lines, speaker+": "+m.Content)
	}
	return strings.Join(lines, "\n")
}

func (s *Session) newMessage(role Role, content string) Message {
	now := s.now()
	return Message{
		ID:        newMessageID(now),
		Content:   content,
		Role:      role,
		Timestamp: now,
	}
}

// newMessageID returns a time-ordered UUIDv7.
func newMessageID(now time.Time) string {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Sprintf("msg-%d", now.UnixNano())
	}
	return id.String()
}
