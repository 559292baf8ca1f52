package commands

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"supportchat/internal/chatconfig"
	"supportchat/internal/kv"
	"supportchat/internal/metrics"
	"supportchat/internal/session"
)

func newFixture(t *testing.T) (*chatconfig.Store, *session.Session) {
	t.Helper()
	repo, err := kv.NewFileStore(filepath.Join(t.TempDir(), "state"))
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	store := chatconfig.NewStore(chatconfig.StoreConfig{Repo: repo, Logger: zerolog.Nop(), Metrics: metrics.New()})
	store.Load(context.Background())
	sess := session.New(session.Config{Configs: store, Logger: zerolog.Nop()})
	return store, sess
}

func TestSplitCommand(t *testing.T) {
	name, arg := splitCommand("  /Model@support_bot  gpt-4 ")
	if name != "model" || arg != "gpt-4" {
		t.Fatalf("unexpected split %q %q", name, arg)
	}
	name, arg = splitCommand("/clear")
	if name != "clear" || arg != "" {
		t.Fatalf("unexpected split %q %q", name, arg)
	}
}

func TestProviderCommandKeepsModel(t *testing.T) {
	store, sess := newFixture(t)
	ctx := context.Background()

	reply, err := Run(ctx, store, sess, "/provider anthropic")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if store.Current().Provider != chatconfig.ProviderAnthropic || store.Current().Model != "gpt-4-turbo" {
		t.Fatalf("unexpected config %+v", store.Current())
	}
	if !strings.Contains(reply, "/model") {
		t.Fatalf("expected reselect hint, got %q", reply)
	}

	if _, err := Run(ctx, store, sess, "/model claude-3-haiku-20240307"); err != nil {
		t.Fatalf("run: %v", err)
	}
	if store.Current().Model != "claude-3-haiku-20240307" {
		t.Fatalf("model not updated: %+v", store.Current())
	}
}

func TestModelCommandRejectsOtherProvider(t *testing.T) {
	store, sess := newFixture(t)
	reply, _ := Run(context.Background(), store, sess, "/model claude-3-opus-20240229")
	if !strings.HasPrefix(reply, "Unknown model") {
		t.Fatalf("expected rejection, got %q", reply)
	}
	if store.Current().Model != "gpt-4-turbo" {
		t.Fatalf("model must be unchanged, got %q", store.Current().Model)
	}
}

func TestParameterCommandsEnforceBounds(t *testing.T) {
	store, sess := newFixture(t)
	ctx := context.Background()

	_, _ = Run(ctx, store, sess, "/temperature 1.5")
	_, _ = Run(ctx, store, sess, "/max_tokens 2000")
	if store.Current().Temperature != 1.5 || store.Current().MaxTokens != 2000 {
		t.Fatalf("unexpected config %+v", store.Current())
	}

	for _, line := range []string{"/temperature 3", "/temperature hot", "/temperature NaN", "/max_tokens 50", "/max_tokens 5000"} {
		reply, _ := Run(ctx, store, sess, line)
		if !strings.HasPrefix(reply, "Usage:") {
			t.Fatalf("%s: expected usage, got %q", line, reply)
		}
	}
	if store.Current().Temperature != 1.5 || store.Current().MaxTokens != 2000 {
		t.Fatalf("out-of-range values must be ignored, got %+v", store.Current())
	}
}

func TestParameterCommandsSnapToStep(t *testing.T) {
	store, sess := newFixture(t)
	ctx := context.Background()

	reply, _ := Run(ctx, store, sess, "/temperature 0.36")
	if got := store.Current().Temperature; got != 0.4 {
		t.Fatalf("expected temperature snapped to 0.4, got %v", got)
	}
	if reply != "Temperature set to 0.4." {
		t.Fatalf("reply must match stored value, got %q", reply)
	}

	reply, _ = Run(ctx, store, sess, "/max_tokens 1260")
	if got := store.Current().MaxTokens; got != 1300 {
		t.Fatalf("expected max tokens snapped to 1300, got %d", got)
	}
	if reply != "Max tokens set to 1300." {
		t.Fatalf("reply must match stored value, got %q", reply)
	}
}

func TestKeyCommandAndMasking(t *testing.T) {
	store, sess := newFixture(t)
	if _, err := Run(context.Background(), store, sess, "/key sk-abcdef123456"); err != nil {
		t.Fatalf("run: %v", err)
	}
	if store.Current().APIKey != "sk-abcdef123456" {
		t.Fatalf("key not stored")
	}
	desc := Describe(store.Current())
	if strings.Contains(desc, "sk-abcdef123456") || !strings.Contains(desc, "3456") {
		t.Fatalf("expected masked key in %q", desc)
	}
}

func TestQuitAndUnknown(t *testing.T) {
	store, sess := newFixture(t)
	if _, err := Run(context.Background(), store, sess, "/quit"); !errors.Is(err, ErrQuit) {
		t.Fatalf("expected ErrQuit, got %v", err)
	}
	reply, err := Run(context.Background(), store, sess, "/dance")
	if err != nil || !strings.HasPrefix(reply, "Unknown command") {
		t.Fatalf("unexpected reply %q err=%v", reply, err)
	}
}

func TestHeader(t *testing.T) {
	if got := Header(chatconfig.Default()); got != "Powered by OpenAI - gpt-4-turbo" {
		t.Fatalf("unexpected header %q", got)
	}
}
