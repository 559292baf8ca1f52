package repl

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"supportchat/internal/chatconfig"
	"supportchat/internal/kv"
	"supportchat/internal/metrics"
	"supportchat/internal/providers/registry"
	"supportchat/internal/session"
)

func newREPL(t *testing.T, endpoint string) (*REPL, *bytes.Buffer, *chatconfig.Store) {
	t.Helper()
	repo, err := kv.NewFileStore(filepath.Join(t.TempDir(), "state"))
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	m := metrics.New()
	store := chatconfig.NewStore(chatconfig.StoreConfig{Repo: repo, Logger: zerolog.Nop(), Metrics: m})
	store.Load(context.Background())
	reg := registry.New(registry.Options{OpenAIEndpoint: endpoint, Logger: zerolog.Nop(), Metrics: m})
	sess := session.New(session.Config{Configs: store, Providers: reg, Logger: zerolog.Nop()})

	var out bytes.Buffer
	return New(Config{Store: store, Session: sess, Logger: zerolog.Nop(), Out: &out}), &out, store
}

func TestHandleWithoutKeyPromptsForKey(t *testing.T) {
	r, out, _ := newREPL(t, "http://127.0.0.1:1")
	if r.Handle(context.Background(), "Where is my order?") {
		t.Fatalf("plain text must not quit")
	}
	if !strings.Contains(out.String(), "Please configure your API key first") {
		t.Fatalf("expected credential prompt, got %q", out.String())
	}
}

func TestHandleConversation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"Your order ships tomorrow."}}]}`))
	}))
	defer srv.Close()

	r, out, store := newREPL(t, srv.URL)
	ctx := context.Background()
	r.Handle(ctx, "/key sk-test")
	if store.Current().APIKey != "sk-test" {
		t.Fatalf("key not set")
	}
	r.Handle(ctx, "Where is my order?")
	if !strings.Contains(out.String(), "Your order ships tomorrow.") {
		t.Fatalf("expected assistant reply, got %q", out.String())
	}
}

func TestHandleProviderShowsHeader(t *testing.T) {
	r, out, _ := newREPL(t, "http://127.0.0.1:1")
	r.Handle(context.Background(), "/provider anthropic")
	if !strings.Contains(out.String(), "Powered by Anthropic - gpt-4-turbo") {
		t.Fatalf("expected refreshed header, got %q", out.String())
	}
}

func TestHandleQuit(t *testing.T) {
	r, _, _ := newREPL(t, "http://127.0.0.1:1")
	if !r.Handle(context.Background(), "/quit") {
		t.Fatalf("expected quit")
	}
}

func TestComplete(t *testing.T) {
	got := complete("/mo")
	if len(got) != 2 || got[0] != "/model" || got[1] != "/models" {
		t.Fatalf("unexpected completions %v", got)
	}
	if complete("hello") != nil {
		t.Fatalf("plain text must not complete")
	}
}
