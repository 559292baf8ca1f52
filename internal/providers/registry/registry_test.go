package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"supportchat/internal/chatconfig"
	"supportchat/internal/metrics"
	"supportchat/internal/providers"
)

func TestForDispatchesByProvider(t *testing.T) {
	openaiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"from openai"}}]}`))
	}))
	defer openaiSrv.Close()
	anthropicSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer anthropicSrv.Close()

	m := metrics.New()
	r := New(Options{
		OpenAIEndpoint:    openaiSrv.URL,
		AnthropicEndpoint: anthropicSrv.URL,
		Logger:            zerolog.Nop(),
		Metrics:           m,
	})

	p, err := r.For(chatconfig.ProviderOpenAI)
	if err != nil {
		t.Fatalf("for openai: %v", err)
	}
	text, err := p.Exchange(context.Background(), providers.ExchangeRequest{UserText: "hi", APIKey: "k"})
	if err != nil || text != "from openai" {
		t.Fatalf("unexpected openai result %q err=%v", text, err)
	}

	p, err = r.For(chatconfig.ProviderAnthropic)
	if err != nil {
		t.Fatalf("for anthropic: %v", err)
	}
	if _, err := p.Exchange(context.Background(), providers.ExchangeRequest{UserText: "hi", APIKey: "k"}); err == nil {
		t.Fatalf("expected anthropic error")
	}

	if got := testutil.ToFloat64(m.Exchanges.WithLabelValues("openai", "ok")); got != 1 {
		t.Fatalf("expected one ok openai exchange, got %v", got)
	}
	if got := testutil.ToFloat64(m.Exchanges.WithLabelValues("anthropic", string(providers.KindProvider))); got != 1 {
		t.Fatalf("expected one failed anthropic exchange, got %v", got)
	}

	if _, err := r.For(chatconfig.Provider("mistral")); err == nil {
		t.Fatalf("expected unsupported provider error")
	}
}
