package registry

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"supportchat/internal/chatconfig"
	"supportchat/internal/metrics"
	"supportchat/internal/providers"
	"supportchat/internal/providers/anthropic"
	"supportchat/internal/providers/openai"
)

type Options struct {
	OpenAIEndpoint    string
	AnthropicEndpoint string
	HTTPClient        *http.Client
	Logger            zerolog.Logger
	Metrics           *metrics.Metrics
}

// Registry holds one client per supported provider.
type Registry struct {
	openai    providers.ChatProvider
	anthropic providers.ChatProvider
}

func New(opts Options) *Registry {
	m := opts.Metrics
	if m == nil {
		m = metrics.Global()
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}
	logger := opts.Logger.With().Str("component", "provider").Logger()
	return &Registry{
		openai: instrumented{
			next:     openai.New(openai.Config{Endpoint: opts.OpenAIEndpoint, HTTPClient: opts.HTTPClient}),
			provider: chatconfig.ProviderOpenAI,
			logger:   logger,
			metrics:  m,
		},
		anthropic: instrumented{
			next:     anthropic.New(anthropic.Config{Endpoint: opts.AnthropicEndpoint, HTTPClient: opts.HTTPClient}),
			provider: chatconfig.ProviderAnthropic,
			logger:   logger,
			metrics:  m,
		},
	}
}

// For returns the client for p.
func (r *Registry) For(p chatconfig.Provider) (providers.ChatProvider, error) {
	switch p {
	case chatconfig.ProviderOpenAI:
		return r.openai, nil
	case chatconfig.ProviderAnthropic:
		return r.anthropic, nil
	default:
		return nil, fmt.Errorf("unsupported provider %q", p)
	}
}

type instrumented struct {
	next     providers.ChatProvider
	provider chatconfig.Provider
	logger   zerolog.Logger
	metrics  *metrics.Metrics
}

func (i instrumented) Exchange(ctx context.Context, req providers.ExchangeRequest) (string, error) {
	start := time.Now()
	text, err := i.next.Exchange(ctx, req)
	elapsed := time.Since(start)

	i.metrics.ExchangeLatency.WithLabelValues(string(i.provider)).Observe(elapsed.Seconds())
	outcome := "ok"
	if err != nil {
		outcome = string(providers.KindOf(err))
		if outcome == "" {
			outcome = "error"
		}
	}
	i.metrics.Exchanges.WithLabelValues(string(i.provider), outcome).Inc()

	ev := i.logger.Debug()
	if err != nil {
		ev = i.logger.Warn().Err(err)
	}
	ev.Str("provider", string(i.provider)).
		Str("model", req.Model).
		Str("outcome", outcome).
		Bool("with_history", req.History != "").
		Dur("elapsed", elapsed).
		Msg("provider exchange")
	return text, err
}
