package anthropic

import (
	"context"
	"net/http"
	"strings"
	"time"

	"supportchat/internal/providers"
)

const (
	DefaultEndpoint = "https://api.anthropic.com/v1/messages"
	APIVersion      = "2023-06-01"
)

type Config struct {
	// Endpoint is the full messages URL.
	Endpoint   string
	HTTPClient *http.Client
}

type Client struct {
	cfg Config
}

func New(cfg Config) *Client {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}
	if strings.TrimSpace(cfg.Endpoint) == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	return &Client{cfg: cfg}
}

var _ providers.ChatProvider = (*Client)(nil)

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	Messages    []message `json:"messages"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (c *Client) Exchange(ctx context.Context, req providers.ExchangeRequest) (string, error) {
	body, err := providers.PostJSON(ctx, c.cfg.HTTPClient, c.cfg.Endpoint, map[string]string{
		"x-api-key":         req.APIKey,
		"anthropic-version": APIVersion,
	}, messagesRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Messages:    []message{{Role: "user", Content: buildPrompt(req.UserText, req.History)}},
	})
	if err != nil {
		return "", err
	}

	var resp messagesResponse
	if err := providers.DecodeReply(body, &resp); err != nil {
		return "", err
	}
	if len(resp.Content) == 0 {
		return providers.NoResponse, nil
	}
	return providers.OrPlaceholder(resp.Content[0].Text), nil
}

// buildPrompt flattens the persona, optional history and the new line into one
// user turn ending with an "Assistant:" cue.
func buildPrompt(userText, history string) string {
	var b strings.Builder
	b.WriteString(providers.SystemPrompt)
	b.WriteString("\n\n")
	if history != "" {
		b.WriteString("Previous conversation:\n")
		b.WriteString(history)
		b.WriteString("\n\n")
	}
	b.WriteString("Customer: ")
	b.WriteString(userText)
	b.WriteString("\n\nAssistant:")
	return b.String()
}
