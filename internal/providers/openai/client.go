package openai

import (
	"context"
	"net/http"
	"strings"
	"time"

	"supportchat/internal/providers"
)

const DefaultEndpoint = "https://api.openai.com/v1/chat/completions"

type Config struct {
	// Endpoint is the full chat completions URL.
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

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
	Stream      bool      `json:"stream"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *Client) Exchange(ctx context.Context, req providers.ExchangeRequest) (string, error) {
	body, err := providers.PostJSON(ctx, c.cfg.HTTPClient, c.cfg.Endpoint, map[string]string{
		"Authorization": "Bearer " + req.APIKey,
	}, buildPayload(req))
	if err != nil {
		return "", err
	}

	var resp completionResponse
	if err := providers.DecodeReply(body, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return providers.NoResponse, nil
	}
	return providers.OrPlaceholder(resp.Choices[0].Message.Content), nil
}

// buildPayload places the flattened history as a single synthetic user turn
// between the system prompt and the new message.
func buildPayload(req providers.ExchangeRequest) completionRequest {
	messages := []message{{Role: "system", Content: providers.SystemPrompt}}
	if req.History != "" {
		messages = append(messages, message{Role: "user", Content: req.History})
	}
	messages = append(messages, message{Role: "user", Content: req.UserText})

	return completionRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      false,
	}
}
