package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// SystemPrompt is the customer-service persona sent with every exchange.
const SystemPrompt = `You are a helpful and professional customer service representative for a technology company. Your role is to:

1. Provide accurate and helpful information about products and services
2. Handle customer inquiries with empathy and professionalism
3. Escalate complex issues appropriately
4. Maintain a friendly and approachable tone
5. Ask clarifying questions when needed
6. Provide solutions within your capabilities

Key guidelines:
- Always be polite and professional
- If you don't know something, be honest about it
- Don't make up information
- Keep responses concise but helpful
- Use a warm, human tone
- If a customer seems frustrated, acknowledge their feelings
- Offer to help find solutions or escalate to human support when appropriate

Remember: You're here to help customers have a positive experience with our company.`

// NoResponse replaces a reply whose text field is missing from a successful response.
const NoResponse = "No response received"

const maxResponseBytes = 4 << 20

type ExchangeRequest struct {
	UserText string
	// History is the flattened trailing conversation, empty for the first turn.
	History     string
	Model       string
	Temperature float64
	MaxTokens   int
	APIKey      string
}

// ChatProvider performs one request/response cycle with a hosted model. It makes
// exactly one outbound call and does not retry; every failure is an *Error.
type ChatProvider interface {
	Exchange(ctx context.Context, req ExchangeRequest) (string, error)
}

type Kind string

const (
	KindMissingCredential Kind = "missing_credential"
	KindTransport         Kind = "transport"
	KindProvider          Kind = "provider"
	KindMalformed         Kind = "malformed"
)

type Error struct {
	Kind Kind
	// Status is the HTTP status for KindProvider, zero otherwise.
	Status  int
	Message string
	Err     error
}

// Error returns only the human-readable message; it is shown to the user as is.
func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// PostJSON sends payload to url and returns the body of a 2xx response. Any other
// status becomes a KindProvider error carrying the provider's error.message, or a
// synthesized message with the status code.
func PostJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &Error{Kind: KindMalformed, Message: fmt.Sprintf("marshal request: %v", err), Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Kind: KindTransport, Message: fmt.Sprintf("build request: %v", err), Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &Error{Kind: KindTransport, Message: fmt.Sprintf("read response body: %v", err), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{Kind: KindProvider, Status: resp.StatusCode, Message: errorMessage(respBody, resp.StatusCode)}
	}
	return respBody, nil
}

func errorMessage(body []byte, status int) string {
	var resp struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &resp); err == nil && strings.TrimSpace(resp.Error.Message) != "" {
		return resp.Error.Message
	}
	return fmt.Sprintf("HTTP error! status: %d", status)
}

// DecodeReply unmarshals a successful response body into v.
func DecodeReply(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return &Error{Kind: KindMalformed, Message: fmt.Sprintf("decode response: %v", err), Err: err}
	}
	return nil
}

// OrPlaceholder returns text, or NoResponse when text is empty.
func OrPlaceholder(text string) string {
	if text == "" {
		return NoResponse
	}
	return text
}
