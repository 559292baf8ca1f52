// Package commands implements the slash commands shared by the terminal and
// Telegram front ends.
package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"supportchat/internal/chatconfig"
	"supportchat/internal/session"
)

var ErrQuit = errors.New("quit requested")

// IsCommand reports whether line should be handled by Run rather than sent.
func IsCommand(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "/")
}

// Run executes one slash command against store and sess and returns the text to
// show. It returns ErrQuit for /quit.
func Run(ctx context.Context, store *chatconfig.Store, sess *session.Session, line string) (string, error) {
	name, arg := splitCommand(line)
	switch name {
	case "help", "start":
		return Help(), nil
	case "quit", "exit":
		return "", ErrQuit
	case "config", "status":
		return Describe(store.Current()), nil
	case "models":
		return listModels(store.Current()), nil
	case "clear":
		sess.Clear()
		return "Conversation cleared.", nil
	case "key":
		if arg == "" {
			return "Usage: /key <api key>", nil
		}
		if _, err := store.SetAPIKey(ctx, arg); err != nil {
			return "API key updated for this session but could not be saved: " + err.Error(), nil
		}
		return "API key saved.", nil
	case "provider":
		return setProvider(ctx, store, arg)
	case "model":
		return setModel(ctx, store, arg)
	case "temperature":
		return setTemperature(ctx, store, arg)
	case "max_tokens", "maxtokens":
		return setMaxTokens(ctx, store, arg)
	default:
		return fmt.Sprintf("Unknown command /%s. Try /help.", name), nil
	}
}

func Help() string {
	return strings.Join([]string{
		"Commands:",
		"/key <api key> - set the provider API key",
		"/provider <openai|anthropic> - choose the AI provider",
		"/model <id> - choose a model (see /models)",
		"/models - list models for the current provider",
		fmt.Sprintf("/temperature <%.0f-%.0f, step %.1f> - focused to creative", chatconfig.MinTemperature, chatconfig.MaxTemperature, chatconfig.TemperatureStep),
		fmt.Sprintf("/max_tokens <%d-%d, step %d> - short to long replies", chatconfig.MinMaxTokens, chatconfig.MaxMaxTokens, chatconfig.MaxTokensStep),
		"/config - show the current configuration",
		"/clear - clear the conversation",
		"Anything else is sent to the assistant.",
	}, "\n")
}

// Header is the "Powered by" line shown above the conversation.
func Header(cfg chatconfig.Config) string {
	return fmt.Sprintf("Powered by %s - %s", cfg.Provider.DisplayName(), cfg.Model)
}

func Describe(cfg chatconfig.Config) string {
	lines := []string{
		Header(cfg),
		"API key: " + MaskKey(cfg.APIKey),
		fmt.Sprintf("Temperature: %.1f", cfg.Temperature),
		fmt.Sprintf("Max tokens: %d", cfg.MaxTokens),
	}
	if m, ok := chatconfig.LookupModel(cfg.Model); ok {
		lines = append(lines, "Model: "+m.Label+" - "+m.Description)
	}
	if !cfg.ModelConsistent() {
		lines = append(lines, fmt.Sprintf("Warning: model %s is not offered by %s. Pick one with /model.", cfg.Model, cfg.Provider.DisplayName()))
	}
	return strings.Join(lines, "\n")
}

// MaskKey hides all but the last four characters of a credential.
func MaskKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", 8) + key[len(key)-4:]
}

func listModels(cfg chatconfig.Config) string {
	lines := []string{cfg.Provider.DisplayName() + " models:"}
	for _, m := range chatconfig.ModelsFor(cfg.Provider) {
		marker := "  "
		if m.Value == cfg.Model {
			marker = "* "
		}
		lines = append(lines, fmt.Sprintf("%s%s (%s) - %s", marker, m.Value, m.Label, m.Description))
	}
	return strings.Join(lines, "\n")
}

func setProvider(ctx context.Context, store *chatconfig.Store, arg string) (string, error) {
	p, err := chatconfig.ParseProvider(arg)
	if err != nil {
		return "Usage: /provider <openai|anthropic>", nil
	}
	cfg, err := store.SetProvider(ctx, p)
	if err != nil {
		return "Provider updated for this session but could not be saved: " + err.Error(), nil
	}
	reply := "Provider set to " + p.DisplayName() + "."
	if !cfg.ModelConsistent() {
		reply += fmt.Sprintf(" Model %s belongs to another provider; pick one with /model.", cfg.Model)
	}
	return reply, nil
}

func setModel(ctx context.Context, store *chatconfig.Store, arg string) (string, error) {
	if arg == "" {
		return listModels(store.Current()), nil
	}
	m, ok := chatconfig.LookupModel(arg)
	if !ok || m.Provider != store.Current().Provider {
		return fmt.Sprintf("Unknown model %q for %s. See /models.", arg, store.Current().Provider.DisplayName()), nil
	}
	if _, err := store.SetModel(ctx, m.Value); err != nil {
		return "Model updated for this session but could not be saved: " + err.Error(), nil
	}
	return fmt.Sprintf("Model set to %s. %s", m.Label, m.Description), nil
}

func setTemperature(ctx context.Context, store *chatconfig.Store, arg string) (string, error) {
	t, err := strconv.ParseFloat(arg, 64)
	if err != nil || chatconfig.Default().WithTemperature(t).Validate() != nil {
		return fmt.Sprintf("Usage: /temperature <%.0f-%.0f>", chatconfig.MinTemperature, chatconfig.MaxTemperature), nil
	}
	t = chatconfig.SnapTemperature(t)
	if _, err := store.SetTemperature(ctx, t); err != nil {
		return "Temperature updated for this session but could not be saved: " + err.Error(), nil
	}
	return fmt.Sprintf("Temperature set to %.1f.", t), nil
}

func setMaxTokens(ctx context.Context, store *chatconfig.Store, arg string) (string, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || chatconfig.Default().WithMaxTokens(n).Validate() != nil {
		return fmt.Sprintf("Usage: /max_tokens <%d-%d>", chatconfig.MinMaxTokens, chatconfig.MaxMaxTokens), nil
	}
	n = chatconfig.SnapMaxTokens(n)
	if _, err := store.SetMaxTokens(ctx, n); err != nil {
		return "Max tokens updated for this session but could not be saved: " + err.Error(), nil
	}
	return fmt.Sprintf("Max tokens set to %d.", n), nil
}

// splitCommand turns "/model@bot gpt-4" into ("model", "gpt-4").
func splitCommand(line string) (name string, arg string) {
	line = strings.TrimPrefix(strings.TrimSpace(line), "/")
	name, arg, _ = strings.Cut(line, " ")
	name, _, _ = strings.Cut(name, "@")
	return strings.ToLower(name), strings.TrimSpace(arg)
}
