// Package repl is the interactive terminal front end for the support chat.
package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/peterh/liner"
	"github.com/rs/zerolog"

	"supportchat/internal/chatconfig"
	"supportchat/internal/commands"
	"supportchat/internal/session"
)

var (
	promptStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#06B6D4")).Bold(true)
	headerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#A855F7")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	infoStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F43F5E")).Bold(true)
)

const welcome = "Hi! I'm your customer support assistant. How can I help you today?"

type Config struct {
	Store   *chatconfig.Store
	Session *session.Session
	Logger  zerolog.Logger
	Out     io.Writer
}

type REPL struct {
	store   *chatconfig.Store
	session *session.Session
	logger  zerolog.Logger
	out     io.Writer
}

func New(cfg Config) *REPL {
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	return &REPL{
		store:   cfg.Store,
		session: cfg.Session,
		logger:  cfg.Logger.With().Str("component", "repl").Logger(),
		out:     cfg.Out,
	}
}

// Run reads lines until EOF, Ctrl+C, /quit or ctx cancellation.
func (r *REPL) Run(ctx context.Context) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetCompleter(complete)

	r.banner()

	for {
		if ctx.Err() != nil {
			return nil
		}
		input, err := line.Prompt(promptStyle.Render("you> "))
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Fprintln(r.out)
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		// Credentials typed inline stay out of the history.
		if !strings.HasPrefix(strings.ToLower(input), "/key") {
			line.AppendHistory(input)
		}

		if strings.EqualFold(input, "/key") {
			secret, err := line.PasswordPrompt("API key: ")
			if err != nil {
				fmt.Fprintln(r.out, infoStyle.Render("API key unchanged."))
				continue
			}
			input = "/key " + strings.TrimSpace(secret)
		}

		if r.Handle(ctx, input) {
			return nil
		}
	}
}

// Handle processes one input line and reports whether the user asked to quit.
func (r *REPL) Handle(ctx context.Context, input string) bool {
	if commands.IsCommand(input) {
		reply, err := commands.Run(ctx, r.store, r.session, input)
		if errors.Is(err, commands.ErrQuit) {
			fmt.Fprintln(r.out, infoStyle.Render("Goodbye."))
			return true
		}
		fmt.Fprintln(r.out, infoStyle.Render(reply))
		if strings.HasPrefix(strings.ToLower(input), "/provider") || strings.HasPrefix(strings.ToLower(input), "/model ") {
			fmt.Fprintln(r.out, headerStyle.Render(commands.Header(r.store.Current())))
		}
		return false
	}

	fmt.Fprintln(r.out, infoStyle.Render("Assistant is typing..."))
	msg, err := r.session.Send(ctx, input)
	switch {
	case errors.Is(err, session.ErrMissingCredential):
		fmt.Fprintln(r.out, errorStyle.Render(session.MissingCredentialMessage+". Use /key to set it."))
	case errors.Is(err, session.ErrBusy):
		fmt.Fprintln(r.out, errorStyle.Render("Still waiting for the previous reply."))
	case err != nil:
		r.logger.Debug().Err(err).Msg("send failed")
		fmt.Fprintln(r.out, errorStyle.Render("Error: "+r.session.LastError()))
	case msg != nil:
		fmt.Fprintln(r.out, assistantStyle.Render("assistant> ")+msg.Content)
	}
	return false
}

func (r *REPL) banner() {
	cfg := r.store.Current()
	fmt.Fprintln(r.out, headerStyle.Render("Customer Support"))
	fmt.Fprintln(r.out, headerStyle.Render(commands.Header(cfg)))
	if status, err := r.store.Status(); status == chatconfig.LoadDegraded && err != nil {
		fmt.Fprintln(r.out, errorStyle.Render("Saved settings could not be read, using defaults: "+err.Error()))
	}
	if !cfg.HasCredential() {
		fmt.Fprintln(r.out, infoStyle.Render("No API key configured yet. Use /key to set one."))
	}
	fmt.Fprintln(r.out, assistantStyle.Render("assistant> ")+welcome)
	fmt.Fprintln(r.out, infoStyle.Render("Type /help for commands. Ctrl+D exits."))
}

var commandNames = []string{
	"/clear", "/config", "/help", "/key", "/max_tokens", "/model", "/models", "/provider", "/quit", "/temperature",
}

func complete(line string) []string {
	if !strings.HasPrefix(line, "/") {
		return nil
	}
	var out []string
	for _, c := range commandNames {
		if strings.HasPrefix(c, strings.ToLower(line)) {
			out = append(out, c)
		}
	}
	return out
}
