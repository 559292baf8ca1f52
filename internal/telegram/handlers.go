package telegram

import (
	"context"
	"errors"
	"strings"

	"github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"

	"supportchat/internal/commands"
	"supportchat/internal/session"
)

const welcomeText = "Hi! I'm your customer support assistant. How can I help you today?"

func (s *Service) start(b *gotgbot.Bot, ctx *ext.Context) error {
	if ctx.EffectiveChat == nil {
		return nil
	}
	st := s.state(context.Background(), ctx.EffectiveChat.Id)
	cfg := st.store.Current()
	lines := []string{commands.Header(cfg), "", welcomeText}
	if !cfg.HasCredential() {
		lines = append(lines, "", "No API key configured yet. Send /key <api key> in a private chat with me.")
	}
	return s.replyWithMarkup(ctx, b, strings.Join(lines, "\n"), providerKeyboard(cfg))
}

func (s *Service) help(b *gotgbot.Bot, ctx *ext.Context) error {
	return s.reply(ctx, b, commands.Help())
}

func (s *Service) key(b *gotgbot.Bot, ctx *ext.Context) error {
	msg := ctx.EffectiveMessage
	if msg == nil || ctx.EffectiveChat == nil {
		return nil
	}
	if ctx.EffectiveChat.Type != "private" {
		s.deleteMessage(b, msg)
		return s.reply(ctx, b, "For safety, set the API key in a private chat with me.")
	}
	if strings.TrimSpace(commandRemainder(msg.GetText())) != "" {
		// The key must not linger in the chat history.
		s.deleteMessage(b, msg)
	}
	return s.command(b, ctx)
}

func (s *Service) provider(b *gotgbot.Bot, ctx *ext.Context) error {
	msg := ctx.EffectiveMessage
	if msg == nil || ctx.EffectiveChat == nil {
		return nil
	}
	if strings.TrimSpace(commandRemainder(msg.GetText())) == "" {
		cfg := s.state(context.Background(), ctx.EffectiveChat.Id).store.Current()
		return s.replyWithMarkup(ctx, b, "Choose an AI provider:", providerKeyboard(cfg))
	}
	return s.command(b, ctx)
}

func (s *Service) model(b *gotgbot.Bot, ctx *ext.Context) error {
	msg := ctx.EffectiveMessage
	if msg == nil || ctx.EffectiveChat == nil {
		return nil
	}
	if strings.TrimSpace(commandRemainder(msg.GetText())) == "" {
		cfg := s.state(context.Background(), ctx.EffectiveChat.Id).store.Current()
		return s.replyWithMarkup(ctx, b, "Choose a model:", modelKeyboard(cfg))
	}
	return s.command(b, ctx)
}

// command runs a slash command through the shared command set.
func (s *Service) command(b *gotgbot.Bot, ctx *ext.Context) error {
	msg := ctx.EffectiveMessage
	if msg == nil || ctx.EffectiveChat == nil {
		return nil
	}
	st := s.state(context.Background(), ctx.EffectiveChat.Id)
	reply, err := commands.Run(context.Background(), st.store, st.session, msg.GetText())
	if err != nil {
		return nil
	}
	return s.reply(ctx, b, reply)
}

func (s *Service) chatText(b *gotgbot.Bot, ctx *ext.Context) error {
	msg := ctx.EffectiveMessage
	if msg == nil || ctx.EffectiveChat == nil {
		return nil
	}
	chatID := ctx.EffectiveChat.Id
	st := s.state(context.Background(), chatID)
	if strings.TrimSpace(msg.GetText()) == "" {
		return nil
	}

	if _, err := b.SendChatAction(chatID, "typing", nil); err != nil {
		s.logger.Debug().Err(err).Int64("chat_id", chatID).Msg("typing indicator failed")
	}

	answer, err := st.session.Send(context.Background(), msg.GetText())
	switch {
	case errors.Is(err, session.ErrMissingCredential):
		return s.reply(ctx, b, session.MissingCredentialMessage+". Send /key <api key> in a private chat with me.")
	case errors.Is(err, session.ErrBusy):
		return s.reply(ctx, b, "Please wait for my previous reply.")
	case err != nil:
		s.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("exchange failed")
		return s.reply(ctx, b, "Error: "+st.session.LastError())
	case answer == nil:
		return nil
	}
	return s.reply(ctx, b, answer.Content)
}

func (s *Service) reply(ctx *ext.Context, b *gotgbot.Bot, text string) error {
	if ctx.EffectiveChat == nil {
		return nil
	}
	_, err := b.SendMessage(ctx.EffectiveChat.Id, text, nil)
	return err
}

func (s *Service) deleteMessage(b *gotgbot.Bot, msg *gotgbot.Message) {
	if _, err := b.DeleteMessage(msg.Chat.Id, msg.MessageId, nil); err != nil {
		s.logger.Warn().Err(err).Int64("chat_id", msg.Chat.Id).Msg("failed to delete message")
	}
}

func commandRemainder(text string) string {
	parts := strings.SplitN(strings.TrimSpace(text), " ", 2)
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}
