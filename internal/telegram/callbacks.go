package telegram

import (
	"context"
	"fmt"
	"strings"

	"github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"

	"supportchat/internal/chatconfig"
	"supportchat/internal/commands"
)

func (s *Service) onCallback(b *gotgbot.Bot, ctx *ext.Context) error {
	if ctx == nil || ctx.CallbackQuery == nil {
		return nil
	}
	chatID, ok := s.callbackChatID(ctx)
	if !ok {
		s.answerCallback(b, ctx, "Chat is unavailable for this action.", true)
		return nil
	}
	st := s.state(context.Background(), chatID)
	action, value := parseCallback(ctx.CallbackQuery.Data)

	switch action {
	case "provider":
		p, err := chatconfig.ParseProvider(value)
		if err != nil {
			s.answerCallback(b, ctx, "Unknown provider.", true)
			return nil
		}
		cfg, err := st.store.SetProvider(context.Background(), p)
		if err != nil {
			s.answerCallback(b, ctx, "Provider changed but could not be saved.", true)
		} else {
			s.answerCallback(b, ctx, "Provider set to "+p.DisplayName(), false)
		}
		text := commands.Header(cfg)
		if !cfg.ModelConsistent() {
			text += "\nThe current model belongs to another provider. Choose one:"
			return s.editOrReplyCallback(ctx, b, text, modelKeyboard(cfg))
		}
		return s.editOrReplyCallback(ctx, b, text, providerKeyboard(cfg))

	case "model":
		cfg := st.store.Current()
		if value == "" {
			s.answerCallback(b, ctx, "", false)
			return s.editOrReplyCallback(ctx, b, "Choose a model:", modelKeyboard(cfg))
		}
		m, ok := chatconfig.LookupModel(value)
		if !ok || m.Provider != cfg.Provider {
			s.answerCallback(b, ctx, "Unknown model.", true)
			return nil
		}
		cfg, err := st.store.SetModel(context.Background(), m.Value)
		if err != nil {
			s.answerCallback(b, ctx, "Model changed but could not be saved.", true)
		} else {
			s.answerCallback(b, ctx, "Model set to "+m.Label, false)
		}
		return s.editOrReplyCallback(ctx, b, commands.Header(cfg)+"\n"+m.Description, providerKeyboard(cfg))

	case "config":
		s.answerCallback(b, ctx, "", false)
		return s.editOrReplyCallback(ctx, b, commands.Describe(st.store.Current()), providerKeyboard(st.store.Current()))

	default:
		s.answerCallback(b, ctx, fmt.Sprintf("Unknown action: %s", action), true)
		return nil
	}
}

func (s *Service) answerCallback(b *gotgbot.Bot, ctx *ext.Context, text string, alert bool) {
	if ctx == nil || ctx.CallbackQuery == nil {
		return
	}
	opts := &gotgbot.AnswerCallbackQueryOpts{ShowAlert: alert}
	if text != "" {
		opts.Text = text
	}
	_, _ = b.AnswerCallbackQuery(ctx.CallbackQuery.Id, opts)
}

func (s *Service) editOrReplyCallback(ctx *ext.Context, b *gotgbot.Bot, text string, markup *gotgbot.InlineKeyboardMarkup) error {
	if ctx != nil && ctx.CallbackQuery != nil && ctx.CallbackQuery.Message != nil {
		opts := &gotgbot.EditMessageTextOpts{}
		if markup != nil {
			opts.ReplyMarkup = *markup
		}
		_, _, err := ctx.CallbackQuery.Message.EditText(b, text, opts)
		if err == nil {
			return nil
		}
		if strings.Contains(strings.ToLower(err.Error()), "message is not modified") {
			return nil
		}
	}
	return s.replyWithMarkup(ctx, b, text, markup)
}

func (s *Service) callbackChatID(ctx *ext.Context) (int64, bool) {
	if ctx != nil && ctx.EffectiveChat != nil {
		return ctx.EffectiveChat.Id, true
	}
	if ctx != nil && ctx.CallbackQuery != nil && ctx.CallbackQuery.Message != nil {
		chat := ctx.CallbackQuery.Message.GetChat()
		return chat.Id, true
	}
	return 0, false
}
