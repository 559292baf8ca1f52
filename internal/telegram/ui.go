package telegram

import (
	"strings"

	"github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"

	"supportchat/internal/chatconfig"
)

const (
	cbPrefix = "sc:"

	cbProvider = cbPrefix + "provider:"
	cbModel    = cbPrefix + "model:"
	cbConfig   = cbPrefix + "config"
)

func providerKeyboard(cfg chatconfig.Config) *gotgbot.InlineKeyboardMarkup {
	row := make([]gotgbot.InlineKeyboardButton, 0, 2)
	for _, p := range []chatconfig.Provider{chatconfig.ProviderOpenAI, chatconfig.ProviderAnthropic} {
		row = append(row, gotgbot.InlineKeyboardButton{
			Text:         selectedLabel(p.DisplayName(), p == cfg.Provider),
			CallbackData: cbProvider + string(p),
		})
	}
	return &gotgbot.InlineKeyboardMarkup{InlineKeyboard: [][]gotgbot.InlineKeyboardButton{
		row,
		{{Text: "Choose model", CallbackData: cbModel}, {Text: "Settings", CallbackData: cbConfig}},
	}}
}

// modelKeyboard offers one button per model of the selected provider.
func modelKeyboard(cfg chatconfig.Config) *gotgbot.InlineKeyboardMarkup {
	var rows [][]gotgbot.InlineKeyboardButton
	for _, m := range chatconfig.ModelsFor(cfg.Provider) {
		rows = append(rows, []gotgbot.InlineKeyboardButton{{
			Text:         selectedLabel(m.Label, m.Value == cfg.Model),
			CallbackData: cbModel + m.Value,
		}})
	}
	return &gotgbot.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func selectedLabel(label string, selected bool) string {
	if selected {
		return "* " + label
	}
	return label
}

// parseCallback splits "sc:model:gpt-4" into ("model", "gpt-4").
func parseCallback(data string) (action string, value string) {
	rest := strings.TrimPrefix(strings.TrimSpace(data), cbPrefix)
	action, value, _ = strings.Cut(rest, ":")
	return action, value
}

func (s *Service) replyWithMarkup(ctx *ext.Context, b *gotgbot.Bot, text string, markup *gotgbot.InlineKeyboardMarkup) error {
	if ctx == nil || ctx.EffectiveChat == nil {
		return nil
	}
	opts := &gotgbot.SendMessageOpts{}
	if markup != nil {
		opts.ReplyMarkup = *markup
	}
	_, err := b.SendMessage(ctx.EffectiveChat.Id, text, opts)
	return err
}
