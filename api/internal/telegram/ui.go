package telegram

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const enginePrefix = "engine:"

// Кнопки выбора движка, по три в ряд
func makeEngineKeyboard(names []string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, n := range names {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(n, enginePrefix+n))
		if len(row) == 3 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (r *Router) handleCallback(cb tgbotapi.CallbackQuery) {
	// убираем "часики" на кнопке
	_, _ = r.Bot.Request(tgbotapi.NewCallback(cb.ID, ""))
	if cb.Message == nil {
		return
	}
	cid := cb.Message.Chat.ID
	name, ok := strings.CutPrefix(cb.Data, enginePrefix)
	if !ok {
		return
	}
	if err := r.switchEngine(cid, name); err != nil {
		r.send(cid, "❌ "+err.Error())
		return
	}
	r.send(cid, "✅ Engine: "+r.currentEngine(cid))
}
