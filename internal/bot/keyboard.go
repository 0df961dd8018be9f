package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"quiz-bot/internal/menu"
)

// QUIZ MENU KEYBOARD

func menuKeyboard(view menu.View) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for i := 0; i < len(view.Buttons); i += 2 {
		end := i + 2
		if end > len(view.Buttons) {
			end = len(view.Buttons)
		}
		var row []tgbotapi.InlineKeyboardButton
		for _, btn := range view.Buttons[i:end] {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(btn.Label, btn.Data))
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(row...))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
