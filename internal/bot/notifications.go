package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"quiz-bot/internal/quiz"
)

// notifyCreator tells a quiz author that someone completed their quiz.
func (b *Bot) notifyCreator(q quiz.Quiz, taker *tgbotapi.User, correct, total int) {
	if q.CreatorID == 0 || q.CreatorID == taker.ID {
		return
	}

	text := fmt.Sprintf("📬 %s finished your quiz \"%s\" with %d/%d correct answers.",
		displayName(taker), q.Title, correct, total)

	if _, err := b.api.Send(tgbotapi.NewMessage(q.CreatorID, text)); err != nil {
		b.logger.Warn("Failed to notify quiz creator",
			zap.Int64("creator_id", q.CreatorID),
			zap.Int64("quiz_id", q.ID),
			zap.Error(err))
	}
}
