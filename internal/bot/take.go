package bot

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"quiz-bot/internal/conversation"
	"quiz-bot/internal/grading"
	"quiz-bot/internal/quiz"
)

func (b *Bot) startTake(ctx context.Context, chatID, userID, quizID int64) {
	st, err := b.tracker.Load(ctx, userID)
	if err != nil {
		b.fail(chatID, "load conversation", err)
		return
	}
	if st.Active() {
		b.sendError(chatID, "Finish the quiz you are creating with /finish, or /cancel it, before taking a quiz.")
		return
	}

	first, total, err := b.menu.Question(ctx, quizID, 0)
	if err != nil {
		b.fail(chatID, "start quiz", err)
		return
	}
	if err := b.tracker.SetTake(ctx, userID, conversation.Take{QuizID: quizID}); err != nil {
		b.fail(chatID, "start quiz", err)
		return
	}
	b.sendText(chatID, FormatQuestion(0, total, first))
}

// answerTake grades text against the current question and moves the take on.
// Progress is saved before the response is recorded, and a failed record
// restores the previous take, so a failed answer can be resent without
// logging it twice.
func (b *Bot) answerTake(ctx context.Context, msg *tgbotapi.Message, take conversation.Take) {
	chatID, userID := msg.Chat.ID, msg.From.ID

	verdict, err := b.grader.Check(ctx, take.QuizID, take.Index, msg.Text)
	if errors.Is(err, quiz.ErrNotFound) {
		b.dropTake(ctx, userID)
		b.sendError(chatID, "Quiz not found. It may have been deleted.")
		return
	}
	if err != nil {
		b.fail(chatID, "grade answer", err)
		return
	}

	prev := take
	take.Answered++
	if verdict.Correct {
		take.Correct++
	}
	take.Index++

	next, total, err := b.menu.Question(ctx, take.QuizID, take.Index)
	finished := errors.Is(err, quiz.ErrNotFound) && total > 0
	if err != nil && !finished {
		b.dropTake(ctx, userID)
		b.fail(chatID, "load next question", err)
		return
	}

	if finished {
		err = b.tracker.ClearTake(ctx, userID)
	} else {
		err = b.tracker.SetTake(ctx, userID, take)
	}
	if err != nil {
		b.fail(chatID, "save progress", err)
		return
	}

	if err := b.grader.Record(ctx, userID, take.QuizID, prev.Index, verdict); err != nil {
		if rerr := b.tracker.SetTake(ctx, userID, prev); rerr != nil {
			b.logger.Error("Failed to restore take",
				zap.Int64("user_id", userID),
				zap.Int64("quiz_id", prev.QuizID),
				zap.Error(rerr))
		}
		b.fail(chatID, "record answer", err)
		return
	}

	b.sendText(chatID, FormatVerdict(verdict))
	if finished {
		b.finishTake(ctx, msg, take, total)
		return
	}
	b.sendText(chatID, FormatQuestion(take.Index, total, next))
}

func (b *Bot) finishTake(ctx context.Context, msg *tgbotapi.Message, take conversation.Take, total int) {
	b.sendText(msg.Chat.ID, fmt.Sprintf("🏁 Quiz finished! You answered %d of %d correctly.", take.Correct, total))

	q, err := b.store.Get(ctx, take.QuizID)
	if err != nil {
		b.logger.Warn("Failed to load quiz for creator notification",
			zap.Int64("quiz_id", take.QuizID),
			zap.Error(err))
		return
	}
	b.notifyCreator(q, msg.From, take.Correct, total)
}

func (b *Bot) dropTake(ctx context.Context, userID int64) {
	if err := b.tracker.ClearTake(ctx, userID); err != nil {
		b.logger.Error("Failed to clear take",
			zap.Int64("user_id", userID),
			zap.Error(err))
	}
}

func FormatQuestion(index, total int, q quiz.Question) string {
	return fmt.Sprintf("❓ Question %d/%d:\n%s", index+1, total, q.Prompt)
}

func FormatVerdict(v grading.Verdict) string {
	switch {
	case v.Correct:
		return "✅ Correct!"
	case v.Expected == "":
		return "❌ Incorrect. This question has no stored answer."
	default:
		return fmt.Sprintf("❌ Incorrect. The expected answer was: %s", v.Expected)
	}
}
