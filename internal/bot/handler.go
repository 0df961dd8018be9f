package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"quiz-bot/internal/menu"
	"quiz-bot/internal/quiz"
)

const (
	welcomeText = "Welcome to the Quiz Maker Bot! 👋\n\n" +
		"Use /create to build a quiz step by step, or /quiz <topic> to get an AI-generated one."
	helpText = `Available commands:
/create - Create a new quiz
/skip - Skip the description while creating
/finish - Finish adding questions
/cancel - Stop creating or answering a quiz
/menu <id> - Show a quiz menu
/share <id> - Get a link to a quiz
/myquizzes - List your quizzes
/stats <id> - Show answer statistics
/export <id> - Download answers as a spreadsheet
/quiz <topic> - Generate a quiz with AI
/help - Show this help`
	hintText = "Send /create to make a quiz or /help for the list of commands."
)

func (b *Bot) handleUnknownCommand(_ context.Context, msg *tgbotapi.Message) {
	b.sendError(msg.Chat.ID, "Unknown command. Use /help to see what I can do.")
}

func (b *Bot) handleHelp(_ context.Context, msg *tgbotapi.Message) {
	b.sendText(msg.Chat.ID, helpText)
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	if !b.allow(ctx, chatID, msg.From.ID, "start") {
		return
	}

	if quizID, ok := menu.ParseStartPayload(msg.CommandArguments()); ok {
		b.showMenu(ctx, chatID, quizID)
		return
	}
	b.sendText(chatID, welcomeText)
}

func (b *Bot) handleCreate(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	if !b.allow(ctx, chatID, msg.From.ID, "create") {
		return
	}

	reply, err := b.authoring.Begin(ctx, msg.From.ID)
	if err != nil {
		b.fail(chatID, "begin authoring", err)
		return
	}
	b.sendText(chatID, reply.Text)
}

// handleAuthoringText serves /skip and /finish, which are ordinary wizard input.
func (b *Bot) handleAuthoringText(ctx context.Context, msg *tgbotapi.Message) {
	b.advance(ctx, msg)
}

func (b *Bot) handleText(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	st, err := b.tracker.Load(ctx, msg.From.ID)
	if err != nil {
		b.fail(chatID, "load conversation", err)
		return
	}

	switch {
	case st.Active():
		b.advance(ctx, msg)
	case st.Take != nil:
		b.answerTake(ctx, msg, *st.Take)
	default:
		b.sendText(chatID, hintText)
	}
}

func (b *Bot) advance(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	reply, err := b.authoring.Advance(ctx, msg.From.ID, msg.Text)
	if errors.Is(err, quiz.ErrNotFound) {
		b.sendError(chatID, "The quiz you were building no longer exists. Use /cancel or /create to start over.")
		return
	}
	if err != nil {
		b.fail(chatID, "advance authoring", err)
		return
	}

	b.sendText(chatID, reply.Text)
	if reply.Finished {
		b.logger.Info("Quiz created",
			zap.Int64("user_id", msg.From.ID),
			zap.Int64("quiz_id", reply.QuizID))
		b.showMenu(ctx, chatID, reply.QuizID)
	}
}

func (b *Bot) handleCancel(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	quizID, err := b.authoring.Cancel(ctx, msg.From.ID)
	switch {
	case err == nil:
		text := "Quiz creation cancelled."
		if quizID != 0 {
			text += fmt.Sprintf(" Questions added so far are kept in quiz #%d.", quizID)
		}
		b.sendText(chatID, text)
		return
	case !errors.Is(err, quiz.ErrInvalidState):
		b.fail(chatID, "cancel authoring", err)
		return
	}

	st, err := b.tracker.Load(ctx, msg.From.ID)
	if err != nil {
		b.fail(chatID, "load conversation", err)
		return
	}
	if st.Take == nil {
		b.sendText(chatID, "Nothing to cancel.")
		return
	}
	if err := b.tracker.ClearTake(ctx, msg.From.ID); err != nil {
		b.fail(chatID, "clear take", err)
		return
	}
	b.sendText(chatID, "Quiz abandoned. Your answers so far were recorded.")
}

func (b *Bot) handleShare(ctx context.Context, msg *tgbotapi.Message) {
	quizID, err := parseQuizID(msg.CommandArguments())
	if err != nil {
		b.sendError(msg.Chat.ID, "Usage: /share <quiz id>")
		return
	}
	b.sendShareLink(ctx, msg.Chat.ID, quizID)
}

func (b *Bot) handleMenu(ctx context.Context, msg *tgbotapi.Message) {
	quizID, err := parseQuizID(msg.CommandArguments())
	if err != nil {
		b.sendError(msg.Chat.ID, "Usage: /menu <quiz id>")
		return
	}
	b.showMenu(ctx, msg.Chat.ID, quizID)
}

func (b *Bot) showMenu(ctx context.Context, chatID, quizID int64) {
	view, err := b.menu.Render(ctx, quizID)
	if err != nil {
		b.fail(chatID, "render menu", err)
		return
	}

	msg := tgbotapi.NewMessage(chatID, view.Text())
	msg.ReplyMarkup = menuKeyboard(view)
	b.sendMessage(msg)
}

func (b *Bot) sendShareLink(ctx context.Context, chatID, quizID int64) {
	q, err := b.store.Get(ctx, quizID)
	if err != nil {
		b.fail(chatID, "share quiz", err)
		return
	}
	b.sendText(chatID, fmt.Sprintf("🔗 Share this link to invite others to take \"%s\":\n%s",
		q.Title, b.menu.ShareLink(quizID)))
}

func (b *Bot) deleteQuiz(ctx context.Context, chatID int64, messageID int, quizID int64) {
	if err := b.menu.Delete(ctx, quizID); err != nil {
		if errors.Is(err, quiz.ErrNotFound) {
			b.sendError(chatID, "Quiz not found. It may have already been deleted.")
			return
		}
		b.fail(chatID, "delete quiz", err)
		return
	}

	b.logger.Info("Quiz deleted",
		zap.Int64("chat_id", chatID),
		zap.Int64("quiz_id", quizID))

	edit := tgbotapi.NewEditMessageText(chatID, messageID, fmt.Sprintf("🗑 Quiz #%d deleted.", quizID))
	if _, err := b.api.Send(edit); err != nil {
		b.logger.Warn("Failed to edit menu message",
			zap.Int("message_id", messageID),
			zap.Error(err))
		b.sendText(chatID, fmt.Sprintf("🗑 Quiz #%d deleted.", quizID))
	}
}

func (b *Bot) handleMyQuizzes(ctx context.Context, msg *tgbotapi.Message) {
	summaries, err := b.store.ListByCreator(ctx, msg.From.ID)
	if err != nil {
		b.fail(msg.Chat.ID, "list quizzes", err)
		return
	}
	b.sendText(msg.Chat.ID, FormatSummaries(summaries))
}

func (b *Bot) handleGenerate(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	if b.generator == nil {
		b.sendError(chatID, "AI quiz generation is not configured.")
		return
	}
	topic := strings.TrimSpace(msg.CommandArguments())
	if topic == "" {
		b.sendText(chatID, "Usage: /quiz <topic>")
		return
	}
	if !b.allow(ctx, chatID, msg.From.ID, "quiz") {
		return
	}

	if b.images != nil {
		url, ok, err := b.images.FetchImage(ctx, topic)
		switch {
		case err != nil:
			b.logger.Warn("Failed to fetch image",
				zap.String("topic", topic),
				zap.Error(err))
		case ok:
			photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(url))
			photo.Caption = topic
			if _, err := b.api.Send(photo); err != nil {
				b.logger.Error("Failed to send photo",
					zap.Int64("chat_id", chatID),
					zap.Error(err))
			}
		}
	}

	text, err := b.generator.GenerateQuestions(ctx, topic)
	if err != nil {
		b.logger.Error("Failed to generate quiz",
			zap.Int64("chat_id", chatID),
			zap.String("topic", topic),
			zap.Error(err))
		b.sendError(chatID, "Could not generate a quiz right now. Please try again later.")
		return
	}
	b.sendText(chatID, fmt.Sprintf("Here is your AI-generated quiz on %s:\n%s", topic, text))
}
