package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"quiz-bot/internal/authoring"
	"quiz-bot/internal/conversation"
	"quiz-bot/internal/grading"
	"quiz-bot/internal/menu"
	"quiz-bot/internal/quiz"
	"quiz-bot/internal/ratelimit"
)

// Sender is the part of *tgbotapi.BotAPI the bot talks through.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// QuestionGenerator produces quiz text for a topic.
type QuestionGenerator interface {
	GenerateQuestions(ctx context.Context, topic string) (string, error)
}

// ImageFinder looks up an illustration for a keyword.
type ImageFinder interface {
	FetchImage(ctx context.Context, keyword string) (string, bool, error)
}

type Options struct {
	Store     quiz.Store
	Responses quiz.ResponseStore
	Tracker   *conversation.Tracker
	Limiter   ratelimit.Limiter
	Generator QuestionGenerator
	Images    ImageFinder
	BaseURL   string
	Workers   int
}

type Bot struct {
	api       Sender
	logger    *zap.Logger
	store     quiz.Store
	responses quiz.ResponseStore
	tracker   *conversation.Tracker
	authoring *authoring.Flow
	grader    *grading.Grader
	menu      *menu.Menu
	limiter   ratelimit.Limiter
	generator QuestionGenerator
	images    ImageFinder
	dispatch  *dispatcher
	commands  map[string]func(context.Context, *tgbotapi.Message)
}

func New(api Sender, opts Options, logger *zap.Logger) (*Bot, error) {
	if opts.Store == nil || opts.Responses == nil || opts.Tracker == nil {
		return nil, errors.New("bot: store, responses and tracker are required")
	}
	if opts.BaseURL == "" {
		return nil, errors.New("bot: base url is required")
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.Unlimited{}
	}

	b := &Bot{
		api:       api,
		logger:    logger,
		store:     opts.Store,
		responses: opts.Responses,
		tracker:   opts.Tracker,
		authoring: authoring.New(opts.Tracker, opts.Store),
		grader:    grading.New(opts.Store, opts.Responses),
		menu:      menu.New(opts.Store, opts.BaseURL),
		limiter:   opts.Limiter,
		generator: opts.Generator,
		images:    opts.Images,
	}
	b.dispatch = newDispatcher(opts.Workers, b.processUpdate)
	b.registerHandlers()
	return b, nil
}

func (b *Bot) registerHandlers() {
	b.commands = map[string]func(context.Context, *tgbotapi.Message){
		"start":     b.handleStart,
		"help":      b.handleHelp,
		"create":    b.handleCreate,
		"skip":      b.handleAuthoringText,
		"finish":    b.handleAuthoringText,
		"cancel":    b.handleCancel,
		"share":     b.handleShare,
		"menu":      b.handleMenu,
		"myquizzes": b.handleMyQuizzes,
		"stats":     b.handleStats,
		"export":    b.handleExport,
		"quiz":      b.handleGenerate,
	}
}

// Serve runs the update workers until ctx is cancelled.
func (b *Bot) Serve(ctx context.Context) error {
	b.logger.Info("Starting update workers", zap.Int("workers", len(b.dispatch.queues)))
	return b.dispatch.run(ctx)
}

// Poll feeds updates from a long-polling channel into the workers.
func (b *Bot) Poll(ctx context.Context, updates <-chan tgbotapi.Update) error {
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Shutting down bot")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if err := b.HandleUpdate(ctx, update); err != nil {
				return nil
			}
		}
	}
}

// HandleUpdate queues an update behind earlier updates from the same user.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) error {
	return b.dispatch.submit(ctx, update)
}

func (b *Bot) processUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil:
		b.processMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		b.processCallback(ctx, update.CallbackQuery)
	}
}

func (b *Bot) processMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.Chat == nil {
		return
	}

	b.logger.Debug("Processing message",
		zap.Int64("chat_id", msg.Chat.ID),
		zap.String("text", msg.Text))

	if msg.IsCommand() {
		handler, ok := b.commands[strings.ToLower(msg.Command())]
		if !ok {
			b.handleUnknownCommand(ctx, msg)
			return
		}
		handler(ctx, msg)
		return
	}

	b.handleText(ctx, msg)
}

func (b *Bot) processCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil || cb.Message.Chat == nil || cb.From == nil {
		return
	}
	chatID := cb.Message.Chat.ID

	b.logger.Debug("Processing callback",
		zap.Int64("chat_id", chatID),
		zap.String("data", cb.Data))

	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.logger.Warn("Failed to answer callback",
			zap.String("callback_id", cb.ID),
			zap.Error(err))
	}

	action, quizID, err := menu.ParseCallback(cb.Data)
	if err != nil {
		b.logger.Warn("Unknown callback data",
			zap.Int64("chat_id", chatID),
			zap.String("data", cb.Data),
			zap.Error(err))
		b.sendError(chatID, "Unknown action.")
		return
	}

	switch action {
	case menu.ActionStart:
		b.startTake(ctx, chatID, cb.From.ID, quizID)
	case menu.ActionShare:
		b.sendShareLink(ctx, chatID, quizID)
	case menu.ActionDelete:
		b.deleteQuiz(ctx, chatID, cb.Message.MessageID, quizID)
	case menu.ActionClose:
		if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, cb.Message.MessageID)); err != nil {
			b.logger.Warn("Failed to delete message",
				zap.Int("message_id", cb.Message.MessageID),
				zap.Error(err))
		}
	}
}

// allow applies the per-user limit. A limiter failure lets the request through.
func (b *Bot) allow(ctx context.Context, chatID, userID int64, action string) bool {
	ok, err := b.limiter.Allow(ctx, userID, action)
	if err != nil {
		b.logger.Error("Rate limiter unavailable",
			zap.Int64("user_id", userID),
			zap.String("action", action),
			zap.Error(err))
		return true
	}
	if !ok {
		b.sendError(chatID, "Too many requests. Please wait a minute and try again.")
	}
	return ok
}

// fail reports err to the user. Storage failures are logged; user errors are
// explained.
func (b *Bot) fail(chatID int64, operation string, err error) {
	switch {
	case errors.Is(err, quiz.ErrNotFound):
		b.sendError(chatID, "Quiz not found. It may have been deleted.")
	case errors.Is(err, quiz.ErrInvalidState):
		b.sendError(chatID, "You are not creating a quiz right now. Use /create to start.")
	default:
		b.logger.Error(fmt.Sprintf("Failed to %s", operation),
			zap.Int64("chat_id", chatID),
			zap.Error(err))
		b.sendError(chatID, "Something went wrong, the action failed. Please try again.")
	}
}

func (b *Bot) sendMessage(msg tgbotapi.MessageConfig) {
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Int64("chat_id", msg.ChatID),
			zap.String("text", msg.Text),
			zap.Error(err))
	}
}

func (b *Bot) sendText(chatID int64, text string) {
	b.sendMessage(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) sendError(chatID int64, text string) {
	b.sendText(chatID, "❌ "+text)
}
