package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"quiz-bot/internal/bot"
	"quiz-bot/internal/config"
	"quiz-bot/internal/conversation"
	"quiz-bot/internal/quiz"
	"quiz-bot/internal/ratelimit"
	"quiz-bot/internal/server"
	"quiz-bot/internal/storage"
	"quiz-bot/internal/storage/memory"
	redisstore "quiz-bot/internal/storage/redis"
	"quiz-bot/pkg/ai"
	"quiz-bot/pkg/logger"
	"quiz-bot/pkg/pexels"
	"quiz-bot/pkg/redis"
)

// ENTRY POINT

type quizStore interface {
	quiz.Store
	quiz.ResponseStore
}

func main() {
	rollback := flag.Bool("rollback", false, "roll back the latest database migration and exit")
	envFile := flag.String("env", ".env", "optional dotenv file")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	zapLogger, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = zapLogger.Sync() }()

	ctx, cancel := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	if *rollback {
		if err := rollbackLatest(ctx, cfg, zapLogger); err != nil {
			zapLogger.Fatal("Rollback failed", zap.Error(err))
		}
		return
	}

	if err := run(ctx, cfg, zapLogger); err != nil {
		zapLogger.Fatal("Bot stopped with error", zap.Error(err))
	}

	zapLogger.Info("Bot shutdown gracefully")
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	backend, limiter, closeRedis, err := openState(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeRedis()

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return fmt.Errorf("failed to create bot API: %w", err)
	}
	log.Info("Bot authorized",
		zap.String("username", api.Self.UserName),
		zap.Int64("id", api.Self.ID),
		zap.String("token", logger.MaskToken(cfg.TelegramToken)))

	baseURL := cfg.BotBaseURL
	if baseURL == "" {
		baseURL = "https://t.me/" + api.Self.UserName
	}

	opts := bot.Options{
		Store:     store,
		Responses: store,
		Tracker:   conversation.NewTracker(backend),
		Limiter:   limiter,
		BaseURL:   baseURL,
		Workers:   cfg.Workers,
	}
	if cfg.AIEnabled() {
		opts.Generator = ai.NewClient(cfg.AIBaseURL, cfg.GeminiKey, cfg.AIModel, cfg.HTTPRequestTimeout, log)
	}
	if cfg.PexelsKey != "" {
		opts.Images = pexels.NewClient(pexels.DefaultBaseURL, cfg.PexelsKey, cfg.HTTPRequestTimeout, log)
	}

	tgBot, err := bot.New(api, opts, log)
	if err != nil {
		return fmt.Errorf("failed to create bot: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return tgBot.Serve(ctx) })
	g.Go(func() error { return server.New(cfg.TelegramToken, tgBot, log).Run(ctx, cfg.HTTPAddr) })

	if cfg.WebhookURL != "" {
		wh, err := tgbotapi.NewWebhook(strings.TrimRight(cfg.WebhookURL, "/") + server.WebhookPath(cfg.TelegramToken))
		if err != nil {
			return fmt.Errorf("invalid webhook url: %w", err)
		}
		if _, err := api.Request(wh); err != nil {
			return fmt.Errorf("failed to set webhook: %w", err)
		}
		log.Info("Webhook registered", zap.String("url", cfg.WebhookURL))
	} else {
		if _, err := api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
			log.Warn("Failed to delete webhook", zap.Error(err))
		}
		u := tgbotapi.NewUpdate(0)
		u.Timeout = 60
		updates := api.GetUpdatesChan(u)
		g.Go(func() error {
			defer api.StopReceivingUpdates()
			return tgBot.Poll(ctx, updates)
		})
	}

	return g.Wait()
}

func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (quizStore, func(), error) {
	if cfg.StorageDriver == config.StorageMemory {
		log.Warn("Using in-memory storage, quizzes are lost on restart")
		return memory.New(), func() {}, nil
	}

	sqlStorage, err := storage.NewSQLStorage(ctx, sqlConfig(cfg), log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to init %s storage: %w", cfg.StorageDriver, err)
	}
	return sqlStorage, func() {
		if err := sqlStorage.Close(); err != nil {
			log.Warn("Failed to close database", zap.Error(err))
		}
	}, nil
}

func openState(ctx context.Context, cfg *config.Config, log *zap.Logger) (conversation.Backend, ratelimit.Limiter, func(), error) {
	if cfg.RedisAddr == "" {
		log.Info("REDIS_ADDR not set, keeping conversations in memory")
		return conversation.NewMemoryBackend(), newMemoryLimiter(cfg), func() {}, nil
	}

	client := redis.New(redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		TTL:      cfg.RedisTTL,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx); err != nil {
		client.Close()
		return nil, nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	var limiter ratelimit.Limiter = ratelimit.Unlimited{}
	if cfg.RateLimit > 0 {
		limiter = redisstore.NewRateLimiter(client, int64(cfg.RateLimit), cfg.RateLimitWindow)
	}
	return redisstore.NewDialogStorage(client), limiter, client.Close, nil
}

func newMemoryLimiter(cfg *config.Config) ratelimit.Limiter {
	if cfg.RateLimit == 0 {
		return ratelimit.Unlimited{}
	}
	return ratelimit.NewMemory(int64(cfg.RateLimit), cfg.RateLimitWindow)
}

func sqlConfig(cfg *config.Config) storage.Config {
	return storage.Config{
		Driver:          storage.Driver(cfg.StorageDriver),
		Host:            cfg.DBHost,
		Port:            cfg.DBPort,
		User:            cfg.DBUser,
		Password:        cfg.DBPassword,
		DBName:          cfg.DBName,
		SQLitePath:      cfg.SQLitePath,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	}
}

func rollbackLatest(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	if cfg.StorageDriver == config.StorageMemory {
		return fmt.Errorf("nothing to roll back for %s storage", cfg.StorageDriver)
	}
	s, err := storage.NewSQLStorage(ctx, sqlConfig(cfg), log)
	if err != nil {
		return err
	}
	defer s.Close()
	return s.Rollback(ctx)
}
