package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Spok95/learning-platform-bot/internal/app"
	"github.com/Spok95/learning-platform-bot/internal/config"
	"github.com/Spok95/learning-platform-bot/internal/db"
	"github.com/Spok95/learning-platform-bot/internal/events"
	"github.com/Spok95/learning-platform-bot/internal/httpapi"
	"github.com/Spok95/learning-platform-bot/internal/jobs"
	"github.com/Spok95/learning-platform-bot/internal/learning"
	"github.com/Spok95/learning-platform-bot/internal/logging"
	"github.com/Spok95/learning-platform-bot/internal/metrics"
	"github.com/Spok95/learning-platform-bot/internal/observability"
)

var version = "dev"

func main() {
	// Загрузка переменных окружения
	if err := godotenv.Load(); err != nil {
		log.Println("Не удалось загрузить .env файл, используем переменные окружения")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	lg, err := logging.Init(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer lg.Closer()
	logger := lg.Base

	flush, err := observability.InitSentry(cfg.SentryDSN, cfg.Env, version)
	if err != nil {
		logger.Warn("sentry init failed", zap.Error(err))
	}
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer func() { _ = database.Close() }()

	if err := db.Migrate(database); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}
	if cfg.Env == "dev" {
		if err := db.SeedDemo(ctx, database); err != nil {
			logger.Warn("seed demo", zap.Error(err))
		}
	}

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		logger.Fatal("telegram", zap.Error(err))
	}
	bot.Debug = cfg.Env == "dev"
	logger.Info("bot started", zap.String("username", bot.Self.UserName), zap.String("version", version))

	bus := events.NewBus()
	defer metrics.CountEvents(bus, events.TopicProgress, events.TopicSubscriptions)()

	svc := learning.New(database, bus, logger,
		learning.WithNotifier(app.NewTelegramNotifier(bot, database, cfg.AdminIDs, logger, cfg.Location)),
		learning.WithLocation(cfg.Location),
		learning.WithDefaultDevices(cfg.DefaultAllowedDevices),
	)

	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET is empty, /api/v1 rejects all tokens")
	}
	api := httpapi.New(svc, logger, httpapi.Options{
		JWTSecret:   cfg.JWTSecret,
		CORSOrigins: cfg.CORSOrigins,
		Location:    cfg.Location,
	})
	app.StartHTTP(ctx, cfg.HTTPAddr, app.NewRouter(database, api, cfg.CORSOrigins), logger)
	logger.Info("http listening", zap.String("addr", cfg.HTTPAddr))

	runner := jobs.New(ctx, logger, cfg.Location)
	if err := runner.Cron(cfg.ReminderCron, "expiry_reminders", jobs.ExpiryReminders(svc, bot, cfg.ReminderDays, cfg.Location)); err != nil {
		logger.Fatal("schedule reminders", zap.Error(err))
	}
	runner.Every(time.Minute, "db_ping", func(ctx context.Context) error {
		t0 := time.Now()
		if err := database.PingContext(ctx); err != nil {
			return err
		}
		metrics.ObserveDBPing(time.Since(t0))
		return nil
	})

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := bot.GetUpdatesChan(u)
	go func() {
		<-ctx.Done()
		bot.StopReceivingUpdates()
	}()

	app.NewDispatcher(bot, svc, logger, cfg.Location, cfg.AdminIDs).Run(ctx, updates)

	// даём HTTP-серверу закрыться
	time.Sleep(500 * time.Millisecond)
	logger.Info("stopped")
}
