package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/mzansiprolife/platform/cmd/mainconfig"
	"github.com/mzansiprolife/platform/internal/analytics"
	"github.com/mzansiprolife/platform/internal/api/router"
	"github.com/mzansiprolife/platform/internal/audit"
	"github.com/mzansiprolife/platform/internal/chat"
	"github.com/mzansiprolife/platform/internal/comms"
	appconfig "github.com/mzansiprolife/platform/internal/config"
	"github.com/mzansiprolife/platform/internal/content"
	"github.com/mzansiprolife/platform/internal/conversation"
	"github.com/mzansiprolife/platform/internal/donations"
	"github.com/mzansiprolife/platform/internal/observability/metrics"
	"github.com/mzansiprolife/platform/internal/submissions"
	"github.com/mzansiprolife/platform/internal/users"
	"github.com/mzansiprolife/platform/internal/widget"
	"github.com/mzansiprolife/platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.NewWithFormat(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting mzansiprolife platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	// PostgreSQL: pgx pool for the repositories, plus a database/sql view of
	// the same pool for the stores that speak database/sql.
	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		var err error
		pool, err = pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to create database pool", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		if err := pool.Ping(ctx); err != nil {
			logger.Error("failed to ping database", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory repositories")
	}

	// Repositories
	var (
		submissionsRepo submissions.Repository
		donationsRepo   donations.Repository
		contentRepo     content.Repository
		usersRepo       users.Repository
	)
	if pool != nil {
		submissionsRepo = submissions.NewPostgresRepository(pool)
		donationsRepo = donations.NewPostgresRepository(pool)
		contentRepo = content.NewPostgresRepository(pool)
		usersRepo = users.NewPostgresRepository(pool)
	} else {
		submissionsRepo = submissions.NewInMemoryRepository()
		donationsRepo = donations.NewInMemoryRepository()
		contentRepo = content.NewInMemoryRepository()
		usersRepo = users.NewInMemoryRepository()
	}

	var transcriptStore *conversation.Store
	var auditService *audit.Service
	var commsLog *comms.LogStore
	var statsRepo *analytics.StatsRepository
	if pool != nil {
		sqlDB := stdlib.OpenDBFromPool(pool)
		transcriptStore = conversation.NewStore(sqlDB)
		auditService = audit.NewService(sqlDB)
		commsLog = comms.NewLogStore(sqlDB)
		statsRepo = analytics.NewStatsRepository(pool)
	}

	// Redis keeps recent transcripts hot for widget reconnects.
	var historyCache *conversation.HistoryCache
	if cfg.RedisAddr != "" {
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		redisClient := redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unavailable, widget reconnects will replay from the database", "error", err)
		} else {
			historyCache = conversation.NewHistoryCache(redisClient, nil)
			defer redisClient.Close()
		}
	}

	// Email delivery: SendGrid by default, SES when configured.
	var sender comms.EmailSender
	switch cfg.EmailProvider {
	case "ses":
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		sender = comms.NewSESSender(sesv2.NewFromConfig(awsCfg), comms.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
	default:
		sgSender := comms.NewSendGridSender(comms.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
		if sgSender != nil {
			sender = sgSender
		}
	}
	if sender == nil {
		logger.Warn("no email provider configured, notifications will be logged only")
	}

	dispatcher := comms.NewDispatcher(sender, commsLog, cfg.WorkerCount, 0, logger)
	dispatchCtx, stopDispatch := context.WithCancel(ctx)
	dispatcher.Start(dispatchCtx)
	notifier := comms.NewNotifier(dispatcher, cfg.OfficeEmail, logger)

	// Metrics
	chatMetrics := metrics.NewChatMetrics(nil)
	httpMetrics := metrics.NewHTTPMetrics(nil)

	// Handlers
	engineCfg := chat.Config{
		WhatsAppNumber:   cfg.WhatsAppNumber,
		QuestionnaireURL: cfg.QuestionnaireURL,
	}
	widgetHandler := widget.NewHandler(engineCfg, transcriptStore, cacheOrNil(historyCache), chatMetrics, widget.WidgetJS, logger)
	widgetHandler.SetTypingDelay(cfg.TypingDelay)

	submissionsHandler := submissions.NewHandler(submissionsRepo, logger)
	submissionsHandler.SetNotifier(notifier)
	submissionsHandler.SetAudit(auditService)
	donationsHandler := donations.NewHandler(donationsRepo, logger)
	donationsHandler.SetNotifier(notifier)
	donationsHandler.SetAudit(auditService)
	contentHandler := content.NewHandler(contentRepo, logger)
	contentHandler.SetAudit(auditService)

	userService := users.NewService(usersRepo, cfg.AdminJWTSecret, cfg.AdminTokenTTL)
	usersHandler := users.NewHandler(userService, usersRepo, logger)
	usersHandler.SetAudit(auditService)

	routerCfg := &router.Config{
		Logger:             logger,
		WidgetHandler:      widgetHandler,
		SubmissionsHandler: submissionsHandler,
		DonationsHandler:   donationsHandler,
		ContentHandler:     contentHandler,
		UsersHandler:       usersHandler,
		CommsHandler:       comms.NewHandler(dispatcher, commsLog, logger),
		AdminAuthSecret:    cfg.AdminJWTSecret,
		MetricsHandler:     promhttp.Handler(),
		HTTPMetrics:        httpMetrics,
		CORSAllowedOrigins: cfg.AllowedOrigins,
		RateLimitPerSec:    cfg.RateLimitPerSec,
		RateLimitBurst:     cfg.RateLimitBurst,
	}
	if pool != nil {
		routerCfg.AnalyticsHandler = analytics.NewHandler(statsRepo, logger)
		routerCfg.AuditHandler = audit.NewHandler(auditService, logger)
		routerCfg.ConversationHandler = conversation.NewHandler(transcriptStore, logger)
	}
	r := router.New(routerCfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	// Drain queued notifications before exiting.
	stopDispatch()
	dispatcher.Wait()

	logger.Info("server stopped")
}

// cacheOrNil avoids handing the widget a non-nil interface wrapping a nil
// cache pointer.
func cacheOrNil(c *conversation.HistoryCache) widget.HistoryCache {
	if c == nil {
		return nil
	}
	return c
}
