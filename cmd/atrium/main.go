package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/atrium-id/atrium/internal/account"
	"github.com/atrium-id/atrium/internal/app"
	"github.com/atrium-id/atrium/internal/auth"
	"github.com/atrium-id/atrium/internal/email"
	"github.com/atrium-id/atrium/internal/mail"
	"github.com/atrium-id/atrium/internal/observability"
	"github.com/atrium-id/atrium/internal/platform/cache"
	"github.com/atrium-id/atrium/internal/platform/db"
	"github.com/atrium-id/atrium/internal/shared"
	"github.com/atrium-id/atrium/internal/view"
	"github.com/atrium-id/atrium/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	if err := db.Migrate(cfg.PGDSN); err != nil {
		logger.Error("run migrations", slog.Any("error", err))
		os.Exit(1)
	}

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "atrium_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	stash := shared.NewStash(redisClient, 10*time.Minute)
	auditLogger := shared.NewAuditLogger(dbpool)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	hasher := account.BcryptHasher{}
	accountRepo := account.NewRepository(dbpool)
	avatars := &account.DiskAvatarStore{Dir: cfg.AvatarDir}

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo, hasher)
	authHandler := auth.NewHandler(logger, authService, templates, sessionManager, csrfManager)
	gate := auth.NewGate(accountRepo)

	metrics := observability.NewMetrics()

	signupService := account.NewSignUpService(accountRepo, hasher, avatars, auditLogger, logger, account.SignUpConfig{
		LegacyCompat: cfg.SignupLegacyCompat,
	})
	accountHandler := account.NewHandler(account.HandlerParams{
		Logger:    logger,
		Service:   signupService,
		Repo:      accountRepo,
		Gate:      gate,
		Stash:     stash,
		Audit:     auditLogger,
		Templates: templates,
		CSRF:      csrfManager,
		Metrics:   metrics,
	})

	sender := mail.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom)
	sender.Timeout = cfg.SMTPTimeout

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	emailService := email.NewService(accountRepo, sender, jobClient, auditLogger, logger)
	emailHandler := email.NewHandler(logger, emailService, gate, metrics)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		Templates:      templates,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		AuthHandler:    authHandler,
		AccountHandler: accountHandler,
		EmailHandler:   emailHandler,
		JobHandler:     jobHandler,
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
