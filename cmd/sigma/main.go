package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sigma/internal/account"
	"sigma/internal/api"
	"sigma/internal/audit"
	"sigma/internal/auth"
	"sigma/internal/config"
	"sigma/internal/daemon"
	"sigma/internal/database"
	"sigma/internal/mailer"
	"sigma/internal/repository"
	"sigma/internal/session"
	"sigma/internal/telemetry"
	"sigma/internal/token"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	cfg := config.NewConfig()
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{AddSource: true}))
	slog.SetDefault(logger)

	tel, err := telemetry.New(cfg.Telemetry)
	if err != nil {
		logger.Error("failed to initialize telemetry", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db := database.NewDatabase()
	if err := db.Connect(ctx, cfg.Database.ConnString()); err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		logger.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}
	logger.Info("database migration completed")

	repo := repository.NewPostgresRepository(&db)
	codec := token.NewCodec(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	resolver := auth.NewResolver(repo, codec, logger)
	auditor := audit.NewAuditor(logger, repo)
	mail := mailer.NewLogMailer(logger)
	authn := account.NewAuthenticator(logger, repo, codec, &auditor, mail, cfg.Auth.ResetTokenTTL)
	accounts := account.NewManager(logger, repo, &auditor)
	sessions := session.NewManager(repo, logger)

	handler := api.NewHandler(logger, repo, resolver, &authn, &accounts, sessions, cfg.Telemetry.ServiceVersion)

	app := fiber.New(fiber.Config{
		AppName:      cfg.Telemetry.ServiceName,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	})
	app.Use(recover.New())
	if tel.IsEnabled() {
		app.Use(telemetry.FiberMiddleware(cfg.Telemetry.ServiceName))
	}

	// Credential endpoints are rate limited by client IP.
	app.Use("/api/v1/auth", limiter.New(limiter.Config{
		Max:        10,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": fiber.Map{"status": "TOO_MANY_REQUESTS", "message": "Too many attempts. Please try again later."},
			})
		},
	}))

	api.RegisterRoutes(app, &handler, resolver, repo)

	daemons := daemon.NewDaemonManager(logger)
	daemons.Add("password-reset-cleanup", daemon.PasswordResetCleanupTask(repo, logger))
	daemons.Start(ctx)

	go func() {
		addr := cfg.Server.Host + ":" + cfg.Server.Port
		logger.Info("server listening", "addr", addr)
		if err := app.Listen(addr); err != nil {
			logger.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
	daemons.Wait()
	if err := tel.Shutdown(shutdownCtx); err != nil {
		logger.Error("telemetry shutdown failed", "error", err)
	}
}
