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

	"github.com/scholaris-oas/scholaris/internal/app"
	"github.com/scholaris-oas/scholaris/internal/auth"
	"github.com/scholaris-oas/scholaris/internal/observability"
	"github.com/scholaris-oas/scholaris/internal/platform/cache"
	"github.com/scholaris-oas/scholaris/internal/platform/db"
	"github.com/scholaris-oas/scholaris/internal/rbac"
	"github.com/scholaris-oas/scholaris/internal/shared"
	"github.com/scholaris-oas/scholaris/internal/users"
	"github.com/scholaris-oas/scholaris/jobs"
)

// roleDirectory adapts the rbac registry to the auth module's view of roles.
type roleDirectory struct {
	svc *rbac.Service
}

func (d roleDirectory) RoleByID(ctx context.Context, id int64) (auth.RoleRef, error) {
	role, err := d.svc.GetRole(ctx, id)
	if err != nil {
		return auth.RoleRef{}, err
	}
	return auth.RoleRef{ID: role.ID, Name: role.Name}, nil
}

func (d roleDirectory) RoleByName(ctx context.Context, name string) (auth.RoleRef, error) {
	role, err := d.svc.RoleByName(ctx, name)
	if err != nil {
		return auth.RoleRef{}, err
	}
	return auth.RoleRef{ID: role.ID, Name: role.Name}, nil
}

// mailQueue adapts the jobs client to the verification flow.
type mailQueue struct {
	client *jobs.Client
}

func (q mailQueue) EnqueueSendEmail(ctx context.Context, to, subject, body string) error {
	_, err := q.client.EnqueueSendEmail(ctx, jobs.SendEmailPayload{To: to, Subject: subject, Body: body})
	return err
}

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

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

	rbacService := rbac.NewService(dbpool)
	if err := rbacService.Bootstrap(ctx, rbac.BootstrapConfig{
		AdminIDNumber: cfg.AdminIDNumber,
		AdminPassword: cfg.AdminPassword,
	}, logger); err != nil {
		logger.Error("bootstrap roles and permissions", slog.Any("error", err))
		os.Exit(1)
	}
	guard := rbac.Middleware{Subjects: rbacService, Logger: logger}

	mailClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := mailClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(dbpool)

	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.SessionTTL, cfg.RememberTTL)
	blacklist := auth.NewBlacklist(redisClient)
	authn := auth.Middleware{Issuer: issuer, Blacklist: blacklist, Logger: logger}

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo, roleDirectory{svc: rbacService})
	verification := auth.NewVerificationService(authRepo, mailQueue{client: mailClient}, auth.VerificationConfig{
		ClientURL: cfg.ClientURL,
	}, logger)
	authHandler := auth.NewHandler(logger, authService, verification, issuer, blacklist, auditLogger, authn, cfg.IsProduction())

	rbacHandler := rbac.NewHandler(logger, rbacService, auditLogger, guard)

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo)
	usersHandler := users.NewHandler(logger, usersService, auditLogger, guard)

	metrics := observability.NewMetrics()

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
		AuthHandler:    authHandler,
		AuthMiddleware: authn,
		RBACHandler:    rbacHandler,
		UsersHandler:   usersHandler,
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
