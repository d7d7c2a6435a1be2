package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Ezrah1/orlando/internal/app"
	"github.com/Ezrah1/orlando/internal/audit"
	audithttp "github.com/Ezrah1/orlando/internal/audit/http"
	"github.com/Ezrah1/orlando/internal/auth"
	"github.com/Ezrah1/orlando/internal/observability"
	"github.com/Ezrah1/orlando/internal/platform/cache"
	"github.com/Ezrah1/orlando/internal/platform/db"
	"github.com/Ezrah1/orlando/internal/rbac"
	"github.com/Ezrah1/orlando/internal/roles"
	"github.com/Ezrah1/orlando/internal/shared"
	"github.com/Ezrah1/orlando/internal/users"
)

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

	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	metrics := observability.NewMetrics()

	auditRepo := audit.NewRepository(dbpool)
	auditService := audit.NewService(auditRepo, logger)

	hierarchy := rbac.DefaultHierarchy()
	grantStorage := rbac.NewPGStorage(dbpool)
	grantCache := rbac.NewGrantCache(redisClient, cfg.GrantCacheTTL)
	grantStore := rbac.NewStore(grantStorage, grantCache, hierarchy, logger)
	resolver := rbac.NewResolver(grantStore, logger,
		rbac.WithAuditor(audit.NewResolverAuditor(auditService)),
		rbac.WithMetrics(metrics),
		rbac.WithDecisionAudit(cfg.AuditDecisions),
	)
	rbacMiddleware := rbac.Middleware{Resolver: resolver, Logger: logger}

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo, auditService, logger, auth.Config{
		MaxLoginAttempts: cfg.MaxLoginAttempts,
		LockoutWindow:    cfg.LockoutWindow,
		SessionTimeout:   cfg.SessionTimeout,
	})
	authService.SetMetrics(metrics)
	guard := auth.NewGuard(authRepo, auditService, logger, cfg.SessionTimeout)
	guard.SetMetrics(metrics)
	sessionMiddleware := auth.Middleware{Guard: guard, Secure: cfg.IsProduction()}
	authHandler := auth.NewHandler(logger, authService, csrfManager, cfg.IsProduction())

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo, grantStorage, grantStore, hierarchy)
	usersHandler := users.NewHandler(logger, usersService, rbacMiddleware)

	rolesService := roles.NewService(grantStorage, grantStore, hierarchy)
	rolesHandler := roles.NewHandler(logger, rolesService, rbacMiddleware)

	permissionsHandler := rbac.NewHandler(logger, resolver)
	auditHandler := audithttp.NewHandler(logger, auditService, rbacMiddleware)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		CSRFManager:        csrfManager,
		SessionMiddleware:  sessionMiddleware,
		AuthHandler:        authHandler,
		UsersHandler:       usersHandler,
		RolesHandler:       rolesHandler,
		PermissionsHandler: permissionsHandler,
		AuditHandler:       auditHandler,
		Pool:               dbpool,
		Metrics:            metrics,
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
