package main

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ahmetcoskunkizilkaya/identity-service/internal/config"
	"github.com/ahmetcoskunkizilkaya/identity-service/internal/database"
	"github.com/ahmetcoskunkizilkaya/identity-service/internal/grpcapi"
	"github.com/ahmetcoskunkizilkaya/identity-service/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/identity-service/internal/logging"
	"github.com/ahmetcoskunkizilkaya/identity-service/internal/maintenance"
	"github.com/ahmetcoskunkizilkaya/identity-service/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/identity-service/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/identity-service/internal/routes"
	"github.com/ahmetcoskunkizilkaya/identity-service/internal/services"
	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:          "identity-service",
		Short:        "Account registration, login and token service",
		SilenceUsage: true,
		RunE:         runServe,
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP and gRPC servers",
			RunE:  runServe,
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Create or update the database tables",
			RunE:  runMigrate,
		},
		&cobra.Command{
			Use:   "sweep",
			Short: "Delete expired refresh tokens and old system logs once",
			RunE:  runSweep,
		},
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logging.Setup(cfg.SlogLevel())
	return cfg, nil
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Setup(cfg.SlogLevel())

	db, err := database.Connect(cfg)
	if err != nil {
		return err
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	slog.Info("migration complete")
	return nil
}

func runSweep(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStores(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	tokens := services.NewTokenManager(cfg.Auth(), st.tokens, st.accounts)
	tokensDeleted, logsDeleted, err := maintenance.NewSweeper(tokens, st.logPurger(), 0, cfg.LogRetention).RunOnce(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "tokens_deleted=%d logs_deleted=%d\n", tokensDeleted, logsDeleted)
	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if st.db != nil {
		if err := database.Migrate(st.db); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		// ERROR+ records are also persisted to system_logs.
		st.dbLog = logging.NewDBHandler(st.logs)
		logging.Setup(cfg.SlogLevel(), st.dbLog)
	}

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	authService := services.NewAuthService(cfg.Auth(), st.accounts, st.tokens, newGateway(ctx, cfg))

	sweeper := maintenance.NewSweeper(authService.Tokens(), st.logPurger(), cfg.SweepInterval, cfg.LogRetention)
	sweeper.Start(ctx)

	app := fiber.New(fiber.Config{
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: handlers.ErrorHandler,
	})
	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.CORS(cfg.CORSOrigins))
	app.Use(middleware.SecurityHeaders())
	app.Use(middleware.Metrics())

	routes.Setup(app, routes.Options{
		Auth:         cfg.Auth(),
		IsAdminEmail: cfg.IsAdminEmail,
		RateLimit:    true,
	}, routes.Handlers{
		Auth:   handlers.NewAuthHandler(authService),
		Health: handlers.NewHealthHandler(st.ping(), cfg.TokenStore),
		Admin:  handlers.NewAdminHandler(authService, sweeper),
	})

	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("listen on grpc port %s: %w", cfg.GRPCPort, err)
	}
	grpcServer := grpcapi.NewServer(authService)
	grpcDone := make(chan error, 1)
	go func() {
		grpcDone <- grpcServer.Serve(ctx, lis)
	}()

	httpDone := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.Port, "token_store", cfg.TokenStore)
		httpDone <- app.Listen(":" + cfg.Port)
	}()

	select {
	case <-ctx.Done():
	case err := <-httpDone:
		stop()
		slog.Error("server failed to start", "error", err)
	case err := <-grpcDone:
		stop()
		if err != nil {
			slog.Error("grpc server failed", "error", err)
		}
	}

	slog.Info("shutting down server...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	grpcServer.Stop()

	if st.dbLog != nil {
		st.dbLog.Stop()
	}
	sentry.Flush(2 * time.Second)

	slog.Info("server stopped")
	return nil
}
