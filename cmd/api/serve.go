package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/repair-desk/internal/api/http"
	"github.com/spec-kit/repair-desk/internal/api/http/handlers"
	"github.com/spec-kit/repair-desk/internal/auth"
	"github.com/spec-kit/repair-desk/internal/config"
	"github.com/spec-kit/repair-desk/internal/events"
	"github.com/spec-kit/repair-desk/internal/messaging"
	"github.com/spec-kit/repair-desk/internal/observability"
	"github.com/spec-kit/repair-desk/internal/persistence"
	"github.com/spec-kit/repair-desk/internal/report"
	"github.com/spec-kit/repair-desk/internal/repository"
	"github.com/spec-kit/repair-desk/internal/repository/memory"
	"github.com/spec-kit/repair-desk/internal/service"
	"github.com/spec-kit/repair-desk/internal/storage"
	"github.com/spec-kit/repair-desk/internal/worker"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

type repositories struct {
	tickets   repository.TicketRepository
	engineers repository.EngineerRepository
	costs     repository.CostRepository
	staff     repository.StaffRepository
	history   repository.TicketHistoryRepository
}

func buildRepositories(pg *persistence.Postgres, logger *zap.Logger) repositories {
	if !pg.Enabled() {
		logger.Warn("POSTGRES_DSN not provided; using in-memory repositories")
		store := memory.NewStore()
		return repositories{
			tickets:   store.Tickets(),
			engineers: store.Engineers(),
			costs:     store.Costs(),
			staff:     store.Staff(),
			history:   store.History(),
		}
	}
	pool := pg.PoolHandle()
	return repositories{
		tickets:   repository.NewTicketRepository(pool),
		engineers: repository.NewEngineerRepository(pool),
		costs:     repository.NewCostRepository(pool),
		staff:     repository.NewStaffRepository(pool),
		history:   repository.NewTicketHistoryRepository(pool),
	}
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App.Env)
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("failed to connect postgres: %w", err)
	}
	defer pg.Close()

	if pg.Enabled() && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	files, err := storage.NewLocalStore(cfg.Storage.Dir, cfg.Storage.PublicBaseURL, int64(cfg.Storage.MaxUploadMB)<<20)
	if err != nil {
		return err
	}

	metrics := observability.NewMetrics("repair_desk")
	repos := buildRepositories(pg, logger)
	dispatcher := events.NewInMemoryDispatcher()

	var mailer messaging.Mailer
	if smtp := messaging.NewSMTPMailer(cfg.Notification); smtp != nil {
		mailer = smtp
	} else {
		logger.Info("SMTP_HOST not provided; customer emails disabled")
	}
	if mailer != nil {
		queue := worker.NewMailQueue(mailer, 64, 2, 30*time.Second, metrics, observability.Component(logger, "mail-queue"))
		queue.Start()
		defer queue.Stop()
		mailer = queue
	}
	service.NewNotificationService(dispatcher, mailer, observability.Component(logger, "notifications")).RegisterHandlers()

	authService := service.NewAuthService(cfg.Auth, repos.staff, observability.Component(logger, "auth"))
	if err := authService.EnsureAdmin(ctx, cfg.Auth.AdminName, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
		return fmt.Errorf("failed to bootstrap admin: %w", err)
	}

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:   repos.tickets,
		EngineerRepo: repos.engineers,
		CostRepo:     repos.costs,
		HistoryRepo:  repos.history,
		Files:        files,
		Printer:      report.NewPrinter(cfg.Report.Locale, cfg.Report.Currency, cfg.Report.Location()),
		Dispatcher:   dispatcher,
		Logger:       observability.Component(logger, "tickets"),
	})
	if !cfg.Twilio.Enabled() {
		logger.Warn("Twilio credentials not provided; WhatsApp sending disabled")
	}
	whatsappService := service.NewWhatsAppService(repos.tickets, messaging.NewTwilioClient(cfg.Twilio), cfg.Twilio, metrics, observability.Component(logger, "whatsapp"))
	engineerService := service.NewEngineerService(repos.engineers, cfg.Report.DefaultCommissionRate)
	costService := service.NewCostService(repos.tickets, repos.costs, repos.history, observability.Component(logger, "costs"))
	reportService := service.NewReportService(repos.tickets, cfg.Report)

	app := httptransport.NewApp(cfg.App, logger, metrics)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, files.Dir()),
		Auth:           handlers.NewAuthHandler(authService, repos.staff),
		Tickets:        handlers.NewTicketsHandler(ticketService, whatsappService),
		Engineers:      handlers.NewEngineersHandler(engineerService),
		Costs:          handlers.NewCostsHandler(costService),
		Reports:        handlers.NewReportsHandler(reportService),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), repos.staff),
		Metrics:        metrics,
		Redis:          redis.Client,
		IdempotencyTTL: time.Duration(cfg.Redis.IdempotencyTTLMin) * time.Minute,
		FilesDir:       files.Dir(),
		Logger:         logger,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()))
		errCh <- app.Listen(cfg.App.Addr())
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("fiber listen: %w", err)
	case <-waitForShutdown(logger):
	}

	return app.ShutdownWithTimeout(10 * time.Second)
}

func waitForShutdown(logger *zap.Logger) <-chan struct{} {
	done := make(chan struct{})
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info("shutting down", zap.String("signal", sig.String()))
		close(done)
	}()
	return done
}
