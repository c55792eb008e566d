package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"finance-tracker/internal/config"
	"finance-tracker/internal/database"
	"finance-tracker/internal/handlers"
	"finance-tracker/internal/repositories"
	"finance-tracker/internal/router"
	"finance-tracker/internal/services"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	// load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logOptions := &slog.HandlerOptions{Level: cfg.Server.SlogLevel()}
	var logHandler slog.Handler = slog.NewJSONHandler(os.Stdout, logOptions)
	if cfg.IsDevelopment() {
		logHandler = slog.NewTextHandler(os.Stdout, logOptions)
	}
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// init database and bring the schema up to date
	db, err := database.Initialize(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("failed to close database", slog.String("error", err.Error()))
		}
	}()

	userRepo := repositories.NewUserRepository(db.DB)
	accountRepo := repositories.NewAccountRepository(db.DB)
	transactionRepo := repositories.NewTransactionRepository(db.DB)
	budgetRepo := repositories.NewBudgetRepository(db.DB)
	jobRepo := repositories.NewRecurringJobRepository(db.DB)
	auditRepo := repositories.NewAuditLogRepository(db.DB)

	metrics := services.NewPrometheusMetrics()
	auditLogger := services.NewAuditLogger(logger, auditRepo)

	newBreaker := func(name string) *services.CircuitBreaker {
		return services.NewCircuitBreaker(services.DefaultCircuitBreakerConfig()).
			OnStateChange(func(from, to services.CircuitBreakerState) {
				metrics.RecordGauge(services.MetricCircuitBreakerState, float64(to), map[string]string{"service": name})
				// runs under the breaker's lock; the audit write must not hold it
				go auditLogger.LogCircuitBreakerStateChange(context.Background(), name, from.String(), to.String())
			})
	}

	createLimiter := services.NewKeyedLimiter(
		cfg.RateLimit.TransactionCreateLimit,
		cfg.RateLimit.TransactionCreatePeriod,
		cfg.RateLimit.TransactionCreateBurst,
	)
	throttle := services.NewKeyedLimiter(cfg.Scheduler.ThrottleLimit, cfg.Scheduler.ThrottlePeriod, 0)

	emailSender := services.NewEmailSender(cfg.Email, newBreaker("email"), metrics, logger)

	userService := services.NewUserService(userRepo, logger)
	accountService := services.NewAccountService(accountRepo, transactionRepo, auditLogger, logger)
	transactionService := services.NewTransactionService(transactionRepo, accountRepo, createLimiter, auditLogger, metrics, logger)
	budgetService := services.NewBudgetService(budgetRepo, accountRepo, transactionRepo, auditLogger, cfg.Scheduler.Location(), logger)
	budgetAlertService := services.NewBudgetAlertService(budgetRepo, transactionRepo, emailSender, auditLogger, metrics, cfg, logger)
	recurringService := services.NewRecurringService(
		transactionRepo, jobRepo, auditLogger, metrics, newBreaker("database"), throttle, cfg.Scheduler, logger,
	)
	seeder := services.NewTransactionSeeder(accountRepo, transactionRepo, auditLogger, logger)
	tokenService := services.NewTokenService(&cfg.JWT)

	var workers sync.WaitGroup
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	for _, limiter := range []*services.KeyedLimiter{createLimiter, throttle} {
		workers.Add(1)
		go func(l *services.KeyedLimiter) {
			defer workers.Done()
			l.Run(workerCtx)
		}(limiter)
	}

	var scheduler *services.Scheduler
	if cfg.Scheduler.Enabled {
		scheduler, err = services.NewScheduler(recurringService, budgetAlertService, auditRepo, cfg.Scheduler, logger)
		if err != nil {
			return fmt.Errorf("create scheduler: %w", err)
		}

		workers.Add(1)
		go func() {
			defer workers.Done()
			recurringService.StartProcessing(workerCtx)
		}()

		scheduler.Start(workerCtx)
	}

	// setup router
	e := router.SetupRouter(cfg, router.Handlers{
		Health:      handlers.NewHealthCheckHandler(db.DB, recurringService),
		Account:     handlers.NewAccountHandler(accountService, transactionService),
		Transaction: handlers.NewTransactionHandler(transactionService),
		Budget:      handlers.NewBudgetHandler(budgetService),
		Dev:         handlers.NewDevHandler(seeder, cfg.Server.Environment),
	}, tokenService, userService)

	e.Server = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      e,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			slog.String("addr", e.Server.Addr),
			slog.String("environment", cfg.Server.Environment),
		)
		if err := e.StartServer(e.Server); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("run server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if scheduler != nil {
		select {
		case <-scheduler.Stop().Done():
		case <-shutdownCtx.Done():
			logger.Warn("scheduled jobs still running at shutdown")
		}
	}

	cancelWorkers()
	workers.Wait()

	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
