package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"gastos/internal/amqp"
	"gastos/internal/config"
	"gastos/internal/currency"
	apphttp "gastos/internal/http"
	"gastos/internal/identity"
	applog "gastos/internal/log"
	"gastos/internal/services"
	"gastos/internal/storage"
)

func main() {
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := storage.NewRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open database", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	ident := identity.NewService(repo)
	if err := ident.EnsureSeedUsers(ctx); err != nil {
		logger.Error("Failed to seed accounts", "error", err)
		os.Exit(1)
	}

	rates := currency.NewService(repo, cfg.RateAPIURL, cfg.RateRefreshTTL)
	if ok, msg := rates.Refresh(ctx); ok {
		logger.Info("Currency rates ready", "message", msg)
	} else {
		logger.Warn("Currency rates degraded", "message", msg)
	}

	// Event publishing is optional; a missing broker only disables it.
	var events *amqp.Client
	if cfg.AMQPURL != "" {
		events, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, expense events disabled", "error", err)
			events = nil
		}
	}

	converter := currency.NewConverter(rates)
	expenses := services.NewExpenseService(repo, converter, events)
	defer expenses.Close()
	budgets := services.NewBudgetService(repo, converter)

	srv := apphttp.NewServer(cfg, expenses, budgets, rates, ident, logger)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting gastos server", "port", cfg.Port, "mode", cfg.Mode)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
