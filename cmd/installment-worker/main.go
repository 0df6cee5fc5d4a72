package main

import (
	"context"
	"os"
	"time"

	"financas/internal/amqp"
	"financas/internal/cli"
	"financas/internal/core"
	applog "financas/internal/log"
	"financas/internal/services"

	"golang.org/x/sync/errgroup"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentExpander)
	logger.Info("Starting installment-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	profile := cli.LoadProfile(logger, cfg)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	var publisher services.AlertPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPAlertQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without alert publishing", "error", err)
		} else {
			defer client.Close()
			publisher = client
			logger.Info("AMQP client initialized - alerts will be delivered by alert-worker")
		}
	} else {
		logger.Info("AMQP disabled - alerts are evaluated but not published")
	}

	svc := services.NewFinanceService(repo, profile, publisher)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	logger.Info("Installment expansion configured",
		"interval", cfg.ExpansionInterval,
		"anchor_day", profile.AnchorDay,
		"sqlite_db", cfg.SQLiteDBPath)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		runCycle(gctx, logger, svc)

		ticker := time.NewTicker(cfg.ExpansionInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				runCycle(gctx, logger, svc)
			}
		}
	})

	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Installment-worker shutdown complete")
}

// runCycle expands the current month, closes finished plans and evaluates
// alerts. Each step logs its own failure and the next one still runs.
func runCycle(ctx context.Context, logger *applog.Logger, svc *services.FinanceService) {
	now := svc.Now()
	m := core.MonthOf(now)

	res, err := svc.GenerateInstallmentTransactions(ctx, m.Year, m.Month)
	if err != nil {
		logger.ErrorContext(ctx, "Installment expansion failed", "month", m.String(), "error", err)
	} else {
		logger.InfoContext(ctx, "Installment expansion complete",
			applog.NewFields().WithMonth(m).WithCounts(res.Created, res.Skipped, res.Drifted, res.Errors).ToSlice()...)
	}

	if n, err := svc.Expander().CompleteFinishedPlans(ctx, now); err != nil {
		logger.ErrorContext(ctx, "Completing finished plans failed", "error", err)
	} else if n > 0 {
		logger.InfoContext(ctx, "Installment plans completed", "count", n)
	}

	alerts, err := svc.CheckAlerts(ctx, m.Year, m.Month)
	if err != nil {
		logger.ErrorContext(ctx, "Alert evaluation failed", "month", m.String(), "error", err)
		return
	}
	counts := core.CountBySeverity(alerts)
	logger.InfoContext(ctx, "Alert evaluation complete",
		"month", m.String(),
		"critical", counts[core.SeverityCritical],
		"warning", counts[core.SeverityWarning],
		"info", counts[core.SeverityInfo])
}
