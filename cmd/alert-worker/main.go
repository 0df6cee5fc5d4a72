package main

import (
	"context"
	"errors"
	"os"
	"time"

	"financas/internal/amqp"
	"financas/internal/cache"
	"financas/internal/cli"
	applog "financas/internal/log"
	"financas/internal/sheets"
	"financas/internal/worker"

	"golang.org/x/sync/errgroup"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)
	logger.Info("Starting alert-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for alert-worker")
		os.Exit(1)
	}

	dispatcher, err := cli.BuildDispatcher(cfg)
	if err != nil {
		logger.Error("Failed to build notification channels", "error", err)
		os.Exit(1)
	}
	logger.Info("Notification channels ready", "channels", dispatcher.Channels(), "min_severity", cfg.NotifyMinSeverity)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	var alertLog sheets.AlertWriter
	client, err := cli.OpenSheets(ctx, cfg)
	switch {
	case err != nil:
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	case client != nil:
		alertLog = client
		logger.Info("Google Sheets alert log enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	default:
		logger.Info("Google Sheets disabled - alerts are only notified")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPAlertQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	w := worker.NewAlertWorker(dispatcher, alertLog, "alert-worker")
	janitor := cache.NewJanitor()
	janitor.Register(w.Seen())
	janitor.Start(ctx, 10*time.Minute)
	defer janitor.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := amqpClient.ConsumeAlerts(gctx, w.HandleAlertMessage)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Error("Message consumption failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Alert-worker shutdown complete")
}
