package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"financas/internal/amqp"
	"financas/internal/cli"
	apphttp "financas/internal/http"
	applog "financas/internal/log"
	"financas/internal/services"

	"golang.org/x/sync/errgroup"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentHTTP)
	logger.Info("Starting financas API")

	cfg := cli.LoadAndValidateConfig(logger)
	profile := cli.LoadProfile(logger, cfg)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	// Alerts computed on request are also published when a broker is configured
	var publisher services.AlertPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPAlertQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, alerts will not be published", "error", err)
		} else {
			defer client.Close()
			publisher = client
		}
	}

	svc := services.NewFinanceService(repo, profile, publisher)
	srv, err := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		Logger: logger,
		Ready:  repo.Ping,
	})
	if err != nil {
		logger.Error("Failed to build server", "error", err)
		os.Exit(1)
	}

	ctx, stop := cli.SignalContext(logger)
	defer stop()
	srv.StartBackground(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server shutdown complete")
}
