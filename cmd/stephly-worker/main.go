package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"stephly/internal/amqp"
	"stephly/internal/cli"
	"stephly/internal/config"
	"stephly/internal/log"
	"stephly/internal/services"
	"stephly/internal/sheets"
	gsheet "stephly/internal/sheets/google"
	"stephly/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.LogLevel).WithComponent(log.ComponentWorker)

	logger.Info("Starting stephly-worker")
	if cfg.DataBackend == config.BackendMemory {
		logger.Warn("Worker is running on the memory backend; it will not see the server's data")
	}

	ctx, cancel := cli.ShutdownContext(logger)
	defer cancel()

	st, closeStore := cli.MustOpenStore(ctx, cfg, logger)
	defer closeStore()

	var exporter sheets.Exporter
	if cfg.SheetsEnabled() {
		client, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		}, logger)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		exporter = client
		logger.Info("Google Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	reminders := worker.NewReminderLoop(services.NewReminderScanner(st, st, logger), cfg.ReminderInterval, logger)
	if err := reminders.Start(ctx); err != nil {
		logger.Error("Failed to start reminder loop", log.FieldError, err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)
	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer client.Close()

		events := worker.NewEventWorker(st, exporter, logger)
		g.Go(func() error {
			err := client.ConsumeTransactionEvents(gctx, events.HandleEvent)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		logger.Info("AMQP disabled - only todo reminders will run")
	}

	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Event consumption failed", log.FieldError, err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := reminders.Stop(shutdownCtx); err != nil {
		logger.Warn("Reminder loop did not stop cleanly", log.FieldError, err)
	}
	logger.Info("Worker shutdown complete")
}
