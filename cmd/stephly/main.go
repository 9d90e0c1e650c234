package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"stephly/internal/amqp"
	"stephly/internal/cli"
	apphttp "stephly/internal/http"
	"stephly/internal/log"
	"stephly/internal/services"
)

func main() {
	cli.LoadEnvFile()

	// Config decides the level, so start from the env value.
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.LogLevel)

	ctx, cancel := cli.ShutdownContext(logger)
	defer cancel()

	st, closeStore := cli.MustOpenStore(ctx, cfg, logger)
	defer closeStore()

	// Leave the publisher as a nil interface when AMQP is off.
	var publisher services.EventPublisher
	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer client.Close()
		publisher = client
		logger.Info("AMQP publisher initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	app := cli.NewApp(ctx, cfg, st, publisher, logger)
	srv := apphttp.NewServer(apphttp.Config{
		Addr:               ":" + cfg.Port,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	}, app.Services, app.Issuer, logger)

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 60 * time.Second // chat waits on the model
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	}()

	logger.Info("Starting stephly server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		cancel()
		<-stopped
		os.Exit(1)
	}

	<-stopped
	logger.Info("Server stopped gracefully")
}
