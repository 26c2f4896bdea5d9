package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tatianab/questforge/internal/app"
	"github.com/tatianab/questforge/internal/config"
	"github.com/tatianab/questforge/internal/server"
	"github.com/tatianab/questforge/internal/telemetry"
)

const version = "1.0.0"

func main() {
	ctx := context.Background()
	logger := log.New(os.Stderr, "", log.LstdFlags)

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTelEndpoint, server.ServiceName, version)
	if err != nil {
		logger.Printf("WARN: tracing disabled: %v", err)
	}
	defer shutdownTracing(context.Background())

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		fmt.Printf("Error starting QuestForge: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	h := server.NewHandler(a.Engine, a.Media, server.Info{
		Version:   version,
		Generator: cfg.Generator,
		Durable:   cfg.Durable,
	})
	e := server.New(h, server.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		RatePerMinute:  cfg.RateLimit,
		Logger:         logger,
	})

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()
	logger.Printf("QuestForge %s listening on port %d (generator=%s, durable=%s)", version, cfg.Port, cfg.Generator, cfg.Durable)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Printf("Failed to shut down gracefully: %v", err)
	}
}
