package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/tatianab/questforge/internal/app"
	"github.com/tatianab/questforge/internal/config"
	"github.com/tatianab/questforge/internal/tui"
)

func main() {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Log lines would tear the alternate screen.
	logger := log.New(io.Discard, "", 0)
	if path := os.Getenv("QUESTFORGE_LOG_FILE"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Printf("Error opening log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		logger = log.New(f, "", log.LstdFlags)
	}
	log.SetOutput(logger.Writer())

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		fmt.Printf("Error creating game: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	if err := tui.Run(a.Engine, a.Rules); err != nil {
		fmt.Printf("Error running TUI: %v\n", err)
		os.Exit(1)
	}
}
