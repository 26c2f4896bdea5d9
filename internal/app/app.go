// Package app wires the configured collaborators into an orchestrator.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"

	"google.golang.org/api/option"

	"github.com/tatianab/questforge/internal/config"
	"github.com/tatianab/questforge/internal/engine"
	"github.com/tatianab/questforge/internal/generate"
	"github.com/tatianab/questforge/internal/media"
	"github.com/tatianab/questforge/internal/store"
)

// App holds the wired components and releases them on Close.
type App struct {
	Config *config.Config
	Rules  *config.Rules
	Engine *engine.Orchestrator
	Store  *store.Store
	Media  *media.Service

	closers []func() error
}

// Build creates every component named by cfg.
func Build(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	if logger == nil {
		logger = log.Default()
	}
	a := &App{Config: cfg}

	rules, err := config.LoadRules(cfg.RulesFile)
	if err != nil {
		return nil, err
	}
	a.Rules = rules

	gen, closeGen, err := generate.New(ctx, cfg.Generator, cfg.GeminiAPIKey, cfg.Model, engine.SystemPrompt())
	if err != nil {
		return nil, fmt.Errorf("create generator: %w", err)
	}
	a.closers = append(a.closers, closeGen)

	durable, err := openDurable(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	opts := []store.Option{store.WithTimeout(cfg.StoreTimeout), store.WithLogger(logger)}
	if durable != nil {
		opts = append(opts, store.WithDurable(durable))
	}
	a.Store = store.New(cfg.CacheCapacity, opts...)
	a.closers = append(a.closers, a.Store.Close)

	adapter := generate.NewAdapter(gen, cfg.GenerateTimeout, logger)
	a.Engine = engine.New(adapter, a.Store, rules,
		engine.WithLogger(logger),
		engine.WithDefaultLanguage(cfg.DefaultLanguage),
	)
	a.Media = buildMedia(ctx, cfg, logger)
	return a, nil
}

func openDurable(cfg *config.Config) (store.Durable, error) {
	switch cfg.Durable {
	case "sqlite", "postgres":
		return store.NewGormDurable(cfg.Durable, cfg.DBDSN)
	case "file":
		return store.NewFileDurable(cfg.SaveDir)
	default:
		return nil, nil
	}
}

// buildMedia creates the enabled auxiliary clients. A client that cannot be
// created leaves its capability disabled.
func buildMedia(ctx context.Context, cfg *config.Config, logger *log.Logger) *media.Service {
	opts := []media.Option{media.WithLogger(logger)}
	if cfg.EnableTTS {
		if n, err := media.NewCloudNarrator(ctx, option.WithAPIKey(cfg.GeminiAPIKey)); err != nil {
			logger.Printf("WARN: narration disabled: %v", err)
		} else {
			opts = append(opts, media.WithNarrator(n))
		}
	}
	if cfg.EnableTranslate {
		if t, err := media.NewCloudTranslator(ctx, option.WithAPIKey(cfg.GeminiAPIKey)); err != nil {
			logger.Printf("WARN: translation disabled: %v", err)
		} else {
			opts = append(opts, media.WithTranslator(t))
		}
	}
	if cfg.EnableImagen {
		if i, err := media.NewImagenIllustrator(ctx, cfg.GCPProjectID, cfg.GCPLocation, ""); err != nil {
			logger.Printf("WARN: illustration disabled: %v", err)
		} else {
			opts = append(opts, media.WithIllustrator(i))
		}
	}
	return media.NewService(cfg.AuxConcurrency, opts...)
}

// Close releases the components in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
