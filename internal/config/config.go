package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"golang.org/x/text/language"
)

// Config holds the application configuration.
type Config struct {
	Port            int           `env:"PORT" envDefault:"8080"`
	GeminiAPIKey    string        `env:"GEMINI_API_KEY"`
	Generator       string        `env:"QUESTFORGE_GENERATOR" envDefault:"gemini"`
	Model           string        `env:"QUESTFORGE_MODEL" envDefault:"gemini-2.5-flash"`
	GenerateTimeout time.Duration `env:"QUESTFORGE_GENERATE_TIMEOUT" envDefault:"20s"`
	StoreTimeout    time.Duration `env:"QUESTFORGE_STORE_TIMEOUT" envDefault:"5s"`
	CacheCapacity   int           `env:"QUESTFORGE_CACHE_CAPACITY" envDefault:"5000"`
	Durable         string        `env:"QUESTFORGE_DURABLE" envDefault:"none"`
	DBDSN           string        `env:"QUESTFORGE_DB_DSN"`
	SaveDir         string        `env:"QUESTFORGE_SAVE_DIR" envDefault:".saves"`
	RulesFile       string        `env:"QUESTFORGE_RULES_FILE"`
	DefaultLanguage string        `env:"DEFAULT_LANGUAGE" envDefault:"en"`
	RateLimit       int           `env:"RATE_LIMIT_PER_MINUTE" envDefault:"60"`
	AllowedOrigins  []string      `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	EnableTTS       bool          `env:"ENABLE_TTS"`
	EnableTranslate bool          `env:"ENABLE_TRANSLATE"`
	EnableImagen    bool          `env:"ENABLE_IMAGEN"`
	GCPProjectID    string        `env:"GCP_PROJECT_ID"`
	GCPLocation     string        `env:"GCP_LOCATION" envDefault:"us-central1"`
	AuxConcurrency  int           `env:"QUESTFORGE_AUX_CONCURRENCY" envDefault:"4"`
	OTelEndpoint    string        `env:"QUESTFORGE_OTEL_ENDPOINT"`
}

// LoadConfig loads the configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.Generator = strings.ToLower(strings.TrimSpace(cfg.Generator))
	switch cfg.Generator {
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY environment variable is not set")
		}
	case "mock":
	default:
		return nil, fmt.Errorf("unknown QUESTFORGE_GENERATOR %q", cfg.Generator)
	}

	cfg.Durable = strings.ToLower(strings.TrimSpace(cfg.Durable))
	switch cfg.Durable {
	case "", "none":
		cfg.Durable = "none"
	case "sqlite", "file":
	case "postgres":
		if cfg.DBDSN == "" {
			return nil, fmt.Errorf("QUESTFORGE_DB_DSN is required for postgres")
		}
	default:
		return nil, fmt.Errorf("unknown QUESTFORGE_DURABLE %q", cfg.Durable)
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		cfg.Port = 8080
	}
	cfg.RateLimit = max(1, cfg.RateLimit)
	cfg.AuxConcurrency = max(1, cfg.AuxConcurrency)
	cfg.DefaultLanguage = NormalizeLanguage(cfg.DefaultLanguage, "en")
	if (cfg.EnableTTS || cfg.EnableTranslate) && cfg.GeminiAPIKey == "" {
		fmt.Printf("Warning: auxiliary Google services need GEMINI_API_KEY; narration and translation are disabled\n")
		cfg.EnableTTS, cfg.EnableTranslate = false, false
	}
	if cfg.EnableImagen && cfg.GCPProjectID == "" {
		fmt.Printf("Warning: ENABLE_IMAGEN needs GCP_PROJECT_ID; illustration is disabled\n")
		cfg.EnableImagen = false
	}
	return &cfg, nil
}

// NormalizeLanguage returns the canonical BCP 47 form of tag, or fallback
// when tag does not parse.
func NormalizeLanguage(tag, fallback string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return fallback
	}
	t, err := language.Parse(tag)
	if err != nil || t == language.Und {
		return fallback
	}
	return t.String()
}
