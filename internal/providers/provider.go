package providers

import (
	"fmt"
	"log/slog"

	"github.com/gavelhq/gavel/internal/config"
	"github.com/gavelhq/gavel/internal/review"
)

// New creates the configured AI provider.
func New(cfg config.Config, log *slog.Logger) (review.Provider, error) {
	if log == nil {
		log = slog.Default()
	}
	switch cfg.Provider {
	case "openrouter":
		return NewOpenRouter(cfg.Model, cfg.MaxTokens, cfg.Temperature, log)
	case "anthropic":
		return NewAnthropic(cfg.Model, cfg.MaxTokens, log)
	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
}
