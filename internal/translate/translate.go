package translate

import (
	"context"
	"fmt"

	"github.com/nao1215/reviewharvest/internal/config"
)

// Translator translates text into language, a BCP 47 code such as "ru".
type Translator interface {
	Translate(ctx context.Context, text, language string) (string, error)
}

// New returns the translator configured by cfg, wrapped in a memo cache.
// It returns ErrDisabled when translation is not enabled.
func New(cfg config.TranslationConfig) (Translator, error) {
	if !cfg.Enabled || cfg.Provider == config.TranslationNone {
		return nil, ErrDisabled
	}

	switch cfg.Provider {
	case config.TranslationOpenAI, "":
		t, err := NewOpenAITranslator(cfg)
		if err != nil {
			return nil, err
		}
		return NewCachedTranslator(t, cfg.CacheTTL), nil
	default:
		return nil, fmt.Errorf("%w: %s", config.ErrInvalidTranslationProvider, cfg.Provider)
	}
}
