package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nao1215/reviewharvest/internal/config"
	"github.com/nao1215/reviewharvest/internal/database"
	"github.com/nao1215/reviewharvest/internal/model"
	"github.com/nao1215/reviewharvest/internal/translate"
)

// DefaultBatchSize is the number of reviews loaded and saved at a time.
const DefaultBatchSize = 500

// Store is the part of database.DatasetStore the pass needs.
type Store interface {
	PendingTranslations(ctx context.Context, key model.DatasetKey, language string, limit int) ([]database.StoredReview, error)
	SaveTranslations(ctx context.Context, key model.DatasetKey, language string, items []database.Translation) error
}

// Stats counts what one pass did.
type Stats struct {
	Translated int
	Copied     int
	Failed     int
	Elapsed    time.Duration
}

// Total returns the number of reviews processed.
func (s Stats) Total() int {
	return s.Translated + s.Copied + s.Failed
}

// Enricher translates datasets into one language.
type Enricher struct {
	store         Store
	translator    translate.Translator
	language      string
	batchSize     int
	progressEvery int
	logger        *slog.Logger
}

// Option configures an Enricher.
type Option func(*Enricher)

// WithBatchSize sets the number of reviews processed per store round trip.
func WithBatchSize(n int) Option {
	return func(e *Enricher) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// WithProgressEvery sets how often progress is logged, in reviews.
// Zero disables progress logs.
func WithProgressEvery(n int) Option {
	return func(e *Enricher) {
		if n >= 0 {
			e.progressEvery = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Enricher) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an Enricher writing translations into language.
func New(store Store, translator translate.Translator, language string, opts ...Option) *Enricher {
	e := &Enricher{
		store:         store,
		translator:    translator,
		language:      language,
		batchSize:     DefaultBatchSize,
		progressEvery: config.DefaultTranslationProgressEvery,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enrich translates key. It satisfies harvest.Enricher.
func (e *Enricher) Enrich(ctx context.Context, key model.DatasetKey) error {
	_, err := e.Run(ctx, key)
	return err
}

// Run translates every pending review of key and reports what it did.
// Reviews already written in the target language and rating-only reviews
// are copied unchanged.
// On cancellation the reviews processed so far are saved before returning.
func (e *Enricher) Run(ctx context.Context, key model.DatasetKey) (Stats, error) {
	started := time.Now()
	var stats Stats
	logger := e.logger.With("dataset", key.String(), "language", e.language)

	logger.Info("translation started")
	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		pending, err := e.store.PendingTranslations(ctx, key, e.language, e.batchSize)
		if err != nil {
			return stats, fmt.Errorf("failed to load pending reviews of %s: %w", key, err)
		}
		if len(pending) == 0 {
			break
		}

		items := make([]database.Translation, 0, len(pending))
		var cancelErr error
		for _, r := range pending {
			if err := ctx.Err(); err != nil {
				cancelErr = err
				break
			}
			item, ok := e.translate(ctx, logger, r, &stats)
			if !ok {
				cancelErr = ctx.Err()
				break
			}
			items = append(items, item)
			if e.progressEvery > 0 && stats.Total()%e.progressEvery == 0 {
				logger.Info("translation progress", "processed", stats.Total(), "failed", stats.Failed)
			}
		}

		if len(items) > 0 {
			// Finished work is saved even after cancellation.
			if err := e.store.SaveTranslations(context.WithoutCancel(ctx), key, e.language, items); err != nil {
				return stats, fmt.Errorf("failed to save translations of %s: %w", key, err)
			}
		}
		if cancelErr != nil {
			return stats, cancelErr
		}
	}

	stats.Elapsed = time.Since(started)
	logger.Info("translation finished",
		"translated", stats.Translated,
		"copied", stats.Copied,
		"failed", stats.Failed,
		"elapsed", stats.Elapsed.Round(time.Millisecond),
	)
	return stats, nil
}

// translate returns the translation of r. ok is false when ctx was
// cancelled during the call; nothing is recorded for r then.
func (e *Enricher) translate(ctx context.Context, logger *slog.Logger, r database.StoredReview, stats *Stats) (database.Translation, bool) {
	if sameLanguage(r.Language, e.language) || strings.TrimSpace(r.Text) == "" {
		stats.Copied++
		return database.Translation{ReviewID: r.ID, Text: r.Text}, true
	}

	text, err := e.translator.Translate(ctx, r.Text, e.language)
	if err != nil {
		if ctx.Err() != nil {
			return database.Translation{}, false
		}
		logger.Warn("translation failed, keeping original text", "review", r.ID, "error", err)
		stats.Failed++
		return database.Translation{ReviewID: r.ID, Text: r.Text, Failed: true}, true
	}
	stats.Translated++
	return database.Translation{ReviewID: r.ID, Text: text}, true
}

// sameLanguage compares the base language of two codes, so "en" matches
// "en-GB".
func sameLanguage(a, b string) bool {
	base := func(s string) string {
		s, _, _ = strings.Cut(strings.ToLower(s), "-")
		return s
	}
	return base(a) == base(b)
}
