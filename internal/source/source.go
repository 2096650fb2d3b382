package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/nao1215/reviewharvest/internal/config"
	"github.com/nao1215/reviewharvest/internal/model"
)

// Sort orders accepted by the review listing.
const (
	SortMostRelevant = "most_relevant"
	SortNewest       = "newest"
)

// PageRequest selects one page of reviews.
type PageRequest struct {
	TargetID string
	Language string
	Country  string
	Score    int

	// Cursor is the continuation token of the previous page; empty
	// requests the first page.
	Cursor string

	// Count is the page size hint. The source may return fewer records.
	Count int
	Sort  string
}

// NewPageRequest builds the request for partition p.
func NewPageRequest(p model.Partition, cursor string, count int) PageRequest {
	return PageRequest{
		TargetID: p.Target.ID,
		Language: p.Locale.Language,
		Country:  p.Locale.Country,
		Score:    int(p.Level),
		Cursor:   cursor,
		Count:    count,
		Sort:     SortMostRelevant,
	}
}

func (r PageRequest) validate() error {
	if r.TargetID == "" {
		return fmt.Errorf("%w: empty target id", ErrInvalidRequest)
	}
	if r.Count <= 0 {
		return fmt.Errorf("%w: count must be positive", ErrInvalidRequest)
	}
	if _, err := model.ParseSeverityLevel(r.Score); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return nil
}

// Page is one response of the review listing. Reviews may be empty while
// Next is set, and Next may be empty while Reviews is not.
type Page struct {
	Reviews []model.Review
	Next    string
}

// Source is the remote review source.
type Source interface {
	// ResolveMetadata returns the target with its display title.
	ResolveMetadata(ctx context.Context, id string, locale model.Locale) (model.Target, error)

	// FetchPage returns one page of reviews.
	FetchPage(ctx context.Context, req PageRequest) (Page, error)
}

// Factory binds a Source to the HTTP client of a network identity.
type Factory func(client *http.Client) Source

// NewFactory returns the factory selected by cfg.Mode.
func NewFactory(cfg config.SourceConfig, logger *slog.Logger) (Factory, error) {
	switch cfg.Mode {
	case config.SourceModeHTTP, "":
		if cfg.BaseURL == "" {
			return nil, config.ErrNoSourceURL
		}
		return func(client *http.Client) Source {
			return NewHTTPSource(cfg.BaseURL, client,
				WithUserAgent(cfg.UserAgent),
				WithRateLimit(cfg.RequestsPerSecond, cfg.Burst),
				WithLogger(logger),
			)
		}, nil
	case config.SourceModeMock:
		mock := NewMockSource(cfg.MockPages, cfg.MockPageSize)
		return func(*http.Client) Source { return mock }, nil
	default:
		return nil, fmt.Errorf("%w: %s", config.ErrInvalidSourceMode, cfg.Mode)
	}
}
