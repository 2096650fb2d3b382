package source

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/reviewharvest/internal/model"
)

// mockEpoch anchors the timestamps of generated reviews.
var mockEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

const mockCursorPrefix = "mock-page-"

// MockSource generates deterministic reviews without network access.
//
// Every partition yields pages non-empty pages of pageSize reviews and then
// empty pages forever. Reviews depend on target, score and language but not
// on country, so partitions sharing a language overlap and exercise
// deduplication.
type MockSource struct {
	pages    int
	pageSize int
}

// NewMockSource creates a mock source.
func NewMockSource(pages, pageSize int) *MockSource {
	if pages < 0 {
		pages = 0
	}
	if pageSize <= 0 {
		pageSize = 1
	}
	return &MockSource{pages: pages, pageSize: pageSize}
}

// ResolveMetadata returns a synthetic title.
func (m *MockSource) ResolveMetadata(ctx context.Context, id string, _ model.Locale) (model.Target, error) {
	if err := ctx.Err(); err != nil {
		return model.Target{}, err
	}
	if id == "" {
		return model.Target{}, fmt.Errorf("%w: empty id", ErrTargetNotFound)
	}
	return model.Target{ID: id, Title: "Mock App " + id}, nil
}

// FetchPage returns the page addressed by req.Cursor.
func (m *MockSource) FetchPage(ctx context.Context, req PageRequest) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}
	if err := req.validate(); err != nil {
		return Page{}, err
	}

	index, err := parseMockCursor(req.Cursor)
	if err != nil {
		return Page{}, err
	}
	if index >= m.pages {
		return Page{Next: req.Cursor}, nil
	}

	n := min(m.pageSize, req.Count)
	page := Page{
		Reviews: make([]model.Review, 0, n),
		Next:    mockCursorPrefix + strconv.Itoa(index+1),
	}
	for i := range n {
		seq := index*m.pageSize + i
		page.Reviews = append(page.Reviews, model.Review{
			Author:   fmt.Sprintf("%s reviewer %d", strings.ToUpper(req.Language), seq),
			Rating:   req.Score,
			At:       mockEpoch.Add(-time.Duration(seq) * time.Hour),
			Text:     fmt.Sprintf("%d star review #%d of %s", req.Score, seq, req.TargetID),
			ThumbsUp: seq % 7,
		})
	}
	return page, nil
}

func parseMockCursor(cursor string) (int, error) {
	if cursor == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(strings.TrimPrefix(cursor, mockCursorPrefix))
	if err != nil || !strings.HasPrefix(cursor, mockCursorPrefix) || n < 0 {
		return 0, fmt.Errorf("%w: unknown cursor %q", ErrInvalidRequest, cursor)
	}
	return n, nil
}
