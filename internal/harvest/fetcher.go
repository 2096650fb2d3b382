package harvest

import (
	"context"
	"fmt"

	"github.com/nao1215/reviewharvest/internal/model"
	"github.com/nao1215/reviewharvest/internal/source"
)

// FetchResult is the classified outcome of one remote call.
type FetchResult struct {
	Kind    OutcomeKind
	Records []model.Review

	// Next is the cursor for the following call. It is set for records and
	// empty results alike.
	Next string

	// Err is a *FetchError when Kind is KindError.
	Err error
}

// PageFetcher fetches one page of a partition.
type PageFetcher interface {
	Fetch(ctx context.Context, p model.Partition, cursor string, pageSize int) FetchResult
}

// Fetcher adapts a source.Source to PageFetcher. It holds no state.
type Fetcher struct {
	src source.Source
}

// NewFetcher creates a fetcher reading from src.
func NewFetcher(src source.Source) *Fetcher {
	return &Fetcher{src: src}
}

// Fetch calls the source once. Every failure, including records that fail
// validation, becomes a KindError result carrying a *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, p model.Partition, cursor string, pageSize int) FetchResult {
	page, err := f.src.FetchPage(ctx, source.NewPageRequest(p, cursor, pageSize))
	if err != nil {
		return errorResult(p, cursor, err)
	}

	for i, r := range page.Reviews {
		if err := r.Validate(); err != nil {
			return errorResult(p, cursor, fmt.Errorf("record %d: %w", i, err))
		}
	}

	if len(page.Reviews) == 0 {
		return FetchResult{Kind: KindEmpty, Next: page.Next}
	}
	return FetchResult{Kind: KindRecords, Records: page.Reviews, Next: page.Next}
}

func errorResult(p model.Partition, cursor string, err error) FetchResult {
	return FetchResult{
		Kind: KindError,
		Err:  &FetchError{Partition: p, Cursor: cursor, Err: err},
	}
}
