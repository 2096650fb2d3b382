package harvest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nao1215/reviewharvest/internal/model"
)

// DatasetWriter appends deduplicated records to a dataset and reports how
// many were new. database.DatasetStore satisfies it.
type DatasetWriter interface {
	Merge(ctx context.Context, key model.DatasetKey, language string, records []model.Review) (int, error)
}

// RecordMerger persists a partition's buffer.
type RecordMerger interface {
	Merge(ctx context.Context, p model.Partition, records []model.Review) (int, error)
}

// Merger merges partition buffers into their datasets, retrying failed
// writes.
type Merger struct {
	writer   DatasetWriter
	attempts int
	logger   *slog.Logger
}

// NewMerger creates a merger over writer. attempts is the total number of
// tries per merge; values below one mean one.
func NewMerger(writer DatasetWriter, attempts int, logger *slog.Logger) *Merger {
	if attempts < 1 {
		attempts = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Merger{writer: writer, attempts: attempts, logger: logger}
}

// Merge writes records into the dataset of p, tagged with the partition's
// language. An empty buffer still touches the dataset so that an exhausted
// partition always leaves a dataset behind.
func (m *Merger) Merge(ctx context.Context, p model.Partition, records []model.Review) (int, error) {
	key := p.Dataset()

	var errs []error
	for attempt := 1; attempt <= m.attempts; attempt++ {
		n, err := m.writer.Merge(ctx, key, p.Locale.Language, records)
		if err == nil {
			return n, nil
		}
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}

		errs = append(errs, err)
		m.logger.Warn("dataset merge failed",
			"dataset", key.String(),
			"attempt", attempt,
			"of", m.attempts,
			"records", len(records),
			"error", err,
		)
	}
	return 0, fmt.Errorf("%w: dataset %s: %w", ErrPersistence, key, errors.Join(errs...))
}
