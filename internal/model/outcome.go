package model

import (
	"encoding/json"
	"time"
)

// Outcome is how a partition crawl terminated.
type Outcome int

const (
	// OutcomeExhausted means the empty-streak limit was reached and the
	// remaining buffer was persisted.
	OutcomeExhausted Outcome = iota

	// OutcomeFlushed means the buffer reached the flush threshold and was
	// persisted. The partition is not resumed afterwards.
	OutcomeFlushed

	// OutcomeAbandoned means a fetch failed and the partition was given up.
	OutcomeAbandoned

	// OutcomeInterrupted means the run was cancelled mid-partition.
	OutcomeInterrupted
)

// String returns a lowercase name of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeExhausted:
		return "exhausted"
	case OutcomeFlushed:
		return "flushed"
	case OutcomeAbandoned:
		return "abandoned"
	case OutcomeInterrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the outcome by name.
func (o Outcome) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

// PartitionResult records what happened to one partition.
type PartitionResult struct {
	Partition Partition `json:"partition"`
	Outcome   Outcome   `json:"outcome"`

	// Fetches is the number of remote calls made.
	Fetches int `json:"fetches"`

	// Accumulated is the number of records buffered before termination.
	Accumulated int `json:"accumulated"`

	// Merged is the number of records handed to the dataset merger.
	Merged int `json:"merged"`

	// Persisted is the number of records that were new to the dataset.
	Persisted int `json:"persisted"`

	// Discarded is the number of buffered records dropped on abandonment.
	Discarded int `json:"discarded"`

	// Err is the fetch or persistence failure, if any.
	Err error `json:"-"`

	// Error is Err rendered for reports.
	Error string `json:"error,omitempty"`

	Elapsed time.Duration `json:"elapsed"`
}

// RunSummary is the outcome of a whole harvest run.
type RunSummary struct {
	StartedAt   time.Time         `json:"startedAt"`
	FinishedAt  time.Time         `json:"finishedAt"`
	Targets     []Target          `json:"targets"`
	Results     []PartitionResult `json:"results"`
	Interrupted bool              `json:"interrupted"`

	// Skipped lists target identifiers whose metadata could not be
	// resolved.
	Skipped []string `json:"skipped,omitempty"`
}

// CountByOutcome returns how many partitions ended with each outcome.
func (s *RunSummary) CountByOutcome() map[Outcome]int {
	counts := make(map[Outcome]int)
	for _, r := range s.Results {
		counts[r.Outcome]++
	}
	return counts
}

// TotalPersisted returns the number of new records written by the run.
func (s *RunSummary) TotalPersisted() int {
	total := 0
	for _, r := range s.Results {
		total += r.Persisted
	}
	return total
}

// TotalDiscarded returns the number of records dropped by abandoned
// partitions.
func (s *RunSummary) TotalDiscarded() int {
	total := 0
	for _, r := range s.Results {
		total += r.Discarded
	}
	return total
}

// Duration returns the wall-clock length of the run.
func (s *RunSummary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}
