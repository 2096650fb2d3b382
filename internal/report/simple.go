package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/reviewharvest/internal/database"
	"github.com/nao1215/reviewharvest/internal/model"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display and log files.
type SimpleWriter struct {
	baseWriter

	// verbose adds per-partition details.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// WriteRun outputs the run summary in human-readable format.
func (w *SimpleWriter) WriteRun(summary *model.RunSummary) (int, error) {
	var sb strings.Builder

	writeBanner(&sb, "REVIEW HARVEST REPORT")

	fmt.Fprintf(&sb, "Started:    %s\n", summary.StartedAt.Format(timeLayout))
	fmt.Fprintf(&sb, "Finished:   %s\n", summary.FinishedAt.Format(timeLayout))
	fmt.Fprintf(&sb, "Duration:   %s\n", summary.Duration().Round(time.Second))
	if summary.Interrupted {
		sb.WriteString("Status:     INTERRUPTED (partial results)\n")
	} else {
		sb.WriteString("Status:     Complete\n")
	}
	sb.WriteString("\n")

	writeSection(&sb, "OUTCOMES")
	counts := summary.CountByOutcome()
	for _, o := range outcomeOrder {
		fmt.Fprintf(&sb, "  %-12s %d\n", strings.ToUpper(o.String())+":", counts[o])
	}
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "  PERSISTED:   %d reviews\n", summary.TotalPersisted())
	fmt.Fprintf(&sb, "  DISCARDED:   %d reviews\n", summary.TotalDiscarded())
	sb.WriteString("\n")

	writeSection(&sb, "TARGETS")
	byTarget := resultsByTarget(summary)
	for _, target := range summary.Targets {
		results := byTarget[target.ID]
		persisted := 0
		for _, r := range results {
			persisted += r.Persisted
		}
		fmt.Fprintf(&sb, "  [+] %s (%s): %d partitions, %d reviews persisted\n", target.DisplayName(), target.ID, len(results), persisted)
		for _, r := range results {
			if !w.verbose && r.Error == "" {
				continue
			}
			fmt.Fprintf(&sb, "      level %s %-6s %-11s fetches=%d accumulated=%d persisted=%d discarded=%d\n",
				r.Partition.Level, r.Partition.Locale, r.Outcome, r.Fetches, r.Accumulated, r.Persisted, r.Discarded)
			if r.Error != "" {
				fmt.Fprintf(&sb, "        error: %s\n", truncateString(r.Error, 200))
			}
		}
	}
	for _, id := range summary.Skipped {
		fmt.Fprintf(&sb, "  [-] %s (skipped: metadata unavailable)\n", id)
	}
	sb.WriteString("\n")

	writeFooter(&sb)
	return w.output.Write([]byte(sb.String()))
}

// WriteStats outputs dataset statistics in human-readable format.
func (w *SimpleWriter) WriteStats(stats []database.DatasetStats) (int, error) {
	var sb strings.Builder

	writeBanner(&sb, "DATASET STATISTICS")

	if len(stats) == 0 {
		sb.WriteString("  No datasets found\n\n")
	}
	total := 0
	for _, st := range stats {
		fmt.Fprintf(&sb, "  %s level %s: %d reviews (%s), %d translated, %d failed\n",
			st.Key.TargetID, st.Key.Level, st.Reviews, languageBreakdown(st.ByLanguage), st.Translated, st.Failed)
		if w.verbose {
			fmt.Fprintf(&sb, "    file: %s\n", st.Path)
		}
		total += st.Reviews
	}
	if len(stats) > 0 {
		fmt.Fprintf(&sb, "\n  TOTAL: %d reviews in %d datasets\n\n", total, len(stats))
	}

	writeFooter(&sb)
	return w.output.Write([]byte(sb.String()))
}

func writeBanner(sb *strings.Builder, title string) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat(" ", (70-len(title))/2))
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")
}

func writeSection(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}

func writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by reviewharvest\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
