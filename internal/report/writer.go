package report

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/nao1215/reviewharvest/internal/config"
	"github.com/nao1215/reviewharvest/internal/database"
	"github.com/nao1215/reviewharvest/internal/model"
)

// timeLayout is used for every timestamp in text and Markdown reports.
const timeLayout = "2006-01-02 15:04:05 MST"

// Writer defines the interface for report output.
type Writer interface {
	// WriteRun outputs the summary of a harvest run.
	// Returns the number of bytes written and any error encountered.
	WriteRun(summary *model.RunSummary) (int, error)

	// WriteStats outputs per-dataset statistics.
	WriteStats(stats []database.DatasetStats) (int, error)
}

// New returns the writer for format, one of config.ReportMarkdown,
// config.ReportJSON or config.ReportText.
func New(format string, output io.Writer, version string) (Writer, error) {
	switch format {
	case config.ReportMarkdown, "":
		return NewMarkdownWriter(output), nil
	case config.ReportJSON:
		return NewJSONWriter(output, WithPrettyPrint(), WithVersion(version)), nil
	case config.ReportText:
		return NewSimpleWriter(output), nil
	default:
		return nil, fmt.Errorf("%w: %s", config.ErrInvalidReportFormat, format)
	}
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// WriteRun outputs the run summary to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) WriteRun(summary *model.RunSummary) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteRun(summary)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteStats outputs dataset statistics to all configured Writers.
func (m *MultiWriter) WriteStats(stats []database.DatasetStats) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteStats(stats)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// outcomeOrder is the order outcomes are listed in.
var outcomeOrder = []model.Outcome{
	model.OutcomeExhausted,
	model.OutcomeFlushed,
	model.OutcomeAbandoned,
	model.OutcomeInterrupted,
}

// localeName returns a readable name such as "English (United States)".
// Codes x/text does not know are returned as "lang-country".
func localeName(l model.Locale) string {
	tag, err := language.Parse(l.Language)
	if err != nil {
		return l.String()
	}
	lang := display.English.Languages().Name(tag)
	if lang == "" {
		return l.String()
	}

	region, err := language.ParseRegion(l.Country)
	if err != nil {
		return lang
	}
	if name := display.English.Regions().Name(region); name != "" {
		return lang + " (" + name + ")"
	}
	return lang
}

// languageBreakdown renders per-language counts as "de: 10, en: 25".
func languageBreakdown(counts map[string]int) string {
	if len(counts) == 0 {
		return "-"
	}
	langs := make([]string, 0, len(counts))
	for lang := range counts {
		langs = append(langs, lang)
	}
	slices.Sort(langs)

	parts := make([]string, len(langs))
	for i, lang := range langs {
		parts[i] = fmt.Sprintf("%s: %d", lang, counts[lang])
	}
	return strings.Join(parts, ", ")
}

// resultsByTarget groups results by target id, keeping their order.
func resultsByTarget(summary *model.RunSummary) map[string][]model.PartitionResult {
	out := make(map[string][]model.PartitionResult)
	for _, r := range summary.Results {
		out[r.Partition.Target.ID] = append(out[r.Partition.Target.ID], r)
	}
	return out
}

// truncateString truncates a string to maxLen runes with ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
