package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/reviewharvest/internal/database"
	"github.com/nao1215/reviewharvest/internal/model"
)

// JSONWriter outputs reports in JSON format.
// This format is designed for tool integration and programmatic processing.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	// When false, output is compact (no extra whitespace).
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string

	// version is stamped into every document.
	version string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
// This is a convenience wrapper for WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// WithVersion sets the reviewharvest version recorded in the output.
func WithVersion(version string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.version = version
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// RunReport is the JSON document of a harvest run.
// Totals are included so consumers do not have to aggregate results.
type RunReport struct {
	Version   string            `json:"version,omitempty"`
	Summary   *model.RunSummary `json:"summary"`
	Persisted int               `json:"persisted"`
	Discarded int               `json:"discarded"`
	Outcomes  map[string]int    `json:"outcomes"`
}

// StatsReport is the JSON document of dataset statistics.
type StatsReport struct {
	Version  string                  `json:"version,omitempty"`
	Datasets []database.DatasetStats `json:"datasets"`
}

// WriteRun outputs the run summary in JSON format.
func (w *JSONWriter) WriteRun(summary *model.RunSummary) (int, error) {
	outcomes := make(map[string]int, len(outcomeOrder))
	for o, n := range summary.CountByOutcome() {
		outcomes[o.String()] = n
	}

	return w.writeJSON(RunReport{
		Version:   w.version,
		Summary:   summary,
		Persisted: summary.TotalPersisted(),
		Discarded: summary.TotalDiscarded(),
		Outcomes:  outcomes,
	})
}

// WriteStats outputs dataset statistics in JSON format.
func (w *JSONWriter) WriteStats(stats []database.DatasetStats) (int, error) {
	if stats == nil {
		stats = []database.DatasetStats{}
	}
	return w.writeJSON(StatsReport{Version: w.version, Datasets: stats})
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return 0, err
	}

	// Add trailing newline for better terminal output
	data = append(data, '\n')

	return w.output.Write(data)
}
