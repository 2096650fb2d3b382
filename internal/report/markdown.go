package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/reviewharvest/internal/database"
	"github.com/nao1215/reviewharvest/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// WriteRun outputs the run summary in Markdown format.
func (w *MarkdownWriter) WriteRun(summary *model.RunSummary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeRunHeader(md, summary)
	w.writeOutcomes(md, summary)
	w.writeTargets(md, summary)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeRunHeader writes the report header with run information.
func (w *MarkdownWriter) writeRunHeader(md *markdown.Markdown, summary *model.RunSummary) {
	md.H1("Review Harvest Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Started", summary.StartedAt.Format(timeLayout)},
			{"Finished", summary.FinishedAt.Format(timeLayout)},
			{"Duration", summary.Duration().Round(time.Second).String()},
			{"Targets", strconv.Itoa(len(summary.Targets))},
			{"Partitions", strconv.Itoa(len(summary.Results))},
			{"Reviews Persisted", strconv.Itoa(summary.TotalPersisted())},
			{"Reviews Discarded", strconv.Itoa(summary.TotalDiscarded())},
			{"Status", statusText(summary)},
		},
	})
	md.PlainText("")
}

// statusText returns the status text based on summary state.
func statusText(summary *model.RunSummary) string {
	if summary.Interrupted {
		return "⚠️ Interrupted (partial results)"
	}
	if summary.CountByOutcome()[model.OutcomeAbandoned] > 0 {
		return "🟠 Complete with abandoned partitions"
	}
	return "✅ Complete"
}

// writeOutcomes writes the outcome summary section.
func (w *MarkdownWriter) writeOutcomes(md *markdown.Markdown, summary *model.RunSummary) {
	md.H2("Partition Outcomes")
	md.PlainText("")

	counts := summary.CountByOutcome()
	rows := make([][]string, 0, len(outcomeOrder)+1)
	for _, o := range outcomeOrder {
		rows = append(rows, []string{o.String(), strconv.Itoa(counts[o])})
	}
	rows = append(rows, []string{"**Total**", "**" + strconv.Itoa(len(summary.Results)) + "**"})

	md.Table(markdown.TableSet{
		Header: []string{"Outcome", "Partitions"},
		Rows:   rows,
	})
	md.PlainText("")

	if len(summary.Results) > 0 {
		w.writeOutcomeChart(md, counts)
	}
	w.writeAlert(md, summary)
}

// writeOutcomeChart writes a mermaid pie chart of partition outcomes.
func (w *MarkdownWriter) writeOutcomeChart(md *markdown.Markdown, counts map[model.Outcome]int) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Partition Outcomes"),
		piechart.WithShowData(true),
	)
	for _, o := range outcomeOrder {
		if counts[o] > 0 {
			chart.LabelAndIntValue(o.String(), uint64(counts[o]))
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an alert describing anything that needs attention.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, summary *model.RunSummary) {
	abandoned := summary.CountByOutcome()[model.OutcomeAbandoned]
	switch {
	case summary.Interrupted:
		md.Warningf(
			"The run was interrupted. Reviews buffered by unfinished partitions were not saved (%d discarded).",
			summary.TotalDiscarded(),
		)
	case abandoned > 0:
		md.Cautionf(
			"%d partition(s) were abandoned after a fetch failure and %d buffered review(s) were discarded.",
			abandoned, summary.TotalDiscarded(),
		)
	case len(summary.Skipped) > 0:
		md.Importantf("%d target(s) were skipped because their metadata could not be resolved.", len(summary.Skipped))
	case summary.TotalPersisted() == 0:
		md.Note("The run finished without persisting any new review.")
	default:
		md.Tip("Every partition finished normally.")
	}
	md.PlainText("")
}

// writeTargets writes one section per target with its partitions.
func (w *MarkdownWriter) writeTargets(md *markdown.Markdown, summary *model.RunSummary) {
	md.H2("Targets")
	md.PlainText("")

	if len(summary.Targets) == 0 {
		md.PlainText("No target was harvested.")
		md.PlainText("")
	}

	byTarget := resultsByTarget(summary)
	for _, target := range summary.Targets {
		md.H3(fmt.Sprintf("%s (`%s`)", target.DisplayName(), target.ID))
		md.PlainText("")
		w.writePartitionTable(md, byTarget[target.ID])
	}

	if len(summary.Skipped) > 0 {
		md.H3("Skipped")
		md.PlainText("")
		md.BulletList(summary.Skipped...)
		md.PlainText("")
	}
}

// writePartitionTable writes a table of partition results with error details.
func (w *MarkdownWriter) writePartitionTable(md *markdown.Markdown, results []model.PartitionResult) {
	if len(results) == 0 {
		md.PlainText("No partition ran.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(results))
	for i, r := range results {
		rows[i] = []string{
			r.Partition.Level.String(),
			localeName(r.Partition.Locale),
			r.Outcome.String(),
			strconv.Itoa(r.Fetches),
			strconv.Itoa(r.Accumulated),
			strconv.Itoa(r.Persisted),
			strconv.Itoa(r.Discarded),
			r.Elapsed.Round(time.Millisecond).String(),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Level", "Locale", "Outcome", "Fetches", "Accumulated", "Persisted", "Discarded", "Elapsed"},
		Rows:   rows,
	})
	md.PlainText("")

	for _, r := range results {
		if r.Error != "" {
			md.Details(r.Partition.String(), truncateString(r.Error, 500))
		}
	}
	md.PlainText("")
}

// WriteStats outputs dataset statistics in Markdown format.
func (w *MarkdownWriter) WriteStats(stats []database.DatasetStats) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Dataset Statistics")
	md.PlainText("")

	if len(stats) == 0 {
		md.Note("No dataset found. Run `reviewharvest harvest` first.")
		md.PlainText("")
		return len(md.String()), md.Build()
	}

	rows := make([][]string, 0, len(stats)+1)
	total := 0
	byLevel := make(map[model.SeverityLevel]int)
	for _, st := range stats {
		rows = append(rows, []string{
			"`" + st.Key.TargetID + "`",
			st.Key.Level.String(),
			strconv.Itoa(st.Reviews),
			languageBreakdown(st.ByLanguage),
			strconv.Itoa(st.Translated),
			strconv.Itoa(st.Failed),
		})
		total += st.Reviews
		byLevel[st.Key.Level] += st.Reviews
	}
	rows = append(rows, []string{"**Total**", "", "**" + strconv.Itoa(total) + "**", "", "", ""})

	md.Table(markdown.TableSet{
		Header: []string{"Target", "Level", "Reviews", "Languages", "Translated", "Failed"},
		Rows:   rows,
	})
	md.PlainText("")

	if total > 0 {
		chart := piechart.NewPieChart(
			io.Discard,
			piechart.WithTitle("Reviews by Severity Level"),
			piechart.WithShowData(true),
		)
		for _, level := range model.AllSeverityLevels() {
			if byLevel[level] > 0 {
				chart.LabelAndIntValue(level.String(), uint64(byLevel[level]))
			}
		}
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}

	w.writeFooter(md)
	return len(md.String()), md.Build()
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [reviewharvest](https://github.com/nao1215/reviewharvest)*")
}
