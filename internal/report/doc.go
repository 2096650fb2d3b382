// Package report provides report generation and output functionality.
//
// This package contains writers for different output formats:
//   - MarkdownWriter: Markdown with tables, alerts and mermaid charts
//   - SimpleWriter: Human-readable text output for terminal display
//   - JSONWriter: Structured JSON output for tool integration
//
// Every writer renders two documents: the summary of a harvest run and the
// statistics of the datasets in a store. Writers implement the Writer
// interface, allowing them to be used interchangeably and composed for
// multi-format output.
package report
