// Package report renders finished audits.
//
// This package contains writers for different output formats:
//   - SimpleWriter: human-readable text output for terminal display
//   - JSONWriter: structured JSON output for tool integration
//   - MarkdownWriter: a shareable document with tables and a chart
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output.
package report
