package report

import (
	"io"

	"github.com/nao1215/seoaudit/internal/model"
)

// Writer renders audits to an output.
type Writer interface {
	// Write outputs one audit.
	// Returns the number of bytes written and any error encountered.
	Write(audit *model.Audit) (int, error)

	// WriteHistory outputs a list of past audits, newest first.
	WriteHistory(briefs []model.AuditBrief) (int, error)
}

// MultiWriter writes to multiple Writers in order.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the audit to all configured Writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(audit *model.Audit) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(audit)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteHistory outputs the history to all configured Writers.
func (m *MultiWriter) WriteHistory(briefs []model.AuditBrief) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteHistory(briefs)
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

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// statusText describes how an audit ended.
func statusText(audit *model.Audit) string {
	switch {
	case audit.TimedOut:
		return "Timed Out (partial results)"
	case audit.ErrorMessage != "":
		return "Error - " + audit.ErrorMessage
	default:
		return "Complete"
	}
}

// truncateString shortens s to maxLen runes with an ellipsis.
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
