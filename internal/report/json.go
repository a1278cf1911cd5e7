package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/nao1215/seoaudit/internal/model"
)

// JSONWriter outputs reports in JSON format.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	indent bool

	indentPrefix string
	indentString string

	// version, when set, wraps audits in a JSONReport envelope.
	version string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// WithVersion wraps every audit in a JSONReport carrying version.
func WithVersion(version string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.version = version
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// JSONReport wraps an audit with output metadata.
type JSONReport struct {
	Version     string       `json:"version"`
	GeneratedAt time.Time    `json:"generated_at"`
	Audit       *model.Audit `json:"audit"`
}

// Write outputs the audit in JSON format.
func (w *JSONWriter) Write(audit *model.Audit) (int, error) {
	if w.version == "" {
		return w.writeJSON(audit)
	}
	return w.writeJSON(&JSONReport{
		Version:     w.version,
		GeneratedAt: time.Now().UTC(),
		Audit:       audit,
	})
}

// WriteHistory outputs the history as a JSON array.
func (w *JSONWriter) WriteHistory(briefs []model.AuditBrief) (int, error) {
	if briefs == nil {
		briefs = []model.AuditBrief{}
	}
	return w.writeJSON(briefs)
}

func (w *JSONWriter) writeJSON(v any) (int, error) {
	var (
		data []byte
		err  error
	)
	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}

	// Trailing newline for better terminal output.
	data = append(data, '\n')
	return w.output.Write(data)
}
