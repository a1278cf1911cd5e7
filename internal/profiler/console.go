package profiler

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/css"
	"github.com/chromedp/cdproto/runtime"

	"github.com/nao1215/seoaudit/internal/model"
)

// recorder collects console output, uncaught exceptions and stylesheet
// sizes emitted while a page loads.
type recorder struct {
	mu       sync.Mutex
	messages []model.ConsoleMessage
	errors   []string
	sheets   map[string]int64
}

func newRecorder() *recorder {
	return &recorder{sheets: make(map[string]int64)}
}

func (r *recorder) handle(ev any) {
	switch e := ev.(type) {
	case *runtime.EventConsoleAPICalled:
		msg, ok := consoleMessage(e)
		if !ok {
			return
		}
		r.mu.Lock()
		r.messages = append(r.messages, msg)
		r.mu.Unlock()
	case *runtime.EventExceptionThrown:
		text := exceptionText(e.ExceptionDetails)
		r.mu.Lock()
		r.errors = append(r.errors, text)
		r.mu.Unlock()
	case *css.EventStyleSheetAdded:
		if e.Header == nil {
			return
		}
		r.mu.Lock()
		r.sheets[string(e.Header.StyleSheetID)] = int64(e.Header.Length)
		r.mu.Unlock()
	}
}

func (r *recorder) snapshot() ([]model.ConsoleMessage, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	messages := make([]model.ConsoleMessage, len(r.messages))
	copy(messages, r.messages)
	errs := make([]string, len(r.errors))
	copy(errs, r.errors)
	return messages, errs
}

func (r *recorder) styleSheetSizes() map[string]int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	sizes := make(map[string]int64, len(r.sheets))
	for k, v := range r.sheets {
		sizes[k] = v
	}
	return sizes
}

// consoleMessage keeps warnings and errors only.
func consoleMessage(e *runtime.EventConsoleAPICalled) (model.ConsoleMessage, bool) {
	var kind string
	switch e.Type {
	case runtime.APITypeWarning:
		kind = "warn"
	case runtime.APITypeError:
		kind = "error"
	default:
		return model.ConsoleMessage{}, false
	}
	parts := make([]string, 0, len(e.Args))
	for _, arg := range e.Args {
		if s := remoteObjectText(arg); s != "" {
			parts = append(parts, s)
		}
	}
	return model.ConsoleMessage{Type: kind, Text: strings.Join(parts, " ")}, true
}

func remoteObjectText(obj *runtime.RemoteObject) string {
	if obj == nil {
		return ""
	}
	if len(obj.Value) > 0 {
		var s string
		if err := json.Unmarshal(obj.Value, &s); err == nil {
			return s
		}
		return string(obj.Value)
	}
	if obj.UnserializableValue != "" {
		return string(obj.UnserializableValue)
	}
	return obj.Description
}

// exceptionText returns the first line of the exception description,
// which carries the error name and message without the stack.
func exceptionText(details *runtime.ExceptionDetails) string {
	if details == nil {
		return "unknown error"
	}
	if details.Exception != nil {
		desc := details.Exception.Description
		if desc == "" {
			desc = remoteObjectText(details.Exception)
		}
		if line, _, _ := strings.Cut(desc, "\n"); strings.TrimSpace(line) != "" {
			return strings.TrimSpace(line)
		}
	}
	if details.Text != "" {
		return details.Text
	}
	return "unknown error"
}
