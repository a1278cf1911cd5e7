package pipeline

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Stage is a pipeline milestone. Its value is the completion percentage
// reported when the milestone is reached.
type Stage int

// Milestones in the order an audit reaches them.
const (
	StageDiscovering         Stage = 10
	StageCrawlComplete       Stage = 20
	StageAnalyzing           Stage = 30
	StageAnalysisComplete    Stage = 50
	StageAggregating         Stage = 60
	StageAggregationComplete Stage = 65
	StageScoring             Stage = 70
	StageScoringComplete     Stage = 75
	StageSummarizing         Stage = 80
	StageSummaryComplete     Stage = 90
	StageDone                Stage = 100
)

// StageFailed is reported when the audit stops on an error.
const StageFailed Stage = -1

// Percent returns the completion percentage of s. StageFailed has none.
func (s Stage) Percent() int {
	if s < 0 {
		return 0
	}
	return int(s)
}

// String returns the milestone name.
func (s Stage) String() string {
	switch s {
	case StageDiscovering:
		return "discovering"
	case StageCrawlComplete:
		return "crawl_complete"
	case StageAnalyzing:
		return "analyzing"
	case StageAnalysisComplete:
		return "analysis_complete"
	case StageAggregating:
		return "aggregating"
	case StageAggregationComplete:
		return "aggregation_complete"
	case StageScoring:
		return "scoring"
	case StageScoringComplete:
		return "scoring_complete"
	case StageSummarizing:
		return "summarizing"
	case StageSummaryComplete:
		return "summary_complete"
	case StageDone:
		return "done"
	case StageFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// allStages lists every stage, StageFailed included.
var allStages = []Stage{
	StageDiscovering, StageCrawlComplete, StageAnalyzing, StageAnalysisComplete,
	StageAggregating, StageAggregationComplete, StageScoring, StageScoringComplete,
	StageSummarizing, StageSummaryComplete, StageDone, StageFailed,
}

// ParseStage returns the stage named name.
func ParseStage(name string) (Stage, error) {
	for _, s := range allStages {
		if s.String() == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown stage %q", name)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Stage) UnmarshalText(text []byte) error {
	stage, err := ParseStage(string(text))
	if err != nil {
		return err
	}
	*s = stage
	return nil
}

// Progress is one progress notification.
type Progress struct {
	AuditID uuid.UUID `json:"audit_id"`
	URL     string    `json:"url"`
	Stage   Stage     `json:"stage"`
	Percent int       `json:"percent"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// Sink receives progress notifications. Notify is called synchronously
// from the pipeline and must not block for long.
type Sink interface {
	Notify(p Progress)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(p Progress)

// Notify calls f.
func (f SinkFunc) Notify(p Progress) { f(p) }

// ChanSink forwards notifications to a channel, dropping them when the
// channel is full so a slow reader never stalls an audit.
type ChanSink chan<- Progress

// Notify implements Sink.
func (c ChanSink) Notify(p Progress) {
	select {
	case c <- p:
	default:
	}
}

// LogSink logs every notification at info level.
type LogSink struct {
	Logger *slog.Logger
}

// Notify implements Sink.
func (l LogSink) Notify(p Progress) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info(p.Message, "url", p.URL, "stage", p.Stage.String(), "percent", p.Percent)
}

// MultiSink fans notifications out to several sinks in order.
type MultiSink []Sink

// Notify implements Sink.
func (m MultiSink) Notify(p Progress) {
	for _, s := range m {
		if s != nil {
			s.Notify(p)
		}
	}
}

type nopSink struct{}

func (nopSink) Notify(Progress) {}
