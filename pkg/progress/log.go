package progress

import (
	"time"

	"github.com/Sternrassler/aiod-client/pkg/fetch"
	"github.com/rs/zerolog"
)

// DefaultLogEvery is the default completion interval between progress lines.
const DefaultLogEvery = 50

// Log writes progress as structured log lines.
type Log struct {
	Counter

	logger zerolog.Logger
	every  int
	start  time.Time
	items  int
}

// NewLog creates a reporter that logs every n completions (DefaultLogEvery if n <= 0).
func NewLog(logger zerolog.Logger, every int) *Log {
	if every <= 0 {
		every = DefaultLogEvery
	}
	return &Log{logger: logger, every: every}
}

// OnStart implements Reporter.
func (l *Log) OnStart(total int) {
	l.Counter = Counter{Total: total}
	l.items = TotalUnknown
	l.start = time.Now()

	ev := l.logger.Info()
	if total != TotalUnknown {
		ev = ev.Int("total", total)
	}
	ev.Msg("Starting fetch")
}

// OnTotal implements TotalUpdater.
func (l *Log) OnTotal(total int) {
	l.items = total
	l.logger.Debug().Int("total_items", total).Msg("Listing total known")
}

// OnItemComplete implements Reporter.
func (l *Log) OnItemComplete(index int, status fetch.Status) {
	l.record(status)
	if status == fetch.StatusFailure {
		l.logger.Debug().Int("index", index).Msg("Request failed")
	}
	if l.Done()%l.every != 0 {
		return
	}

	ev := l.logger.Info().Int("fetched", l.Done())
	if l.Total > 0 {
		ev = ev.Int("total", l.Total).
			Float64("progress_pct", float64(l.Done())/float64(l.Total)*100)
	}
	ev.Msg("Fetch progress")
}

// OnFinish implements Reporter.
func (l *Log) OnFinish() {
	ev := l.logger.Info()
	if l.Failed > 0 {
		ev = l.logger.Warn()
	}
	if l.items != TotalUnknown {
		ev = ev.Int("total_items", l.items)
	}
	ev.Int("succeeded", l.Succeeded).
		Int("failed", l.Failed).
		Dur("duration", time.Since(l.start)).
		Msg("Fetch complete")
}
