package history

import (
	"context"
	"log/slog"
	"time"

	"github.com/timedial/timephone/internal/call"
)

// Recorder adapts the call log to the controller's recorder contract.
// Writes happen on the controller's goroutine, so each gets a short
// deadline rather than blocking a hangup on a slow disk.
type Recorder struct {
	log    *Log
	logger *slog.Logger
}

// NewRecorder wraps the call log. logger may be nil.
func NewRecorder(l *Log, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{log: l, logger: logger}
}

// Record implements call.Recorder.
func (r *Recorder) Record(rec call.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err := r.log.Record(ctx, Entry{
		Year:         rec.Year,
		Persona:      rec.Persona,
		StartedAt:    rec.StartedAt,
		DurationSecs: rec.DurationSecs,
	})
	if err != nil {
		r.logger.Error("failed to record call", "year", rec.Year, "error", err)
	}
}
