package httpclient

import (
	"context"
	"log/slog"
	"time"
)

// Record describes one executor transition.
type Record struct {
	CallID   string
	Endpoint string
	Method   string
	URL      string
	Attempt  int
	Pool     string
	Status   int
	Class    Class
	Action   Action
	Reason   string
	Delay    time.Duration
	Duration time.Duration
	At       time.Time
}

// Recorder receives every decision the executor makes. Implementations must
// not block the call for long and must not fail it.
type Recorder interface {
	Record(ctx context.Context, r Record)
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, r Record)

func (f RecorderFunc) Record(ctx context.Context, r Record) { f(ctx, r) }

// MultiRecorder fans a record out to several recorders.
type MultiRecorder []Recorder

func (m MultiRecorder) Record(ctx context.Context, r Record) {
	for _, rec := range m {
		if rec != nil {
			rec.Record(ctx, r)
		}
	}
}

// LogRecorder writes decisions to a slog.Logger.
type LogRecorder struct {
	Log *slog.Logger
}

func (l LogRecorder) Record(ctx context.Context, r Record) {
	log := l.Log
	if log == nil {
		log = slog.Default()
	}
	attrs := []slog.Attr{
		slog.String("call_id", r.CallID),
		slog.String("endpoint", r.Endpoint),
		slog.String("method", r.Method),
		slog.String("url", r.URL),
		slog.Int("attempt", r.Attempt),
		slog.String("pool", r.Pool),
		slog.String("class", r.Class.String()),
		slog.String("action", r.Action.String()),
		slog.String("reason", r.Reason),
	}
	if r.Status != 0 {
		attrs = append(attrs, slog.Int("status", r.Status))
	}
	if r.Delay > 0 {
		attrs = append(attrs, slog.Duration("wait", r.Delay))
	}
	if r.Duration > 0 {
		attrs = append(attrs, slog.Duration("dur", r.Duration))
	}

	level := slog.LevelInfo
	msg := "http request"
	switch r.Action {
	case ActionRetry, ActionFailover:
		level, msg = slog.LevelWarn, "retry decision"
	case ActionFail, ActionGiveUp:
		level = slog.LevelWarn
		if r.Status != 0 {
			msg = "http request status"
		} else {
			msg = "http request error"
		}
	}
	log.LogAttrs(ctx, level, msg, attrs...)
}
