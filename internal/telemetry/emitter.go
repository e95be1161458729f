// Package telemetry emits one JSON metadata event per newsletter run to a
// pluggable sink. Events cover cache behavior and branch outcomes; no
// newsletter content or user text leaves the process.
package telemetry

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RunEvent describes one completed (or failed) newsletter generation.
type RunEvent struct {
	EventID    string    `json:"event_id"`
	EventTS    time.Time `json:"event_ts"`
	EventType  string    `json:"event_type"` // "newsletter_run"
	SessionID  string    `json:"session_id"`
	Profession string    `json:"profession"`
	Window     string    `json:"window"`
	Source     string    `json:"source"` // "cache" or "fresh"
	Fresh      bool      `json:"fresh_requested"`
	Partial    bool      `json:"partial"`
	Points     int       `json:"points"`
	NewsErr    string    `json:"news_error,omitempty"`
	ToolsErr   string    `json:"tools_error,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	Err        string    `json:"error,omitempty"`
}

// Emitter writes run events as JSON lines. A nil *Emitter is a no-op, so
// callers never need to branch on whether telemetry is enabled.
type Emitter struct {
	mu        sync.Mutex
	sink      io.Writer
	closer    io.Closer
	sessionID string
	log       *logrus.Logger
}

// New creates an emitter writing to sink.
func New(sink io.Writer, log *logrus.Logger) *Emitter {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Emitter{
		sink:      sink,
		sessionID: uuid.NewString(),
		log:       log,
	}
}

// NewFile creates an emitter appending to a JSONL file.
func NewFile(path string, log *logrus.Logger) (*Emitter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	e := New(f, log)
	e.closer = f
	return e, nil
}

// SessionID returns the emitter's session identifier.
func (e *Emitter) SessionID() string {
	if e == nil {
		return ""
	}
	return e.sessionID
}

// EmitRun records one newsletter run. Failures are logged and swallowed —
// telemetry must never interfere with the main flow.
func (e *Emitter) EmitRun(ev RunEvent) {
	if e == nil {
		return
	}
	ev.EventID = uuid.NewString()
	ev.EventTS = time.Now().UTC()
	ev.EventType = "newsletter_run"
	ev.SessionID = e.sessionID

	data, err := json.Marshal(ev)
	if err != nil {
		e.log.WithError(err).Debug("telemetry marshal failed")
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.sink.Write(append(data, '\n')); err != nil {
		e.log.WithError(err).Debug("telemetry write failed")
	}
}

// Close releases the underlying file, if any.
func (e *Emitter) Close() error {
	if e == nil || e.closer == nil {
		return nil
	}
	return e.closer.Close()
}
