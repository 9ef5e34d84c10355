package observability

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// Event types written by the dashboard components.
const (
	EventAlertRaised    = "alert.raised"
	EventAlertDismissed = "alert.dismissed"
	EventAlertExpired   = "alert.expired"
	EventSimulatorTick  = "simulator.tick"
	EventSessionLogin   = "session.login"
	EventSessionLogout  = "session.logout"
	EventLoginRejected  = "session.login_rejected"
	EventCameraToggled  = "camera.toggled"
)

// Event levels. Alerts map their severity onto these; everything else is info.
const (
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

// maxEventLine bounds one JSONL record. Tick and alert events are far
// smaller; the limit only guards against a corrupt file.
const maxEventLine = 1 << 20

// Event is one line of the diagnostic log: an alert lifecycle step, a
// simulator tick, a session change or a camera toggle.
type Event struct {
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"`
	Type    string         `json:"type"`
	Message string         `json:"msg"`
	Data    map[string]any `json:"data,omitempty"`
}

// EventFilter selects events for reports. Zero fields match everything;
// Since and Until are inclusive.
type EventFilter struct {
	Since      *time.Time
	Until      *time.Time
	Type       string
	TypePrefix string
	Level      string
}

func (f EventFilter) matches(e Event) bool {
	switch {
	case f.Since != nil && e.Time.Before(*f.Since):
		return false
	case f.Until != nil && e.Time.After(*f.Until):
		return false
	case f.Type != "" && e.Type != f.Type:
		return false
	case f.TypePrefix != "" && !strings.HasPrefix(e.Type, f.TypePrefix):
		return false
	case f.Level != "" && e.Level != f.Level:
		return false
	}
	return true
}

// EventLog records what the alert queue, simulator, cameras and session did.
type EventLog interface {
	Write(event Event) error
	Read(filter EventFilter) ([]Event, error)
	Close() error
}

// eventFile keeps one append-only handle for writers and reopens the file
// for every Read, so reports see events written by other processes too.
type eventFile struct {
	mu   sync.Mutex
	path string
	w    *os.File
}

// NewJSONLEventLog opens or creates the event log at path.
func NewJSONLEventLog(path string) (EventLog, error) {
	w, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening event log: %w", err)
	}
	return &eventFile{path: path, w: w}, nil
}

func (l *eventFile) Write(event Event) error {
	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", event.Type, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.w.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("appending %s event: %w", event.Type, err)
	}
	return nil
}

// Read returns the recorded events matching filter, oldest first. A missing
// file is an empty log; lines that do not decode are skipped, so a torn
// final write from a crashed dashboard does not hide earlier events.
func (l *eventFile) Read(filter EventFilter) ([]Event, error) {
	f, err := os.Open(l.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening event log for reading: %w", err)
	}
	defer f.Close()

	var events []Event
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 4096), maxEventLine)
	for sc.Scan() {
		var e Event
		if json.Unmarshal(sc.Bytes(), &e) != nil {
			continue
		}
		if filter.matches(e) {
			events = append(events, e)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scanning event log: %w", err)
	}
	return events, nil
}

func (l *eventFile) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.w.Close(); err != nil {
		return fmt.Errorf("closing event log: %w", err)
	}
	return nil
}

// Emit writes an event when log is non-nil. Write failures are returned to
// the caller for logging; they never interrupt the emitting component.
func Emit(log EventLog, at time.Time, level, typ, msg string, data map[string]any) error {
	if log == nil {
		return nil
	}
	return log.Write(Event{
		Time:    at.UTC(),
		Level:   level,
		Type:    typ,
		Message: msg,
		Data:    data,
	})
}
