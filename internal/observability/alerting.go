package observability

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/visionqc/visionqc/internal/random"
	"github.com/visionqc/visionqc/internal/schedule"
)

// AlertSeverity is the visual class of a banner.
type AlertSeverity string

const (
	SeveritySuccess AlertSeverity = "success"
	SeverityWarning AlertSeverity = "warning"
	SeverityError   AlertSeverity = "error"
)

// DefaultDismissAfter is how long an alert stays visible when nothing
// dismisses it first.
const DefaultDismissAfter = 5 * time.Second

const (
	idAlphabet    = "0123456789abcdefghijklmnopqrstuvwxyz"
	idLength      = 9
	maxIDAttempts = 8
)

// Alert is one active notification.
type Alert struct {
	ID        string        `json:"id"`
	Severity  AlertSeverity `json:"severity"`
	Title     string        `json:"title"`
	Message   string        `json:"message"`
	CreatedAt time.Time     `json:"created_at"`
}

// AddOptions overrides the queue defaults for a single alert.
type AddOptions struct {
	// DismissAfter replaces the queue's default expiry when positive.
	DismissAfter time.Duration
	// Sticky disables auto-expiry; the alert stays until removed.
	Sticky bool
}

// QueueConfig configures an AlertQueue.
type QueueConfig struct {
	DismissAfter time.Duration
	Clock        schedule.Clock
	// NewID overrides identity generation. Duplicates of active identities
	// are retried, so it need not be collision free.
	NewID  func() string
	Events EventLog
	Logger zerolog.Logger
}

type queuedAlert struct {
	alert Alert
	seq   uint64
	timer schedule.Timer
}

// AlertQueue holds active alerts in insertion order and expires them.
type AlertQueue struct {
	mu           sync.Mutex
	entries      []queuedAlert
	seq          uint64
	closed       bool
	dismissAfter time.Duration
	clock        schedule.Clock
	newID        func() string
	events       EventLog
	log          zerolog.Logger
	observers    []func()
}

// NewAlertQueue creates an empty queue.
func NewAlertQueue(cfg QueueConfig) *AlertQueue {
	if cfg.DismissAfter <= 0 {
		cfg.DismissAfter = DefaultDismissAfter
	}
	if cfg.Clock == nil {
		cfg.Clock = schedule.Real()
	}
	if cfg.NewID == nil {
		src := random.New(0)
		cfg.NewID = func() string { return randomID(src) }
	}
	return &AlertQueue{
		dismissAfter: cfg.DismissAfter,
		clock:        cfg.Clock,
		newID:        cfg.NewID,
		events:       cfg.Events,
		log:          cfg.Logger.With().Str("component", "alert-queue").Logger(),
	}
}

func randomID(src random.Source) string {
	b := make([]byte, idLength)
	for i := range b {
		b[i] = idAlphabet[src.IntN(len(idAlphabet))]
	}
	return string(b)
}

// OnChange registers fn to run after every add or removal. Observers run
// outside the queue lock and may read the queue.
func (q *AlertQueue) OnChange(fn func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.observers = append(q.observers, fn)
}

// Add appends an alert with the default expiry and returns its identity.
func (q *AlertQueue) Add(severity AlertSeverity, title, message string) string {
	return q.AddWithOptions(severity, title, message, AddOptions{})
}

// AddWithOptions appends an alert and arms its expiry timer unless the alert
// is sticky or the queue is closed.
func (q *AlertQueue) AddWithOptions(severity AlertSeverity, title, message string, opts AddOptions) string {
	q.mu.Lock()
	id := q.uniqueIDLocked()
	q.seq++
	entry := queuedAlert{
		alert: Alert{
			ID:        id,
			Severity:  severity,
			Title:     title,
			Message:   message,
			CreatedAt: q.clock.Now(),
		},
		seq: q.seq,
	}

	after := q.dismissAfter
	if opts.DismissAfter > 0 {
		after = opts.DismissAfter
	}
	if !opts.Sticky && !q.closed {
		seq := entry.seq
		entry.timer = q.clock.AfterFunc(after, func() { q.expire(id, seq) })
	}
	q.entries = append(q.entries, entry)
	observers := q.observers
	q.mu.Unlock()

	q.log.Debug().Str("id", id).Str("severity", string(severity)).Str("title", title).Msg("alert raised")
	q.record(entry.alert.CreatedAt, levelFor(severity), EventAlertRaised, entry.alert, map[string]any{
		"sticky":        opts.Sticky,
		"dismiss_after": after.String(),
	})
	notify(observers)
	return id
}

// ShowSuccess adds a success alert.
func (q *AlertQueue) ShowSuccess(title, message string) string {
	return q.Add(SeveritySuccess, title, message)
}

// ShowWarning adds a warning alert.
func (q *AlertQueue) ShowWarning(title, message string) string {
	return q.Add(SeverityWarning, title, message)
}

// ShowError adds an error alert.
func (q *AlertQueue) ShowError(title, message string) string {
	return q.Add(SeverityError, title, message)
}

// Remove dismisses the alert with the given identity and cancels its expiry
// timer. It reports whether an alert was removed; an unknown identity is a
// no-op because expiry and dismissal may race.
func (q *AlertQueue) Remove(id string) bool {
	q.mu.Lock()
	idx := q.indexLocked(id)
	if idx < 0 {
		q.mu.Unlock()
		return false
	}
	entry := q.entries[idx]
	if entry.timer != nil {
		entry.timer.Stop()
	}
	q.entries = append(q.entries[:idx], q.entries[idx+1:]...)
	observers := q.observers
	q.mu.Unlock()

	q.log.Debug().Str("id", id).Msg("alert dismissed")
	q.record(q.clock.Now(), LevelInfo, EventAlertDismissed, entry.alert, nil)
	notify(observers)
	return true
}

// expire removes the alert armed with seq. A timer that lost the race with
// Remove finds nothing and returns without side effects.
func (q *AlertQueue) expire(id string, seq uint64) {
	q.mu.Lock()
	idx := q.indexLocked(id)
	if idx < 0 || q.entries[idx].seq != seq {
		q.mu.Unlock()
		return
	}
	entry := q.entries[idx]
	q.entries = append(q.entries[:idx], q.entries[idx+1:]...)
	observers := q.observers
	q.mu.Unlock()

	q.log.Debug().Str("id", id).Msg("alert expired")
	q.record(q.clock.Now(), LevelInfo, EventAlertExpired, entry.alert, nil)
	notify(observers)
}

// List returns a snapshot of the active alerts, oldest first.
func (q *AlertQueue) List() []Alert {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Alert, len(q.entries))
	for i, e := range q.entries {
		out[i] = e.alert
	}
	return out
}

// Len returns the number of active alerts.
func (q *AlertQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Close cancels every pending expiry timer and drops all alerts. Alerts added
// afterwards are kept until removed explicitly.
func (q *AlertQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	for _, e := range q.entries {
		if e.timer != nil {
			e.timer.Stop()
		}
	}
	q.entries = nil
	observers := q.observers
	q.mu.Unlock()

	notify(observers)
}

func (q *AlertQueue) indexLocked(id string) int {
	for i, e := range q.entries {
		if e.alert.ID == id {
			return i
		}
	}
	return -1
}

func (q *AlertQueue) uniqueIDLocked() string {
	for i := 0; i < maxIDAttempts; i++ {
		if id := q.newID(); q.indexLocked(id) < 0 {
			return id
		}
	}
	base := q.newID()
	for n := q.seq + 1; ; n++ {
		if id := fmt.Sprintf("%s-%d", base, n); q.indexLocked(id) < 0 {
			return id
		}
	}
}

func (q *AlertQueue) record(at time.Time, level, typ string, a Alert, extra map[string]any) {
	data := map[string]any{
		"alert_id": a.ID,
		"severity": string(a.Severity),
		"title":    a.Title,
	}
	for k, v := range extra {
		data[k] = v
	}
	if err := Emit(q.events, at, level, typ, a.Message, data); err != nil {
		q.log.Warn().Err(err).Str("type", typ).Msg("writing alert event")
	}
}

func levelFor(severity AlertSeverity) string {
	switch severity {
	case SeverityError:
		return LevelError
	case SeverityWarning:
		return LevelWarn
	default:
		return LevelInfo
	}
}

func notify(observers []func()) {
	for _, fn := range observers {
		fn()
	}
}
