// Package camera models the per-station detection toggle shown on the
// dashboard. Each Monitor owns one polling timer that exists only while the
// station is detecting.
package camera

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/visionqc/visionqc/internal/observability"
	"github.com/visionqc/visionqc/internal/random"
	"github.com/visionqc/visionqc/internal/schedule"
)

// Status is the connection state displayed next to a camera title.
type Status string

const (
	StatusOnline  Status = "online"
	StatusWarning Status = "warning"
	StatusOffline Status = "offline"
)

// Label returns the dashboard text for s.
func (s Status) Label() string {
	switch s {
	case StatusOnline:
		return "在线"
	case StatusWarning:
		return "警告"
	default:
		return "离线"
	}
}

const (
	DefaultPollInterval       = 2 * time.Second
	DefaultWarningProbability = 0.10
)

// Config configures a Monitor.
type Config struct {
	ID    string
	Title string
	// Active marks the primary station. It affects presentation only.
	Active             bool
	Interval           time.Duration
	WarningProbability float64
	Clock              schedule.Clock
	Rand               random.Source
	Events             observability.EventLog
	Logger             zerolog.Logger
}

// Snapshot is a point-in-time view of a Monitor.
type Snapshot struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Active    bool   `json:"active"`
	Detecting bool   `json:"detecting"`
	Status    Status `json:"status"`
	Polls     int    `json:"polls"`
}

// Monitor is one camera's idle/detecting state machine.
type Monitor struct {
	mu        sync.Mutex
	cfg       Config
	detecting bool
	status    Status
	polls     int
	timer     schedule.Timer
	closed    bool
	observers []func(Snapshot)
	log       zerolog.Logger
}

// NewMonitor creates an idle Monitor reporting online.
func NewMonitor(cfg Config) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultPollInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = schedule.Real()
	}
	if cfg.Rand == nil {
		cfg.Rand = random.New(0)
	}
	return &Monitor{
		cfg:    cfg,
		status: StatusOnline,
		log:    cfg.Logger.With().Str("component", "camera").Str("camera", cfg.ID).Logger(),
	}
}

// ID returns the camera identifier.
func (m *Monitor) ID() string { return m.cfg.ID }

// Title returns the display title.
func (m *Monitor) Title() string { return m.cfg.Title }

// OnChange registers fn to run after every state change, outside the lock.
func (m *Monitor) OnChange(fn func(Snapshot)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, fn)
}

// Start begins detection and arms the poll timer. It reports whether the
// state changed.
func (m *Monitor) Start() bool {
	m.mu.Lock()
	if m.detecting || m.closed {
		m.mu.Unlock()
		return false
	}
	m.detecting = true
	m.timer = schedule.Every(m.cfg.Clock, m.cfg.Interval, m.poll)
	snap, observers := m.snapshotLocked(), m.observers
	m.mu.Unlock()

	m.changed(snap, observers)
	return true
}

// Stop ends detection and disarms the poll timer. The last polled status is
// kept. It reports whether the state changed.
func (m *Monitor) Stop() bool {
	m.mu.Lock()
	if !m.detecting {
		m.mu.Unlock()
		return false
	}
	m.disarmLocked()
	snap, observers := m.snapshotLocked(), m.observers
	m.mu.Unlock()

	m.changed(snap, observers)
	return true
}

// Toggle flips between idle and detecting and returns the new state.
func (m *Monitor) Toggle() bool {
	if m.Detecting() {
		m.Stop()
		return false
	}
	return m.Start()
}

// Detecting reports whether the poll timer is armed.
func (m *Monitor) Detecting() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.detecting
}

// Status returns the current connection status.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Snapshot returns the current state.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Close disarms the timer and refuses further starts.
func (m *Monitor) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	if m.detecting {
		m.disarmLocked()
	}
}

func (m *Monitor) poll() {
	m.mu.Lock()
	if !m.detecting {
		m.mu.Unlock()
		return
	}
	next := StatusOnline
	if m.cfg.Rand.Float64() > 1-m.cfg.WarningProbability {
		next = StatusWarning
	}
	prev := m.status
	m.status = next
	m.polls++
	snap, observers := m.snapshotLocked(), m.observers
	m.mu.Unlock()

	if next != prev {
		m.log.Debug().Str("status", string(next)).Msg("connection status changed")
	}
	for _, fn := range observers {
		fn(snap)
	}
}

func (m *Monitor) disarmLocked() {
	m.detecting = false
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func (m *Monitor) snapshotLocked() Snapshot {
	return Snapshot{
		ID:        m.cfg.ID,
		Title:     m.cfg.Title,
		Active:    m.cfg.Active,
		Detecting: m.detecting,
		Status:    m.status,
		Polls:     m.polls,
	}
}

func (m *Monitor) changed(snap Snapshot, observers []func(Snapshot)) {
	m.log.Info().Bool("detecting", snap.Detecting).Msg("detection toggled")
	if err := observability.Emit(m.cfg.Events, m.cfg.Clock.Now(), observability.LevelInfo, observability.EventCameraToggled,
		"camera detection toggled", map[string]any{
			"camera":    snap.ID,
			"detecting": snap.Detecting,
		}); err != nil {
		m.log.Warn().Err(err).Msg("writing camera event")
	}
	for _, fn := range observers {
		fn(snap)
	}
}
