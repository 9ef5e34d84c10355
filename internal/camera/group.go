package camera

import (
	"github.com/rs/zerolog"
	"github.com/visionqc/visionqc/internal/observability"
	"github.com/visionqc/visionqc/internal/random"
	"github.com/visionqc/visionqc/internal/schedule"
	"github.com/visionqc/visionqc/pkg/models"
)

// DefaultStations returns the two stations of the stock line.
func DefaultStations() []models.CameraConfig {
	return []models.CameraConfig{
		{ID: "camera-1", Title: "工位1 - 主检测线", Active: true},
		{ID: "camera-2", Title: "工位2 - 备用检测线"},
	}
}

// GroupOptions holds the settings shared by every monitor in a Group.
type GroupOptions struct {
	Poll   models.CameraPollConfig
	Seed   uint64
	Clock  schedule.Clock
	Events observability.EventLog
	Logger zerolog.Logger
}

// Group owns the monitors of one dashboard session.
type Group struct {
	monitors []*Monitor
}

// NewGroup creates one idle Monitor per configured station. Each monitor
// draws from its own random stream.
func NewGroup(opts GroupOptions) *Group {
	stations := opts.Poll.Stations
	if len(stations) == 0 {
		stations = DefaultStations()
	}
	g := &Group{}
	for i, st := range stations {
		g.monitors = append(g.monitors, NewMonitor(Config{
			ID:                 st.ID,
			Title:              st.Title,
			Active:             st.Active,
			Interval:           opts.Poll.Interval,
			WarningProbability: opts.Poll.WarningProbability,
			Clock:              opts.Clock,
			Rand:               random.Derive(opts.Seed, i+1),
			Events:             opts.Events,
			Logger:             opts.Logger,
		}))
	}
	return g
}

// Monitors returns the monitors in station order.
func (g *Group) Monitors() []*Monitor {
	return g.monitors
}

// Get returns the monitor with the given id, or nil.
func (g *Group) Get(id string) *Monitor {
	for _, m := range g.monitors {
		if m.ID() == id {
			return m
		}
	}
	return nil
}

// StartAll starts every idle monitor and returns how many changed state.
func (g *Group) StartAll() int {
	n := 0
	for _, m := range g.monitors {
		if m.Start() {
			n++
		}
	}
	return n
}

// StopAll stops every detecting monitor and returns how many changed state.
func (g *Group) StopAll() int {
	n := 0
	for _, m := range g.monitors {
		if m.Stop() {
			n++
		}
	}
	return n
}

// Snapshots returns the state of every monitor.
func (g *Group) Snapshots() []Snapshot {
	out := make([]Snapshot, len(g.monitors))
	for i, m := range g.monitors {
		out[i] = m.Snapshot()
	}
	return out
}

// Close disarms every monitor.
func (g *Group) Close() {
	for _, m := range g.monitors {
		m.Close()
	}
}
