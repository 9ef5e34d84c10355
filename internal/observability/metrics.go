package observability

import (
	"fmt"
	"time"
)

// Report holds activity totals derived from the event log.
type Report struct {
	Ticks            int            `json:"ticks"`
	AlertsRaised     int            `json:"alerts_raised"`
	AlertsBySeverity map[string]int `json:"alerts_by_severity"`
	AlertsDismissed  int            `json:"alerts_dismissed"`
	AlertsExpired    int            `json:"alerts_expired"`
	Logins           int            `json:"logins"`
	RejectedLogins   int            `json:"rejected_logins"`
	Logouts          int            `json:"logouts"`
	CameraToggles    int            `json:"camera_toggles"`
	LastStats        *Stats         `json:"last_stats,omitempty"`
	EventCount       int            `json:"event_count"`
	OldestEvent      *time.Time     `json:"oldest_event,omitempty"`
	NewestEvent      *time.Time     `json:"newest_event,omitempty"`
}

// ReportCalculator derives a Report from the event log.
type ReportCalculator interface {
	Calculate(since time.Time) (*Report, error)
}

type reportCalculator struct {
	eventLog EventLog
}

// NewReportCalculator creates a ReportCalculator that reads from the given EventLog.
func NewReportCalculator(eventLog EventLog) ReportCalculator {
	return &reportCalculator{eventLog: eventLog}
}

// Calculate reads all events since the given time and aggregates them.
func (rc *reportCalculator) Calculate(since time.Time) (*Report, error) {
	events, err := rc.eventLog.Read(EventFilter{Since: &since})
	if err != nil {
		return nil, fmt.Errorf("reading events for report: %w", err)
	}

	r := &Report{AlertsBySeverity: make(map[string]int)}
	r.EventCount = len(events)

	for i, event := range events {
		t := event.Time
		if i == 0 {
			r.OldestEvent = &t
		}
		r.NewestEvent = &t

		switch event.Type {
		case EventSimulatorTick:
			r.Ticks++
			r.LastStats = statsFromEvent(event, r.LastStats)
		case EventAlertRaised:
			r.AlertsRaised++
			if sev, ok := event.Data["severity"].(string); ok {
				r.AlertsBySeverity[sev]++
			}
		case EventAlertDismissed:
			r.AlertsDismissed++
		case EventAlertExpired:
			r.AlertsExpired++
		case EventSessionLogin:
			r.Logins++
		case EventLoginRejected:
			r.RejectedLogins++
		case EventSessionLogout:
			r.Logouts++
		case EventCameraToggled:
			r.CameraToggles++
		}
	}

	return r, nil
}

// statsFromEvent reads the counters of a tick event. JSON numbers decode
// as float64.
func statsFromEvent(event Event, prev *Stats) *Stats {
	total, ok1 := event.Data["total_inspected"].(float64)
	pass, ok2 := event.Data["pass_count"].(float64)
	fail, ok3 := event.Data["fail_count"].(float64)
	if !ok1 || !ok2 || !ok3 {
		return prev
	}
	return &Stats{
		TotalInspected: int(total),
		PassCount:      int(pass),
		FailCount:      int(fail),
	}
}
