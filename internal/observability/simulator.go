package observability

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/visionqc/visionqc/internal/random"
	"github.com/visionqc/visionqc/internal/schedule"
)

// Alert texts raised by the simulator.
const (
	AnomalyTitle         = "质量异常"
	AnomalyMessage       = "工位1检测到瓶身破损，已自动标记"
	LowConfidenceTitle   = "注意"
	LowConfidenceMessage = "工位2检测置信度略低，建议人工复查"
)

// Defaults matching the observed dashboard feed.
const (
	DefaultTickInterval  = 3 * time.Second
	DefaultMaxIncrement  = 2
	DefaultFailChance    = 0.2
	DefaultErrorChance   = 0.05
	DefaultWarningChance = 0.10

	defaultAverageLatency = 0.8
	defaultUptime         = "99.7%"
)

// Stats is the dashboard's statistics record.
type Stats struct {
	TotalInspected int     `json:"total_inspected"`
	PassCount      int     `json:"pass_count"`
	FailCount      int     `json:"fail_count"`
	AvgLatency     float64 `json:"avg_latency_seconds"`
	Uptime         string  `json:"uptime"`
}

// DefaultStats returns the figures the dashboard opens with.
func DefaultStats() Stats {
	return Stats{
		TotalInspected: 1247,
		PassCount:      1226,
		FailCount:      21,
		AvgLatency:     defaultAverageLatency,
		Uptime:         defaultUptime,
	}
}

// PassRate returns pass/total as a percentage, or 0 when nothing was inspected.
func (s Stats) PassRate() float64 {
	if s.TotalInspected == 0 {
		return 0
	}
	return float64(s.PassCount) / float64(s.TotalInspected) * 100
}

// PassRateString formats PassRate with one decimal place.
func (s Stats) PassRateString() string {
	return strconv.FormatFloat(s.PassRate(), 'f', 1, 64)
}

// AlertSink receives the alerts a tick decides to raise.
type AlertSink interface {
	Add(severity AlertSeverity, title, message string) string
}

// SimulatorConfig configures a Simulator.
type SimulatorConfig struct {
	Interval           time.Duration
	MaxIncrement       int
	FailProbability    float64
	ErrorProbability   float64
	WarningProbability float64
	// EnforceBounds clamps the pass and fail increments so that
	// pass + fail never exceeds total.
	EnforceBounds bool
	Initial       Stats
	Clock         schedule.Clock
	Rand          random.Source
	Events        EventLog
	Logger        zerolog.Logger
}

// DefaultSimulatorConfig returns the observed dashboard behaviour.
func DefaultSimulatorConfig() SimulatorConfig {
	return SimulatorConfig{
		Interval:           DefaultTickInterval,
		MaxIncrement:       DefaultMaxIncrement,
		FailProbability:    DefaultFailChance,
		ErrorProbability:   DefaultErrorChance,
		WarningProbability: DefaultWarningChance,
		Initial:            DefaultStats(),
	}
}

// TickResult describes what one tick changed.
type TickResult struct {
	Before   Stats
	After    Stats
	Severity AlertSeverity // empty when no alert was raised
	AlertID  string
}

// Simulator mutates Stats on a fixed tick and feeds an AlertSink.
type Simulator struct {
	mu        sync.Mutex
	cfg       SimulatorConfig
	stats     Stats
	ticks     int
	sink      AlertSink
	log       zerolog.Logger
	observers []func(TickResult)
}

// NewSimulator creates a Simulator. sink may be nil to discard alerts.
func NewSimulator(cfg SimulatorConfig, sink AlertSink) *Simulator {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultTickInterval
	}
	if cfg.MaxIncrement <= 0 {
		cfg.MaxIncrement = DefaultMaxIncrement
	}
	if cfg.Clock == nil {
		cfg.Clock = schedule.Real()
	}
	if cfg.Rand == nil {
		cfg.Rand = random.New(0)
	}
	return &Simulator{
		cfg:   cfg,
		stats: cfg.Initial,
		sink:  sink,
		log:   cfg.Logger.With().Str("component", "simulator").Logger(),
	}
}

// OnTick registers fn to run after every tick, outside the simulator lock.
func (s *Simulator) OnTick(fn func(TickResult)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// Snapshot returns the current statistics.
func (s *Simulator) Snapshot() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Ticks returns how many ticks have run.
func (s *Simulator) Ticks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticks
}

// Tick performs one update. Draws happen in a fixed order: total increment,
// pass increment, fail chance, error chance, then warning chance only when
// no error fired. The chosen alert is handed to the sink after the counters
// are committed.
func (s *Simulator) Tick() TickResult {
	s.mu.Lock()
	r := s.cfg.Rand
	span := s.cfg.MaxIncrement + 1
	before := s.stats

	total := r.IntN(span)
	pass := r.IntN(span)
	fail := 0
	if r.Float64() < s.cfg.FailProbability {
		fail = 1
	}

	var severity AlertSeverity
	if r.Float64() < s.cfg.ErrorProbability {
		severity = SeverityError
	} else if r.Float64() < s.cfg.WarningProbability {
		severity = SeverityWarning
	}

	next := before
	next.TotalInspected += total
	if s.cfg.EnforceBounds {
		room := next.TotalInspected - next.PassCount - next.FailCount
		pass = clamp(pass, room)
		fail = clamp(fail, room-pass)
	}
	next.PassCount += pass
	next.FailCount += fail
	s.stats = next
	s.ticks++
	observers := s.observers
	s.mu.Unlock()

	res := TickResult{Before: before, After: next, Severity: severity}
	if s.sink != nil {
		switch severity {
		case SeverityError:
			res.AlertID = s.sink.Add(SeverityError, AnomalyTitle, AnomalyMessage)
		case SeverityWarning:
			res.AlertID = s.sink.Add(SeverityWarning, LowConfidenceTitle, LowConfidenceMessage)
		}
	}

	s.log.Debug().
		Int("total", next.TotalInspected).
		Int("pass", next.PassCount).
		Int("fail", next.FailCount).
		Str("alert", string(severity)).
		Msg("tick")
	if err := Emit(s.cfg.Events, s.cfg.Clock.Now(), LevelInfo, EventSimulatorTick, "simulator tick", map[string]any{
		"total_inspected": next.TotalInspected,
		"pass_count":      next.PassCount,
		"fail_count":      next.FailCount,
		"alert":           string(severity),
	}); err != nil {
		s.log.Warn().Err(err).Msg("writing tick event")
	}

	for _, fn := range observers {
		fn(res)
	}
	return res
}

// Start arms the periodic tick and returns the function that disarms it.
func (s *Simulator) Start() (stop func()) {
	timer := schedule.Every(s.cfg.Clock, s.cfg.Interval, func() { s.Tick() })
	s.log.Info().Dur("interval", s.cfg.Interval).Msg("simulator started")
	return func() {
		if timer.Stop() {
			s.log.Info().Int("ticks", s.Ticks()).Msg("simulator stopped")
		}
	}
}

// Run ticks until ctx is done, then disarms the timer and returns ctx.Err().
func (s *Simulator) Run(ctx context.Context) error {
	stop := s.Start()
	defer stop()
	<-ctx.Done()
	return ctx.Err()
}

func clamp(v, limit int) int {
	if limit < 0 {
		return 0
	}
	if v > limit {
		return limit
	}
	return v
}
