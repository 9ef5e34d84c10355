package cli

import (
	"context"

	"github.com/visionqc/visionqc/internal/camera"
	"github.com/visionqc/visionqc/internal/core"
	"github.com/visionqc/visionqc/internal/observability"
	"github.com/visionqc/visionqc/internal/random"
	"github.com/visionqc/visionqc/internal/schedule"
	"github.com/visionqc/visionqc/pkg/models"
)

// liveFeed owns the timers of one dashboard session: the alert queue, the
// metric simulator and the camera monitors. Close disarms all of them.
type liveFeed struct {
	clock   schedule.Clock
	queue   *observability.AlertQueue
	sim     *observability.Simulator
	cameras *camera.Group
	stopSim func()
}

// currentConfig returns Config, or the defaults before app wiring.
func currentConfig() *models.Config {
	if Config != nil {
		return Config
	}
	return core.DefaultConfig()
}

func newLiveFeed(clock schedule.Clock) *liveFeed {
	cfg := currentConfig()
	if clock == nil {
		clock = schedule.Real()
	}
	seed := cfg.Simulator.Seed

	queue := observability.NewAlertQueue(observability.QueueConfig{
		DismissAfter: cfg.AlertDismissAfter,
		Clock:        clock,
		Events:       EventLog,
		Logger:       Logger,
	})

	simCfg := simulatorConfig(cfg.Simulator)
	simCfg.Clock = clock
	simCfg.Rand = random.Derive(seed, 0)
	simCfg.Events = EventLog
	simCfg.Logger = Logger

	return &liveFeed{
		clock: clock,
		queue: queue,
		sim:   observability.NewSimulator(simCfg, queue),
		cameras: camera.NewGroup(camera.GroupOptions{
			Poll:   cfg.Cameras,
			Seed:   seed,
			Clock:  clock,
			Events: EventLog,
			Logger: Logger,
		}),
	}
}

// simulatorConfig maps the file settings onto the simulator defaults.
func simulatorConfig(c models.SimulatorConfig) observability.SimulatorConfig {
	cfg := observability.DefaultSimulatorConfig()
	if c.Interval > 0 {
		cfg.Interval = c.Interval
	}
	if c.MaxIncrement > 0 {
		cfg.MaxIncrement = c.MaxIncrement
	}
	cfg.FailProbability = c.FailProbability
	cfg.ErrorProbability = c.ErrorProbability
	cfg.WarningProbability = c.WarningProbability
	cfg.EnforceBounds = c.EnforceBounds
	return cfg
}

// start arms the simulator tick. Calling start twice is a no-op.
func (f *liveFeed) start() {
	if f.stopSim == nil {
		f.stopSim = f.sim.Start()
	}
}

// serveMetrics exposes the feed on addr until ctx ends. It returns
// immediately when addr is empty.
func (f *liveFeed) serveMetrics(ctx context.Context, addr string) {
	if addr == "" {
		return
	}
	exp := observability.NewExporter(f.sim, f.queue, Logger)
	go func() {
		if err := exp.Serve(ctx, addr); err != nil {
			Logger.Error().Err(err).Msg("metrics server stopped")
		}
	}()
}

// running reports whether the simulator tick is armed.
func (f *liveFeed) running() bool {
	return f.stopSim != nil
}

// stop ends the dashboard session: the simulator tick and every camera
// poll are disarmed and the session's alerts are dropped. start arms the
// feed again.
func (f *liveFeed) stop() {
	if f.stopSim != nil {
		f.stopSim()
		f.stopSim = nil
	}
	f.cameras.StopAll()
	for _, a := range f.queue.List() {
		f.queue.Remove(a.ID)
	}
}

// Close disarms every timer owned by the feed.
func (f *liveFeed) Close() {
	if f.stopSim != nil {
		f.stopSim()
		f.stopSim = nil
	}
	f.cameras.Close()
	f.queue.Close()
}
