package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// StatsSource exposes the current statistics record.
type StatsSource interface {
	Snapshot() Stats
}

// QueueSource exposes the number of active alerts.
type QueueSource interface {
	Len() int
}

// Exporter publishes the simulated counters in Prometheus format.
type Exporter struct {
	registry *prometheus.Registry
	log      zerolog.Logger
}

// NewExporter registers gauges reading from stats and, when non-nil, queue.
func NewExporter(stats StatsSource, queue QueueSource, logger zerolog.Logger) *Exporter {
	e := &Exporter{
		registry: prometheus.NewRegistry(),
		log:      logger.With().Str("component", "exporter").Logger(),
	}

	e.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "visionqc_inspected_total",
			Help: "Items inspected since the dashboard opened",
		},
		func() float64 { return float64(stats.Snapshot().TotalInspected) },
	))

	e.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "visionqc_pass_total",
			Help: "Items that passed inspection",
		},
		func() float64 { return float64(stats.Snapshot().PassCount) },
	))

	e.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "visionqc_fail_total",
			Help: "Items that failed inspection",
		},
		func() float64 { return float64(stats.Snapshot().FailCount) },
	))

	e.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "visionqc_pass_rate_percent",
			Help: "Pass count over inspected count, as a percentage",
		},
		func() float64 { return stats.Snapshot().PassRate() },
	))

	if queue != nil {
		e.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "visionqc_active_alerts",
				Help: "Alerts currently shown on the dashboard",
			},
			func() float64 { return float64(queue.Len()) },
		))
	}

	return e
}

// Registry returns the underlying registry.
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

// Handler returns the /metrics HTTP handler.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// Serve listens on addr until ctx is done.
func (e *Exporter) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", e.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		e.log.Info().Str("addr", addr).Msg("serving metrics")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving metrics on %s: %w", addr, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down metrics server: %w", err)
		}
		return nil
	}
}
