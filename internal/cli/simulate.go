package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/visionqc/visionqc/internal/observability"
	"github.com/visionqc/visionqc/internal/schedule"
)

var (
	simulateTicks  int
	simulateFollow bool
	simulateJSON   bool
)

// simulationSummary is the --json output of simulate.
type simulationSummary struct {
	Ticks    int                   `json:"ticks"`
	Stats    observability.Stats   `json:"stats"`
	PassRate string                `json:"pass_rate"`
	Alerts   []observability.Alert `json:"alerts"`
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the metric simulator without the dashboard",
	Long: `Run the inspection metric simulator headless and print each tick.

By default --ticks ticks are computed instantly on a virtual clock, so alerts
expire exactly as they would on the dashboard. With --follow the simulator
runs in real time until interrupted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateTicks < 0 {
			return fmt.Errorf("--ticks must not be negative")
		}
		out := cmd.OutOrStdout()

		if simulateFollow {
			feed := newLiveFeed(nil)
			defer feed.Close()
			if !simulateJSON {
				feed.sim.OnTick(func(r observability.TickResult) { printTick(out, feed.sim.Ticks(), r) })
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			feed.serveMetrics(ctx, metricsAddr)
			if err := feed.sim.Run(ctx); err != nil && err != context.Canceled {
				return fmt.Errorf("running simulator: %w", err)
			}
			return writeSummary(out, feed)
		}

		clk := schedule.NewManual(time.Now())
		feed := newLiveFeed(clk)
		defer feed.Close()
		if !simulateJSON {
			feed.sim.OnTick(func(r observability.TickResult) { printTick(out, feed.sim.Ticks(), r) })
		}

		interval := simulatorConfig(currentConfig().Simulator).Interval
		feed.start()
		for i := 0; i < simulateTicks; i++ {
			clk.Advance(interval)
		}
		return writeSummary(out, feed)
	},
}

func printTick(w io.Writer, n int, r observability.TickResult) {
	s := r.After
	line := fmt.Sprintf("tick %3d  total=%d pass=%d fail=%d rate=%s%%", n, s.TotalInspected, s.PassCount, s.FailCount, s.PassRateString())
	if r.Severity != "" {
		line += fmt.Sprintf("  alert=%s", r.Severity)
	}
	fmt.Fprintln(w, line)
}

func writeSummary(w io.Writer, feed *liveFeed) error {
	stats := feed.sim.Snapshot()
	alerts := feed.queue.List()

	if simulateJSON {
		data, err := json.MarshalIndent(simulationSummary{
			Ticks:    feed.sim.Ticks(),
			Stats:    stats,
			PassRate: stats.PassRateString(),
			Alerts:   alerts,
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("formatting summary as JSON: %w", err)
		}
		fmt.Fprintln(w, string(data))
		return nil
	}

	fmt.Fprintf(w, "\n%d ticks, pass rate %s%%, %d active alerts\n", feed.sim.Ticks(), stats.PassRateString(), len(alerts))
	for _, a := range alerts {
		fmt.Fprintf(w, "  [%s] %s: %s\n", a.Severity, a.Title, a.Message)
	}
	return nil
}

func init() {
	simulateCmd.Flags().IntVar(&simulateTicks, "ticks", 10, "Number of ticks to compute instantly")
	simulateCmd.Flags().BoolVar(&simulateFollow, "follow", false, "Tick in real time until interrupted")
	simulateCmd.Flags().BoolVar(&simulateJSON, "json", false, "Print only a JSON summary")
	rootCmd.AddCommand(simulateCmd)
}
