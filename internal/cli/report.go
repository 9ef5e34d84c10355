package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	reportJSON  bool
	reportSince string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize recorded dashboard activity",
	Long: `Display totals derived from the diagnostic event log: simulator ticks,
alerts raised by severity, dismissals and expiries, logins and camera toggles,
plus the statistics recorded by the most recent tick.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Reports == nil {
			return fmt.Errorf("report calculator not initialized (event log may be disabled)")
		}

		sinceTime, err := parseSinceDuration(reportSince)
		if err != nil {
			return fmt.Errorf("parsing --since: %w", err)
		}

		r, err := Reports.Calculate(sinceTime)
		if err != nil {
			return fmt.Errorf("calculating report: %w", err)
		}

		out := cmd.OutOrStdout()
		if reportJSON {
			data, err := json.MarshalIndent(r, "", "  ")
			if err != nil {
				return fmt.Errorf("formatting report as JSON: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		fmt.Fprintf(out, "Report (since %s)\n\n", sinceTime.Format("2006-01-02"))
		fmt.Fprintf(out, "  %-24s %d\n", "Events recorded:", r.EventCount)
		fmt.Fprintf(out, "  %-24s %d\n", "Simulator ticks:", r.Ticks)
		fmt.Fprintf(out, "  %-24s %d\n", "Alerts raised:", r.AlertsRaised)
		fmt.Fprintf(out, "  %-24s %d\n", "Alerts dismissed:", r.AlertsDismissed)
		fmt.Fprintf(out, "  %-24s %d\n", "Alerts expired:", r.AlertsExpired)
		fmt.Fprintf(out, "  %-24s %d\n", "Logins:", r.Logins)
		fmt.Fprintf(out, "  %-24s %d\n", "Rejected logins:", r.RejectedLogins)
		fmt.Fprintf(out, "  %-24s %d\n", "Logouts:", r.Logouts)
		fmt.Fprintf(out, "  %-24s %d\n", "Camera toggles:", r.CameraToggles)

		if len(r.AlertsBySeverity) > 0 {
			fmt.Fprintln(out, "\n  Alerts by severity:")
			severities := make([]string, 0, len(r.AlertsBySeverity))
			for s := range r.AlertsBySeverity {
				severities = append(severities, s)
			}
			sort.Strings(severities)
			for _, s := range severities {
				fmt.Fprintf(out, "    %-20s %d\n", s+":", r.AlertsBySeverity[s])
			}
		}

		if s := r.LastStats; s != nil {
			fmt.Fprintln(out, "\n  Last recorded statistics:")
			fmt.Fprintf(out, "    %-20s %s\n", "Total inspected:", formatThousands(s.TotalInspected))
			fmt.Fprintf(out, "    %-20s %s\n", "Passed:", formatThousands(s.PassCount))
			fmt.Fprintf(out, "    %-20s %d\n", "Failed:", s.FailCount)
			fmt.Fprintf(out, "    %-20s %s%%\n", "Pass rate:", s.PassRateString())
		}

		if r.OldestEvent != nil {
			fmt.Fprintf(out, "\n  %-24s %s\n", "Oldest event:", r.OldestEvent.Format(time.RFC3339))
		}
		if r.NewestEvent != nil {
			fmt.Fprintf(out, "  %-24s %s\n", "Newest event:", r.NewestEvent.Format(time.RFC3339))
		}
		return nil
	},
}

// parseSinceDuration parses a human-friendly duration string like "7d", "30d",
// or "24h" and returns the corresponding time in the past.
func parseSinceDuration(s string) (time.Time, error) {
	now := time.Now().UTC()
	s = strings.TrimSpace(s)
	if s == "" {
		return now.AddDate(0, 0, -7), nil
	}

	if strings.HasSuffix(s, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid day duration %q", s)
		}
		return now.AddDate(0, 0, -days), nil
	}

	if strings.HasSuffix(s, "h") {
		hours, err := strconv.Atoi(strings.TrimSuffix(s, "h"))
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid hour duration %q", s)
		}
		return now.Add(-time.Duration(hours) * time.Hour), nil
	}

	return time.Time{}, fmt.Errorf("unsupported duration format %q (use e.g. 7d, 30d, 24h)", s)
}

func init() {
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "Output report as JSON")
	reportCmd.Flags().StringVar(&reportSince, "since", "7d", "Time window for the report (e.g. 7d, 30d, 24h)")
	rootCmd.AddCommand(reportCmd)
}
