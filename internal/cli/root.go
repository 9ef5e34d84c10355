package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

var (
	logLevel    string
	metricsAddr string
)

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

var rootCmd = &cobra.Command{
	Use:   "visionqc",
	Short: "VisionQC - terminal dashboard for visual quality inspection",
	Long: `VisionQC is a terminal dashboard for an industrial visual-inspection line.

It shows simulated camera stations, live inspection statistics, transient
quality alerts, and a filterable inspection history. All data is generated
locally; only the logged-in user is persisted between runs.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging(cmd)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "visionqc %s\ncommit: %s\nbuilt:  %s\n", appVersion, appCommit, appDate)
	},
}

// fullScreenCommands log to LogFile instead of stderr.
var fullScreenCommands = map[string]bool{
	"ui":        true,
	"dashboard": true,
}

// setupLogging builds Logger from --log-level, falling back to the
// configured level.
func setupLogging(cmd *cobra.Command) error {
	level := "info"
	if Config != nil && Config.LogLevel != "" {
		level = Config.LogLevel
	}
	if cmd.Flags().Changed("log-level") {
		level = logLevel
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("parsing log level %q: %w", level, err)
	}

	var out io.Writer = zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: "15:04:05"}
	if fullScreenCommands[cmd.Name()] && LogFile != nil {
		out = LogFile
	}
	Logger = zerolog.New(out).Level(lvl).With().Timestamp().Logger()
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. 127.0.0.1:9108)")
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
