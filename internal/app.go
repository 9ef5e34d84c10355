// Package internal provides the App struct that wires all components of
// VisionQC together and initializes the CLI layer.
package internal

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/visionqc/visionqc/internal/cli"
	"github.com/visionqc/visionqc/internal/core"
	"github.com/visionqc/visionqc/internal/history"
	"github.com/visionqc/visionqc/internal/observability"
	"github.com/visionqc/visionqc/internal/random"
	"github.com/visionqc/visionqc/internal/session"
	"github.com/visionqc/visionqc/internal/storage"
	"github.com/visionqc/visionqc/pkg/models"
)

const (
	// HomeEnv overrides the data directory.
	HomeEnv = "VISIONQC_HOME"

	logFileName      = "visionqc.log"
	eventLogFileName = ".visionqc_events.jsonl"

	// historyStream is the random stream index reserved for mock history.
	historyStream = 99
)

// App holds all service dependencies of VisionQC.
type App struct {
	BasePath string

	// Configuration
	ConfigMgr core.ConfigurationManager
	Config    *models.Config

	// Logging
	Logger  zerolog.Logger
	LogFile *os.File

	// Storage and session
	SessionStore storage.SessionStore
	Session      *session.Session

	// Mock history shown on the history screen
	History []models.InspectionRecord

	// Observability
	EventLog observability.EventLog
	Reports  observability.ReportCalculator
}

// NewApp creates and wires all components. basePath is the data directory
// holding visionqc.yaml, the session file and the logs.
func NewApp(basePath string) (*App, error) {
	app := &App{BasePath: basePath}

	// --- Configuration ---
	app.ConfigMgr = core.NewConfigurationManager(basePath)
	cfg, err := app.ConfigMgr.Load()
	if err != nil {
		return nil, err
	}
	if err := app.ConfigMgr.Validate(cfg); err != nil {
		return nil, err
	}
	app.Config = cfg

	// --- Logging ---
	var logOut io.Writer = os.Stderr
	lf, err := os.OpenFile(filepath.Join(basePath, logFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err == nil {
		app.LogFile = lf
	}
	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	app.Logger = zerolog.New(zerolog.ConsoleWriter{Out: logOut, TimeFormat: "15:04:05"}).Level(lvl).With().Timestamp().Logger()
	if app.LogFile == nil {
		app.Logger.Warn().Str("path", filepath.Join(basePath, logFileName)).Msg("log file unavailable, full-screen commands will not log")
	}

	// --- Observability ---
	app.EventLog, err = observability.NewJSONLEventLog(filepath.Join(basePath, eventLogFileName))
	if err != nil {
		// Non-fatal: run without the diagnostic event log.
		app.Logger.Debug().Err(err).Msg("event log disabled")
		app.EventLog = nil
	}
	if app.EventLog != nil {
		app.Reports = observability.NewReportCalculator(app.EventLog)
	}

	// --- Session ---
	app.SessionStore = storage.NewSessionStore(basePath)
	app.Session = session.New(session.Options{
		Store:  app.SessionStore,
		Auth:   session.DefaultAuthenticator(),
		Events: app.EventLog,
		Logger: app.Logger,
	})
	if err := app.Session.Restore(); err != nil {
		// The session is anonymous either way; an unreadable file is worth a warning.
		app.Logger.Warn().Err(err).Msg("restoring session")
	}

	// --- History ---
	app.History = history.Generate(time.Now(), cfg.HistoryRecords, random.Derive(cfg.Simulator.Seed, historyStream))

	// --- Wire CLI package-level variables ---
	cli.BasePath = basePath
	cli.Config = cfg
	cli.Logger = app.Logger
	if app.LogFile != nil {
		cli.LogFile = app.LogFile
	}
	cli.EventLog = app.EventLog
	cli.Reports = app.Reports
	cli.Session = app.Session
	cli.History = app.History

	return app, nil
}

// Close releases the event log and log file handles. It is safe to call
// Close on an App whose EventLog or LogFile is nil.
func (a *App) Close() error {
	var firstErr error
	if a.EventLog != nil {
		if err := a.EventLog.Close(); err != nil {
			firstErr = fmt.Errorf("closing event log: %w", err)
		}
	}
	if a.LogFile != nil {
		if err := a.LogFile.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing log file: %w", err)
		}
	}
	return firstErr
}

// ResolveBasePath determines the VisionQC data directory. It checks the
// VISIONQC_HOME env var, then walks up from the current directory looking
// for visionqc.yaml, and falls back to the current directory.
func ResolveBasePath() string {
	if home := os.Getenv(HomeEnv); home != "" {
		return home
	}
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, core.ConfigFileName+".yaml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	cwd, _ := os.Getwd()
	return cwd
}
