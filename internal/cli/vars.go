package cli

import (
	"io"

	"github.com/rs/zerolog"
	"github.com/visionqc/visionqc/internal/observability"
	"github.com/visionqc/visionqc/internal/session"
	"github.com/visionqc/visionqc/pkg/models"
)

// Service instances, set during app initialization in app.go.
var (
	BasePath string
	Config   *models.Config

	// Logger is rebuilt per command from --log-level; LogFile receives the
	// output of the full-screen commands so it does not corrupt the display.
	Logger  zerolog.Logger
	LogFile io.Writer

	EventLog observability.EventLog
	Reports  observability.ReportCalculator

	Session *session.Session
	History []models.InspectionRecord
)
