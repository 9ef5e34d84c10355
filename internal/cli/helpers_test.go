package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/visionqc/visionqc/internal/history"
	"github.com/visionqc/visionqc/internal/random"
	"github.com/visionqc/visionqc/internal/schedule"
	"github.com/visionqc/visionqc/internal/session"
	"github.com/visionqc/visionqc/internal/storage"
	"github.com/visionqc/visionqc/pkg/models"
)

var testNow = time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

// withTestEnv points the package services at a temporary data directory
// and restores the previous values when the test ends.
func withTestEnv(t *testing.T) string {
	t.Helper()

	origBase, origSession, origHistory := BasePath, Session, History
	origConfig, origEvents, origReports := Config, EventLog, Reports
	t.Cleanup(func() {
		BasePath, Session, History = origBase, origSession, origHistory
		Config, EventLog, Reports = origConfig, origEvents, origReports
	})

	dir := t.TempDir()
	BasePath = dir
	Config = nil
	EventLog = nil
	Reports = nil
	History = history.Generate(testNow, history.DefaultRecords, random.New(1))
	Session = session.New(session.Options{Store: storage.NewSessionStore(dir)})
	if err := Session.Restore(); err != nil {
		t.Fatalf("restoring session: %v", err)
	}
	return dir
}

// resetFlags returns every command flag variable to its default so tests
// sharing rootCmd do not leak values into each other.
func resetFlags() {
	logLevel, metricsAddr = "info", ""
	loginEmail, loginPassword, whoamiJSON = "", "", false
	historyQuery, historyCamera, historyResult = "", history.All, history.All
	historyJSON, historyOut, historyThumbnails = false, "", ""
	reportJSON, reportSince = false, "7d"
	simulateTicks, simulateFollow, simulateJSON = 10, false, false
}

// runCommand executes rootCmd with args and stdin, returning stdout.
func runCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	t.Cleanup(resetFlags)

	var stdout, stderr bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := Execute()
	return stdout.String(), err
}

// newTestFeed builds a live feed on a manual clock with default settings.
func newTestFeed(t *testing.T) (*liveFeed, *schedule.Manual) {
	t.Helper()
	clk := schedule.NewManual(testNow)
	feed := newLiveFeed(clk)
	t.Cleanup(feed.Close)
	return feed, clk
}

// runeKey builds the key message bubbletea sends for a printable key.
func runeKey(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func adminUser() models.User {
	return models.User{Email: "admin@example.com", Role: models.RoleAdmin, Username: "系统管理员"}
}
