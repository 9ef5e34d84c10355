package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/visionqc/visionqc/pkg/models"
)

func TestSetVersionInfo(t *testing.T) {
	origVersion := appVersion
	origCommit := appCommit
	origDate := appDate
	defer func() {
		appVersion = origVersion
		appCommit = origCommit
		appDate = origDate
	}()

	SetVersionInfo("1.2.3", "abc1234", "2026-02-13")

	if appVersion != "1.2.3" {
		t.Errorf("appVersion = %q, want 1.2.3", appVersion)
	}
	if appCommit != "abc1234" {
		t.Errorf("appCommit = %q, want abc1234", appCommit)
	}
	if appDate != "2026-02-13" {
		t.Errorf("appDate = %q, want 2026-02-13", appDate)
	}
}

func TestExecute_UnknownCommand(t *testing.T) {
	_, err := runCommand(t, "", "nonexistent-command")
	if err == nil {
		t.Fatal("expected error for unknown command")
	}
	if !strings.Contains(err.Error(), "unknown command") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestExecute_VersionSubcommand(t *testing.T) {
	origVersion := appVersion
	origCommit := appCommit
	origDate := appDate
	defer func() {
		appVersion = origVersion
		appCommit = origCommit
		appDate = origDate
	}()
	SetVersionInfo("test-ver", "test-commit", "test-date")

	out, err := runCommand(t, "", "version")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"visionqc test-ver", "commit: test-commit", "built:  test-date"} {
		if !strings.Contains(out, want) {
			t.Errorf("version output missing %q:\n%s", want, out)
		}
	}
}

func TestCommand_Registration(t *testing.T) {
	want := []string{"version", "ui", "dashboard", "login", "logout", "whoami", "history", "simulate", "report", "mcp"}
	registered := map[string]bool{}
	for _, cmd := range rootCmd.Commands() {
		registered[cmd.Name()] = true
	}
	for _, name := range want {
		if !registered[name] {
			t.Errorf("%s command not registered on root", name)
		}
	}
}

func TestSetupLogging_ConfigLevel(t *testing.T) {
	origConfig, origLogger := Config, Logger
	defer func() { Config, Logger = origConfig, origLogger }()
	resetFlags()

	Config = &models.Config{LogLevel: "warn"}
	cmd := &cobra.Command{Use: "report"}
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "")
	cmd.SetErr(&bytes.Buffer{})

	if err := setupLogging(cmd); err != nil {
		t.Fatalf("setupLogging() error = %v", err)
	}
	if got := Logger.GetLevel().String(); got != "warn" {
		t.Errorf("level = %s, want warn from config", got)
	}

	if err := cmd.Flags().Set("log-level", "debug"); err != nil {
		t.Fatal(err)
	}
	if err := setupLogging(cmd); err != nil {
		t.Fatalf("setupLogging() error = %v", err)
	}
	if got := Logger.GetLevel().String(); got != "debug" {
		t.Errorf("level = %s, want debug from flag", got)
	}
}

func TestSetupLogging_InvalidLevel(t *testing.T) {
	origLogger := Logger
	defer func() { Logger = origLogger }()
	resetFlags()

	cmd := &cobra.Command{Use: "report"}
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "")
	if err := cmd.Flags().Set("log-level", "chatty"); err != nil {
		t.Fatal(err)
	}
	if err := setupLogging(cmd); err == nil {
		t.Error("expected error for unknown log level")
	}
}

func TestSetupLogging_FullScreenWritesToLogFile(t *testing.T) {
	origLogger, origFile := Logger, LogFile
	defer func() { Logger, LogFile = origLogger, origFile }()
	resetFlags()

	var file, stderr bytes.Buffer
	LogFile = &file
	cmd := &cobra.Command{Use: "dashboard"}
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "")
	cmd.SetErr(&stderr)

	if err := setupLogging(cmd); err != nil {
		t.Fatalf("setupLogging() error = %v", err)
	}
	Logger.Info().Msg("hello")

	if !strings.Contains(file.String(), "hello") {
		t.Errorf("expected log line in log file, got %q", file.String())
	}
	if stderr.Len() != 0 {
		t.Errorf("full-screen command wrote to stderr: %q", stderr.String())
	}
}
