package models

import "time"

// CameraConfig describes one camera station shown on the dashboard.
type CameraConfig struct {
	ID     string `yaml:"id" mapstructure:"id"`
	Title  string `yaml:"title" mapstructure:"title"`
	Active bool   `yaml:"active" mapstructure:"active"`
}

// SimulatorConfig tunes the synthetic metric feed.
type SimulatorConfig struct {
	Interval           time.Duration `yaml:"interval" mapstructure:"interval"`
	MaxIncrement       int           `yaml:"max_increment" mapstructure:"max_increment"`
	FailProbability    float64       `yaml:"fail_probability" mapstructure:"fail_probability"`
	ErrorProbability   float64       `yaml:"error_probability" mapstructure:"error_probability"`
	WarningProbability float64       `yaml:"warning_probability" mapstructure:"warning_probability"`
	EnforceBounds      bool          `yaml:"enforce_bounds" mapstructure:"enforce_bounds"`
	Seed               uint64        `yaml:"seed" mapstructure:"seed"`
}

// CameraPollConfig tunes the per-camera detection poll.
type CameraPollConfig struct {
	Interval           time.Duration  `yaml:"poll_interval" mapstructure:"poll_interval"`
	WarningProbability float64        `yaml:"warning_probability" mapstructure:"warning_probability"`
	Stations           []CameraConfig `yaml:"stations" mapstructure:"stations"`
}

// Config holds the settings read from visionqc.yaml via Viper.
type Config struct {
	LogLevel          string           `yaml:"log_level" mapstructure:"log_level"`
	AlertDismissAfter time.Duration    `yaml:"alert_dismiss_after" mapstructure:"alert_dismiss_after"`
	Simulator         SimulatorConfig  `yaml:"simulator" mapstructure:"simulator"`
	Cameras           CameraPollConfig `yaml:"cameras" mapstructure:"cameras"`
	HistoryRecords    int              `yaml:"history_records" mapstructure:"history_records"`
	MetricsAddr       string           `yaml:"metrics_addr,omitempty" mapstructure:"metrics_addr"`
}
