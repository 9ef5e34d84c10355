// Package core loads and validates the VisionQC configuration.
package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/visionqc/visionqc/pkg/models"
)

// ConfigFileName is the base name of the configuration file, without extension.
const ConfigFileName = "visionqc"

// ConfigurationManager loads and validates visionqc.yaml.
type ConfigurationManager interface {
	Load() (*models.Config, error)
	Validate(cfg *models.Config) error
}

// viperConfigManager implements ConfigurationManager using Viper for
// reading YAML configuration files.
type viperConfigManager struct {
	// basePath is the directory where visionqc.yaml resides.
	basePath string
}

// NewConfigurationManager creates a new ConfigurationManager that reads
// configuration files relative to basePath.
func NewConfigurationManager(basePath string) ConfigurationManager {
	return &viperConfigManager{basePath: basePath}
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *models.Config {
	return &models.Config{
		LogLevel:          "info",
		AlertDismissAfter: 5 * time.Second,
		Simulator: models.SimulatorConfig{
			Interval:           3 * time.Second,
			MaxIncrement:       2,
			FailProbability:    0.2,
			ErrorProbability:   0.05,
			WarningProbability: 0.10,
		},
		Cameras: models.CameraPollConfig{
			Interval:           2 * time.Second,
			WarningProbability: 0.10,
			Stations: []models.CameraConfig{
				{ID: "camera-1", Title: "工位1 - 主检测线", Active: true},
				{ID: "camera-2", Title: "工位2 - 备用检测线"},
			},
		},
		HistoryRecords: 12,
	}
}

// Load reads visionqc.yaml from the base path. If the file does not exist,
// defaults are returned.
func (cm *viperConfigManager) Load() (*models.Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigName(ConfigFileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(cm.basePath)

	// Set Viper defaults so missing keys fall back gracefully.
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("alert_dismiss_after", cfg.AlertDismissAfter)
	v.SetDefault("simulator.interval", cfg.Simulator.Interval)
	v.SetDefault("simulator.max_increment", cfg.Simulator.MaxIncrement)
	v.SetDefault("simulator.fail_probability", cfg.Simulator.FailProbability)
	v.SetDefault("simulator.error_probability", cfg.Simulator.ErrorProbability)
	v.SetDefault("simulator.warning_probability", cfg.Simulator.WarningProbability)
	v.SetDefault("simulator.enforce_bounds", cfg.Simulator.EnforceBounds)
	v.SetDefault("simulator.seed", cfg.Simulator.Seed)
	v.SetDefault("cameras.poll_interval", cfg.Cameras.Interval)
	v.SetDefault("cameras.warning_probability", cfg.Cameras.WarningProbability)
	v.SetDefault("history_records", cfg.HistoryRecords)
	v.SetDefault("metrics_addr", cfg.MetricsAddr)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading %s.yaml: %w", ConfigFileName, err)
	}

	cfg.LogLevel = v.GetString("log_level")
	cfg.AlertDismissAfter = v.GetDuration("alert_dismiss_after")
	cfg.Simulator = models.SimulatorConfig{
		Interval:           v.GetDuration("simulator.interval"),
		MaxIncrement:       v.GetInt("simulator.max_increment"),
		FailProbability:    v.GetFloat64("simulator.fail_probability"),
		ErrorProbability:   v.GetFloat64("simulator.error_probability"),
		WarningProbability: v.GetFloat64("simulator.warning_probability"),
		EnforceBounds:      v.GetBool("simulator.enforce_bounds"),
		Seed:               v.GetUint64("simulator.seed"),
	}
	cfg.Cameras.Interval = v.GetDuration("cameras.poll_interval")
	cfg.Cameras.WarningProbability = v.GetFloat64("cameras.warning_probability")
	cfg.HistoryRecords = v.GetInt("history_records")
	cfg.MetricsAddr = v.GetString("metrics_addr")

	// Parse the stations list; an absent list keeps the stock stations.
	if raw, ok := v.Get("cameras.stations").([]interface{}); ok {
		stations := make([]models.CameraConfig, 0, len(raw))
		for _, item := range raw {
			m, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			st := models.CameraConfig{}
			if id, ok := m["id"].(string); ok {
				st.ID = id
			}
			if title, ok := m["title"].(string); ok {
				st.Title = title
			}
			if active, ok := m["active"].(bool); ok {
				st.Active = active
			}
			stations = append(stations, st)
		}
		cfg.Cameras.Stations = stations
	}

	return cfg, nil
}

var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks cfg for invalid values and reports every problem at once.
func (cm *viperConfigManager) Validate(cfg *models.Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	var errs []string

	if !validLogLevels[strings.ToLower(cfg.LogLevel)] {
		errs = append(errs, fmt.Sprintf(
			"log_level %q is invalid, must be one of: trace, debug, info, warn, error",
			cfg.LogLevel,
		))
	}

	if cfg.AlertDismissAfter <= 0 {
		errs = append(errs, fmt.Sprintf("alert_dismiss_after must be positive, got %s", cfg.AlertDismissAfter))
	}

	if cfg.Simulator.Interval <= 0 {
		errs = append(errs, fmt.Sprintf("simulator.interval must be positive, got %s", cfg.Simulator.Interval))
	}
	if cfg.Simulator.MaxIncrement <= 0 {
		errs = append(errs, fmt.Sprintf("simulator.max_increment must be positive, got %d", cfg.Simulator.MaxIncrement))
	}
	probabilities := []struct {
		key   string
		value float64
	}{
		{"simulator.fail_probability", cfg.Simulator.FailProbability},
		{"simulator.error_probability", cfg.Simulator.ErrorProbability},
		{"simulator.warning_probability", cfg.Simulator.WarningProbability},
		{"cameras.warning_probability", cfg.Cameras.WarningProbability},
	}
	for _, p := range probabilities {
		if p.value < 0 || p.value > 1 {
			errs = append(errs, fmt.Sprintf("%s %v is invalid, must be between 0 and 1", p.key, p.value))
		}
	}

	if cfg.Cameras.Interval <= 0 {
		errs = append(errs, fmt.Sprintf("cameras.poll_interval must be positive, got %s", cfg.Cameras.Interval))
	}
	seen := make(map[string]bool, len(cfg.Cameras.Stations))
	for i, st := range cfg.Cameras.Stations {
		if st.ID == "" {
			errs = append(errs, fmt.Sprintf("cameras.stations[%d].id must not be empty", i))
			continue
		}
		if seen[st.ID] {
			errs = append(errs, fmt.Sprintf("cameras.stations[%d].id %q is duplicated", i, st.ID))
		}
		seen[st.ID] = true
	}

	if cfg.HistoryRecords < 0 {
		errs = append(errs, fmt.Sprintf("history_records must be non-negative, got %d", cfg.HistoryRecords))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}
