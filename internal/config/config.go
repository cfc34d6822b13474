// Package config holds all overseer configuration: policy thresholds for
// the directive gate, the decision framework's rubric constants, diagnostic
// cycle tuning, and the oversight horizon. Every magic number from the
// governance rubric lives here as a named field so it can be revisited
// without code changes.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration tree.
type Config struct {
	Name     string `yaml:"name"`
	StateDir string `yaml:"state_dir"`

	Policy     PolicyConfig     `yaml:"policy"`
	Decision   DecisionConfig   `yaml:"decision"`
	Diagnostic DiagnosticConfig `yaml:"diagnostic"`
	Oversight  OversightConfig  `yaml:"oversight"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// PolicyConfig sets the directive gate thresholds.
type PolicyConfig struct {
	// MaxSpendPerDay triggers the spend gate when exceeded (USD).
	MaxSpendPerDay float64 `yaml:"max_spend_per_day"`

	// AllowRiskIncrease permits directives with a positive risk delta.
	// When false, an unmitigated risk increase blocks the directive outright.
	AllowRiskIncrease bool `yaml:"allow_risk_increase"`

	// VendorApprovers lists every role that must sign off on a new
	// vendor or integration.
	VendorApprovers []string `yaml:"vendor_approvers"`
}

// DecisionConfig sets the verdict rubric constants.
type DecisionConfig struct {
	// MaxModifiedFailures is the largest number of failed criteria that
	// still yields a "modified" verdict instead of a rejection.
	MaxModifiedFailures int `yaml:"max_modified_failures"`

	// DeadlineHours is the execution deadline attached to approvals.
	DeadlineHours int `yaml:"deadline_hours"`

	// RecoveryWindowHours is the restorative-power window an approved
	// corrective action must fit in.
	RecoveryWindowHours int `yaml:"recovery_window_hours"`

	// RecoveryThreshold is the minimum projected value for the
	// restorative criterion (same unit as brief projections).
	RecoveryThreshold float64 `yaml:"recovery_threshold"`

	// MinProjectionConfidence is the floor for projection confidence
	// on the restorative criterion.
	MinProjectionConfidence float64 `yaml:"min_projection_confidence"`
}

// DiagnosticConfig tunes the cycle engine.
type DiagnosticConfig struct {
	// CycleInterval is the scheduled period between diagnostic cycles.
	CycleInterval time.Duration `yaml:"cycle_interval"`

	// History caps; oldest entries are dropped first.
	SummaryHistoryCap    int `yaml:"summary_history_cap"`
	ViolationHistoryCap  int `yaml:"violation_history_cap"`
	CorrectionHistoryCap int `yaml:"correction_history_cap"`

	// Alert escalation thresholds.
	HighAlertFailingChecks int `yaml:"high_alert_failing_checks"`
	HighAlertViolations    int `yaml:"high_alert_violations"`
}

// OversightConfig sets the multi-day oversight horizon.
type OversightConfig struct {
	HorizonDays int `yaml:"horizon_days"`

	// StabilityTarget is the full stability-weeks target; StabilityFloor
	// is the minimum required for an "improving" terminal verdict.
	StabilityTarget float64 `yaml:"stability_target"`
	StabilityFloor  float64 `yaml:"stability_floor"`

	// HealthVerdictThreshold is the minimum health index for an
	// "improving" terminal verdict.
	HealthVerdictThreshold float64 `yaml:"health_verdict_threshold"`

	// MetricHistoryCap bounds each metric's rolling sample window.
	MetricHistoryCap int `yaml:"metric_history_cap"`
}

// UnmarshalYAML decodes the cycle interval from a duration string ("30s",
// "5m") while leaving the in-memory field a time.Duration.
func (d *DiagnosticConfig) UnmarshalYAML(value *yaml.Node) error {
	type raw struct {
		CycleInterval          string `yaml:"cycle_interval"`
		SummaryHistoryCap      *int   `yaml:"summary_history_cap"`
		ViolationHistoryCap    *int   `yaml:"violation_history_cap"`
		CorrectionHistoryCap   *int   `yaml:"correction_history_cap"`
		HighAlertFailingChecks *int   `yaml:"high_alert_failing_checks"`
		HighAlertViolations    *int   `yaml:"high_alert_violations"`
	}
	var r raw
	if err := value.Decode(&r); err != nil {
		return err
	}
	if r.CycleInterval != "" {
		parsed, err := time.ParseDuration(r.CycleInterval)
		if err != nil {
			return fmt.Errorf("invalid cycle_interval %q: %w", r.CycleInterval, err)
		}
		d.CycleInterval = parsed
	}
	if r.SummaryHistoryCap != nil {
		d.SummaryHistoryCap = *r.SummaryHistoryCap
	}
	if r.ViolationHistoryCap != nil {
		d.ViolationHistoryCap = *r.ViolationHistoryCap
	}
	if r.CorrectionHistoryCap != nil {
		d.CorrectionHistoryCap = *r.CorrectionHistoryCap
	}
	if r.HighAlertFailingChecks != nil {
		d.HighAlertFailingChecks = *r.HighAlertFailingChecks
	}
	if r.HighAlertViolations != nil {
		d.HighAlertViolations = *r.HighAlertViolations
	}
	return nil
}

// LoggingConfig configures categorized file logging.
type LoggingConfig struct {
	Debug bool   `yaml:"debug"`
	Level string `yaml:"level"` // debug, info, warn, error
}

// DefaultConfig returns the shipped configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:     "overseer",
		StateDir: ".overseer",
		Policy: PolicyConfig{
			MaxSpendPerDay:    300,
			AllowRiskIncrease: false,
			VendorApprovers:   []string{"ceo", "coo", "cco"},
		},
		Decision: DecisionConfig{
			MaxModifiedFailures:     2,
			DeadlineHours:           24,
			RecoveryWindowHours:     48,
			RecoveryThreshold:       500,
			MinProjectionConfidence: 0.70,
		},
		Diagnostic: DiagnosticConfig{
			CycleInterval:          5 * time.Minute,
			SummaryHistoryCap:      48,
			ViolationHistoryCap:    100,
			CorrectionHistoryCap:   100,
			HighAlertFailingChecks: 3,
			HighAlertViolations:    2,
		},
		Oversight: OversightConfig{
			HorizonDays:            7,
			StabilityTarget:        6,
			StabilityFloor:         3,
			HealthVerdictThreshold: 70,
			MetricHistoryCap:       7,
		},
		Logging: LoggingConfig{
			Debug: false,
			Level: "info",
		},
	}
}

// Load reads a YAML config file, layering it over defaults and then
// applying environment overrides. A missing file is not an error: the
// defaults are returned.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations that would break engine invariants.
func (c *Config) Validate() error {
	if c.Oversight.HorizonDays < 1 {
		return fmt.Errorf("oversight.horizon_days must be >= 1, got %d", c.Oversight.HorizonDays)
	}
	if c.Decision.MaxModifiedFailures < 0 {
		return fmt.Errorf("decision.max_modified_failures must be >= 0, got %d", c.Decision.MaxModifiedFailures)
	}
	if c.Diagnostic.SummaryHistoryCap < 1 || c.Diagnostic.ViolationHistoryCap < 1 || c.Diagnostic.CorrectionHistoryCap < 1 {
		return fmt.Errorf("diagnostic history caps must be >= 1")
	}
	if c.Diagnostic.CycleInterval <= 0 {
		return fmt.Errorf("diagnostic.cycle_interval must be positive, got %s", c.Diagnostic.CycleInterval)
	}
	return nil
}

// StatePath resolves a filename inside the state directory.
func (c *Config) StatePath(name string) string {
	return filepath.Join(c.StateDir, name)
}

// applyEnvOverrides lets deployment environments adjust the riskiest knobs
// without editing the config file.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("OVERSEER_STATE_DIR"); v != "" {
		c.StateDir = v
	}
	if v := os.Getenv("OVERSEER_MAX_SPEND_PER_DAY"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Policy.MaxSpendPerDay = f
		}
	}
	if v := os.Getenv("OVERSEER_CYCLE_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Diagnostic.CycleInterval = d
		}
	}
	if v := os.Getenv("OVERSEER_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Logging.Debug = b
		}
	}
}
