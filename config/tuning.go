package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Tuning collects the empirically determined constants of the scrape
// pipeline: scroll thresholds, wait timeouts and the inter-action delay
// window. The right values drift with the live site, so they load from
// an optional YAML file instead of being hard constants.
type Tuning struct {
	// Feed growth
	MaxScrollAttempts int `yaml:"max_scroll_attempts"`
	// Scrolling never gives up on exhaustion before this many attempts,
	// so slow-loading feeds get multiple chances.
	MinScrollAttempts int `yaml:"min_scroll_attempts"`
	// Consecutive attempts without growth before the feed counts as
	// exhausted.
	NoGrowthLimit int `yaml:"no_growth_limit"`

	// Pause window after each scroll, milliseconds
	ScrollPauseMinMs int `yaml:"scroll_pause_min_ms"`
	ScrollPauseMaxMs int `yaml:"scroll_pause_max_ms"`

	// Delay window between items, milliseconds
	MinDelayMs int `yaml:"min_delay_ms"`
	MaxDelayMs int `yaml:"max_delay_ms"`

	// Navigation timeouts, milliseconds
	ClickTimeoutMs   int `yaml:"click_timeout_ms"`
	ConfirmTimeoutMs int `yaml:"confirm_timeout_ms"`
	FieldTimeoutMs   int `yaml:"field_timeout_ms"`
	FeedTimeoutMs    int `yaml:"feed_timeout_ms"`

	// Session
	NavRetries int      `yaml:"nav_retries"`
	UserAgents []string `yaml:"user_agents"`
}

// DefaultTuning returns the built-in tuning values.
func DefaultTuning() Tuning {
	return Tuning{
		MaxScrollAttempts: 50,
		MinScrollAttempts: 5,
		NoGrowthLimit:     3,
		ScrollPauseMinMs:  1000,
		ScrollPauseMaxMs:  3000,
		MinDelayMs:        500,
		MaxDelayMs:        1000,
		ClickTimeoutMs:    5000,
		ConfirmTimeoutMs:  7000,
		FieldTimeoutMs:    5000,
		FeedTimeoutMs:     15000,
		NavRetries:        3,
	}
}

// LoadTuning reads tuning overrides from the YAML file at path. An
// empty path returns the defaults. Fields left out of the file keep
// their default values.
func LoadTuning(path string) (Tuning, error) {
	t := DefaultTuning()
	if path == "" {
		return t, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("failed to read tuning file: %w", err)
	}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return t, fmt.Errorf("failed to parse tuning file: %w", err)
	}
	return t, nil
}

func (t Tuning) ScrollPauseMin() time.Duration {
	return time.Duration(t.ScrollPauseMinMs) * time.Millisecond
}
func (t Tuning) ScrollPauseMax() time.Duration {
	return time.Duration(t.ScrollPauseMaxMs) * time.Millisecond
}
func (t Tuning) MinDelay() time.Duration      { return time.Duration(t.MinDelayMs) * time.Millisecond }
func (t Tuning) MaxDelay() time.Duration      { return time.Duration(t.MaxDelayMs) * time.Millisecond }
func (t Tuning) ClickTimeout() time.Duration  { return time.Duration(t.ClickTimeoutMs) * time.Millisecond }
func (t Tuning) ConfirmTimeout() time.Duration {
	return time.Duration(t.ConfirmTimeoutMs) * time.Millisecond
}
func (t Tuning) FieldTimeout() time.Duration { return time.Duration(t.FieldTimeoutMs) * time.Millisecond }
func (t Tuning) FeedTimeout() time.Duration  { return time.Duration(t.FeedTimeoutMs) * time.Millisecond }
