package reconcile

import (
	"fmt"
	"time"
)

// Config holds the segment refresh settings.
type Config struct {
	// BatchSize is the number of members written per pipeline round trip.
	BatchSize int `mapstructure:"batch_size" default:"1000"`
	// ChangeTTL is how long undrained change queue entries are kept.
	ChangeTTL time.Duration `mapstructure:"change_ttl" default:"168h"`
	// RefreshInterval is the pause between scheduled refreshes of every segment.
	RefreshInterval time.Duration `mapstructure:"refresh_interval" default:"1h"`
	// Concurrency bounds how many segments refresh at once.
	Concurrency int `mapstructure:"concurrency" default:"4"`
	// FailurePolicy is preserve or truncate.
	FailurePolicy string `mapstructure:"failure_policy" default:"preserve"`
	// RefreshOnSave refreshes a segment when its definition is updated.
	RefreshOnSave bool `mapstructure:"refresh_on_save" default:"true"`
}

// Validate checks the settings for values the engine cannot run with.
func (c Config) Validate() error {
	if c.BatchSize <= 0 {
		return fmt.Errorf("segments batch size must be positive, got %d", c.BatchSize)
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("segments concurrency must be positive, got %d", c.Concurrency)
	}
	if c.ChangeTTL <= 0 {
		return fmt.Errorf("segments change ttl must be positive, got %s", c.ChangeTTL)
	}
	if _, err := ParsePolicy(c.FailurePolicy); err != nil {
		return err
	}
	return nil
}

// Options converts the settings into engine options. Call Validate first.
func (c Config) Options() Options {
	policy, _ := ParsePolicy(c.FailurePolicy)
	return Options{FailurePolicy: policy}
}
