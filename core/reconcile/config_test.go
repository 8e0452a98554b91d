package reconcile_test

import (
	"testing"
	"time"

	"segment-sync/core/reconcile"

	"github.com/stretchr/testify/assert"
)

func validConfig() reconcile.Config {
	return reconcile.Config{
		BatchSize:       1000,
		ChangeTTL:       168 * time.Hour,
		RefreshInterval: time.Hour,
		Concurrency:     4,
		FailurePolicy:   "preserve",
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *reconcile.Config)
		wantErr string
	}{
		{"Valid", func(c *reconcile.Config) {}, ""},
		{"Truncate", func(c *reconcile.Config) { c.FailurePolicy = "truncate" }, ""},
		{"Zero Batch", func(c *reconcile.Config) { c.BatchSize = 0 }, "batch size"},
		{"Zero Concurrency", func(c *reconcile.Config) { c.Concurrency = 0 }, "concurrency"},
		{"Zero TTL", func(c *reconcile.Config) { c.ChangeTTL = 0 }, "change ttl"},
		{"Unknown Policy", func(c *reconcile.Config) { c.FailurePolicy = "drop" }, "unknown failure policy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestConfig_Options(t *testing.T) {
	c := validConfig()
	assert.Equal(t, reconcile.PolicyPreserve, c.Options().FailurePolicy)

	c.FailurePolicy = "truncate"
	assert.Equal(t, reconcile.PolicyTruncate, c.Options().FailurePolicy)
}
