package broker

import "time"

// Config holds configuration for the NATS connection used to announce membership changes.
type Config struct {
	// URL is the NATS server URL. Empty disables publishing.
	URL string `mapstructure:"url" default:""`
	// Subject receives one message per changed member.
	Subject string `mapstructure:"subject" default:"segments.members.changed"`
	// Interval is the pause between change queue drains.
	Interval time.Duration `mapstructure:"interval" default:"30s"`
	// Name identifies this client to the server.
	Name string `mapstructure:"name" default:"segment-sync"`
}

// Enabled reports whether a server is configured.
func (c Config) Enabled() bool {
	return c.URL != ""
}
