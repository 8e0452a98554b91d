package kvstore

// Config holds configuration for the Redis connection backing the membership index.
type Config struct {
	// Addr is the host:port of the Redis server.
	Addr string `mapstructure:"addr" default:"localhost:6379"`
	// Password is the Redis AUTH password.
	Password string `mapstructure:"password" default:""`
	// DB is the logical database number.
	DB int `mapstructure:"db" default:"0"`
	// KeyPrefix is prepended to every key so several deployments can share one server.
	KeyPrefix string `mapstructure:"key_prefix" default:""`
	// TimeoutSeconds bounds dial, read and write operations.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"5"`
	// ScanCount is the COUNT hint passed to SSCAN.
	ScanCount int `mapstructure:"scan_count" default:"1000"`
}
