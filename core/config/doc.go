// Package config provides configuration management for the segment sync service.
//
// It uses Viper to load configuration from environment variables and an optional .env file.
// Defaults come from the `default` struct tags of each section.
//
// # Configuration Structure
//
//   - Server: HTTP port, API key, shutdown grace period
//   - Log: logging level and format
//   - Database: MySQL (or SQLite) connection for the segment catalog and definitions
//   - Redis: membership index store and key prefix
//   - Segments: batch size, change queue TTL, refresh schedule, failure policy
//   - NATS: change relay target
//   - Storage: S3-compatible bucket for segment snapshots
//
// Environment variables map to nested keys by replacing dots with underscores,
// e.g. SEGMENTS_BATCH_SIZE sets segments.batch_size.
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config
