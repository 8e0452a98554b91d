// Package metrics holds the Prometheus collectors for segment synchronization.
//
// Collectors are registered on a private Registry rather than the global default so tests
// and embedding applications do not collide. Mount Handler() under /metrics.
package metrics
