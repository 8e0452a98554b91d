// Package segments implements the segment catalog and its HTTP API.
//
// A segment is a named SQL query stored in the catalog. Its result, the ids in the first
// column, is the segment's membership. The service validates definitions before saving them,
// refreshes membership through the reconcile engine on save and on demand, and tears the
// membership down when a segment is deleted.
//
// # Components
//
//   - Repository: gorm-backed catalog (segments table)
//   - SQLSource: runs a definition and streams its rows to the engine
//   - Service: catalog operations plus refresh, teardown and membership queries
//   - Scheduler: refreshes the whole catalog by priority, bounded by the configured concurrency
//   - Handler: HTTP routes under /segments and /members
//
// # Refresh Triggers
//
// Concurrent refreshes of one segment inside this process share a single run. Across
// processes nothing is serialized; the last refresh to publish wins and the next one repairs
// any interleaving.
package segments
