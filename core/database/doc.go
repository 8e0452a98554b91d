// Package database handles database connections and query inspection.
//
// It wraps GORM to configure MySQL (production) or SQLite (tests, local runs) connections
// from the application's configuration.
//
// # Connect
//
// Connect opens the database holding the segment catalog. Segment definitions are plain
// SQL run against the same connection.
//
// # Query Inspection
//
// ProbeQuery runs a query and reads only its first row, which is how a segment definition
// is proven to execute before it is saved.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Fatal("Database connection failed", err)
//	}
//
//	probe, err := database.ProbeQuery(ctx, db, "SELECT id FROM users")
package database
