// Package database handles database connections, migrations and schema inspection.
//
// It provides a wrapper around GORM to configure MySQL, PostgreSQL (pgx) or
// SQLite connections from the application's configuration. SQLite is used for
// local runs and for the repository tests.
//
// # Connect
//
// Connect opens the dialector selected by Config.Driver, applies pool settings
// and pings the database within the configured timeout.
//
// # Schema Inspection
//
// GetTableColumns lists a table's columns; the health feature uses it to verify
// that the timing tables were migrated.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Fatal("Database connection failed", err)
//	}
//
//	columns, err := database.GetTableColumns(db, "runners")
package database
