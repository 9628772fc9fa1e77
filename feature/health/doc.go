// Package health reports whether the infrastructure the timing backend depends on is usable.
//
// # Checks Provided
//
//   - Database: the connection answers a ping.
//   - Schema: every table behind the store models exists with all of its columns.
//   - Storage: the snapshot bucket exists and holds the snapshot prefix (only when archiving is on).
//
// # HTTP Endpoints
//
//   - GET /health : Runs all checks. Answers 503 when any check fails.
//   - GET /health/schema : Runs the schema check.
//   - GET /health/storage : Runs the storage check (supports ?fix=true).
package health
