// Package config provides configuration management for the race timing service.
//
// It utilizes Viper for loading configuration from environment variables and an
// optional .env file. Defaults live next to each field in `default` struct tags.
//
// # Configuration Structure
//
//   - Server: HTTP server settings (port, API key, environment)
//   - Database: driver (mysql, postgres, sqlite) and connection details
//   - Storage: S3/MinIO credentials for provider payload snapshots
//   - Log: Logging level and format
//   - Provider: timing provider base URL, partner code, timeouts and page ceilings
//   - Scheduler: reconciliation and cutoff monitor intervals
//   - Query: listing limits
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Scheduler.SyncIntervalSeconds)
package config
