// Package server holds the HTTP server configuration and constants.
//
// While the main application entry point handles the server startup, this package
// defines the configuration structure and valid values for server settings.
//
// # Configuration
//
// The Config struct defines the HTTP port, the API key and the runtime
// environment. In production, handlers return safe error messages only.
package server
