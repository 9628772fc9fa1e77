// Package logger builds the zap loggers used across the service.
//
// Level "debug" selects zap's development configuration (ISO8601 timestamps,
// caller info); any other level selects the production configuration. Format
// "console" renders colored capital levels, anything else renders JSON.
//
// Request handlers scope their logger with WithRayID so every line of a request
// carries the same ray_id. Interval tasks (cutoff monitor, sync scheduler) use
// ForTask.
package logger
