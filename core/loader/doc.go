// Package loader provides the plugin-like feature loading system.
//
// Each feature implements the Feature interface, which defines its enablement
// and route registration.
//
// # Feature Interface
//
//	type Feature interface {
//	    Name() string
//	    IsEnabled() bool
//	    Load(app fiber.Router) error
//	}
//
// # Manager
//
// The Manager struct holds the registry of available features. It handles:
//   - Registration of features via Register()
//   - Loading of enabled features via LoadAll()
//
// Features like 'timing', 'sync' and 'cutoff' are developed and tested in
// isolation and wired together in cmd/start.go.
package loader
