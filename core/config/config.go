package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"strings"

	"race-timing/core/database"
	"race-timing/core/logger"
	"race-timing/core/server"
	"race-timing/core/storage"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the full runtime configuration, one section per concern.
type Config struct {
	// Server holds configuration for the HTTP server.
	Server server.Config `mapstructure:"server"`
	// Storage holds configuration for the payload snapshot archive (S3, Minio).
	Storage storage.Config `mapstructure:"storage"`
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
	// Database holds configuration for the database connection.
	Database database.Config `mapstructure:"database"`
	// Provider holds configuration for the remote timing provider.
	Provider ProviderConfig `mapstructure:"provider"`
	// Scheduler holds configuration for the background tasks.
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	// Query holds listing limits.
	Query QueryConfig `mapstructure:"query"`
}

// ProviderConfig holds configuration for the remote timing provider API.
type ProviderConfig struct {
	// BaseURL is the provider API root.
	BaseURL string `mapstructure:"base_url" default:"https://rqs.racetigertiming.com"`
	// PartnerCode is sent as "pc" when a campaign has none.
	PartnerCode string `mapstructure:"partner_code" default:"000001"`
	// TimeoutMs bounds every outbound provider call.
	TimeoutMs int `mapstructure:"timeout_ms" default:"15000"`
	// MaxPages is the hard page ceiling per listing.
	MaxPages int `mapstructure:"max_pages" default:"200"`
	// MaxRows is the row ceiling per reconciliation run.
	MaxRows int `mapstructure:"max_rows" default:"100000"`
}

// SchedulerConfig holds configuration for the interval driven tasks.
type SchedulerConfig struct {
	// SyncEnabled turns on the reconciliation scheduler.
	SyncEnabled bool `mapstructure:"sync_enabled" default:"true"`
	// SyncIntervalSeconds is the reconciliation tick interval.
	SyncIntervalSeconds int `mapstructure:"sync_interval_seconds" default:"15"`
	// CutoffEnabled turns on the cutoff monitor.
	CutoffEnabled bool `mapstructure:"cutoff_enabled" default:"true"`
	// CutoffIntervalSeconds is the cutoff monitor tick interval.
	CutoffIntervalSeconds int `mapstructure:"cutoff_interval_seconds" default:"60"`
}

// QueryConfig holds limits applied to listing endpoints.
type QueryConfig struct {
	// ListLimit caps the number of rows a single listing may return.
	ListLimit int `mapstructure:"list_limit" default:"2000"`
}

// LoadConfig reads <dir>/.env into the process environment, then resolves
// every key from the environment over the struct tag defaults.
// Nested keys map to upper snake case: scheduler.sync_enabled is read from
// SCHEDULER_SYNC_ENABLED.
func LoadConfig(dir string) (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Overload(filepath.Join(dir, ".env"))

	v := viper.New()
	for key, value := range defaults(reflect.TypeOf(Config{}), "") {
		v.SetDefault(key, value)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Provider.TimeoutMs <= 0:
		return fmt.Errorf("provider.timeout_ms must be positive, got %d", c.Provider.TimeoutMs)
	case c.Provider.MaxPages <= 0:
		return fmt.Errorf("provider.max_pages must be positive, got %d", c.Provider.MaxPages)
	case c.Scheduler.SyncEnabled && c.Scheduler.SyncIntervalSeconds <= 0:
		return fmt.Errorf("scheduler.sync_interval_seconds must be positive, got %d", c.Scheduler.SyncIntervalSeconds)
	case c.Scheduler.CutoffEnabled && c.Scheduler.CutoffIntervalSeconds <= 0:
		return fmt.Errorf("scheduler.cutoff_interval_seconds must be positive, got %d", c.Scheduler.CutoffIntervalSeconds)
	case c.Query.ListLimit <= 0:
		return fmt.Errorf("query.list_limit must be positive, got %d", c.Query.ListLimit)
	}
	return nil
}

// defaults walks the mapstructure tags of t and returns the dotted key of
// every leaf with its default tag. Leaves without a default still get an
// empty entry so AutomaticEnv can resolve them.
func defaults(t reflect.Type, prefix string) map[string]string {
	out := map[string]string{}
	for _, field := range reflect.VisibleFields(t) {
		name := field.Tag.Get("mapstructure")
		if name == "" {
			continue
		}
		if prefix != "" {
			name = prefix + "." + name
		}
		if field.Type.Kind() == reflect.Struct {
			for k, v := range defaults(field.Type, name) {
				out[k] = v
			}
			continue
		}
		out[name] = field.Tag.Get("default")
	}
	return out
}
