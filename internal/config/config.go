// Package config loads barindexd's on-disk configuration, grounded on
// the teacher's internal/config/yaml_config.go (a YAML-backed settings
// file) but without that package's viper.Viper wrapper: barindexd has no
// project-local database of config overrides to reconcile against a
// YAML-only allowlist, so a direct gopkg.in/yaml.v3 Unmarshal into a
// typed struct is the whole of what's needed here.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/torsten-rupp/barindex/internal/continuous"
	"github.com/torsten-rupp/barindex/internal/dbfacade"
)

// DatabaseConfig selects and locates the index's storage backend.
type DatabaseConfig struct {
	Backend  string `yaml:"backend"` // "sqlite" (default), "mariadb", "postgres"
	Path     string `yaml:"path"`    // sqlite only
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	TLS      bool   `yaml:"tls"` // postgres only
}

// ContinuousConfig configures the continuous tracker's queue and
// debounce behavior (§4.6).
type ContinuousConfig struct {
	QueueDatabasePath string `yaml:"queue_database_path"`
	MinTimeDeltaSeconds int  `yaml:"min_time_delta_seconds"`
	DebounceMillis      int  `yaml:"debounce_millis"`
}

// MaintenanceConfig names the daily window background maintenance
// (aggregate rebuilds, prune passes) is allowed to run in, "HH:MM" in
// local time; both empty means maintenance never runs automatically.
type MaintenanceConfig struct {
	WindowStart string `yaml:"window_start"`
	WindowEnd   string `yaml:"window_end"`
}

// RPCConfig names the endpoints the daemon listens on (§6); TCPAddr
// empty disables the optional TCP listener.
type RPCConfig struct {
	SocketPath string `yaml:"socket_path"`
	TCPAddr    string `yaml:"tcp_addr"`
}

// Config is barindexd's full configuration tree.
type Config struct {
	Database    DatabaseConfig    `yaml:"database"`
	Continuous  ContinuousConfig  `yaml:"continuous"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
	RPC         RPCConfig         `yaml:"rpc"`
}

// Default returns a Config with every field at its documented default,
// suitable as a starting point before Load overlays a file on top.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Backend: "sqlite", Path: "index.db"},
		Continuous: ContinuousConfig{
			QueueDatabasePath:   "continuous.db",
			MinTimeDeltaSeconds: int(continuous.DefaultMinTimeDelta / time.Second),
		},
		RPC: RPCConfig{SocketPath: "barindexd.sock"},
	}
}

// Load reads and parses the YAML file at path, overlaying it onto
// Default(). A missing file is not an error — barindexd runs on
// defaults alone.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path) // #nosec G304 - operator-supplied config path
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}

// Backend resolves the configured backend name to a dbfacade.Backend.
func (c *Config) Backend() (dbfacade.Backend, error) {
	switch c.Database.Backend {
	case "", "sqlite":
		return dbfacade.SQLite, nil
	case "mariadb", "mysql":
		return dbfacade.MariaDB, nil
	case "postgres", "postgresql":
		return dbfacade.PostgreSQL, nil
	default:
		return 0, fmt.Errorf("config: unknown database backend %q", c.Database.Backend)
	}
}

// DSN builds the connection string for the configured backend.
func (c *Config) DSN() (string, error) {
	backend, err := c.Backend()
	if err != nil {
		return "", err
	}
	switch backend {
	case dbfacade.SQLite:
		return dbfacade.SQLiteDSN(c.Database.Path, false), nil
	case dbfacade.MariaDB:
		return dbfacade.MariaDBDSN(c.Database.Host, c.Database.Port, c.Database.User, c.Database.Password, c.Database.Name), nil
	case dbfacade.PostgreSQL:
		return dbfacade.PostgresDSN(c.Database.Host, c.Database.Port, c.Database.User, c.Database.Password, c.Database.Name, c.Database.TLS), nil
	default:
		return "", fmt.Errorf("config: unsupported backend %v", backend)
	}
}

// ContinuousMinTimeDelta is Continuous.MinTimeDeltaSeconds as a
// time.Duration, defaulting to continuous.DefaultMinTimeDelta when unset.
func (c *Config) ContinuousMinTimeDelta() time.Duration {
	if c.Continuous.MinTimeDeltaSeconds <= 0 {
		return continuous.DefaultMinTimeDelta
	}
	return time.Duration(c.Continuous.MinTimeDeltaSeconds) * time.Second
}

// IsMaintenanceTime reports whether now falls within the configured
// maintenance window, reusing the continuous tracker's InTimeRange
// time-of-day logic (§4.6/§9) since both describe the same "HH:MM..HH:MM,
// possibly wrapping past midnight" shape.
func (c *Config) IsMaintenanceTime(now time.Time) bool {
	if c.Maintenance.WindowStart == "" && c.Maintenance.WindowEnd == "" {
		return false
	}
	begin, err := time.Parse("15:04", c.Maintenance.WindowStart)
	if err != nil {
		return false
	}
	end, err := time.Parse("15:04", c.Maintenance.WindowEnd)
	if err != nil {
		return false
	}
	return continuous.InTimeRange(now.Hour(), now.Minute(), begin.Hour(), begin.Minute(), end.Hour(), end.Minute())
}
