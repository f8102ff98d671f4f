// Package config provides configuration loading and management for the
// workspace API server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment variable read by the server.
const EnvPrefix = "DV"

// Storage backend identifiers.
const (
	// BackendPostgres stores entities in PostgreSQL.
	BackendPostgres = "postgres"

	// BackendMemory keeps entities in process memory; useful for tests and
	// local development, state is lost on restart.
	BackendMemory = "memory"
)

// Option defines the interface for configuration options.
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration.
type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML file.
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks to prevent symlink attacks.
		// Note that this calls filepath.Clean internally.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		if !filepath.IsAbs(realPath) {
			if !filepath.IsLocal(realPath) {
				return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
			}
		}

		cfg.path = realPath
		return nil
	}
}

// Config represents the root configuration structure.
type Config struct {
	// Backend selects the storage backend (postgres or memory).
	Backend string `yaml:"backend,omitempty"`

	// Database configures the Postgres backend; required when Backend is
	// postgres.
	Database *DatabaseConfig `yaml:"database,omitempty"`

	// CanSetPublicDataToPrivate allows moving documents out of public
	// workspaces and turning public workspaces private again.
	CanSetPublicDataToPrivate bool `yaml:"canSetPublicDataToPrivate"`

	// CanAnonymousAccessPublicDocument allows unauthenticated reads of
	// documents placed in public workspaces.
	CanAnonymousAccessPublicDocument bool `yaml:"canAnonymousAccessPublicDocument"`

	// CanSetWorkspacePublic allows owners to publish their workspaces.
	CanSetWorkspacePublic bool `yaml:"canSetWorkspacePublic"`

	// VerifyDocumentAccess enables the whole-list read verification pass on
	// filtered document queries. The query rewrite already scopes results;
	// this is a defence-in-depth check that can be disabled for performance.
	VerifyDocumentAccess bool `yaml:"verifyDocumentAccess"`

	// DefaultOrder is the sort spec applied to document listings when the
	// caller supplies none ("field" ascending, "-field" descending).
	DefaultOrder string `yaml:"defaultOrder,omitempty"`
}

// DatabaseConfig defines database connection settings.
type DatabaseConfig struct {
	// Host is the database server hostname or IP address.
	Host string `yaml:"host"`

	// Port is the database server port.
	Port int `yaml:"port"`

	// User is the database username.
	User string `yaml:"user"`

	// PasswordFile is the path to a file containing the database password.
	// This is the recommended approach for production deployments.
	PasswordFile string `yaml:"passwordFile,omitempty"`

	// Database is the database name.
	Database string `yaml:"database"`

	// SSLMode is the SSL mode for the connection (disable, require,
	// verify-ca, verify-full).
	SSLMode string `yaml:"sslMode,omitempty"`

	// MaxConns is the maximum number of pooled connections.
	MaxConns int32 `yaml:"maxConns,omitempty"`
}

// GetPassword returns the database password using the following priority:
// the configured password file, then the DV_DATABASE_PASSWORD environment
// variable.
func (d *DatabaseConfig) GetPassword() (string, error) {
	if d.PasswordFile != "" {
		// Use filepath.Clean to prevent path traversal attacks.
		cleanPath := filepath.Clean(d.PasswordFile)

		data, err := os.ReadFile(cleanPath)
		if err != nil {
			return "", fmt.Errorf("failed to read password from file %s: %w", d.PasswordFile, err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	if envPassword := os.Getenv(EnvPrefix + "_DATABASE_PASSWORD"); envPassword != "" {
		return envPassword, nil
	}

	return "", fmt.Errorf(
		"no database password configured: set passwordFile or %s_DATABASE_PASSWORD environment variable",
		EnvPrefix,
	)
}

// ConnectionString builds the pgx connection string for the configured
// database.
func (d *DatabaseConfig) ConnectionString() (string, error) {
	password, err := d.GetPassword()
	if err != nil {
		return "", err
	}

	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "require"
	}

	// The password is not URL-escaped here because pgx handles it directly.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, password, d.Database, sslMode,
	), nil
}

// Default returns the configuration used when no file is supplied: in-memory
// backend with the restrictive deployment flags.
func Default() *Config {
	return &Config{
		Backend:               BackendMemory,
		CanSetWorkspacePublic: true,
		VerifyDocumentAccess:  true,
		DefaultOrder:          "-updated_at",
	}
}

// Load reads the configuration using the provided options. Without a config
// path the defaults apply.
func Load(opts ...Option) (*Config, error) {
	loader := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loader); err != nil {
			return nil, err
		}
	}

	cfg := Default()
	if loader.path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(loader.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Database == nil {
			return fmt.Errorf("database configuration is required for the postgres backend")
		}
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.Port == 0 {
			return fmt.Errorf("database port is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}

	if c.DefaultOrder != "" {
		field := strings.TrimPrefix(c.DefaultOrder, "-")
		switch field {
		case "title", "created_at", "updated_at":
		default:
			return fmt.Errorf("unknown defaultOrder field %q", field)
		}
	}
	return nil
}
