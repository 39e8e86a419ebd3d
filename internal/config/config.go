// Package config handles configuration for the teleauth service.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nilopro/teleauth/internal/types"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultDir is the default directory for teleauth data.
	DefaultDir = ".teleauth"
	// DefaultSocket is the default socket filename.
	DefaultSocket = "teleauth.sock"
	// DefaultDatabaseFile is the default relational store filename.
	DefaultDatabaseFile = "users.db"
	// DefaultDocumentFile is the default document store filename.
	DefaultDocumentFile = "users.json"
	// DefaultIdentityFile is the default age identity filename.
	DefaultIdentityFile = "identity.age"
	// DefaultAuditFile is the default audit log filename.
	DefaultAuditFile = "audit.log"
	// DefaultConfigFile is the default config filename.
	DefaultConfigFile = "config.json"
	// DefaultTimeLayout renders expiries as day/month/year hour:minute.
	DefaultTimeLayout = "02/01/2006 15:04"
)

// Environment variables that override file configuration.
const (
	EnvAdmins = "TELEAUTH_ADMINS"
	EnvStore  = "TELEAUTH_STORE"
	EnvDir    = "TELEAUTH_DIR"
)

// LogConfig selects log verbosity and encoding.
type LogConfig struct {
	// Level is a zerolog level name (trace, debug, info, warn, error).
	Level string `json:"level" yaml:"level"`

	// Format is "json" or "console".
	Format string `json:"format" yaml:"format"`
}

// Config holds the service configuration.
type Config struct {
	// Directory is the base directory for all teleauth files.
	Directory string `json:"directory" yaml:"directory"`

	// SocketPath is the full path to the daemon's Unix socket.
	SocketPath string `json:"socket_path" yaml:"socket_path"`

	// Store selects the persistence backend.
	Store StoreKind `json:"store" yaml:"store"`

	// DatabasePath is the relational store file.
	DatabasePath string `json:"database_path" yaml:"database_path"`

	// DocumentPath is the JSON document store file.
	DocumentPath string `json:"document_path" yaml:"document_path"`

	// Encrypt stores the document file age-encrypted.
	Encrypt bool `json:"encrypt" yaml:"encrypt"`

	// IdentityPath is the age identity used when Encrypt is set.
	IdentityPath string `json:"identity_path" yaml:"identity_path"`

	// SkipPermissionCheck disables the 0600 check on store files.
	SkipPermissionCheck bool `json:"skip_permission_check" yaml:"skip_permission_check"`

	// AuditPath is the full path to the audit log.
	AuditPath string `json:"audit_path" yaml:"audit_path"`

	// Admins are user ids with permanent access. Never persisted by the store.
	Admins []int64 `json:"admins" yaml:"admins"`

	// ExpiryCheckInterval is how often the daemon audits lapsed grants.
	ExpiryCheckInterval time.Duration `json:"expiry_check_interval" yaml:"expiry_check_interval"`

	// MetricsAddr enables a Prometheus /metrics listener when non-empty.
	MetricsAddr string `json:"metrics_addr,omitempty" yaml:"metrics_addr,omitempty"`

	// TimeLayout is the Go time layout used when rendering expiries.
	TimeLayout string `json:"time_layout" yaml:"time_layout"`

	Log LogConfig `json:"log" yaml:"log"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	return NewInDir(filepath.Join(homeDir, DefaultDir))
}

// NewInDir returns a default Config rooted at baseDir.
func NewInDir(baseDir string) *Config {
	return &Config{
		Directory:           baseDir,
		SocketPath:          filepath.Join(baseDir, DefaultSocket),
		Store:               StoreDocument,
		DatabasePath:        filepath.Join(baseDir, DefaultDatabaseFile),
		DocumentPath:        filepath.Join(baseDir, DefaultDocumentFile),
		IdentityPath:        filepath.Join(baseDir, DefaultIdentityFile),
		AuditPath:           filepath.Join(baseDir, DefaultAuditFile),
		ExpiryCheckInterval: 1 * time.Minute,
		TimeLayout:          DefaultTimeLayout,
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads configuration from the default directory. Both config.json and
// config.yaml are recognized; environment overrides are applied last.
func Load() (*Config, error) {
	cfg := DefaultConfig()
	if dir := os.Getenv(EnvDir); dir != "" {
		cfg = NewInDir(dir)
	}

	for _, name := range []string{DefaultConfigFile, "config.yaml", "config.yml"} {
		path := filepath.Join(cfg.Directory, name)
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		if err := decodeInto(cfg, path); err != nil {
			return nil, err
		}
		break
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFrom reads configuration from a specific path.
// Supported formats: JSON (.json), YAML (.yaml, .yml).
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := decodeInto(cfg, path); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeInto(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parsing YAML config: %w", err)
		}
	case ".json", "":
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parsing JSON config: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config file extension %q: use .json, .yaml, or .yml", ext)
	}
	return nil
}

// ApplyEnv overrides admins and store kind from the environment.
func (c *Config) ApplyEnv() error {
	if raw := os.Getenv(EnvAdmins); raw != "" {
		admins, err := ParseAdmins(raw)
		if err != nil {
			return &ConfigError{Field: EnvAdmins, Message: err.Error()}
		}
		c.Admins = admins
	}
	if raw := os.Getenv(EnvStore); raw != "" {
		if err := c.Store.Set(raw); err != nil {
			return &ConfigError{Field: EnvStore, Message: err.Error()}
		}
	}
	return nil
}

// ParseAdmins parses a comma-separated list of user ids, e.g. "1,2,3".
func ParseAdmins(raw string) ([]int64, error) {
	var admins []int64
	for _, part := range strings.Split(raw, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		id, err := types.ParseUserID(part)
		if err != nil {
			return nil, err
		}
		admins = append(admins, int64(id))
	}
	return admins, nil
}

// AdminIDs returns the admin allowlist as user ids.
func (c *Config) AdminIDs() []types.UserID {
	ids := make([]types.UserID, len(c.Admins))
	for i, id := range c.Admins {
		ids[i] = types.UserID(id)
	}
	return ids
}

// StorePath returns the backing file for the selected store kind.
func (c *Config) StorePath() string {
	if c.Store == StoreRelational {
		return c.DatabasePath
	}
	return c.DocumentPath
}

// Save writes the configuration to disk.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.Directory, 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	configPath := filepath.Join(c.Directory, DefaultConfigFile)
	return os.WriteFile(configPath, data, 0600)
}

// EnsureDirectories creates all required directories with secure permissions.
func (c *Config) EnsureDirectories() error {
	return os.MkdirAll(c.Directory, 0700)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Directory == "" {
		return &ConfigError{Field: "directory", Message: "cannot be empty"}
	}
	if !c.Store.Valid() {
		return &ConfigError{Field: "store", Message: fmt.Sprintf("must be %q or %q", StoreRelational, StoreDocument)}
	}
	if c.StorePath() == "" {
		return &ConfigError{Field: string(c.Store) + "_path", Message: "cannot be empty"}
	}
	if c.Encrypt {
		if c.Store != StoreDocument {
			return &ConfigError{Field: "encrypt", Message: "only supported by the document store"}
		}
		if c.IdentityPath == "" {
			return &ConfigError{Field: "identity_path", Message: "required when encrypt is set"}
		}
	}
	if c.ExpiryCheckInterval <= 0 {
		return &ConfigError{Field: "expiry_check_interval", Message: "must be positive"}
	}
	if c.TimeLayout == "" {
		return &ConfigError{Field: "time_layout", Message: "cannot be empty"}
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return &ConfigError{Field: "log.level", Message: err.Error()}
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return &ConfigError{Field: "log.format", Message: "must be json or console"}
	}

	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config: " + e.Field + " " + e.Message
}
