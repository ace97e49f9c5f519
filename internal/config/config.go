// Package config loads the miniaturedb server configuration from
// config.yaml, an optional .env file and MINIDB_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/miniaturedb/internal/paths"
	"github.com/mesh-intelligence/miniaturedb/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"
)

// Config keys.
const (
	KeyPort        = "port"
	KeyMode        = "mode"
	KeyDataDir     = "data_dir"
	KeyImageDir    = "image_dir"
	KeySessionTTL  = "session_ttl"
	KeyCORSOrigins = "cors_origins"
	KeyLogLevel    = "log_level"
	KeyBusyTimeout = "busy_timeout"
)

// Server modes.
const (
	ModeDevelopment = "development"
	ModeProduction  = "production"
)

// Defaults applied when neither config.yaml nor the environment set a key.
const (
	DefaultPort       = 3001
	DefaultMode       = ModeDevelopment
	DefaultSessionTTL = 7 * 24 * time.Hour
	DefaultLogLevel   = "info"
)

// DefaultCORSOrigins are the development origins of the web client.
var DefaultCORSOrigins = []string{"http://localhost:5173", "http://localhost:3000"}

// ErrInvalidMode is returned when mode is neither development nor production.
var ErrInvalidMode = errors.New("mode must be development or production")

// defaultConfigYAML is the content written to config.yaml on first run.
const defaultConfigYAML = `# MiniatureDB server configuration

# HTTP port (MINIDB_PORT or PORT override this)
port: 3001

# development or production
mode: development

# Session lifetime
session_ttl: 168h

# Allowed browser origins for the web client
cors_origins:
  - http://localhost:5173
  - http://localhost:3000

# debug, info, warn or error
log_level: info

# How long a store connection waits on a locked database
busy_timeout: 5s

# Data directory (optional; overridable by --data-dir flag)
# data_dir:

# Image directory (optional; defaults to <data_dir>/images)
# image_dir:
`

// Options carries command-line overrides. Empty fields fall through to the
// config file, the environment and the defaults.
type Options struct {
	ConfigDir string
	DataDir   string
	ImageDir  string
	Port      int
	// EnvFile is loaded before the environment is read. A missing file is
	// ignored. Defaults to ".env".
	EnvFile string
}

// Config is the resolved server configuration.
type Config struct {
	ConfigDir   string
	DataDir     string
	ImageDir    string
	Port        int
	Mode        string
	SessionTTL  time.Duration
	CORSOrigins []string
	LogLevel    string
	BusyTimeout time.Duration
}

// Production reports whether the server runs in production mode.
func (c *Config) Production() bool {
	return c.Mode == ModeProduction
}

// Store returns the storage configuration for sqlite.Open.
func (c *Config) Store() types.Config {
	return types.Config{DataDir: c.DataDir, BusyTimeout: c.BusyTimeout}
}

// Addr returns the listen address for Port.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Load resolves the configuration. It creates the config directory and a
// default config.yaml on first run.
func Load(opts Options) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	configDir, err := paths.ResolveConfigDir(opts.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("resolve config dir: %w", err)
	}

	v, err := readConfig(configDir)
	if err != nil {
		return nil, err
	}

	dataDir, err := paths.ResolveDataDir(opts.DataDir, v.GetString(KeyDataDir))
	if err != nil {
		return nil, fmt.Errorf("resolve data dir: %w", err)
	}
	imageDir, err := paths.ResolveImageDir(opts.ImageDir, v.GetString(KeyImageDir), dataDir)
	if err != nil {
		return nil, fmt.Errorf("resolve image dir: %w", err)
	}

	cfg := &Config{
		ConfigDir:   configDir,
		DataDir:     dataDir,
		ImageDir:    imageDir,
		Port:        v.GetInt(KeyPort),
		Mode:        strings.ToLower(v.GetString(KeyMode)),
		SessionTTL:  v.GetDuration(KeySessionTTL),
		CORSOrigins: corsOrigins(v),
		LogLevel:    v.GetString(KeyLogLevel),
		BusyTimeout: v.GetDuration(KeyBusyTimeout),
	}
	if opts.Port != 0 {
		cfg.Port = opts.Port
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges after resolution.
func (c *Config) Validate() error {
	if c.Mode != ModeDevelopment && c.Mode != ModeProduction {
		return fmt.Errorf("%w: %q", ErrInvalidMode, c.Mode)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session_ttl must be positive, got %s", c.SessionTTL)
	}
	if c.BusyTimeout < 0 {
		return fmt.Errorf("%s %s: %w", KeyBusyTimeout, c.BusyTimeout, types.ErrInvalidBusyTimeout)
	}
	return nil
}

// readConfig reads config.yaml from configDir using Viper, overlaid with
// the environment. A missing config.yaml is not an error.
func readConfig(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(KeyPort, DefaultPort)
	v.SetDefault(KeyMode, DefaultMode)
	v.SetDefault(KeySessionTTL, DefaultSessionTTL)
	v.SetDefault(KeyCORSOrigins, DefaultCORSOrigins)
	v.SetDefault(KeyLogLevel, DefaultLogLevel)
	v.SetDefault(KeyBusyTimeout, types.DefaultBusyTimeout)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	// data_dir and image_dir are not bound here; paths applies their
	// environment variables below the config file value.
	_ = v.BindEnv(KeyPort, "MINIDB_PORT", "PORT")
	_ = v.BindEnv(KeyMode, "MINIDB_MODE")
	_ = v.BindEnv(KeySessionTTL, "MINIDB_SESSION_TTL")
	_ = v.BindEnv(KeyCORSOrigins, "MINIDB_CORS_ORIGINS")
	_ = v.BindEnv(KeyLogLevel, "MINIDB_LOG_LEVEL")
	_ = v.BindEnv(KeyBusyTimeout, "MINIDB_BUSY_TIMEOUT")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// corsOrigins accepts a YAML list or a comma-separated string.
func corsOrigins(v *viper.Viper) []string {
	var out []string
	for _, o := range v.GetStringSlice(KeyCORSOrigins) {
		for _, part := range strings.Split(o, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// ensureDefaultConfigFile creates a default config.yaml if the file does not
// exist in the config directory.
func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)

	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}
