package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/miniaturedb/pkg/types"
)

// clearEnv blanks every variable Load reads so the host environment does
// not leak into tests.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"MINIDB_PORT", "PORT", "MINIDB_MODE", "MINIDB_SESSION_TTL",
		"MINIDB_CORS_ORIGINS", "MINIDB_LOG_LEVEL", "MINIDB_BUSY_TIMEOUT",
		"MINIDB_CONFIG_DIR", "MINIDB_DATA_DIR", "MINIDB_IMAGE_DIR",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	configDir := filepath.Join(root, "cfg")
	dataDir := filepath.Join(root, "data")

	cfg, err := Load(Options{ConfigDir: configDir, DataDir: dataDir, EnvFile: filepath.Join(root, "missing.env")})
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, ModeDevelopment, cfg.Mode)
	assert.False(t, cfg.Production())
	assert.Equal(t, DefaultSessionTTL, cfg.SessionTTL)
	assert.Equal(t, DefaultCORSOrigins, cfg.CORSOrigins)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, dataDir, cfg.DataDir)
	assert.Equal(t, filepath.Join(dataDir, "images"), cfg.ImageDir)
	assert.Equal(t, ":3001", cfg.Addr())
	assert.Equal(t, types.Config{DataDir: dataDir, BusyTimeout: types.DefaultBusyTimeout}, cfg.Store())

	_, err = os.Stat(filepath.Join(configDir, "config.yaml"))
	assert.NoError(t, err, "default config.yaml is written on first run")
}

func TestLoadPrecedence(t *testing.T) {
	tests := []struct {
		name  string
		yaml  string
		env   map[string]string
		opts  Options
		check func(t *testing.T, cfg *Config)
	}{
		{
			name: "config file values",
			yaml: "port: 8080\nmode: production\nsession_ttl: 2h\nlog_level: debug\ncors_origins: [https://minis.example]\n",
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8080, cfg.Port)
				assert.True(t, cfg.Production())
				assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
				assert.Equal(t, "debug", cfg.LogLevel)
				assert.Equal(t, []string{"https://minis.example"}, cfg.CORSOrigins)
			},
		},
		{
			name: "busy timeout from the environment",
			yaml: "busy_timeout: 2s\n",
			env:  map[string]string{"MINIDB_BUSY_TIMEOUT": "750ms"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 750*time.Millisecond, cfg.Store().BusyTimeout)
			},
		},
		{
			name: "MINIDB_PORT beats PORT and the file",
			yaml: "port: 8080\n",
			env:  map[string]string{"MINIDB_PORT": "9000", "PORT": "9100"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9000, cfg.Port)
			},
		},
		{
			name: "PORT is the fallback",
			env:  map[string]string{"PORT": "9100"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9100, cfg.Port)
			},
		},
		{
			name: "flag port wins",
			env:  map[string]string{"MINIDB_PORT": "9000"},
			opts: Options{Port: 7000},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 7000, cfg.Port)
			},
		},
		{
			name: "comma separated origins from the environment",
			env:  map[string]string{"MINIDB_CORS_ORIGINS": "https://a.example, https://b.example"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
			},
		},
		{
			name: "config data_dir beats MINIDB_DATA_DIR",
			yaml: "data_dir: /srv/minis\n",
			env:  map[string]string{"MINIDB_DATA_DIR": "/var/minis"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "/srv/minis", cfg.DataDir)
				assert.Equal(t, "/srv/minis/images", cfg.ImageDir)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			dir := t.TempDir()
			if tt.yaml != "" {
				require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(tt.yaml), 0o644))
			}
			opts := tt.opts
			opts.ConfigDir = dir
			opts.EnvFile = filepath.Join(dir, "none.env")

			cfg, err := Load(opts)
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("MINIDB_LOG_LEVEL")
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("MINIDB_LOG_LEVEL=warn\n"), 0o644))

	cfg, err := Load(Options{ConfigDir: dir, DataDir: dir, EnvFile: envFile})
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadRejectsInvalidMode(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("mode: staging\n"), 0o644))

	_, err := Load(Options{ConfigDir: dir, DataDir: dir, EnvFile: filepath.Join(dir, "none.env")})
	assert.ErrorIs(t, err, ErrInvalidMode)
}

func TestLoadRejectsNegativeBusyTimeout(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("busy_timeout: -1s\n"), 0o644))

	_, err := Load(Options{ConfigDir: dir, DataDir: dir, EnvFile: filepath.Join(dir, "none.env")})
	assert.ErrorIs(t, err, types.ErrInvalidBusyTimeout)
}
