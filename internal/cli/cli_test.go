package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/miniaturedb/internal/auth"
	"github.com/mesh-intelligence/miniaturedb/internal/images"
	"github.com/mesh-intelligence/miniaturedb/internal/server"
	"github.com/mesh-intelligence/miniaturedb/internal/sqlite"
	"github.com/mesh-intelligence/miniaturedb/internal/view"
	"github.com/mesh-intelligence/miniaturedb/pkg/client"
	"github.com/mesh-intelligence/miniaturedb/pkg/types"
)

// cliEnv isolates the config, data and image directories of one test.
type cliEnv struct {
	configDir string
	dataDir   string
	imageDir  string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	for _, k := range []string{"MINIDB_PORT", "PORT", "MINIDB_MODE", "MINIDB_SESSION_TTL", "MINIDB_CORS_ORIGINS",
		"MINIDB_LOG_LEVEL", "MINIDB_BUSY_TIMEOUT", envServer, envUser, envPassword} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	root := t.TempDir()
	return &cliEnv{
		configDir: filepath.Join(root, "config"),
		dataDir:   filepath.Join(root, "data"),
		imageDir:  filepath.Join(root, "images"),
	}
}

// run executes the CLI in process and returns stdout.
func (e *cliEnv) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{
		"--config-dir", e.configDir,
		"--data-dir", e.dataDir,
		"--image-dir", e.imageDir,
	}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (e *cliEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, "", args...)
	require.NoError(t, err, out)
	return out
}

func TestVersion(t *testing.T) {
	env := newCLIEnv(t)
	out := env.mustRun(t, "version")
	assert.Contains(t, out, "minidb v"+Version)
	assert.Contains(t, out, modulePath)
}

func TestInit(t *testing.T) {
	env := newCLIEnv(t)
	out := env.mustRun(t, "init")

	assert.Contains(t, out, "initialized successfully")
	for _, p := range []string{
		filepath.Join(env.configDir, "config.yaml"),
		env.dataDir,
		env.imageDir,
	} {
		_, err := os.Stat(p)
		assert.NoError(t, err, p)
	}

	// A second init keeps the stores and succeeds.
	env.mustRun(t, "init")
}

func TestUserCommands(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun(t, "init")

	out := env.mustRun(t, "user", "add", "alice", "--password", "correct horse")
	assert.Contains(t, out, "Created user alice")

	// Password from stdin.
	out, err := env.run(t, "battery staple\n", "user", "add", "bob")
	require.NoError(t, err)
	assert.Contains(t, out, "Created user bob")

	_, err = env.run(t, "", "user", "add", "alice", "--password", "another one")
	assert.Error(t, err, "duplicate username")

	_, err = env.run(t, "", "user", "add", "carol", "--password", "short")
	assert.ErrorIs(t, err, types.ErrInvalidPassword)

	out = env.mustRun(t, "--json", "user", "list")
	var users []types.User
	require.NoError(t, json.Unmarshal([]byte(out), &users))
	names := make([]string, 0, len(users))
	for _, u := range users {
		names = append(names, u.Username)
	}
	assert.ElementsMatch(t, []string{"alice", "bob"}, names)

	out = env.mustRun(t, "user", "list")
	assert.Contains(t, out, "USERNAME")
	assert.Contains(t, out, "alice")

	env.mustRun(t, "user", "passwd", "alice", "--password", "new password")
	env.mustRun(t, "user", "delete", "bob")

	_, err = env.run(t, "", "user", "delete", "bob")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestExportImport(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun(t, "init")

	dir := filepath.Join(t.TempDir(), "backup")
	out := env.mustRun(t, "--json", "export", dir)
	var m sqlite.Manifest
	require.NoError(t, json.Unmarshal([]byte(out), &m))
	assert.NotEmpty(t, m.BatchID)
	assert.Positive(t, m.Tables["base_sizes"], "seeded base sizes are exported")

	out = env.mustRun(t, "import", dir)
	assert.Contains(t, out, "Imported batch")
	assert.Contains(t, out, "base_sizes")

	_, err := env.run(t, "", "import", filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestExitCodes(t *testing.T) {
	err := sysError("boom: %d", 1)
	var ee *exitError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, exitSysError, ee.code)
	assert.Equal(t, "boom: 1", err.Error())
}

// startRemote serves a fresh catalog with one user and returns its URL.
func startRemote(t *testing.T) string {
	t.Helper()
	gin.SetMode(gin.TestMode)

	b := sqlite.NewBackend()
	require.NoError(t, b.Attach(types.Config{DataDir: t.TempDir()}))
	t.Cleanup(func() { b.Detach() })

	authSvc := auth.NewService(b.Users(), b.Sessions(), time.Hour, nil)
	_, err := authSvc.CreateUser(context.Background(), "admin", "password123")
	require.NoError(t, err)

	srv := server.New(b, authSvc, images.NewStore(t.TempDir()), zap.NewNop(), server.Options{})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts.URL
}

func TestRemoteList(t *testing.T) {
	env := newCLIEnv(t)
	url := startRemote(t)

	ctx := context.Background()
	c, err := client.New(url)
	require.NoError(t, err)
	require.NoError(t, c.Login(ctx, "admin", "password123"))
	for _, name := range []string{"Games Workshop", "Reaper", "Wizkids"} {
		_, err := c.CreateCompany(ctx, name)
		require.NoError(t, err)
	}

	remote := []string{"--server", url, "--user", "admin", "--password", "password123"}

	t.Run("table", func(t *testing.T) {
		out := env.mustRun(t, append([]string{"companies", "list"}, remote...)...)
		assert.Contains(t, out, "Reaper")
		assert.Contains(t, out, "Page 1 of 1 (3 companies)")
	})

	t.Run("filter and page", func(t *testing.T) {
		args := append([]string{"--json", "companies", "list", "--filter", "r", "--page-size", "1", "--page", "2"}, remote...)
		out := env.mustRun(t, args...)
		var page view.Page[types.CompanySummary]
		require.NoError(t, json.Unmarshal([]byte(out), &page))
		// "Games Workshop" and "Reaper" contain an r.
		assert.Equal(t, 2, page.TotalItems)
		assert.Equal(t, 2, page.TotalPages)
		require.Len(t, page.Items, 1)
		assert.Equal(t, "Reaper", page.Items[0].Name)
	})

	t.Run("page size setting", func(t *testing.T) {
		require.NoError(t, c.SetSetting(ctx, types.SettingPageSize, "2"))
		out := env.mustRun(t, append([]string{"--json", "companies", "list"}, remote...)...)
		var page view.Page[types.CompanySummary]
		require.NoError(t, json.Unmarshal([]byte(out), &page))
		assert.Equal(t, 2, page.PageSize)
		assert.Len(t, page.Items, 2)
	})

	t.Run("env credentials", func(t *testing.T) {
		t.Setenv(envServer, url)
		t.Setenv(envUser, "admin")
		t.Setenv(envPassword, "password123")
		out := env.mustRun(t, "tags", "list")
		assert.Contains(t, out, "0 tags")
	})

	t.Run("bad password", func(t *testing.T) {
		_, err := env.run(t, "", "minis", "list", "--server", url, "--user", "admin", "--password", "nope")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid username or password")
		var ee *exitError
		assert.False(t, errors.As(err, &ee), "a rejected login is a user error, not a system error")
	})

	t.Run("missing credentials", func(t *testing.T) {
		_, err := env.run(t, "", "minis", "list", "--server", url)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "credentials required")
	})

	t.Run("dashboard", func(t *testing.T) {
		out := env.mustRun(t, append([]string{"dashboard"}, remote...)...)
		assert.Contains(t, out, "Totals")
		assert.Contains(t, out, "COMPANIES")

		out = env.mustRun(t, append([]string{"--json", "dashboard"}, remote...)...)
		var d types.Dashboard
		require.NoError(t, json.Unmarshal([]byte(out), &d))
		assert.Equal(t, 3, d.Totals.Companies)
	})
}
