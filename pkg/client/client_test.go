package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/miniaturedb/internal/auth"
	"github.com/mesh-intelligence/miniaturedb/internal/images"
	"github.com/mesh-intelligence/miniaturedb/internal/server"
	"github.com/mesh-intelligence/miniaturedb/internal/sqlite"
	"github.com/mesh-intelligence/miniaturedb/pkg/types"
)

// countingTransport counts requests that reach the server.
type countingTransport struct {
	n    atomic.Int32
	next http.RoundTripper
}

func (c *countingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	c.n.Add(1)
	return c.next.RoundTrip(r)
}

func startServer(t *testing.T) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	b := sqlite.NewBackend()
	require.NoError(t, b.Attach(types.Config{DataDir: t.TempDir()}))
	t.Cleanup(func() { b.Detach() })

	svc := auth.NewService(b.Users(), b.Sessions(), time.Hour, nil)
	_, err := svc.CreateUser(context.Background(), "admin", "password123")
	require.NoError(t, err)

	ts := httptest.NewServer(server.New(b, svc, images.NewStore(t.TempDir()), zap.NewNop(), server.Options{}).Handler())
	t.Cleanup(ts.Close)
	return ts.URL
}

func newLoggedIn(t *testing.T, url string, opts ...Option) *Client {
	t.Helper()
	c, err := New(url, opts...)
	require.NoError(t, err)
	require.NoError(t, c.Login(context.Background(), "admin", "password123"))
	return c
}

func TestUnauthorizedHook(t *testing.T) {
	url := startServer(t)
	var called atomic.Int32
	c, err := New(url, WithOnUnauthorized(func() { called.Add(1) }))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = c.Tags(ctx)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, int32(1), called.Load())

	err = c.Login(ctx, "admin", "nope-nope")
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Contains(t, err.Error(), "/api/auth/login", "the error names the request")

	require.NoError(t, c.Login(ctx, "admin", "password123"))
	st, err := c.Status(ctx)
	require.NoError(t, err)
	assert.True(t, st.Authenticated)
	require.NotNil(t, st.Username)
	assert.Equal(t, "admin", *st.Username)

	assert.NoError(t, c.Health(ctx))
}

func TestCatalogRoundTrip(t *testing.T) {
	c := newLoggedIn(t, startServer(t))
	ctx := context.Background()

	company, err := c.CreateCompany(ctx, "Acme")
	require.NoError(t, err)
	line, err := c.CreateLine(ctx, "Acme Minis", company.ID)
	require.NoError(t, err)

	lines, err := c.CompanyLines(ctx, company.ID)
	require.NoError(t, err)
	if diff := cmp.Diff([]types.ProductLine{*line}, lines); diff != "" {
		t.Errorf("company lines (-want +got):\n%s", diff)
	}

	tag, err := c.CreateTag(ctx, "heroes")
	require.NoError(t, err)
	m, err := c.CreateMini(ctx, types.MiniInput{Name: "Knight", PaintedByID: 1, BaseSizeID: 1, TagIDs: []int64{tag.ID}})
	require.NoError(t, err)

	got, err := c.Mini(ctx, m.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(m, got); diff != "" {
		t.Errorf("mini (-created +fetched):\n%s", diff)
	}

	err = c.DeleteCompany(ctx, company.ID)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)

	err = c.DeleteTag(ctx, 999)
	assert.ErrorIs(t, err, types.ErrNotFound)

	require.NoError(t, c.SetSetting(ctx, types.SettingTheme, "dark"))
	settings, err := c.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"theme": "dark"}, settings)
}

func TestReadsAreCachedAndMutationsInvalidate(t *testing.T) {
	url := startServer(t)
	ct := &countingTransport{next: http.DefaultTransport}
	c, err := New(url)
	require.NoError(t, err)
	c.http.Transport = ct
	ctx := context.Background()
	require.NoError(t, c.Login(ctx, "admin", "password123"))

	_, err = c.CreateCompany(ctx, "Acme")
	require.NoError(t, err)

	before := ct.n.Load()
	first, err := c.Companies(ctx)
	require.NoError(t, err)
	_, err = c.Companies(ctx)
	require.NoError(t, err)
	_, err = c.Types(ctx)
	require.NoError(t, err)
	assert.Equal(t, before+2, ct.n.Load(), "second companies read is served from cache")
	assert.Equal(t, 0, first[0].LineCount)

	_, err = c.CreateLine(ctx, "Heroes", first[0].ID)
	require.NoError(t, err)

	after, err := c.Companies(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, after[0].LineCount, "creating a line refreshes the company line count")

	n := ct.n.Load()
	_, err = c.Types(ctx)
	require.NoError(t, err)
	assert.Equal(t, n, ct.n.Load(), "types are unaffected by line changes")
}

func TestAPIErrorIs(t *testing.T) {
	assert.True(t, errors.Is(&APIError{Status: 404}, types.ErrNotFound))
	assert.False(t, errors.Is(&APIError{Status: 400}, types.ErrNotFound))
}
