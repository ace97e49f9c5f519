// Package client is a typed Go client for the MiniatureDB REST API. Reads
// are cached per resource; mutations invalidate the affected resources
// through the dependency graph of NewCatalogCache.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/mesh-intelligence/miniaturedb/pkg/types"
)

// DefaultTimeout bounds each HTTP request.
const DefaultTimeout = 30 * time.Second

// ErrUnauthorized is wrapped into the error returned when the server
// answers 401. Match it with errors.Is.
var ErrUnauthorized = errors.New("unauthorized")

// APIError is a non-2xx response other than 401.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Is lets callers match a 404 against types.ErrNotFound.
func (e *APIError) Is(target error) bool {
	return target == types.ErrNotFound && e.Status == http.StatusNotFound
}

// Client talks to one MiniatureDB server. It is safe for concurrent use.
type Client struct {
	baseURL        string
	http           *http.Client
	cache          *Cache
	onUnauthorized func()
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client. Its Jar must be set for the
// session cookie to persist.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithOnUnauthorized sets a hook called whenever the server answers 401,
// typically to prompt for a new login.
func WithOnUnauthorized(fn func()) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

// WithCache replaces the read cache.
func WithCache(cache *Cache) Option {
	return func(c *Client) { c.cache = cache }
}

// New returns a client for the server at baseURL, e.g.
// "http://localhost:3001".
func New(baseURL string, opts ...Option) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Jar: jar, Timeout: DefaultTimeout},
		cache:   NewCatalogCache(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Cache returns the client's read cache.
func (c *Client) Cache() *Cache { return c.cache }

// do sends a JSON request and decodes a JSON response into out when out
// is non-nil.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}
	return c.send(ctx, method, path, contentType, body, out)
}

func (c *Client) send(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return fmt.Errorf("%s %s: %w", method, path, ErrUnauthorized)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: e.Error}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s: %w", method, path, err)
	}
	return nil
}

// get reads path through the cache under resource and key.
func get[T any](ctx context.Context, c *Client, resource, key, path string) (T, error) {
	v, err := c.cache.Load(resource, key, func() (any, error) {
		var out T
		if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
			return nil, err
		}
		return out, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// mutate sends a write and, on success, invalidates resources.
func mutate[T any](ctx context.Context, c *Client, method, path string, in any, resources ...string) (T, error) {
	var out T
	if err := c.do(ctx, method, path, in, &out); err != nil {
		return out, err
	}
	for _, r := range resources {
		c.cache.Invalidate(r)
	}
	return out, nil
}

// remove sends a DELETE and, on success, invalidates resources.
func (c *Client) remove(ctx context.Context, path string, resources ...string) error {
	_, err := mutate[map[string]any](ctx, c, http.MethodDelete, path, nil, resources...)
	return err
}
