// Package client wraps the backend HTTP API. Every call is a JSON POST to a
// path under the configured base URL; authenticated calls carry the stored
// token in the Authorization header. There are no retries: each call is
// made at most once and cancelled through its context.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"github.com/goliatone/go-formblocks/pkg/metrics"
	"github.com/goliatone/go-formblocks/pkg/store"
)

// ErrMissingBaseURL is returned by New for an empty base URL.
var ErrMissingBaseURL = errors.New("client: base url is required")

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the logger used for request traces.
func WithLogger(logger logr.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMetrics records every call on r.
func WithMetrics(r *metrics.Recorder) Option {
	return func(c *Client) {
		c.metrics = r
	}
}

// Client posts JSON payloads to the backend.
type Client struct {
	base    *url.URL
	http    *http.Client
	store   *store.Store
	logger  logr.Logger
	metrics *metrics.Recorder
}

// New returns a Client rooted at baseURL. The store supplies the auth
// token and session id for authenticated calls.
func New(baseURL string, st *store.Store, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, ErrMissingBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("client: parse base url: %w", err)
	}
	if st == nil {
		st = store.NewMemory()
	}

	c := &Client{
		base:   base,
		http:   http.DefaultClient,
		store:  st,
		logger: logr.Discard(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// Store returns the session store backing the client.
func (c *Client) Store() *store.Store {
	return c.store
}

// BaseURL returns the base URL with its trailing slash.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// Resolve joins path onto the base URL. Absolute URLs pass through.
func (c *Client) Resolve(path string) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(path))
	if err != nil {
		return "", fmt.Errorf("client: parse path %q: %w", path, err)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}
	ref.Path = strings.TrimLeft(ref.Path, "/")
	return c.base.ResolveReference(ref).String(), nil
}

// CallOption adjusts a single call.
type CallOption func(*callConfig)

type callConfig struct {
	authorize bool
	token     string
}

// WithAuthorization sends the stored auth token in the Authorization
// header.
func WithAuthorization() CallOption {
	return func(cfg *callConfig) {
		cfg.authorize = true
	}
}

// WithToken sends token in the Authorization header instead of the stored
// one.
func WithToken(token string) CallOption {
	return func(cfg *callConfig) {
		cfg.authorize = true
		cfg.token = token
	}
}

// Response is a successful backend reply.
type Response struct {
	Status int
	Body   []byte
}

// Decode unmarshals the body into dst.
func (r Response) Decode(dst any) error {
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, dst); err != nil {
		return fmt.Errorf("client: decode response: %w", err)
	}
	return nil
}

// Post sends payload as JSON to path. Non-2xx replies return StatusError,
// transport failures wrap ErrNoResponse.
func (c *Client) Post(ctx context.Context, path string, payload any, opts ...CallOption) (Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Response{}, fmt.Errorf("client: encode payload: %w", err)
	}
	return c.send(ctx, path, bytes.NewReader(body), "application/json", opts)
}

func (c *Client) send(ctx context.Context, path string, body io.Reader, contentType string, opts []CallOption) (Response, error) {
	var cfg callConfig
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	endpoint := endpointLabel(path)
	started := time.Now()
	resp, err := c.do(ctx, path, body, contentType, cfg)
	category := Classify(err)
	c.metrics.BackendCall(endpoint, category.String(), time.Since(started))

	if err != nil {
		c.logger.V(1).Info("backend call failed", "endpoint", endpoint, "category", category.String(), "error", err.Error())
		return Response{}, err
	}
	c.logger.V(1).Info("backend call", "endpoint", endpoint, "status", resp.Status)
	return resp, nil
}

func (c *Client) do(ctx context.Context, path string, body io.Reader, contentType string, cfg callConfig) (Response, error) {
	target, err := c.Resolve(path)
	if err != nil {
		return Response{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, body)
	if err != nil {
		return Response{}, fmt.Errorf("client: build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if cfg.authorize {
		token := cfg.token
		if token == "" {
			token = c.store.AuthToken(ctx)
		}
		req.Header.Set("Authorization", token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Response{}, fmt.Errorf("%w: %w", ErrNoResponse, ctxErr)
		}
		return Response{}, fmt.Errorf("%w: %w", ErrNoResponse, err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return Response{}, fmt.Errorf("%w: read body: %w", ErrNoResponse, err)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return Response{}, StatusError{Code: res.StatusCode, Endpoint: endpointLabel(path), Body: data}
	}
	return Response{Status: res.StatusCode, Body: data}, nil
}

// endpointLabel keeps metric cardinality bounded: absolute URLs collapse
// to their last path segment.
func endpointLabel(path string) string {
	if u, err := url.Parse(path); err == nil {
		path = u.Path
	}
	path = strings.Trim(path, "/")
	if i := strings.LastIndex(path, "/"); i >= 0 {
		path = path[i+1:]
	}
	if path == "" {
		return "root"
	}
	return path
}
