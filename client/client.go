// Package client talks to the remote diagram service that turns requirements
// text and diagram code into node/edge graphs. Every payload is validated
// before it is handed to callers; no request is retried.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"c4arch/diagram"
)

var (
	// ErrRemote wraps every failure of the remote service: transport errors,
	// non-2xx responses and malformed or invalid payloads.
	ErrRemote = errors.New("remote service request failed")
	// ErrPasswordMismatch is returned by Register before any request when the
	// confirmation does not match.
	ErrPasswordMismatch = errors.New("passwords do not match")
	// ErrMissingCredentials is returned for a blank username or password.
	ErrMissingCredentials = errors.New("username and password are required")
)

// Endpoints of the remote service.
const (
	EndpointProcess  = "/process"
	EndpointParse    = "/parse-plantuml"
	EndpointAction   = "/ai-assistant"
	EndpointExamples = "/examples"
	EndpointLogin    = "/login"
	EndpointRegister = "/register"
)

// maxBody bounds how much of a response is read.
const maxBody = 10 << 20

// Observer is told about every finished request.
type Observer func(endpoint string, started time.Time, err error)

// Client is a remote service client. It is safe for concurrent use.
type Client struct {
	base     *url.URL
	http     *http.Client
	timeout  time.Duration
	logger   *slog.Logger
	observer Observer

	mu    sync.RWMutex
	token string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout. It applies to a copy of the
// HTTP client, whichever option supplied it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithObserver registers a request observer, typically for metrics.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// WithToken presets the bearer token.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// New creates a client for the service at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid remote url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid remote url %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		base:   u,
		http:   &http.Client{Timeout: 30 * time.Second},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.http
		hc.Timeout = c.timeout
		c.http = &hc
	}
	return c, nil
}

// Token returns the bearer token, empty before Login.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// GenerateResult is the reply to Generate.
type GenerateResult struct {
	Snapshot *diagram.Snapshot
	Code     string
}

// Generate turns requirements text into a diagram and its code.
func (c *Client) Generate(ctx context.Context, text string) (*GenerateResult, error) {
	var resp struct {
		envelope
		Nodes        []diagram.Entity   `json:"nodes"`
		Edges        []diagram.Relation `json:"edges"`
		PlantUMLCode string             `json:"plantuml_code"`
	}
	if err := c.post(ctx, EndpointProcess, map[string]string{"text": text}, &resp); err != nil {
		return nil, err
	}
	if err := resp.check(EndpointProcess); err != nil {
		return nil, err
	}

	s, err := c.snapshot(EndpointProcess, resp.Nodes, resp.Edges)
	if err != nil {
		return nil, err
	}
	return &GenerateResult{Snapshot: s, Code: resp.PlantUMLCode}, nil
}

// ParseCode turns diagram code into a diagram.
func (c *Client) ParseCode(ctx context.Context, code string) (*diagram.Snapshot, error) {
	var resp struct {
		envelope
		Nodes []diagram.Entity   `json:"nodes"`
		Edges []diagram.Relation `json:"edges"`
	}
	if err := c.post(ctx, EndpointParse, map[string]string{"code": code}, &resp); err != nil {
		return nil, err
	}
	if err := resp.check(EndpointParse); err != nil {
		return nil, err
	}
	return c.snapshot(EndpointParse, resp.Nodes, resp.Edges)
}

// ActionResult is the reply to ApplyAction. Snapshot is nil unless the
// service sent both nodes and edges; HasCode reports whether code was sent.
type ActionResult struct {
	Snapshot *diagram.Snapshot
	Code     string
	HasCode  bool
	Reply    string
}

// ApplyAction asks the service to apply a conversational action to the
// current diagram. current may be nil.
func (c *Client) ApplyAction(ctx context.Context, action string, current *diagram.Snapshot, code string) (*ActionResult, error) {
	req := struct {
		Action         string            `json:"action"`
		CurrentDiagram *diagram.Snapshot `json:"currentDiagram"`
		CurrentCode    string            `json:"currentCode"`
	}{action, current, code}

	var resp struct {
		envelope
		Nodes    *[]diagram.Entity   `json:"nodes"`
		Edges    *[]diagram.Relation `json:"edges"`
		Code     *string             `json:"code"`
		Response string              `json:"response"`
	}
	if err := c.post(ctx, EndpointAction, req, &resp); err != nil {
		return nil, err
	}
	if err := resp.check(EndpointAction); err != nil {
		return nil, err
	}

	out := &ActionResult{Reply: resp.Response}
	if resp.Nodes != nil && resp.Edges != nil {
		s, err := c.snapshot(EndpointAction, *resp.Nodes, *resp.Edges)
		if err != nil {
			return nil, err
		}
		out.Snapshot = s
	}
	if resp.Code != nil && *resp.Code != "" {
		out.Code = *resp.Code
		out.HasCode = true
	}
	return out, nil
}

// Login exchanges credentials for a token that is sent on every later
// request.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return "", ErrMissingCredentials
	}

	var resp struct {
		envelope
		Token string `json:"token"`
	}
	body := map[string]string{"username": username, "password": password}
	if err := c.post(ctx, EndpointLogin, body, &resp); err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", fmt.Errorf("%w: %s: response has no token", ErrRemote, EndpointLogin)
	}

	c.mu.Lock()
	c.token = resp.Token
	c.mu.Unlock()
	return resp.Token, nil
}

// Register creates an account. A confirmation mismatch fails locally.
func (c *Client) Register(ctx context.Context, username, password, confirm string) error {
	if password != confirm {
		return ErrPasswordMismatch
	}
	if strings.TrimSpace(username) == "" || password == "" {
		return ErrMissingCredentials
	}
	body := map[string]string{"username": username, "password": password}
	return c.post(ctx, EndpointRegister, body, nil)
}

func (c *Client) snapshot(endpoint string, nodes []diagram.Entity, edges []diagram.Relation) (*diagram.Snapshot, error) {
	s := &diagram.Snapshot{Nodes: nodes, Edges: edges}
	for _, note := range diagram.Normalize(s) {
		c.logger.Warn("normalized remote payload", "endpoint", endpoint, "note", note)
	}
	if err := diagram.Validate(s); err != nil {
		c.logger.Error("rejected remote payload", "endpoint", endpoint, "error", err)
		return nil, fmt.Errorf("%w: %s: %w", ErrRemote, endpoint, err)
	}
	return s, nil
}

// envelope holds the status fields the service adds to some replies.
type envelope struct {
	Success *bool  `json:"success"`
	Error   string `json:"error"`
}

func (e envelope) check(endpoint string) error {
	if e.Success != nil && !*e.Success {
		msg := e.Error
		if msg == "" {
			msg = "service reported failure"
		}
		return fmt.Errorf("%w: %s: %s", ErrRemote, endpoint, msg)
	}
	return nil
}

func (c *Client) post(ctx context.Context, endpoint string, body, out any) error {
	return c.do(ctx, http.MethodPost, endpoint, body, out)
}

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	return c.do(ctx, http.MethodGet, endpoint, nil, out)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body, out any) (err error) {
	started := time.Now()
	defer func() {
		if c.observer != nil {
			c.observer(metricEndpoint(endpoint), started, err)
		}
		if err != nil {
			c.logger.Warn("remote request failed", "method", method, "endpoint", endpoint, "error", err)
		} else {
			c.logger.Debug("remote request", "method", method, "endpoint", endpoint, "duration", time.Since(started))
		}
	}()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: %s: encode request: %w", ErrRemote, endpoint, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+endpoint, reader)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrRemote, endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrRemote, endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("%w: %s: read body: %w", ErrRemote, endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e envelope
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			return fmt.Errorf("%w: %s returned %s: %s", ErrRemote, endpoint, resp.Status, e.Error)
		}
		return fmt.Errorf("%w: %s returned %s", ErrRemote, endpoint, resp.Status)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s: malformed response: %w", ErrRemote, endpoint, err)
	}
	return nil
}

// metricEndpoint collapses per-id paths so metrics stay low-cardinality.
func metricEndpoint(endpoint string) string {
	if strings.HasPrefix(endpoint, EndpointExamples+"/") {
		return EndpointExamples + "/{id}"
	}
	return endpoint
}
