// Package transport implements the gateway transport contract over real
// HTTP and a websocket message channel. The conformance catalog sees only
// the four-operation interface; everything about URLs, connections, and
// frame plumbing stays here.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Default timeouts. ReadTimeout must stay above the largest in-band
// timeoutMs the catalog sends, otherwise a legitimate "timeout" reply would
// be pre-empted by the network layer; New enforces the margin.
const (
	DefaultDialTimeout = 10 * time.Second
	DefaultReadTimeout = 30 * time.Second
	readTimeoutMargin  = 5 * time.Second
)

// Options configures a Client.
type Options struct {
	// BaseURL is the http(s) root of the gateway, e.g. "http://127.0.0.1:18789".
	BaseURL string

	// WSPath is the message-channel path. Defaults to "/ws".
	WSPath string

	// DialTimeout bounds connection establishment.
	DialTimeout time.Duration

	// ReadTimeout bounds each single read on the message channel. It must
	// exceed MaxInbandTimeout by a safety margin.
	ReadTimeout time.Duration

	// MaxInbandTimeout is the largest timeoutMs the caller intends to send.
	// Zero means the defaults are trusted as-is.
	MaxInbandTimeout time.Duration
}

// Client is the production transport. It is stateless between calls: every
// probe and exchange opens and releases its own websocket session.
type Client struct {
	baseURL     string
	wsURL       string
	httpClient  *http.Client
	dialTimeout time.Duration
	readTimeout time.Duration
}

// New builds a Client from the given options. The base URL is normalized
// the same way regardless of trailing slashes or surrounding whitespace.
func New(opts Options) (*Client, error) {
	base, err := normalizeBaseURL(opts.BaseURL)
	if err != nil {
		return nil, err
	}

	wsPath := opts.WSPath
	if wsPath == "" {
		wsPath = "/ws"
	}

	dialTimeout := opts.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = DefaultDialTimeout
	}
	readTimeout := opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}
	if opts.MaxInbandTimeout > 0 && readTimeout < opts.MaxInbandTimeout+readTimeoutMargin {
		readTimeout = opts.MaxInbandTimeout + readTimeoutMargin
	}

	return &Client{
		baseURL:     base,
		wsURL:       deriveWSURL(base, wsPath),
		httpClient:  &http.Client{Timeout: readTimeout},
		dialTimeout: dialTimeout,
		readTimeout: readTimeout,
	}, nil
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// FetchJSON performs a single GET. Any status other than 200 is a failure;
// scenarios that need to see non-success statuses use SubmitJSON.
func (c *Client) FetchJSON(ctx context.Context, path string) (json.RawMessage, error) {
	path = normalizePath(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, transportErr("fetch", "build request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportErr("fetch", "GET "+path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, protocolErr("fetch", fmt.Sprintf("unexpected status %d for %s", resp.StatusCode, path))
	}
	return readJSONBody("fetch", resp.Body)
}

// SubmitJSON performs a single POST. A non-success status is a valid
// result, returned alongside the decoded body.
func (c *Client) SubmitJSON(ctx context.Context, path string, body any) (int, json.RawMessage, error) {
	path = normalizePath(path)
	encoded, err := json.Marshal(body)
	if err != nil {
		return 0, nil, transportErr("submit", "encode body", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return 0, nil, transportErr("submit", "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, transportErr("submit", "POST "+path, err)
	}
	defer resp.Body.Close()

	payload, err := readJSONBody("submit", resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, payload, nil
}

func readJSONBody(op string, r io.Reader) (json.RawMessage, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, transportErr(op, "read body", err)
	}
	if !json.Valid(data) {
		return nil, protocolErr(op, "response body is not valid JSON")
	}
	return json.RawMessage(data), nil
}

func normalizeBaseURL(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", protocolErr("config", "base URL cannot be empty")
	}

	withoutTrailing := strings.TrimRight(trimmed, "/")
	if !strings.HasPrefix(withoutTrailing, "http://") && !strings.HasPrefix(withoutTrailing, "https://") {
		return "", protocolErr("config", "base URL must start with http:// or https://")
	}
	return withoutTrailing, nil
}

func normalizePath(path string) string {
	if strings.HasPrefix(path, "/") {
		return path
	}
	return "/" + path
}

func deriveWSURL(base, wsPath string) string {
	ws := strings.Replace(base, "http", "ws", 1)
	return ws + normalizePath(wsPath)
}
