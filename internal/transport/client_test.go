package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeBaseURL_TrimsAndStripsTrailingSlash(t *testing.T) {
	normalized, err := normalizeBaseURL(" https://localhost:18789/ ")
	require.NoError(t, err)
	assert.Equal(t, "https://localhost:18789", normalized)
}

func TestNormalizeBaseURL_RejectsNonHTTPScheme(t *testing.T) {
	_, err := normalizeBaseURL("ws://localhost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base URL must start with http:// or https://")
}

func TestNormalizeBaseURL_RejectsEmpty(t *testing.T) {
	_, err := normalizeBaseURL("   ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base URL cannot be empty")
}

func TestDeriveWSURL(t *testing.T) {
	assert.Equal(t, "ws://localhost:18789/ws", deriveWSURL("http://localhost:18789", "/ws"))
	assert.Equal(t, "wss://gateway/ws", deriveWSURL("https://gateway", "ws"))
}

func TestFetchJSON_NonOKStatusIsProtocolError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, err := New(Options{BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.FetchJSON(context.Background(), "/healthz")
	require.Error(t, err)

	var terr *Error
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, KindProtocol, terr.Kind)
	assert.Contains(t, err.Error(), "unexpected status 503 for /healthz")
}

func TestFetchJSON_NonJSONBodyIsProtocolError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>hi</html>"))
	}))
	defer server.Close()

	client, err := New(Options{BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.FetchJSON(context.Background(), "/info")
	var terr *Error
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, KindProtocol, terr.Kind)
}

func TestFetchJSON_RefusedConnectionIsTransportError(t *testing.T) {
	// Reserve a port and close it so the connection is refused.
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client, err := New(Options{BaseURL: url})
	require.NoError(t, err)

	_, err = client.FetchJSON(context.Background(), "/healthz")
	require.Error(t, err)

	var terr *Error
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, KindTransport, terr.Kind)
}

func TestSubmitJSON_ReturnsStatusAndPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/channels/nonexistent/webhook", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"ok":false,"error":{"code":"NOT_FOUND"}}`))
	}))
	defer server.Close()

	client, err := New(Options{BaseURL: server.URL})
	require.NoError(t, err)

	status, payload, err := client.SubmitJSON(context.Background(), "channels/nonexistent/webhook", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, status)
	assert.JSONEq(t, `{"ok":false,"error":{"code":"NOT_FOUND"}}`, string(payload))
}

func TestNew_ReadTimeoutCoversInbandTimeout(t *testing.T) {
	client, err := New(Options{
		BaseURL:          "http://localhost:18789",
		MaxInbandTimeout: DefaultReadTimeout, // larger than the default read timeout allows
	})
	require.NoError(t, err)
	assert.Greater(t, client.readTimeout, DefaultReadTimeout)
}
