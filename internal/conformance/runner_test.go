package conformance

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reclaw/conformance/internal/protocol"
)

// nopTransport satisfies Transport for runner tests that never touch it.
type nopTransport struct{}

func (nopTransport) FetchJSON(ctx context.Context, path string) (json.RawMessage, error) {
	return json.RawMessage(`{}`), nil
}

func (nopTransport) SubmitJSON(ctx context.Context, path string, body any) (int, json.RawMessage, error) {
	return 200, json.RawMessage(`{}`), nil
}

func (nopTransport) HandshakeProbe(ctx context.Context, frame protocol.Request) (protocol.Response, error) {
	return protocol.Response{}, nil
}

func (nopTransport) Exchange(ctx context.Context, frames []protocol.Request) ([]protocol.Response, error) {
	return nil, nil
}

func TestRunner_ExecutesInCatalogOrder(t *testing.T) {
	var order []string
	scenarios := []Scenario{
		{Name: "first", Check: func(ctx context.Context, tr Transport) Outcome {
			order = append(order, "first")
			return pass("first", "ok")
		}},
		{Name: "second", Check: func(ctx context.Context, tr Transport) Outcome {
			order = append(order, "second")
			return fail("second", "expected x, found y")
		}},
		{Name: "third", Check: func(ctx context.Context, tr Transport) Outcome {
			order = append(order, "third")
			return pass("third", "ok")
		}},
	}

	report := NewRunner(nopTransport{}, scenarios).Run(context.Background())

	assert.Equal(t, []string{"first", "second", "third"}, order)
	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, "second", report.Outcomes[1].Name)
	assert.False(t, report.Outcomes[1].Passed)
}

func TestRunner_FailureDoesNotAbortLaterScenarios(t *testing.T) {
	ran := 0
	scenarios := []Scenario{
		{Name: "fails", Check: func(ctx context.Context, tr Transport) Outcome {
			ran++
			return fail("fails", "transport error: connection refused")
		}},
		{Name: "still-runs", Check: func(ctx context.Context, tr Transport) Outcome {
			ran++
			return pass("still-runs", "ok")
		}},
	}

	report := NewRunner(nopTransport{}, scenarios).Run(context.Background())

	assert.Equal(t, 2, ran)
	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 1, report.Failed)
	assert.True(t, report.Outcomes[1].Passed)
}

func TestRunner_NormalizesOutcomeNames(t *testing.T) {
	scenarios := []Scenario{
		{Name: "catalog-name", Check: func(ctx context.Context, tr Transport) Outcome {
			return pass("something-else", "ok")
		}},
	}

	report := NewRunner(nopTransport{}, scenarios).Run(context.Background())

	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, "catalog-name", report.Outcomes[0].Name)
}

func TestCatalog_NamesAreUniqueAndStable(t *testing.T) {
	catalog := Catalog(Config{})

	want := []string{
		"healthz.ok_true",
		"readyz.ok_true",
		"info.protocol_version",
		"info.advertises_methods",
		"channels.unknown_webhook_not_found",
		"ws.first_frame_must_connect",
		"agent.deferred_lifecycle",
		"chat.idempotency_key_reuse",
		"chat.abort_single_run",
		"chat.abort_session_wide",
		"chat.abort_session_mismatch",
		"chat.abort_terminal_noop",
		"agent.wait_unknown_run_times_out",
		"channels.status_views",
		"channels.logout_persists_account",
	}

	names := make([]string, 0, len(catalog))
	seen := make(map[string]bool)
	for _, scenario := range catalog {
		require.NotNil(t, scenario.Check, "scenario %q has no check", scenario.Name)
		assert.False(t, seen[scenario.Name], "duplicate scenario name %q", scenario.Name)
		seen[scenario.Name] = true
		names = append(names, scenario.Name)
	}
	assert.Equal(t, want, names)
}
