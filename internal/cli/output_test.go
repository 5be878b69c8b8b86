package cli

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reclaw/conformance/internal/conformance"
)

func newGoldie(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func sampleReport() conformance.Report {
	return conformance.NewReport([]conformance.Outcome{
		{Name: "healthz.ok_true", Passed: true, Detail: "/healthz returned ok=true"},
		{Name: "info.protocol_version", Passed: false, Detail: "expected protocolVersion=3, found 9"},
		{Name: "channels.status_views", Passed: true, Detail: "status exposed 2 channels with consistent aggregates and 2 default accounts"},
	})
}

func TestRenderReport_Text(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderReport(&buf, "text", sampleReport()))

	newGoldie(t).Assert(t, "report_text", buf.Bytes())
}

func TestRenderReport_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderReport(&buf, "json", sampleReport()))

	newGoldie(t).Assert(t, "report_json", buf.Bytes())
}

func TestExitError_MessageAndUnwrap(t *testing.T) {
	plain := NewExitError(ExitFailure, "2 of 15 scenarios failed")
	assert.Equal(t, "2 of 15 scenarios failed", plain.Error())
	assert.Nil(t, plain.Unwrap())

	cause := fmt.Errorf("base URL cannot be empty")
	wrapped := WrapExitError(ExitCommandError, "failed to construct transport", cause)
	assert.Equal(t, "failed to construct transport: base URL cannot be empty", wrapped.Error())
	assert.True(t, errors.Is(wrapped, cause))
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitFailure, GetExitCode(NewExitError(ExitFailure, "scenarios failed")))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad flags")))
	assert.Equal(t, ExitCommandError, GetExitCode(errors.New("unclassified")))

	wrapped := fmt.Errorf("outer: %w", NewExitError(ExitFailure, "inner"))
	assert.Equal(t, ExitFailure, GetExitCode(wrapped))
}
