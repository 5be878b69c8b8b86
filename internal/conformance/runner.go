package conformance

import (
	"context"
	"io"
	"log/slog"
)

// Runner executes a scenario list, in list order, against one transport.
//
// Execution is strictly sequential: scenarios create session-level side
// effects on the gateway, and the goal is a deterministic, auditable
// report, not throughput. A failure in one scenario is converted to a
// failed Outcome inside the scenario itself and never aborts the run.
type Runner struct {
	transport Transport
	scenarios []Scenario
	logger    *slog.Logger
}

// NewRunner builds a runner. Logging is discarded unless SetLogger is
// called; the report is the runner's real output.
func NewRunner(transport Transport, scenarios []Scenario) *Runner {
	return &Runner{
		transport: transport,
		scenarios: scenarios,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// SetLogger routes per-scenario progress to the given logger.
func (r *Runner) SetLogger(logger *slog.Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// Run executes every scenario and aggregates the outcomes. The outcome name
// is always the catalog name, whatever the check produced.
func (r *Runner) Run(ctx context.Context) Report {
	outcomes := make([]Outcome, 0, len(r.scenarios))
	for _, scenario := range r.scenarios {
		r.logger.Info("running scenario", "name", scenario.Name)

		outcome := scenario.Check(ctx, r.transport)
		outcome.Name = scenario.Name
		outcomes = append(outcomes, outcome)

		r.logger.Info("scenario finished",
			"name", scenario.Name,
			"passed", outcome.Passed,
			"detail", outcome.Detail,
		)
	}
	return NewReport(outcomes)
}
