package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/reclaw/conformance/internal/conformance"
	"github.com/reclaw/conformance/internal/history"
	"github.com/reclaw/conformance/internal/transport"
)

// DefaultBaseURL is the gateway's default local address.
const DefaultBaseURL = "http://127.0.0.1:18789"

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	BaseURL         string
	WSPath          string
	ProtocolVersion uint64
	AuthToken       string
	WaitTimeoutMs   int64
	ProbeTimeoutMs  int64
	HistoryPath     string
	ConfigPath      string
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run the conformance catalog against a gateway",
		Long: `Run every conformance scenario, in catalog order, against the gateway at
the given base URL, and print the aggregated report.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Startup error (bad flags, transport construction failed)

Examples:
  reclaw-conformance check
  reclaw-conformance check --base-url http://gateway:18789 --format json
  reclaw-conformance check --history ./conformance.db
  reclaw-conformance check --config ./conformance.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.BaseURL, "base-url", DefaultBaseURL, "gateway base URL")
	cmd.Flags().StringVar(&opts.WSPath, "ws-path", "/ws", "message-channel path")
	cmd.Flags().Uint64Var(&opts.ProtocolVersion, "protocol-version", conformance.DefaultProtocolVersion, "expected protocol version")
	cmd.Flags().StringVar(&opts.AuthToken, "token", "", "auth token for connect frames")
	cmd.Flags().Int64Var(&opts.WaitTimeoutMs, "wait-timeout-ms", conformance.DefaultWaitTimeoutMs, "in-band budget for waits expected to finish")
	cmd.Flags().Int64Var(&opts.ProbeTimeoutMs, "probe-timeout-ms", conformance.DefaultProbeTimeoutMs, "in-band deadline for the wait expected to time out")
	cmd.Flags().StringVar(&opts.HistoryPath, "history", "", "record the report in this SQLite archive")
	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "YAML config file (flags override file values)")

	return cmd
}

func runCheck(opts *CheckOptions, cmd *cobra.Command) error {
	if opts.ConfigPath != "" {
		fileCfg, err := LoadConfig(opts.ConfigPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid config", err)
		}
		applyFileConfig(opts, fileCfg, cmd)
	}

	maxInband := opts.WaitTimeoutMs
	if opts.ProbeTimeoutMs > maxInband {
		maxInband = opts.ProbeTimeoutMs
	}
	client, err := transport.New(transport.Options{
		BaseURL:          opts.BaseURL,
		WSPath:           opts.WSPath,
		MaxInbandTimeout: time.Duration(maxInband) * time.Millisecond,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to construct transport", err)
	}

	catalog := conformance.Catalog(conformance.Config{
		ProtocolVersion: opts.ProtocolVersion,
		AuthToken:       opts.AuthToken,
		WaitTimeoutMs:   opts.WaitTimeoutMs,
		ProbeTimeoutMs:  opts.ProbeTimeoutMs,
	})
	runner := conformance.NewRunner(client, catalog)
	if opts.Verbose {
		runner.SetLogger(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil)))
	}

	startedAt := time.Now()
	report := runner.Run(cmd.Context())

	if opts.HistoryPath != "" {
		if err := recordHistory(cmd, opts.HistoryPath, client.BaseURL(), startedAt, report); err != nil {
			// The report already exists; archiving is best-effort and must
			// not change the conformance exit code.
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: failed to record history: %v\n", err)
		}
	}

	if err := renderReport(cmd.OutOrStdout(), opts.Format, report); err != nil {
		return WrapExitError(ExitCommandError, "failed to render report", err)
	}
	if !report.Passing() {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d scenarios failed", report.Failed, report.Total))
	}
	return nil
}

// applyFileConfig fills in values the user did not set explicitly on the
// command line.
func applyFileConfig(opts *CheckOptions, cfg *FileConfig, cmd *cobra.Command) {
	flags := cmd.Flags()
	if cfg.BaseURL != "" && !flags.Changed("base-url") {
		opts.BaseURL = cfg.BaseURL
	}
	if cfg.WSPath != "" && !flags.Changed("ws-path") {
		opts.WSPath = cfg.WSPath
	}
	if cfg.ProtocolVersion != 0 && !flags.Changed("protocol-version") {
		opts.ProtocolVersion = cfg.ProtocolVersion
	}
	if cfg.AuthToken != "" && !flags.Changed("token") {
		opts.AuthToken = cfg.AuthToken
	}
	if cfg.WaitTimeoutMs > 0 && !flags.Changed("wait-timeout-ms") {
		opts.WaitTimeoutMs = cfg.WaitTimeoutMs
	}
	if cfg.ProbeTimeoutMs > 0 && !flags.Changed("probe-timeout-ms") {
		opts.ProbeTimeoutMs = cfg.ProbeTimeoutMs
	}
	if cfg.History != "" && !flags.Changed("history") {
		opts.HistoryPath = cfg.History
	}
}

func recordHistory(cmd *cobra.Command, path, baseURL string, startedAt time.Time, report conformance.Report) error {
	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	runID, err := store.RecordRun(cmd.Context(), baseURL, startedAt, report)
	if err != nil {
		return err
	}
	if report.Failed > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "recorded failing run #%d in %s\n", runID, path)
	}
	return nil
}
