package conformance

import (
	"fmt"

	"github.com/reclaw/conformance/internal/protocol"
)

// DefaultProtocolVersion is the gateway protocol revision this catalog
// targets.
const DefaultProtocolVersion uint64 = 3

// Default in-band timeouts, milliseconds. WaitTimeoutMs is the budget for
// waits that are expected to observe a terminal state; ProbeTimeoutMs is
// the short deadline for the wait that is expected to time out.
const (
	DefaultWaitTimeoutMs  int64 = 10_000
	DefaultProbeTimeoutMs int64 = 1_500
)

// Config parameterizes catalog construction. The expected protocol version
// is injected here rather than read from global state, so tests can vary it
// without rebuilding the catalog.
type Config struct {
	// ProtocolVersion is the exact numeric version /info must advertise.
	ProtocolVersion uint64

	// Client identity, role, and scopes sent in every connect frame.
	ClientID      string
	ClientVersion string
	Role          string
	Scopes        []string

	// AuthToken is attached to connect frames when non-empty.
	AuthToken string

	// WaitTimeoutMs and ProbeTimeoutMs are carried in-band on agent.wait.
	WaitTimeoutMs  int64
	ProbeTimeoutMs int64

	// Keys supplies fresh collision-resistant run/session/idempotency keys.
	Keys KeyGenerator
}

func (cfg Config) withDefaults() Config {
	if cfg.ProtocolVersion == 0 {
		cfg.ProtocolVersion = DefaultProtocolVersion
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "reclaw-conformance"
	}
	if cfg.ClientVersion == "" {
		cfg.ClientVersion = "dev"
	}
	if cfg.Role == "" {
		cfg.Role = "operator"
	}
	if cfg.Scopes == nil {
		cfg.Scopes = []string{"agent", "channels"}
	}
	if cfg.WaitTimeoutMs <= 0 {
		cfg.WaitTimeoutMs = DefaultWaitTimeoutMs
	}
	if cfg.ProbeTimeoutMs <= 0 {
		cfg.ProbeTimeoutMs = DefaultProbeTimeoutMs
	}
	if cfg.Keys == nil {
		cfg.Keys = UUIDv7Generator{}
	}
	return cfg
}

// Catalog builds the fixed, ordered scenario list. Ordering affects only
// output readability; every scenario opens its own session and carries its
// own fixtures. Adding a scenario means adding one entry here.
func Catalog(cfg Config) []Scenario {
	cfg = cfg.withDefaults()

	return []Scenario{
		scenarioSimpleFlag("healthz.ok_true", "/healthz"),
		scenarioSimpleFlag("readyz.ok_true", "/readyz"),
		scenarioProtocolVersion(cfg),
		scenarioAdvertisedMethods(cfg),
		scenarioUnknownWebhook(cfg),
		scenarioHandshakeGate(cfg),
		scenarioDeferredLifecycle(cfg),
		scenarioIdempotencyKeyReuse(cfg),
		scenarioAbortSingleRun(cfg),
		scenarioAbortSessionWide(cfg),
		scenarioAbortSessionMismatch(cfg),
		scenarioAbortTerminalNoop(cfg),
		scenarioWaitUnknownTimesOut(cfg),
		scenarioChannelStatusViews(cfg),
		scenarioLogoutPersistsAccount(cfg),
	}
}

// connectFrame builds the mandatory first frame of a stateful session.
func (cfg Config) connectFrame(id string) protocol.Request {
	return protocol.NewRequest(id, protocol.MethodConnect, protocol.ConnectParams{
		MinProtocolVersion: cfg.ProtocolVersion,
		MaxProtocolVersion: cfg.ProtocolVersion,
		Client:             protocol.ClientInfo{ID: cfg.ClientID, Version: cfg.ClientVersion},
		Role:               cfg.Role,
		Scopes:             cfg.Scopes,
		Auth:               cfg.AuthToken,
	})
}

// frameFailure describes a rejected reply, or "" when the reply succeeded.
func frameFailure(what string, reply protocol.Response) string {
	if reply.OK {
		return ""
	}
	return fmt.Sprintf("%s rejected: error.code=%q", what, reply.ErrorCode())
}
