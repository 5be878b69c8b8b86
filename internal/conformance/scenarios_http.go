package conformance

import (
	"context"
	"net/http"

	"github.com/reclaw/conformance/internal/protocol"
)

// scenarioSimpleFlag asserts a simple call answers with an explicit
// {"ok":true}. Shared by the liveness and readiness checks.
func scenarioSimpleFlag(name, path string) Scenario {
	return Scenario{
		Name: name,
		Check: func(ctx context.Context, t Transport) Outcome {
			payload, err := t.FetchJSON(ctx, path)
			if err != nil {
				return fail(name, "%s request failed: %v", path, err)
			}

			health, err := protocol.ParseHealth(payload)
			if err != nil {
				return fail(name, "%s: %v", path, err)
			}
			if !health.OK {
				return fail(name, "%s did not return {\"ok\":true}", path)
			}
			return pass(name, "%s returned ok=true", path)
		},
	}
}

// scenarioProtocolVersion asserts /info advertises exactly the protocol
// version this catalog targets. Any other number, or a missing or
// non-numeric value, fails with the observed value in the detail.
func scenarioProtocolVersion(cfg Config) Scenario {
	const name = "info.protocol_version"
	return Scenario{
		Name: name,
		Check: func(ctx context.Context, t Transport) Outcome {
			payload, err := t.FetchJSON(ctx, "/info")
			if err != nil {
				return fail(name, "info request failed: %v", err)
			}

			info, err := protocol.ParseInfo(payload)
			if err != nil {
				return fail(name, "%v", err)
			}
			if info.ProtocolVersion == nil {
				return fail(name, "info endpoint missing numeric protocolVersion, found %s", info.VersionRaw)
			}
			if *info.ProtocolVersion != cfg.ProtocolVersion {
				return fail(name, "expected protocolVersion=%d, found %d", cfg.ProtocolVersion, *info.ProtocolVersion)
			}
			return pass(name, "protocolVersion=%d", *info.ProtocolVersion)
		},
	}
}

// scenarioAdvertisedMethods asserts /info advertises the two methods the
// stateful scenarios depend on.
func scenarioAdvertisedMethods(cfg Config) Scenario {
	const name = "info.advertises_methods"
	required := []string{protocol.MethodAgent, protocol.MethodChatSend}

	return Scenario{
		Name: name,
		Check: func(ctx context.Context, t Transport) Outcome {
			payload, err := t.FetchJSON(ctx, "/info")
			if err != nil {
				return fail(name, "info request failed: %v", err)
			}

			info, err := protocol.ParseInfo(payload)
			if err != nil {
				return fail(name, "%v", err)
			}

			advertised := make(map[string]bool, len(info.Methods))
			for _, method := range info.Methods {
				advertised[method] = true
			}
			for _, method := range required {
				if !advertised[method] {
					return fail(name, "info methods missing %q, found %v", method, info.Methods)
				}
			}
			return pass(name, "info advertises %v", required)
		},
	}
}

// scenarioUnknownWebhook asserts that submitting to an unknown channel's
// webhook returns 404 with error.code=NOT_FOUND. A fresh channel id per
// invocation guarantees the resource cannot exist.
func scenarioUnknownWebhook(cfg Config) Scenario {
	const name = "channels.unknown_webhook_not_found"
	return Scenario{
		Name: name,
		Check: func(ctx context.Context, t Transport) Outcome {
			channelID := cfg.Keys.Generate()
			status, body, err := t.SubmitJSON(ctx, "/channels/"+channelID+"/webhook", map[string]any{})
			if err != nil {
				return fail(name, "unknown channel webhook request failed: %v", err)
			}

			webhookErr, err := protocol.ParseWebhookError(body)
			if err != nil {
				return fail(name, "%v", err)
			}
			if status != http.StatusNotFound || webhookErr.Code != protocol.CodeNotFound {
				return fail(name, "expected status=404 and error.code=NOT_FOUND, found status=%d, error.code=%q", status, webhookErr.Code)
			}
			return pass(name, "unknown channel webhook returns 404 NOT_FOUND")
		},
	}
}
