package conformance

import (
	"context"

	"github.com/reclaw/conformance/internal/protocol"
)

// scenarioChannelStatusViews asserts channels.status exposes all three
// views at once: the per-channel aggregate flag, the per-account breakdown,
// and the default-account map, with the aggregate equal to
// "any account connected".
func scenarioChannelStatusViews(cfg Config) Scenario {
	const name = "channels.status_views"
	return Scenario{
		Name: name,
		Check: func(ctx context.Context, t Transport) Outcome {
			replies, err := t.Exchange(ctx, []protocol.Request{
				cfg.connectFrame("1"),
				protocol.NewRequest("2", protocol.MethodChannelsStatus, nil),
			})
			if err != nil {
				return fail(name, "exchange failed: %v", err)
			}
			if msg := frameFailure("connect", replies[0]); msg != "" {
				return fail(name, "%s", msg)
			}
			if msg := frameFailure("channels.status", replies[1]); msg != "" {
				return fail(name, "%s", msg)
			}

			status, err := protocol.ParseChannelsStatus(replies[1].Payload)
			if err != nil {
				return fail(name, "%v", err)
			}

			for _, ch := range status.Channels {
				anyConnected := false
				for _, acct := range ch.Accounts {
					if acct.Connected {
						anyConnected = true
						break
					}
				}
				if ch.Connected != anyConnected {
					return fail(name, "channel %q aggregate connected=%t but any-account-connected=%t", ch.ChannelID, ch.Connected, anyConnected)
				}
			}
			return pass(name, "status exposed %d channels with consistent aggregates and %d default accounts", len(status.Channels), len(status.DefaultAccounts))
		},
	}
}

// scenarioLogoutPersistsAccount asserts that logging out one account
// persists that account's own disconnected flag without flipping the
// channel-level aggregate while another account remains connected.
func scenarioLogoutPersistsAccount(cfg Config) Scenario {
	const name = "channels.logout_persists_account"
	return Scenario{
		Name: name,
		Check: func(ctx context.Context, t Transport) Outcome {
			before, outcome := fetchChannelsStatus(ctx, t, cfg, name)
			if outcome != nil {
				return *outcome
			}

			// Prefer a channel where another account stays connected, so the
			// aggregate invariant is actually exercised.
			channelID, accountID, othersConnected := pickLogoutTarget(before)
			if accountID == "" {
				return fail(name, "no connected account available to exercise logout")
			}

			replies, err := t.Exchange(ctx, []protocol.Request{
				cfg.connectFrame("1"),
				protocol.NewRequest("2", protocol.MethodChannelsLogout, protocol.LogoutParams{
					ChannelID: channelID,
					AccountID: accountID,
				}),
				protocol.NewRequest("3", protocol.MethodChannelsStatus, nil),
			})
			if err != nil {
				return fail(name, "exchange failed: %v", err)
			}
			for i, what := range []string{"connect", "channels.logout", "channels.status"} {
				if msg := frameFailure(what, replies[i]); msg != "" {
					return fail(name, "%s", msg)
				}
			}

			after, err := protocol.ParseChannelsStatus(replies[2].Payload)
			if err != nil {
				return fail(name, "status after logout: %v", err)
			}
			ch, ok := after.Channel(channelID)
			if !ok {
				return fail(name, "channel %q missing from status after logout", channelID)
			}
			acct, ok := ch.Account(accountID)
			if !ok {
				return fail(name, "account %q missing from channel %q after logout", accountID, channelID)
			}

			if acct.Connected {
				return fail(name, "account %q still reports connected=true after logout", accountID)
			}
			if acct.LoggedOutAtMs <= 0 {
				return fail(name, "account %q logout not persisted: loggedOutAtMs=%d", accountID, acct.LoggedOutAtMs)
			}
			if othersConnected && !ch.Connected {
				return fail(name, "channel %q aggregate flipped to disconnected while another account remains connected", channelID)
			}
			return pass(name, "logout of account %q on channel %q persisted without disturbing the aggregate", accountID, channelID)
		},
	}
}

// fetchChannelsStatus runs a connect+status exchange and parses the reply.
// The outcome pointer is non-nil when the scenario should fail early.
func fetchChannelsStatus(ctx context.Context, t Transport, cfg Config, name string) (protocol.ChannelsStatus, *Outcome) {
	replies, err := t.Exchange(ctx, []protocol.Request{
		cfg.connectFrame("1"),
		protocol.NewRequest("2", protocol.MethodChannelsStatus, nil),
	})
	if err != nil {
		o := fail(name, "status exchange failed: %v", err)
		return protocol.ChannelsStatus{}, &o
	}
	if msg := frameFailure("connect", replies[0]); msg != "" {
		o := fail(name, "%s", msg)
		return protocol.ChannelsStatus{}, &o
	}
	if msg := frameFailure("channels.status", replies[1]); msg != "" {
		o := fail(name, "%s", msg)
		return protocol.ChannelsStatus{}, &o
	}

	status, err := protocol.ParseChannelsStatus(replies[1].Payload)
	if err != nil {
		o := fail(name, "%v", err)
		return protocol.ChannelsStatus{}, &o
	}
	return status, nil
}

// pickLogoutTarget selects a connected account to log out, preferring one
// whose channel keeps a second connected account. othersConnected reports
// whether the chosen channel retains another connected account.
func pickLogoutTarget(status protocol.ChannelsStatus) (channelID, accountID string, othersConnected bool) {
	for _, ch := range status.Channels {
		connected := make([]string, 0, len(ch.Accounts))
		for _, acct := range ch.Accounts {
			if acct.Connected {
				connected = append(connected, acct.AccountID)
			}
		}
		switch {
		case len(connected) >= 2:
			return ch.ChannelID, connected[0], true
		case len(connected) == 1 && accountID == "":
			channelID, accountID = ch.ChannelID, connected[0]
		}
	}
	return channelID, accountID, false
}
