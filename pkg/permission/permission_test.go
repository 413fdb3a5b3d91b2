package permission

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEvaluatePhaseOrdering(t *testing.T) {
	cfg := Config{
		Allow:         []string{"Read"},
		Deny:          []string{"Bash(rm:*)"},
		DefaultAction: ActionAsk,
		SessionMemory: true,
	}
	ev, err := NewEvaluator(cfg, nil)
	require.NoError(t, err)

	out, err := ev.Evaluate(context.Background(), Request{ToolName: "Bash", ArgKey: "rm -rf /"})
	require.NoError(t, err)
	require.Equal(t, ActionDeny, out.Action)
	require.Equal(t, "Bash(rm:*)", out.Rule)

	out, err = ev.Evaluate(context.Background(), Request{ToolName: "Read", ArgKey: "anything"})
	require.NoError(t, err)
	require.Equal(t, ActionAllow, out.Action)
}

func TestFinalDenyBeatsSessionMemory(t *testing.T) {
	cfg := Config{
		FinalDeny:     []string{"Bash(sudo:*)"},
		DefaultAction: ActionAsk,
		SessionMemory: true,
	}
	ev, err := NewEvaluator(cfg, nil)
	require.NoError(t, err)

	req := Request{ToolName: "Bash", ArgKey: "sudo ls"}
	ev.remember(req, true) // simulate a pre-populated "always allow"

	out, err := ev.Evaluate(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, ActionDeny, out.Action)
	require.Equal(t, "finalDeny", out.Reason)
}

func TestOverrideSuppressesDeny(t *testing.T) {
	cfg := Config{
		Deny:          []string{"Bash(git:*)"},
		Overrides:     []string{"Bash(git push:*)"},
		DefaultAction: ActionDeny,
	}
	ev, err := NewEvaluator(cfg, nil)
	require.NoError(t, err)

	out, err := ev.Evaluate(context.Background(), Request{ToolName: "Bash", ArgKey: "git push origin main"})
	require.NoError(t, err)
	require.Equal(t, ActionDeny, out.Action, "override suppresses deny but there is no allow rule, default wins")
}

func TestEmptyListsWithDefaultDenyRejectsAll(t *testing.T) {
	cfg := Config{DefaultAction: ActionDeny}
	ev, err := NewEvaluator(cfg, nil)
	require.NoError(t, err)

	out, err := ev.Evaluate(context.Background(), Request{ToolName: "Anything"})
	require.NoError(t, err)
	require.Equal(t, ActionDeny, out.Action)
}

func TestFinalDenyStarRejectsEverything(t *testing.T) {
	cfg := Config{FinalDeny: []string{"*"}, DefaultAction: ActionAllow}
	ev, err := NewEvaluator(cfg, nil)
	require.NoError(t, err)

	out, err := ev.Evaluate(context.Background(), Request{ToolName: "Read"})
	require.NoError(t, err)
	require.Equal(t, ActionDeny, out.Action)
}

func TestWriteWithDotDotFinalDeny(t *testing.T) {
	cfg := Config{FinalDeny: []string{"Write(/etc/*)"}, DefaultAction: ActionAllow}
	ev, err := NewEvaluator(cfg, nil)
	require.NoError(t, err)

	out, err := ev.Evaluate(context.Background(), Request{ToolName: "Write", ArgKey: "/tmp/../etc/x"})
	require.NoError(t, err)
	require.Equal(t, ActionDeny, out.Action)
}

type fakeHandler struct {
	decision Decision
}

func (f fakeHandler) RequestDecision(ctx context.Context, req Request) (Decision, error) {
	return f.decision, nil
}

func TestAskAlwaysAllowUpdatesMemory(t *testing.T) {
	cfg := Config{DefaultAction: ActionAsk, SessionMemory: true}
	ev, err := NewEvaluator(cfg, fakeHandler{decision: DecisionAllowAlways})
	require.NoError(t, err)

	req := Request{ToolName: "Bash", ArgKey: "ls"}
	out, err := ev.Evaluate(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, ActionAllow, out.Action)

	// Second call with no handler at all still resolves via memory.
	ev.handler = nil
	out2, err := ev.Evaluate(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, ActionAllow, out2.Action)
	require.Equal(t, "sessionMemory", out2.Reason)
}

func TestAskWithNoHandlerDeniesWithReason(t *testing.T) {
	cfg := Config{DefaultAction: ActionAsk}
	ev, err := NewEvaluator(cfg, nil)
	require.NoError(t, err)

	out, err := ev.Evaluate(context.Background(), Request{ToolName: "Bash", ArgKey: "ls"})
	require.NoError(t, err)
	require.Equal(t, ActionDeny, out.Action)
	require.Equal(t, "no handler", out.Reason)
}

func TestConfigJSONRoundTrip(t *testing.T) {
	cfg := Config{
		Allow:         []string{"Read"},
		Deny:          []string{"Bash(rm:*)"},
		FinalDeny:     []string{},
		Overrides:     []string{},
		DefaultAction: ActionAsk,
		SessionMemory: true,
	}
	data, err := cfg.MarshalJSON()
	require.NoError(t, err)

	var roundTripped Config
	require.NoError(t, roundTripped.UnmarshalJSON(data))
	require.Equal(t, cfg, roundTripped)
}

func TestConfigJSONDefaults(t *testing.T) {
	var cfg Config
	require.NoError(t, cfg.UnmarshalJSON([]byte(`{"version":1,"permissions":{}}`)))
	require.Equal(t, ActionAsk, cfg.DefaultAction)
	require.True(t, cfg.SessionMemory)
	require.Empty(t, cfg.Allow)
}

func TestMergeDedupAndLaterWins(t *testing.T) {
	a := Config{Allow: []string{"Read", "Write"}, DefaultAction: ActionAllow, SessionMemory: true}
	b := Config{Allow: []string{"Write", "Bash"}, DefaultAction: ActionDeny, SessionMemory: false}

	merged := a.Merged(b)
	require.Equal(t, []string{"Read", "Write", "Bash"}, merged.Allow)
	require.Equal(t, ActionDeny, merged.DefaultAction)
	require.False(t, merged.SessionMemory)
}
