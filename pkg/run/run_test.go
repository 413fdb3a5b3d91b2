package run

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fluxgraph/agentcore/pkg/llm"
	"github.com/fluxgraph/agentcore/pkg/permission"
	"github.com/fluxgraph/agentcore/pkg/session"
	"github.com/fluxgraph/agentcore/pkg/tool"
)

type scriptedProvider struct {
	responses []llm.Response
	calls     int
}

func (p *scriptedProvider) Generate(ctx context.Context, messages []llm.Message, tools []llm.ToolDefinition, opts llm.Options) (llm.Response, error) {
	r := p.responses[p.calls]
	p.calls++
	return r, nil
}
func (p *scriptedProvider) GenerateStreaming(ctx context.Context, messages []llm.Message, tools []llm.ToolDefinition, opts llm.Options) (<-chan llm.StreamChunk, error) {
	ch := make(chan llm.StreamChunk, 3)
	ch <- llm.StreamChunk{Content: "par"}
	ch <- llm.StreamChunk{Content: "tial"}
	ch <- llm.StreamChunk{Done: true}
	close(ch)
	return ch, nil
}
func (p *scriptedProvider) ModelName() string { return "scripted" }
func (p *scriptedProvider) MaxTokens() int    { return 2048 }

type echoTool struct{}

func (echoTool) Name() string           { return "Echo" }
func (echoTool) Description() string    { return "echoes its input" }
func (echoTool) Schema() map[string]any { return nil }
func (echoTool) Call(ctx context.Context, args map[string]any) (tool.Result, error) {
	return tool.Result{Content: "echoed"}, nil
}

func newSession(t *testing.T, provider llm.Provider) *session.AgentSession {
	t.Helper()
	sess, err := session.Create(session.Config{
		Provider:   provider,
		Tools:      []tool.Tool{echoTool{}},
		ToolFilter: tool.FilterAll(),
		Permission: permission.Config{Allow: []string{"Echo"}, DefaultAction: permission.ActionDeny, SessionMemory: false},
	})
	require.NoError(t, err)
	return sess
}

func collect(events *[]Event) Sink {
	return func(e Event) { *events = append(*events, e) }
}

func kinds(events []Event) []Kind {
	out := make([]Kind, len(events))
	for i, e := range events {
		out[i] = e.Kind
	}
	return out
}

func TestExecuteEmitsStartAndCompleted(t *testing.T) {
	sess := newSession(t, &scriptedProvider{responses: []llm.Response{{Text: "hello!"}}})

	var events []Event
	result := Execute(context.Background(), sess, Input{Text: "hi"}, collect(&events))

	require.Equal(t, StatusCompleted, result.Status)
	require.Equal(t, "hello!", result.FinalOutput)
	require.Equal(t, []Kind{KindRunStarted, KindRunCompleted}, kinds(events))

	for _, e := range events {
		require.Equal(t, sess.ID(), e.SessionID)
		require.NotEmpty(t, e.TurnID)
	}
	require.Equal(t, events[0].TurnID, events[1].TurnID)
}

func TestExecuteEmitsToolCallPairs(t *testing.T) {
	sess := newSession(t, &scriptedProvider{responses: []llm.Response{
		{ToolCalls: []llm.ToolCall{{ID: "1", Name: "Echo", Arguments: map[string]any{"x": "y"}}}},
		{Text: "done"},
	}})

	var events []Event
	result := Execute(context.Background(), sess, Input{Text: "go"}, collect(&events))

	require.Equal(t, StatusCompleted, result.Status)
	require.Equal(t, []Kind{KindRunStarted, KindToolCall, KindToolResult, KindRunCompleted}, kinds(events))
	require.Len(t, result.ToolTrace, 1)
	require.Equal(t, "Echo", result.ToolTrace[0].ToolName)
	require.Equal(t, "echoed", result.ToolTrace[0].Output)
	require.True(t, result.ToolTrace[0].OK)
}

func TestExecuteStructuredInputMarshalsToJSON(t *testing.T) {
	provider := &scriptedProvider{responses: []llm.Response{{Text: "ok"}}}
	sess := newSession(t, provider)

	Execute(context.Background(), sess, Input{Structured: map[string]any{"q": "x"}}, nil)

	entries := sess.Transcript()
	require.Equal(t, session.EntryUserPrompt, entries[0].Kind)
	require.JSONEq(t, `{"q":"x"}`, entries[0].Text)
}

func TestExecuteStreamingEmitsTokenDeltas(t *testing.T) {
	sess := newSession(t, &scriptedProvider{})

	var events []Event
	result := ExecuteStreaming(context.Background(), sess, Input{Text: "hi"}, collect(&events))

	require.Equal(t, StatusCompleted, result.Status)
	require.Equal(t, "partial", result.FinalOutput)

	ks := kinds(events)
	require.Equal(t, KindRunStarted, ks[0])
	require.Equal(t, KindRunCompleted, ks[len(ks)-1])
	var deltas []string
	for _, e := range events {
		if e.Kind == KindTokenDelta {
			deltas = append(deltas, e.Delta)
		}
	}
	// snapshots are accumulating prefixes
	require.Equal(t, []string{"par", "partial", "partial"}, deltas)
}

func TestApprovalHandlerNoInnerDenies(t *testing.T) {
	var events []Event
	h := ApprovalHandler(nil, collect(&events), "sess-1")

	decision, err := h.RequestDecision(context.Background(), permission.Request{ToolName: "Bash", ArgKey: "rm -rf /"})
	require.NoError(t, err)
	require.Equal(t, permission.DecisionDenyOnce, decision)
	require.Equal(t, []Kind{KindApprovalRequired, KindApprovalResolved}, kinds(events))
	require.Equal(t, "Bash", events[0].Approval.ToolName)
}

type allowingHandler struct{}

func (allowingHandler) RequestDecision(ctx context.Context, req permission.Request) (permission.Decision, error) {
	return permission.DecisionAllowOnce, nil
}

func TestApprovalHandlerMirrorsInnerDecision(t *testing.T) {
	var events []Event
	h := ApprovalHandler(allowingHandler{}, collect(&events), "sess-1")

	decision, err := h.RequestDecision(context.Background(), permission.Request{ToolName: "Read"})
	require.NoError(t, err)
	require.Equal(t, permission.DecisionAllowOnce, decision)
	require.Equal(t, permission.DecisionAllowOnce, events[1].Decision)
}
