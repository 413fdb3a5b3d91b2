package session

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fluxgraph/agentcore/pkg/llm"
	"github.com/fluxgraph/agentcore/pkg/permission"
	"github.com/fluxgraph/agentcore/pkg/tool"
)

// scriptedProvider replies from a fixed queue of responses, one per
// Generate/Continue call, so tests can script a tool-call round trip.
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
	ch := make(chan llm.StreamChunk, 1)
	ch <- llm.StreamChunk{Content: "ok", Done: true}
	close(ch)
	return ch, nil
}
func (p *scriptedProvider) ModelName() string { return "scripted" }
func (p *scriptedProvider) MaxTokens() int    { return 2048 }

type echoTool struct{}

func (echoTool) Name() string               { return "Echo" }
func (echoTool) Description() string        { return "echoes its input" }
func (echoTool) Schema() map[string]any     { return nil }
func (echoTool) Call(ctx context.Context, args map[string]any) (tool.Result, error) {
	return tool.Result{Content: "echoed"}, nil
}

type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemStore() *memStore { return &memStore{data: map[string][]byte{}} }

func (m *memStore) Save(id string, blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[id] = blob
	return nil
}
func (m *memStore) Load(id string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.data[id]
	if !ok {
		return nil, errNotFound
	}
	return b, nil
}
func (m *memStore) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, id)
	return nil
}

var errNotFound = fmtError("not found")

type fmtError string

func (e fmtError) Error() string { return string(e) }

func baseConfig(provider llm.Provider) Config {
	return Config{
		Provider:   provider,
		Tools:      []tool.Tool{echoTool{}},
		ToolFilter: tool.FilterAll(),
		Permission: permission.Config{Allow: []string{"Echo"}, DefaultAction: permission.ActionDeny, SessionMemory: false},
	}
}

func TestPromptSingleTurnNoToolCalls(t *testing.T) {
	provider := &scriptedProvider{responses: []llm.Response{{Text: "hello!"}}}
	sess, err := Create(baseConfig(provider))
	require.NoError(t, err)

	resp, err := sess.Prompt(context.Background(), "hi")
	require.NoError(t, err)
	require.Equal(t, "hello!", resp.Content)
	require.Empty(t, resp.ToolCalls)
}

func TestPromptDispatchesToolCallThroughPipeline(t *testing.T) {
	provider := &scriptedProvider{responses: []llm.Response{
		{ToolCalls: []llm.ToolCall{{ID: "1", Name: "Echo", Arguments: map[string]any{"x": 1}}}},
		{Text: "done"},
	}}
	sess, err := Create(baseConfig(provider))
	require.NoError(t, err)

	resp, err := sess.Prompt(context.Background(), "please echo")
	require.NoError(t, err)
	require.Equal(t, "done", resp.Content)
	require.Len(t, resp.ToolCalls, 1)

	entries := sess.Transcript()
	var sawToolCall bool
	for _, e := range entries {
		if e.Kind == EntryToolCall {
			sawToolCall = true
			require.Equal(t, "echoed", e.ToolOutput)
			require.True(t, e.ToolOK)
		}
	}
	require.True(t, sawToolCall)
}

func TestPromptDeniesToolNotInAllowlist(t *testing.T) {
	provider := &scriptedProvider{responses: []llm.Response{
		{ToolCalls: []llm.ToolCall{{ID: "1", Name: "Other"}}},
		{Text: "done"},
	}}
	cfg := baseConfig(provider)
	cfg.Tools = append(cfg.Tools, fakeNamedTool{name: "Other"})
	sess, err := Create(cfg)
	require.NoError(t, err)

	_, err = sess.Prompt(context.Background(), "try other")
	require.NoError(t, err) // denial is recorded per-call, not fatal to the turn

	entries := sess.Transcript()
	var denied bool
	for _, e := range entries {
		if e.Kind == EntryToolCall && !e.ToolOK {
			denied = true
		}
	}
	require.True(t, denied)
}

type fakeNamedTool struct{ name string }

func (f fakeNamedTool) Name() string           { return f.name }
func (f fakeNamedTool) Description() string    { return "" }
func (f fakeNamedTool) Schema() map[string]any { return nil }
func (f fakeNamedTool) Call(ctx context.Context, args map[string]any) (tool.Result, error) {
	return tool.Result{Content: "should not run"}, nil
}

func TestForkDivergesFromParent(t *testing.T) {
	provider := &scriptedProvider{responses: []llm.Response{{Text: "A"}, {Text: "B"}, {Text: "C"}}}
	sess, err := Create(baseConfig(provider))
	require.NoError(t, err)

	_, err = sess.Prompt(context.Background(), "first")
	require.NoError(t, err)

	fork := sess.Fork()
	require.NotEqual(t, sess.ID(), fork.ID())
	require.Equal(t, sess.ID(), fork.ForkParent())

	_, err = sess.Prompt(context.Background(), "second-on-parent")
	require.NoError(t, err)
	_, err = fork.Prompt(context.Background(), "second-on-fork")
	require.NoError(t, err)

	parentEntries := sess.Transcript()
	forkEntries := fork.Transcript()
	require.NotEqual(t, parentEntries[len(parentEntries)-1], forkEntries[len(forkEntries)-1])
}

func TestSaveAndResumeRoundTrip(t *testing.T) {
	provider := &scriptedProvider{responses: []llm.Response{{Text: "hi"}}}
	sess, err := Create(baseConfig(provider))
	require.NoError(t, err)
	_, err = sess.Prompt(context.Background(), "hello")
	require.NoError(t, err)

	store := newMemStore()
	require.NoError(t, sess.Save(store))

	resumed, err := Resume(sess.ID(), store, baseConfig(&scriptedProvider{}))
	require.NoError(t, err)
	require.Equal(t, sess.ID(), resumed.ID())
	require.Equal(t, len(sess.Transcript()), len(resumed.Transcript()))
}

type fakeInvoker struct {
	result string
	err    error
}

func (f fakeInvoker) Invoke(ctx context.Context, name, prompt string) (string, error) {
	return f.result, f.err
}
func (f fakeInvoker) Names() []string { return []string{"summarizer"} }

func TestInvokeSubagentRecordsTranscriptEntry(t *testing.T) {
	cfg := baseConfig(&scriptedProvider{})
	cfg.Subagents = fakeInvoker{result: "the summary"}
	sess, err := Create(cfg)
	require.NoError(t, err)

	resp, err := sess.InvokeSubagent(context.Background(), "summarizer", "summarize this")
	require.NoError(t, err)
	require.Equal(t, "the summary", resp.Content)

	entries := sess.Transcript()
	require.Len(t, entries, 1)
	require.Equal(t, EntrySubagentInvoked, entries[0].Kind)
	require.Equal(t, "summarizer", entries[0].SubagentName)
	require.Equal(t, "the summary", entries[0].SubagentResult)
}

func TestInvokeSubagentWithoutInvokerFails(t *testing.T) {
	sess, err := Create(baseConfig(&scriptedProvider{}))
	require.NoError(t, err)

	_, err = sess.InvokeSubagent(context.Background(), "ghost", "hi")
	require.Error(t, err)
}

func TestDynamicAllowRulesGrantMidSession(t *testing.T) {
	provider := &scriptedProvider{responses: []llm.Response{
		{ToolCalls: []llm.ToolCall{{ID: "1", Name: "Scoped"}}},
		{Text: "first done"},
		{ToolCalls: []llm.ToolCall{{ID: "2", Name: "Scoped"}}},
		{Text: "second done"},
	}}

	var granted []string
	cfg := baseConfig(provider)
	cfg.Tools = append(cfg.Tools, fakeNamedTool{name: "Scoped"})
	cfg.DynamicAllowRules = func() []string { return granted }
	sess, err := Create(cfg)
	require.NoError(t, err)

	// Without the dynamic grant the call is denied (default deny).
	_, err = sess.Prompt(context.Background(), "try scoped")
	require.NoError(t, err)
	entries := sess.Transcript()
	require.False(t, entries[1].ToolOK)

	// After a skill-style grant the same call succeeds.
	granted = []string{"Scoped"}
	_, err = sess.Prompt(context.Background(), "try again")
	require.NoError(t, err)
	entries = sess.Transcript()
	last := entries[len(entries)-2]
	require.Equal(t, EntryToolCall, last.Kind)
	require.True(t, last.ToolOK)
}
