package toolpipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fluxgraph/agentcore/internal/corerr"
	"github.com/fluxgraph/agentcore/pkg/actx"
	"github.com/fluxgraph/agentcore/pkg/permission"
	"github.com/fluxgraph/agentcore/pkg/sandbox"
	"github.com/fluxgraph/agentcore/pkg/tool"
)

type echoTool struct {
	name      string
	isCommand bool
}

func (e echoTool) Name() string           { return e.name }
func (e echoTool) Description() string    { return "echo" }
func (e echoTool) Schema() map[string]any { return nil }
func (e echoTool) IsOSCommand() bool      { return e.isCommand }

func (e echoTool) Call(ctx context.Context, args map[string]any) (tool.Result, error) {
	cfg := actx.Optional(ctx, SandboxConfigKey)
	return tool.Result{Content: "ok", Metadata: map[string]any{"sandboxed": cfg.TimeoutSec > 0}}, nil
}

func TestPipelineDeniesPerPermission(t *testing.T) {
	cfg := permission.Config{Deny: []string{"Bash(rm:*)"}, DefaultAction: permission.ActionAllow}
	ev, err := permission.NewEvaluator(cfg, nil)
	require.NoError(t, err)

	p := New([]tool.Tool{echoTool{name: "Bash"}}, nil)
	p.Use(PermissionMiddleware(ev, func(c tool.Call) string { return c.Args["command"].(string) }))

	_, err = p.Invoke(context.Background(), tool.Call{Name: "Bash", Args: map[string]any{"command": "rm -rf /"}})
	require.Error(t, err)
	require.True(t, corerr.HasKind(err, corerr.KindPermissionDenied))
}

func TestPipelineAllowsAndRunsTool(t *testing.T) {
	cfg := permission.Config{DefaultAction: permission.ActionAllow}
	ev, err := permission.NewEvaluator(cfg, nil)
	require.NoError(t, err)

	p := New([]tool.Tool{echoTool{name: "Read"}}, nil)
	p.Use(PermissionMiddleware(ev, nil))

	result, err := p.Invoke(context.Background(), tool.Call{Name: "Read", Args: map[string]any{}})
	require.NoError(t, err)
	require.Equal(t, "ok", result.Content)
}

func TestSandboxMiddlewareOnlyAppliesToCommandTools(t *testing.T) {
	cmdTool := echoTool{name: "Bash", isCommand: true}
	plainTool := echoTool{name: "Read", isCommand: false}
	p := New([]tool.Tool{cmdTool, plainTool}, nil)

	sbCfg := sandbox.Config{TimeoutSec: 30}
	p.Use(SandboxMiddleware(sbCfg, func(c tool.Call) (tool.Tool, bool) { return p.Tool(c.Name) }))

	res, err := p.Invoke(context.Background(), tool.Call{Name: "Bash", Args: map[string]any{}})
	require.NoError(t, err)
	require.Equal(t, true, res.Metadata["sandboxed"])

	res, err = p.Invoke(context.Background(), tool.Call{Name: "Read", Args: map[string]any{}})
	require.NoError(t, err)
	require.Equal(t, false, res.Metadata["sandboxed"])
}

func TestAuditRecordedForEveryAttempt(t *testing.T) {
	sink := NewMemoryAuditSink(8)
	p := New([]tool.Tool{echoTool{name: "Read"}}, sink)

	_, _ = p.Invoke(context.Background(), tool.Call{Name: "Read", Args: map[string]any{}})
	_, _ = p.Invoke(context.Background(), tool.Call{Name: "Missing", Args: map[string]any{}})

	records := sink.All()
	require.Len(t, records, 2)
	require.Equal(t, "completed", records[0].Decision)
	require.Equal(t, "error", records[1].Decision)
}
