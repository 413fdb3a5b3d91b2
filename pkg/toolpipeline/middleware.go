package toolpipeline

import (
	"context"
	"fmt"

	"github.com/fluxgraph/agentcore/internal/corerr"
	"github.com/fluxgraph/agentcore/pkg/actx"
	"github.com/fluxgraph/agentcore/pkg/permission"
	"github.com/fluxgraph/agentcore/pkg/sandbox"
	"github.com/fluxgraph/agentcore/pkg/tool"
)

// SkillRulesKey carries the dynamic, session-scoped allow patterns
// contributed by activated skills (§4.10); PermissionMiddleware folds
// these into the evaluator's "allow" phase for the duration of the call.
var SkillRulesKey = actx.NewKey[[]string]("toolpipeline.skill-rules")

// SandboxConfigKey carries the effective sandbox configuration installed
// by SandboxMiddleware; OS-command tools read it to build their
// sandbox.Executor.Execute call.
var SandboxConfigKey = actx.NewKey[sandbox.Config]("toolpipeline.sandbox-config")

// GuardrailConfigKey carries the merged per-step guardrail policy
// installed by an enclosing guarded step (§4.6); PermissionMiddleware
// folds its rule lists into every evaluation within the guarded scope.
var GuardrailConfigKey = actx.NewKey[permission.Config]("toolpipeline.guardrail-config")

// SandboxOverrideKey carries a per-step sandbox replacement installed by
// an enclosing guardrail; SandboxMiddleware prefers it over the
// configuration it was constructed with.
var SandboxOverrideKey = actx.NewKey[sandbox.Config]("toolpipeline.sandbox-override")

// ArgKeyFunc extracts the permission-pattern argument key from a call's
// arguments (e.g. the "command" field for a Bash tool, a "path" field
// for a file tool). Tools without a natural single argument key should
// return "".
type ArgKeyFunc func(call tool.Call) string

// PermissionMiddleware evaluates every call against evaluator before
// letting it proceed, denying with PermissionDenied on deny and
// resolving "ask" via the evaluator's configured handler.
func PermissionMiddleware(evaluator *permission.Evaluator, argKey ArgKeyFunc) Middleware {
	return func(ctx context.Context, call tool.Call, next Next) (tool.Result, error) {
		key := ""
		if argKey != nil {
			key = argKey(call)
		}
		req := permission.Request{ToolName: call.Name, ArgKey: key}

		extra := actx.Optional(ctx, GuardrailConfigKey)
		extra.Allow = append(extra.Allow, actx.Optional(ctx, SkillRulesKey)...)
		outcome, err := evaluator.EvaluateWithExtra(ctx, req, extra)
		if err != nil {
			return tool.Result{}, err
		}
		if outcome.Action != permission.ActionAllow {
			return tool.Result{}, corerr.New("toolpipeline.PermissionMiddleware", corerr.KindPermissionDenied,
				fmt.Sprintf("tool %q denied: %s", call.Name, outcome.Reason)).
				WithField("tool", call.Name).WithField("rule", outcome.Rule)
		}
		return next(ctx, call)
	}
}

// SandboxMiddleware installs cfg into the ambient context for any
// downstream tool that reports IsOSCommand() == true, then calls next.
// A no-op for every other tool.
func SandboxMiddleware(cfg sandbox.Config, resolve func(tool.Call) (tool.Tool, bool)) Middleware {
	return func(ctx context.Context, call tool.Call, next Next) (tool.Result, error) {
		effective := cfg
		if override, ok := actx.Get(ctx, SandboxOverrideKey); ok {
			effective = override
		}
		if effective.Disabled {
			return next(ctx, call)
		}
		t, ok := resolve(call)
		if !ok {
			return next(ctx, call)
		}
		cmdTool, ok := t.(tool.IsOSCommand)
		if !ok || !cmdTool.IsOSCommand() {
			return next(ctx, call)
		}
		return next(actx.With(ctx, SandboxConfigKey, effective), call)
	}
}
