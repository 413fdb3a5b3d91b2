// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package toolpipeline wraps every tool invocation in an ordered
// middleware stack: PermissionMiddleware -> SandboxMiddleware -> Tool,
// with an audit trail recorded for every attempt (I3).
package toolpipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/fluxgraph/agentcore/internal/corerr"
	"github.com/fluxgraph/agentcore/internal/obslog"
	"github.com/fluxgraph/agentcore/pkg/tool"
)

var tracer = otel.Tracer("github.com/fluxgraph/agentcore/pkg/toolpipeline")

// Middleware wraps a tool invocation. next invokes the downstream
// middleware, or the tool itself at the tail of the stack.
type Middleware func(ctx context.Context, call tool.Call, next Next) (tool.Result, error)

// Next invokes the remainder of the middleware stack.
type Next func(ctx context.Context, call tool.Call) (tool.Result, error)

// Pipeline is the ordered middleware stack around a fixed set of tools.
type Pipeline struct {
	tools       map[string]tool.Tool
	middlewares []Middleware
	audit       AuditSink
	metrics     *Metrics
}

// New builds a Pipeline over the given tools. Middlewares are added in
// the order they should run (outermost first) via Use; the standard
// order is PermissionMiddleware then SandboxMiddleware (§4.4).
func New(tools []tool.Tool, audit AuditSink) *Pipeline {
	byName := make(map[string]tool.Tool, len(tools))
	for _, t := range tools {
		byName[t.Name()] = t
	}
	if audit == nil {
		audit = NewMemoryAuditSink(1024)
	}
	return &Pipeline{tools: byName, audit: audit}
}

// Use appends a middleware to the stack.
func (p *Pipeline) Use(mw Middleware) *Pipeline {
	p.middlewares = append(p.middlewares, mw)
	return p
}

// WithMetrics attaches a Prometheus metrics recorder.
func (p *Pipeline) WithMetrics(m *Metrics) *Pipeline {
	p.metrics = m
	return p
}

// Tool returns the named tool, if registered.
func (p *Pipeline) Tool(name string) (tool.Tool, bool) {
	t, ok := p.tools[name]
	return t, ok
}

// Invoke runs call through the middleware stack and, at the tail, the
// named tool. Every attempt produces exactly one audit record (I3/P1).
func (p *Pipeline) Invoke(ctx context.Context, call tool.Call) (tool.Result, error) {
	ctx, span := tracer.Start(ctx, "toolpipeline.Invoke", oteltrace.WithAttributes(attribute.String("tool.name", call.Name)))
	defer span.End()

	start := time.Now()
	result, err := p.runChain(ctx, call, 0)
	duration := time.Since(start)

	decision := "completed"
	var exitCode *int
	if err != nil {
		decision = "error"
		if corerr.HasKind(err, corerr.KindPermissionDenied) {
			decision = "denied"
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if result.Metadata != nil {
		if ec, ok := result.Metadata["exit_code"].(int); ok {
			exitCode = &ec
		}
	}

	rec := AuditRecord{
		Timestamp:  start,
		ToolName:   call.Name,
		ArgDigest:  digest(call.Args),
		Decision:   decision,
		DurationMs: duration.Milliseconds(),
		ExitCode:   exitCode,
	}
	p.audit.Record(rec)
	if p.metrics != nil {
		p.metrics.Observe(rec)
	}
	obslog.FromContext(ctx).Debug("tool invoked", "tool", call.Name, "decision", decision, "duration_ms", rec.DurationMs)

	return result, err
}

func (p *Pipeline) runChain(ctx context.Context, call tool.Call, idx int) (tool.Result, error) {
	if idx < len(p.middlewares) {
		mw := p.middlewares[idx]
		return mw(ctx, call, func(ctx context.Context, call tool.Call) (tool.Result, error) {
			return p.runChain(ctx, call, idx+1)
		})
	}
	return p.invokeTool(ctx, call)
}

func (p *Pipeline) invokeTool(ctx context.Context, call tool.Call) (tool.Result, error) {
	t, ok := p.tools[call.Name]
	if !ok {
		return tool.Result{}, corerr.New("toolpipeline.Invoke", corerr.KindToolExecutionFailed, fmt.Sprintf("unknown tool %q", call.Name))
	}
	callable, ok := t.(tool.CallableTool)
	if !ok {
		return tool.Result{}, corerr.New("toolpipeline.Invoke", corerr.KindToolExecutionFailed, fmt.Sprintf("tool %q is not callable", call.Name))
	}
	result, err := callable.Call(ctx, call.Args)
	if err != nil {
		return result, corerr.Wrap("toolpipeline.Invoke", corerr.KindToolExecutionFailed, fmt.Sprintf("tool %q failed", call.Name), err)
	}
	return result, nil
}

func digest(args map[string]any) string {
	h := sha256.New()
	fmt.Fprintf(h, "%v", args)
	return hex.EncodeToString(h.Sum(nil))[:16]
}
