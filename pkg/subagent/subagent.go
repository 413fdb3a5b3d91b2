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

// Package subagent implements the sub-agent catalog and the Delegate
// step (§4.9): an in-memory name -> SubagentDefinition registry, plus a
// Step that spawns a fresh, transcript-isolated child AgentSession,
// tracking an ambient delegation stack to reject cycles and enforce a
// per-definition depth bound. Grounded on the "agent-as-tool" delegation
// pattern: a child may hold delegation tools, so recursion is bounded by
// the delegation stack (a name already on it, or a stack deeper than
// the definition's limit, is rejected), and a failed cycle check renders the
// full chain (e.g. "alpha -> beta -> alpha") into the error.
package subagent

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/fluxgraph/agentcore/internal/corerr"
	"github.com/fluxgraph/agentcore/pkg/actx"
	"github.com/fluxgraph/agentcore/pkg/llm"
	"github.com/fluxgraph/agentcore/pkg/permission"
	"github.com/fluxgraph/agentcore/pkg/sandbox"
	"github.com/fluxgraph/agentcore/pkg/session"
	"github.com/fluxgraph/agentcore/pkg/step"
	"github.com/fluxgraph/agentcore/pkg/tool"
)

// DefaultMaxDepth is the delegation-stack depth limit used when a
// SubagentDefinition doesn't set its own (§4.9 "default 3").
const DefaultMaxDepth = 3

// SubagentDefinition is the immutable catalog entry named in §3: a
// name, its system instructions, the tool filter narrowing the parent's
// tool catalog for this child, and an optional depth override.
type SubagentDefinition struct {
	Name         string
	Instructions llm.Instructions
	ToolFilter   tool.Filter
	MaxDepth     int // 0 means DefaultMaxDepth
	Tags         []string
}

func (d SubagentDefinition) maxDepth() int {
	if d.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return d.MaxDepth
}

// Registry is the in-memory name -> SubagentDefinition catalog.
// Duplicate names are rejected at Register time.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]SubagentDefinition
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]SubagentDefinition)}
}

// Register adds def to the registry, failing if def.Name is already
// taken.
func (r *Registry) Register(def SubagentDefinition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[def.Name]; exists {
		return corerr.New("subagent.Registry.Register", corerr.KindInvalidInput,
			fmt.Sprintf("subagent %q already registered", def.Name))
	}
	r.byName[def.Name] = def
	return nil
}

// Lookup returns the definition registered under name, if any.
func (r *Registry) Lookup(name string) (SubagentDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.byName[name]
	return def, ok
}

// Names returns every registered name, for diagnostics.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byName))
	for n := range r.byName {
		out = append(out, n)
	}
	return out
}

// stackKey carries the ambient delegation stack (§4.9 step 1): the
// ordered list of subagent names currently being invoked in this call
// chain, used for cycle detection and depth enforcement.
var stackKey = actx.NewKey[[]string]("subagent.delegationStack")

func delegationStack(ctx context.Context) []string {
	stack, _ := actx.Get(ctx, stackKey)
	return stack
}

func withDelegationFrame(ctx context.Context, name string) context.Context {
	stack := delegationStack(ctx)
	next := make([]string, len(stack)+1)
	copy(next, stack)
	next[len(stack)] = name
	return actx.With(ctx, stackKey, next)
}

func renderChain(stack []string, closing string) string {
	return strings.Join(stack, " -> ") + " -> " + closing
}

// Config bundles what a child session needs that the parent doesn't
// hand over via the delegation stack: the parent's model provider, the
// parent's full tool catalog (narrowed per-definition by ToolFilter),
// generation options, and the parent's permission/sandbox policy —
// a child must never be a way around the parent's finalDeny rules (I4).
type Config struct {
	Registry   *Registry
	Provider   llm.Provider
	Tools      []tool.Tool
	GenOptions llm.Options

	Permission permission.Config
	Handler    permission.Handler
	Sandbox    sandbox.Config
}

// Delegate builds the Step<I, string> named in §4.9: given a subagent
// name and a way to turn the step's input into the prompt text, it
// spawns a fresh child AgentSession (no inherited transcript or state),
// runs one turn, and returns the response content.
func Delegate[I any](cfg Config, name string, toPrompt func(I) string) step.Step[I, string] {
	return step.Func[I, string](func(ctx context.Context, input I) (string, error) {
		const op = "subagent.Delegate"

		stack := delegationStack(ctx)
		for _, frame := range stack {
			if frame == name {
				return "", corerr.New(op, corerr.KindCircularDelegation,
					fmt.Sprintf("circular delegation: %s", renderChain(stack, name))).
					WithField("stack", append(append([]string{}, stack...), name))
			}
		}

		def, ok := cfg.Registry.Lookup(name)
		if !ok {
			return "", corerr.New(op, corerr.KindInvalidInput, fmt.Sprintf("subagent %q not registered", name))
		}

		if len(stack)+1 > def.maxDepth() {
			return "", corerr.New(op, corerr.KindDelegationDepth,
				fmt.Sprintf("delegation depth %d exceeds max %d for %q", len(stack)+1, def.maxDepth(), name))
		}

		childCtx := withDelegationFrame(ctx, name)

		childTools := def.ToolFilter.Apply(cfg.Tools)
		child, err := session.Create(session.Config{
			Provider:     cfg.Provider,
			Instructions: def.Instructions,
			GenOptions:   cfg.GenOptions,
			Tools:        childTools,
			ToolFilter:   tool.FilterAll(),
			Permission:   cfg.Permission,
			Handler:      cfg.Handler,
			Sandbox:      cfg.Sandbox,
		})
		if err != nil {
			return "", corerr.Wrap(op, corerr.KindInvalidInput, "failed to create child session", err)
		}

		resp, err := child.Prompt(childCtx, toPrompt(input))
		if err != nil {
			return "", corerr.Wrap(op, corerr.KindToolExecutionFailed, fmt.Sprintf("subagent %q failed", name), err)
		}
		return resp.Content, nil
	})
}

// ReplicationSource is the seam a distributed-actor transport (out of
// scope per §1, "Symbio") would implement to replicate a delegation
// across a process boundary instead of running it in-process. No
// concrete implementation ships here.
type ReplicationSource interface {
	Replicate(ctx context.Context, name string, prompt string) (string, error)
}

// Replicate performs the same cycle/depth checks as Delegate but
// dispatches through src instead of an in-process child session
// (§4.9 "Replication").
func Replicate[I any](src ReplicationSource, name string, toPrompt func(I) string) step.Step[I, string] {
	return step.Func[I, string](func(ctx context.Context, input I) (string, error) {
		const op = "subagent.Replicate"

		stack := delegationStack(ctx)
		for _, frame := range stack {
			if frame == name {
				return "", corerr.New(op, corerr.KindCircularDelegation,
					fmt.Sprintf("circular delegation: %s", renderChain(stack, name)))
			}
		}
		if len(stack)+1 > DefaultMaxDepth {
			return "", corerr.New(op, corerr.KindDelegationDepth,
				fmt.Sprintf("delegation depth %d exceeds max %d", len(stack)+1, DefaultMaxDepth))
		}

		childCtx := withDelegationFrame(ctx, name)
		return src.Replicate(childCtx, name, toPrompt(input))
	})
}
