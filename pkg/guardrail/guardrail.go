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

// Package guardrail implements the hierarchical per-step security
// policy: a small rule set attached to a step via a modifier, merged
// with whatever guardrail governs the enclosing scope before it is
// installed into the permission middleware.
package guardrail

import (
	"context"

	"github.com/fluxgraph/agentcore/pkg/actx"
	"github.com/fluxgraph/agentcore/pkg/pattern"
	"github.com/fluxgraph/agentcore/pkg/permission"
	"github.com/fluxgraph/agentcore/pkg/sandbox"
)

// Guardrail is the declarative policy attached to a step with
// Guard (§4.6). It mirrors permission.Config's rule lists
// plus an optional sandbox override; AskUser/Handler routing is left to
// the permission.Evaluator the guardrail is ultimately merged into.
type Guardrail struct {
	Allow     []string
	Deny      []string
	FinalDeny []string
	Override  []string
	Sandbox   *sandbox.Config
}

// contextKey carries the effective (already-merged) Guardrail visible to
// the current step tree, so nested Guard modifiers can find their
// parent without threading it through every Step signature explicitly.
var contextKey = actx.NewKey[Guardrail]("guardrail.active")

// FromContext returns the guardrail governing the current step, or the
// zero Guardrail if none has been installed yet.
func FromContext(ctx context.Context) Guardrail {
	return actx.Optional(ctx, contextKey)
}

// WithContext installs g as the active guardrail for the returned
// context, for use by step modifiers entering a guarded scope.
func WithContext(ctx context.Context, g Guardrail) context.Context {
	return actx.With(ctx, contextKey, g)
}

// Enter merges child under the guardrail active in ctx (if any) and
// returns a context with the merged guardrail installed — the "entering
// a guarded step installs the merged configuration... and restores it on
// exit" behavior is obtained by the caller holding onto the original ctx
// and discarding the derived one once the guarded step returns.
func Enter(ctx context.Context, child Guardrail) context.Context {
	parent := FromContext(ctx)
	return WithContext(ctx, Merge(parent, child))
}

// Merge combines a parent and child guardrail per §4.6:
//   - allow, deny, finalDeny concatenate (first-occurrence-wins dedup).
//   - override entries in child suppress matching deny entries
//     inherited from parent, but never touch finalDeny.
//   - child's Sandbox, if set, replaces the inherited one outright.
//
// Merge is idempotent when applied twice with the same child (merging
// Merge(parent, child) with child again reproduces the same suppressed
// deny set, since Override is also concatenated and re-applied against
// an already-suppressed list with no effect).
func Merge(parent, child Guardrail) Guardrail {
	allow := dedupConcat(parent.Allow, child.Allow)
	finalDeny := dedupConcat(parent.FinalDeny, child.FinalDeny)
	overrides := dedupConcat(parent.Override, child.Override)

	mergedDeny := dedupConcat(parent.Deny, child.Deny)
	deny := suppressOverridden(mergedDeny, overrides)

	sb := parent.Sandbox
	if child.Sandbox != nil {
		sb = child.Sandbox
	}

	return Guardrail{
		Allow:     allow,
		Deny:      deny,
		FinalDeny: finalDeny,
		Override:  overrides,
		Sandbox:   sb,
	}
}

// suppressOverridden drops any deny rule covered by an override rule.
func suppressOverridden(deny, overrides []string) []string {
	if len(overrides) == 0 {
		return deny
	}
	overridePatterns := make([]pattern.Pattern, 0, len(overrides))
	for _, o := range overrides {
		if p, err := pattern.Parse(o); err == nil {
			overridePatterns = append(overridePatterns, p)
		}
	}
	out := make([]string, 0, len(deny))
	for _, d := range deny {
		dp, err := pattern.Parse(d)
		if err != nil {
			out = append(out, d)
			continue
		}
		suppressed := false
		for _, op := range overridePatterns {
			if op.Covers(dp) {
				suppressed = true
				break
			}
		}
		if !suppressed {
			out = append(out, d)
		}
	}
	return out
}

func dedupConcat(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [2][]string{a, b} {
		for _, s := range list {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return out
}

// AsPermissionConfig renders g as a permission.Config for installation
// into an Evaluator, inheriting defaultAction/sessionMemory from base
// (guardrails don't carry their own — those remain session-level
// concerns) and overlaying g's rule lists.
func (g Guardrail) AsPermissionConfig(base permission.Config) permission.Config {
	merged := base
	merged.Allow = dedupConcat(base.Allow, g.Allow)
	merged.FinalDeny = dedupConcat(base.FinalDeny, g.FinalDeny)
	merged.Overrides = dedupConcat(base.Overrides, g.Override)
	merged.Deny = suppressOverridden(dedupConcat(base.Deny, g.Deny), merged.Overrides)
	return merged
}

// Preset sandbox configurations named in §4.6.
var (
	SandboxReadOnly = sandbox.Config{
		FilePolicy:    sandbox.FilePolicy{Kind: sandbox.FileReadOnly},
		NetworkPolicy: sandbox.NetworkNone,
		TimeoutSec:    30,
	}
	SandboxStandard = sandbox.Config{
		FilePolicy:        sandbox.FilePolicy{Kind: sandbox.FileWorkingDirOnly},
		NetworkPolicy:     sandbox.NetworkLocal,
		AllowSubprocesses: true,
		TimeoutSec:        60,
	}
	SandboxRestrictive = sandbox.Config{
		FilePolicy:    sandbox.FilePolicy{Kind: sandbox.FileWorkingDirOnly},
		NetworkPolicy: sandbox.NetworkNone,
		TimeoutSec:    10,
	}
	SandboxNoNetwork = sandbox.Config{
		FilePolicy:        sandbox.FilePolicy{Kind: sandbox.FileWorkingDirOnly},
		NetworkPolicy:     sandbox.NetworkNone,
		AllowSubprocesses: true,
		TimeoutSec:        60,
	}
)
