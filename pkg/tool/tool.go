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

// Package tool defines the interface hierarchy every tool capability
// implements: a base Tool plus either CallableTool (synchronous) or
// StreamingTool (incremental, iter.Seq2-based) execution, and optional
// IsOSCommand/RequiresApproval markers the pipeline inspects.
package tool

import (
	"context"
	"iter"
)

// Tool is the base interface every tool capability implements.
type Tool interface {
	Name() string
	Description() string
	// Schema returns the JSON schema for the tool's arguments, or nil if
	// the tool takes none.
	Schema() map[string]any
}

// CallableTool executes synchronously and returns one final Result.
type CallableTool interface {
	Tool
	Call(ctx context.Context, args map[string]any) (Result, error)
}

// StreamingTool executes incrementally, yielding a Result per chunk; the
// final yielded Result has Streaming == false.
type StreamingTool interface {
	Tool
	CallStreaming(ctx context.Context, args map[string]any) iter.Seq2[Result, error]
}

// IsLongRunning, when implemented and true, marks a tool as an
// asynchronous job: Call/CallStreaming return immediately with a job
// identifier rather than a final result.
type IsLongRunning interface {
	IsLongRunning() bool
}

// RequiresApproval, when implemented and true, marks a tool as needing a
// human-in-the-loop decision before the pipeline invokes it.
type RequiresApproval interface {
	RequiresApproval() bool
}

// IsOSCommand is the marker capability the Tool Pipeline's sandbox
// middleware checks (§4.4): only tools reporting true have the sandbox
// configuration installed into their ambient context.
type IsOSCommand interface {
	IsOSCommand() bool
}

// Result is the outcome of one tool execution or streamed chunk.
type Result struct {
	Content   string
	Streaming bool
	Error     string
	Metadata  map[string]any
}

// Toolset groups related tools with context-dependent resolution —
// e.g. an MCP server or a sub-agent roster exposed as tools.
type Toolset interface {
	Name() string
	Tools(ctx context.Context) ([]Tool, error)
}

// Predicate decides whether a tool should be visible in a given context.
type Predicate func(ctx context.Context, t Tool) bool

// StringPredicate allows only the named tools.
func StringPredicate(names []string) Predicate {
	allowed := make(map[string]bool, len(names))
	for _, n := range names {
		allowed[n] = true
	}
	return func(ctx context.Context, t Tool) bool { return allowed[t.Name()] }
}

// ExceptPredicate allows every tool except the named ones.
func ExceptPredicate(names []string) Predicate {
	denied := make(map[string]bool, len(names))
	for _, n := range names {
		denied[n] = true
	}
	return func(ctx context.Context, t Tool) bool { return !denied[t.Name()] }
}

// AllowAll allows every tool.
func AllowAll() Predicate { return func(context.Context, Tool) bool { return true } }

// DenyAll allows no tool.
func DenyAll() Predicate { return func(context.Context, Tool) bool { return false } }

// Combine ANDs predicates together.
func Combine(predicates ...Predicate) Predicate {
	return func(ctx context.Context, t Tool) bool {
		for _, p := range predicates {
			if !p(ctx, t) {
				return false
			}
		}
		return true
	}
}

// Or ORs predicates together.
func Or(predicates ...Predicate) Predicate {
	return func(ctx context.Context, t Tool) bool {
		for _, p := range predicates {
			if p(ctx, t) {
				return true
			}
		}
		return false
	}
}

// Not negates a predicate.
func Not(p Predicate) Predicate {
	return func(ctx context.Context, t Tool) bool { return !p(ctx, t) }
}

// Definition is the LLM-facing shape of a tool: name, description, and
// argument schema.
type Definition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ToDefinition renders t as a Definition for function-calling prompts.
func ToDefinition(t Tool) Definition {
	return Definition{Name: t.Name(), Description: t.Description(), Parameters: t.Schema()}
}

// Call is an LLM's request to invoke a named tool with arguments.
type Call struct {
	ID   string
	Name string
	Args map[string]any
}

// CallResult pairs a Call's ID with its outcome for transcript building.
type CallResult struct {
	CallID   string
	Content  string
	Error    string
	Metadata map[string]any
}

// Filter selects a subset of available tools — the concrete cases named
// in §3's SubagentDefinition.toolFilter and §4.8's AgentSession tool
// filter.
type Filter struct {
	kind  filterKind
	names map[string]bool
}

type filterKind int

const (
	filterAll filterKind = iota
	filterOnly
	filterExcept
)

// FilterAll selects every tool.
func FilterAll() Filter { return Filter{kind: filterAll} }

// FilterOnly selects exactly the named tools.
func FilterOnly(names ...string) Filter {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return Filter{kind: filterOnly, names: set}
}

// FilterExcept selects every tool except the named ones.
func FilterExcept(names ...string) Filter {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return Filter{kind: filterExcept, names: set}
}

// Apply filters tools according to the Filter's rule.
func (f Filter) Apply(tools []Tool) []Tool {
	switch f.kind {
	case filterOnly:
		out := make([]Tool, 0, len(tools))
		for _, t := range tools {
			if f.names[t.Name()] {
				out = append(out, t)
			}
		}
		return out
	case filterExcept:
		out := make([]Tool, 0, len(tools))
		for _, t := range tools {
			if !f.names[t.Name()] {
				out = append(out, t)
			}
		}
		return out
	default:
		return tools
	}
}
