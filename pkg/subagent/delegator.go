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

package subagent

import (
	"context"
	"fmt"
	"sort"

	"github.com/fluxgraph/agentcore/pkg/tool"
)

// Delegator adapts a Config to the session.SubagentInvoker seam, so an
// AgentSession can offer InvokeSubagent without depending on this
// package's step machinery.
type Delegator struct {
	cfg Config
}

// NewDelegator builds a Delegator over cfg.
func NewDelegator(cfg Config) *Delegator {
	return &Delegator{cfg: cfg}
}

// Invoke delegates one prompt to the named sub-agent, with the same
// cycle and depth checks as the Delegate step.
func (d *Delegator) Invoke(ctx context.Context, name, prompt string) (string, error) {
	return Delegate(d.cfg, name, func(p string) string { return p }).Run(ctx, prompt)
}

// Names returns the registered sub-agent names, sorted — the roster
// persisted in a session blob.
func (d *Delegator) Names() []string {
	names := d.cfg.Registry.Names()
	sort.Strings(names)
	return names
}

// DelegateTool exposes one sub-agent as an opaque pipeline tool whose
// schema advertises a single {prompt} argument — the pipeline stays
// oblivious to whether the callee is a tool or a delegation.
type DelegateTool struct {
	cfg  Config
	name string
}

// NewTool wraps the named sub-agent as a tool.
func NewTool(cfg Config, name string) *DelegateTool {
	return &DelegateTool{cfg: cfg, name: name}
}

func (t *DelegateTool) Name() string { return t.name }

func (t *DelegateTool) Description() string {
	return fmt.Sprintf("Delegate a task to the %q sub-agent.", t.name)
}

func (t *DelegateTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"prompt": map[string]any{
				"type":        "string",
				"description": "The task for the sub-agent.",
			},
		},
		"required": []string{"prompt"},
	}
}

// Call runs the delegation; cycle and depth violations surface as the
// tool's error like any other tool failure.
func (t *DelegateTool) Call(ctx context.Context, args map[string]any) (tool.Result, error) {
	prompt, _ := args["prompt"].(string)
	content, err := Delegate(t.cfg, t.name, func(p string) string { return p }).Run(ctx, prompt)
	if err != nil {
		return tool.Result{}, err
	}
	return tool.Result{Content: content}, nil
}

// Tools wraps every registered sub-agent as a DelegateTool, for
// composing a session's tool set (§4.8 "plus any tools from
// sub-agents").
func Tools(cfg Config) []tool.Tool {
	names := cfg.Registry.Names()
	sort.Strings(names)
	out := make([]tool.Tool, 0, len(names))
	for _, n := range names {
		out = append(out, NewTool(cfg, n))
	}
	return out
}
