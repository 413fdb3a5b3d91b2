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

package skills

import (
	"context"

	"github.com/fluxgraph/agentcore/internal/corerr"
	"github.com/fluxgraph/agentcore/pkg/tool"
)

// ActivateTool is the built-in activate_skill tool (§4.10): the model
// calls it with a skill name and receives the skill's full instructions
// as the tool result, which the turn loop folds into the transcript.
// Activation also grants the skill's AllowedTools patterns for as long
// as the skill stays active.
type ActivateTool struct {
	facade *Facade
}

// NewActivateTool wraps facade as the activate_skill tool.
func NewActivateTool(facade *Facade) *ActivateTool {
	return &ActivateTool{facade: facade}
}

func (t *ActivateTool) Name() string { return "activate_skill" }

func (t *ActivateTool) Description() string {
	return "Activate a skill by name to load its full instructions."
}

func (t *ActivateTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"skill": map[string]any{
				"type":        "string",
				"description": "Name of the skill to activate.",
			},
		},
		"required": []string{"skill"},
	}
}

func (t *ActivateTool) Call(ctx context.Context, args map[string]any) (tool.Result, error) {
	name, _ := args["skill"].(string)
	if name == "" {
		return tool.Result{}, corerr.New("skills.ActivateTool.Call", corerr.KindInvalidInput, "missing skill name")
	}
	instructions, err := t.facade.Activate(name)
	if err != nil {
		return tool.Result{}, err
	}
	return tool.Result{Content: instructions}, nil
}
