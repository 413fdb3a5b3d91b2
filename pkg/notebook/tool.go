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

package notebook

import (
	"context"
	"fmt"
	"strings"

	"github.com/fluxgraph/agentcore/internal/corerr"
	"github.com/fluxgraph/agentcore/pkg/tool"
)

// NotebookTool exposes a Storage as a pipeline tool so a model can read
// and write notes across turns. Not an OS command; the sandbox
// middleware passes it through untouched.
type NotebookTool struct {
	storage Storage
}

// NewTool wraps storage as a callable tool named "Notebook".
func NewTool(storage Storage) *NotebookTool {
	return &NotebookTool{storage: storage}
}

func (t *NotebookTool) Name() string { return "Notebook" }

func (t *NotebookTool) Description() string {
	return "Store and retrieve persistent notes. Actions: get, set, delete, list."
}

func (t *NotebookTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"action": map[string]any{
				"type": "string",
				"enum": []string{"get", "set", "delete", "list"},
			},
			"key":   map[string]any{"type": "string"},
			"value": map[string]any{"type": "string"},
		},
		"required": []string{"action"},
	}
}

// Call dispatches on args["action"].
func (t *NotebookTool) Call(ctx context.Context, args map[string]any) (tool.Result, error) {
	const op = "notebook.NotebookTool.Call"
	action, _ := args["action"].(string)
	key, _ := args["key"].(string)

	switch action {
	case "get":
		v, ok, err := t.storage.Get(key)
		if err != nil {
			return tool.Result{}, err
		}
		if !ok {
			return tool.Result{Content: fmt.Sprintf("no note under %q", key)}, nil
		}
		return tool.Result{Content: v}, nil
	case "set":
		value, _ := args["value"].(string)
		if err := t.storage.Set(key, value); err != nil {
			return tool.Result{}, err
		}
		return tool.Result{Content: fmt.Sprintf("stored %q", key)}, nil
	case "delete":
		if err := t.storage.Delete(key); err != nil {
			return tool.Result{}, err
		}
		return tool.Result{Content: fmt.Sprintf("deleted %q", key)}, nil
	case "list":
		keys, err := t.storage.Keys()
		if err != nil {
			return tool.Result{}, err
		}
		return tool.Result{Content: strings.Join(keys, "\n")}, nil
	default:
		return tool.Result{}, corerr.New(op, corerr.KindInvalidInput, fmt.Sprintf("unknown action %q", action))
	}
}
