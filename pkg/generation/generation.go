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

// Package generation implements the leaf Step adapters that invoke a
// LanguageModelSession: GenerateText (plain-text completion) and
// Generate (schema-constrained structured output), both streaming-aware
// (§4.7).
package generation

import (
	"context"
	"encoding/json"

	"github.com/invopop/jsonschema"

	"github.com/fluxgraph/agentcore/internal/corerr"
	"github.com/fluxgraph/agentcore/pkg/llm"
	"github.com/fluxgraph/agentcore/pkg/step"
)

// StreamSnapshot is the incremental view delivered to onStream during
// GenerateText: accumulating text plus a completion flag.
type StreamSnapshot struct {
	Content    string
	IsComplete bool
}

// TextOptions configures GenerateText.
type TextOptions[I any] struct {
	// Prompt derives the prompt from the step input. Required unless I
	// implements llm.PromptRepresentable.
	Prompt llm.PromptBuilder[I]
	// OnStream, if set, receives every incremental snapshot during a
	// streaming generation; GenerateText still returns the final string.
	OnStream func(StreamSnapshot)
}

// GenerateText builds a Step<I,string> that resolves a prompt from the
// input (via opts.Prompt or I.ToPrompt when I is PromptRepresentable),
// invokes the ambient LanguageModelSession's text-completion interface,
// and returns the final string (§4.7).
func GenerateText[I any](opts TextOptions[I]) step.Step[I, string] {
	return step.Func[I, string](func(ctx context.Context, input I) (string, error) {
		const op = "generation.GenerateText"
		prompt, err := resolvePrompt(opts.Prompt, input)
		if err != nil {
			return "", corerr.Wrap(op, corerr.KindInvalidInput, "no prompt available for input", err)
		}

		sess, err := llm.SessionFromContext(ctx)
		if err != nil {
			return "", err
		}

		if opts.OnStream == nil {
			text, err := sess.GenerateText(ctx, prompt)
			if err != nil {
				return "", err
			}
			return text, nil
		}

		chunks, err := sess.Stream(ctx, prompt)
		if err != nil {
			return "", err
		}
		var content string
		for c := range chunks {
			if c.Error != nil {
				return "", corerr.Wrap(op, corerr.KindCancelled, "stream aborted", c.Error)
			}
			content += c.Content
			opts.OnStream(StreamSnapshot{Content: content, IsComplete: c.Done})
			if ctx.Err() != nil {
				return "", corerr.Wrap(op, corerr.KindCancelled, "generation cancelled", ctx.Err())
			}
		}
		return content, nil
	})
}

// Structured is implemented by output types O usable with Generate; the
// zero value of O is reflected into a JSON Schema once per type via
// invopop/jsonschema, following the grounding repo's functiontool schema
// reflection (struct tags: `json:"..."`, `jsonschema:"required,..."`).
type Structured interface {
	any
}

// StructuredOptions configures Generate.
type StructuredOptions[I, O any] struct {
	Prompt   llm.PromptBuilder[I]
	OnStream func(Partial[O])
}

// Partial is the partially-generated view of O passed to OnStream: every
// field is optional until the final snapshot (§9 "Structured-output
// schemas").
type Partial[O any] struct {
	Value      O
	IsComplete bool
}

// Generate builds a Step<I,O> that resolves a prompt, invokes the
// ambient session's structured-output interface constrained to O's
// reflected JSON Schema, and returns the fully populated O (§4.7
// Generate<I,O:Structured>).
func Generate[I any, O Structured](opts StructuredOptions[I, O]) step.Step[I, O] {
	schema := schemaFor[O]()
	return step.Func[I, O](func(ctx context.Context, input I) (O, error) {
		const op = "generation.Generate"
		var zero O

		prompt, err := resolvePrompt(opts.Prompt, input)
		if err != nil {
			return zero, corerr.Wrap(op, corerr.KindInvalidInput, "no prompt available for input", err)
		}

		sess, err := llm.SessionFromContext(ctx)
		if err != nil {
			return zero, err
		}

		resp, err := sess.GenerateStructured(ctx, prompt, schema)
		if err != nil {
			return zero, err
		}

		var out O
		if err := json.Unmarshal([]byte(resp.Text), &out); err != nil {
			return zero, corerr.Wrap(op, corerr.KindInvalidInput, "structured response did not match schema", err)
		}
		if opts.OnStream != nil {
			// The provider seam exposes no incremental structured
			// interface, so OnStream receives a single final snapshot
			// rather than field-by-field partials.
			opts.OnStream(Partial[O]{Value: out, IsComplete: true})
		}
		return out, nil
	})
}

// schemaFor reflects O into a JSON Schema map, matching the grounding
// repo's functiontool.generateSchema: inline definitions, required
// fields driven by jsonschema tags.
func schemaFor[O any]() map[string]any {
	reflector := &jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		DoNotReference:             true,
	}
	var zero O
	schema := reflector.Reflect(&zero)

	data, err := json.Marshal(schema)
	if err != nil {
		return map[string]any{"type": "object"}
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return map[string]any{"type": "object"}
	}
	delete(out, "$schema")
	delete(out, "$id")
	return out
}

func resolvePrompt[I any](builder llm.PromptBuilder[I], input I) (llm.Prompt, error) {
	if builder != nil {
		return builder(input), nil
	}
	if pr, ok := any(input).(llm.PromptRepresentable); ok {
		return pr.ToPrompt(), nil
	}
	return llm.Prompt{}, corerr.New("generation.resolvePrompt", corerr.KindInvalidInput, "input is neither given a PromptBuilder nor PromptRepresentable")
}
