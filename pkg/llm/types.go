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

// Package llm defines the provider-agnostic surface a LanguageModelSession
// is built on (§3, §4.7): messages, tool definitions, generation options,
// and streaming chunks. No vendor SDK is linked here — concrete wire
// protocols are an external collaborator (§1); this package only
// describes the shape a provider adapter must satisfy.
package llm

// Role identifies the speaker of a Message in a conversation transcript.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one turn in a conversation, mirroring the universal
// multi-turn format the grounding repo's providers all normalize to.
type Message struct {
	Role       Role
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
	Name       string
}

// ToolDefinition is the provider-facing description of a callable tool:
// name, description, and a JSON Schema for its arguments.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ToolCall is a tool invocation requested by the model mid-generation.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
	RawArgs   string
}

// Sampling selects the decoding strategy for a generation request.
type Sampling struct {
	Greedy bool
	TopP   float64 // consulted only when Greedy is false
}

// Options are the optional generation knobs (§4.7); a zero Options
// value means "use the provider's defaults."
type Options struct {
	Sampling     Sampling
	Temperature  float64 // [0,2]; 0 is a valid value, not "unset"
	MaxTokens    int     // >= 1 when set; 0 means unset
	HasTemp      bool
	HasMaxTokens bool
}

// StreamChunk is one increment of a streaming generation (§9
// "Streaming"): callers see monotonically growing content.
type StreamChunk struct {
	Content  string
	ToolCall *ToolCall
	Done     bool
	Error    error
}
