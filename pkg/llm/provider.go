package llm

import "context"

// Provider is the interface a concrete model vendor adapter must
// satisfy; core code never depends on a specific vendor SDK, only on
// this interface (§1 "specific model vendors" is an external
// collaborator concern). Grounded on the shape of the grounding repo's
// llms.LLMProvider, generalized away from its gRPC-specific message type.
type Provider interface {
	Generate(ctx context.Context, messages []Message, tools []ToolDefinition, opts Options) (Response, error)
	GenerateStreaming(ctx context.Context, messages []Message, tools []ToolDefinition, opts Options) (<-chan StreamChunk, error)

	ModelName() string
	MaxTokens() int
}

// StructuredProvider is a Provider that can additionally constrain
// generation to a JSON Schema (§4.7 Generate<I,O:Structured>).
type StructuredProvider interface {
	Provider

	GenerateStructured(ctx context.Context, messages []Message, tools []ToolDefinition, schema map[string]any, opts Options) (Response, error)
}

// Response is the result of one non-streaming generation request.
type Response struct {
	Text      string
	ToolCalls []ToolCall
	Tokens    int
}
