package llm

import (
	"context"
	"sync"

	"github.com/fluxgraph/agentcore/internal/corerr"
	"github.com/fluxgraph/agentcore/pkg/actx"
)

// Session is the opaque handle to a stateful model conversation (§3
// LanguageModelSession): model identity, instructions, tool set,
// generation options, and a running transcript. Owned by an
// AgentSession or directly by a caller.
type Session struct {
	provider     Provider
	instructions Instructions
	tools        []ToolDefinition
	opts         Options

	mu         sync.Mutex
	transcript []Message
}

// NewSession builds a session bound to provider, with a fixed
// instructions document, tool set, and generation options.
func NewSession(provider Provider, instructions Instructions, tools []ToolDefinition, opts Options) *Session {
	return &Session{provider: provider, instructions: instructions, tools: tools, opts: opts}
}

// Transcript returns a snapshot of the messages exchanged so far.
func (s *Session) Transcript() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// Append records a message in the running transcript.
func (s *Session) Append(m Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcript = append(s.transcript, m)
}

func (s *Session) messagesWithInstructions() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := make([]Message, 0, len(s.transcript)+1)
	if text := s.instructions.String(); text != "" {
		msgs = append(msgs, Message{Role: RoleSystem, Content: text})
	}
	msgs = append(msgs, s.transcript...)
	return msgs
}

// GenerateText invokes the session's text-completion interface with an
// already-built prompt appended as a user turn, and records both the
// prompt and the reply in the transcript.
func (s *Session) GenerateText(ctx context.Context, prompt Prompt) (string, error) {
	resp, err := s.GenerateResponse(ctx, prompt)
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// GenerateResponse is the same turn as GenerateText but returns the full
// Response, including any tool calls the model requested — the
// lower-level primitive AgentSession's turn loop (§4.8) drives directly.
func (s *Session) GenerateResponse(ctx context.Context, prompt Prompt) (Response, error) {
	s.Append(Message{Role: RoleUser, Content: prompt.String()})
	resp, err := s.provider.Generate(ctx, s.messagesWithInstructions(), s.tools, s.opts)
	if err != nil {
		return Response{}, err
	}
	s.Append(Message{Role: RoleAssistant, Content: resp.Text, ToolCalls: resp.ToolCalls})
	return resp, nil
}

// AppendToolResult records a tool role message carrying the outcome of a
// ToolCall back into the conversation, so the next Continue call sees it.
func (s *Session) AppendToolResult(callID, name, output string) {
	s.Append(Message{Role: RoleTool, ToolCallID: callID, Name: name, Content: output})
}

// Continue re-invokes the provider against the transcript as it stands,
// without appending a new user turn — the step an AgentSession's turn
// loop takes after folding tool results back in (§4.8).
func (s *Session) Continue(ctx context.Context) (Response, error) {
	resp, err := s.provider.Generate(ctx, s.messagesWithInstructions(), s.tools, s.opts)
	if err != nil {
		return Response{}, err
	}
	s.Append(Message{Role: RoleAssistant, Content: resp.Text, ToolCalls: resp.ToolCalls})
	return resp, nil
}

// GenerateStructured invokes the session's structured-output interface,
// requiring a StructuredProvider.
func (s *Session) GenerateStructured(ctx context.Context, prompt Prompt, schema map[string]any) (Response, error) {
	sp, ok := s.provider.(StructuredProvider)
	if !ok {
		return Response{}, corerr.New("llm.Session.GenerateStructured", corerr.KindInvalidInput, "provider does not support structured output")
	}
	s.Append(Message{Role: RoleUser, Content: prompt.String()})
	resp, err := sp.GenerateStructured(ctx, s.messagesWithInstructions(), s.tools, schema, s.opts)
	if err != nil {
		return Response{}, err
	}
	s.Append(Message{Role: RoleAssistant, Content: resp.Text, ToolCalls: resp.ToolCalls})
	return resp, nil
}

// Stream invokes the session's streaming interface, appending the final
// accumulated content to the transcript once the channel closes.
func (s *Session) Stream(ctx context.Context, prompt Prompt) (<-chan StreamChunk, error) {
	s.Append(Message{Role: RoleUser, Content: prompt.String()})
	chunks, err := s.provider.GenerateStreaming(ctx, s.messagesWithInstructions(), s.tools, s.opts)
	if err != nil {
		return nil, err
	}
	out := make(chan StreamChunk)
	go func() {
		defer close(out)
		var content string
		for c := range chunks {
			content += c.Content
			out <- c
		}
		s.Append(Message{Role: RoleAssistant, Content: content})
	}()
	return out, nil
}

// sessionKey carries the active LanguageModelSession in ambient context
// (§4.8 "Session context"): `withSession(s) { body }` scopes it, `@Session`
// reads it.
var sessionKey = actx.NewKey[*Session]("llm.session")

// WithSession scopes sess as the active session for the returned context.
func WithSession(ctx context.Context, sess *Session) context.Context {
	return actx.With(ctx, sessionKey, sess)
}

// SessionFromContext reads the active session, failing if none is scoped.
func SessionFromContext(ctx context.Context) (*Session, error) {
	return actx.Require(ctx, sessionKey)
}
