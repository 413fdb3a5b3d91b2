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

package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fluxgraph/agentcore/internal/corerr"
	"github.com/fluxgraph/agentcore/internal/obslog"
	"github.com/fluxgraph/agentcore/pkg/actx"
	"github.com/fluxgraph/agentcore/pkg/llm"
	"github.com/fluxgraph/agentcore/pkg/permission"
	"github.com/fluxgraph/agentcore/pkg/sandbox"
	"github.com/fluxgraph/agentcore/pkg/tool"
	"github.com/fluxgraph/agentcore/pkg/toolpipeline"
)

// Config builds an AgentSession: model provider and instructions for the
// underlying llm.Session, the full tool catalog (narrowed by Filter),
// permission/sandbox policy for the pipeline, and optional persistence.
type Config struct {
	Provider     llm.Provider
	Instructions llm.Instructions
	GenOptions   llm.Options

	Tools      []tool.Tool
	ToolFilter tool.Filter

	Permission permission.Config
	Handler    permission.Handler
	Sandbox    sandbox.Config
	ArgKey     toolpipeline.ArgKeyFunc

	// Subagents, when set, backs InvokeSubagent and supplies the roster
	// persisted in the session blob.
	Subagents SubagentInvoker

	// DynamicAllowRules, when set, supplies session-scoped allow
	// patterns (e.g. skills.Facade.ActiveAllowPatterns) folded into the
	// permission evaluation of every tool call. Queried per call, so a
	// skill activated mid-turn takes effect for the turn's remaining
	// calls.
	DynamicAllowRules func() []string

	Store    Store
	AutoSave bool

	// MaxToolTurns bounds the number of model<->tool round trips within
	// one Prompt call, guarding against a model that never stops calling
	// tools.
	MaxToolTurns int
}

// SubagentInvoker is the delegation seam behind InvokeSubagent: the
// subagent package's Delegator satisfies it, keeping this package free
// of an import cycle with the delegation machinery.
type SubagentInvoker interface {
	Invoke(ctx context.Context, name, prompt string) (string, error)
	Names() []string
}

// AgentResponse is the result of one conversational turn (§4.8).
type AgentResponse struct {
	Content           string
	ToolCalls         []llm.ToolCall
	TranscriptEntries []Entry
	Duration          time.Duration
}

// AgentSession is the lifecycle object named in §3/§4.8: an id, its
// config, an append-only transcript, an optional fork parent, and a
// cancellation token for the in-flight turn.
type AgentSession struct {
	id         string
	config     Config
	transcript *Transcript
	forkParent string // empty if not a fork
	llmSession *llm.Session
	pipeline   *toolpipeline.Pipeline

	mu     sync.Mutex
	cancel context.CancelFunc
}

// Create builds a new session with a fresh id, empty transcript, and the
// tool set derived from config.ToolFilter applied to config.Tools.
func Create(config Config) (*AgentSession, error) {
	evaluator, err := permission.NewEvaluator(config.Permission, config.Handler)
	if err != nil {
		return nil, corerr.Wrap("session.Create", corerr.KindInvalidInput, "invalid permission configuration", err)
	}

	filtered := config.ToolFilter.Apply(config.Tools)
	pipeline := toolpipeline.New(filtered, nil)
	pipeline.Use(toolpipeline.PermissionMiddleware(evaluator, config.ArgKey))
	pipeline.Use(toolpipeline.SandboxMiddleware(config.Sandbox, func(c tool.Call) (tool.Tool, bool) { return pipeline.Tool(c.Name) }))

	defs := make([]llm.ToolDefinition, 0, len(filtered))
	for _, t := range filtered {
		defs = append(defs, llm.ToolDefinition{Name: t.Name(), Description: t.Description(), Parameters: t.Schema()})
	}

	llmSess := llm.NewSession(config.Provider, config.Instructions, defs, config.GenOptions)

	return &AgentSession{
		id:         uuid.NewString(),
		config:     config,
		transcript: &Transcript{},
		llmSession: llmSess,
		pipeline:   pipeline,
	}, nil
}

// ID returns the session's unique identifier.
func (s *AgentSession) ID() string { return s.id }

// Transcript returns a snapshot of the recorded entries.
func (s *AgentSession) Transcript() []Entry { return s.transcript.Entries() }

// Prompt performs one conversational turn: the text is sent to the
// model, every tool call the model requests is run through the tool
// pipeline and its result fed back, until the model stops calling tools
// or MaxToolTurns is reached (§4.8).
func (s *AgentSession) Prompt(ctx context.Context, text string) (AgentResponse, error) {
	const op = "session.AgentSession.Prompt"
	start := time.Now()

	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	s.transcript.Append(userPromptEntry(text))

	maxTurns := s.config.MaxToolTurns
	if maxTurns <= 0 {
		maxTurns = 8
	}

	prompt := llm.NewBuilder().Text(text).BuildPrompt()
	var allCalls []llm.ToolCall
	var finalContent string

	for turn := 0; turn < maxTurns; turn++ {
		if err := ctx.Err(); err != nil {
			return AgentResponse{}, corerr.Wrap(op, corerr.KindCancelled, "prompt turn cancelled", err)
		}

		var resp llm.Response
		var err error
		if turn == 0 {
			resp, err = s.llmSession.GenerateResponse(ctx, prompt)
		} else {
			resp, err = s.llmSession.Continue(ctx)
		}
		if err != nil {
			return AgentResponse{}, corerr.Wrap(op, corerr.KindToolExecutionFailed, "generation failed", err)
		}

		if len(resp.ToolCalls) == 0 {
			finalContent = resp.Text
			s.transcript.Append(modelResponseEntry(resp.Text))
			break
		}

		allCalls = append(allCalls, resp.ToolCalls...)
		for _, tc := range resp.ToolCalls {
			callCtx := ctx
			if s.config.DynamicAllowRules != nil {
				callCtx = actx.With(ctx, toolpipeline.SkillRulesKey, s.config.DynamicAllowRules())
			}
			result, callErr := s.pipeline.Invoke(callCtx, tool.Call{ID: tc.ID, Name: tc.Name, Args: tc.Arguments})
			output := result.Content
			ok := callErr == nil
			if callErr != nil {
				output = callErr.Error()
				obslog.FromContext(ctx).Warn("tool call failed", "tool", tc.Name, "error", callErr)
			}
			s.transcript.Append(toolCallEntry(tc.Name, tc.Arguments, output, ok))
			s.llmSession.AppendToolResult(tc.ID, tc.Name, output)
		}
	}

	response := AgentResponse{
		Content:           finalContent,
		ToolCalls:         allCalls,
		TranscriptEntries: s.transcript.Entries(),
		Duration:          time.Since(start),
	}

	if s.config.AutoSave && s.config.Store != nil {
		if err := s.Save(s.config.Store); err != nil {
			obslog.FromContext(ctx).Error("auto-save failed", "session", s.id, "error", err)
		}
	}

	return response, nil
}

// Stream performs one turn like Prompt but yields partial content
// through a channel of incremental strings as they accumulate.
func (s *AgentSession) Stream(ctx context.Context, text string) (<-chan string, error) {
	s.transcript.Append(userPromptEntry(text))
	prompt := llm.NewBuilder().Text(text).BuildPrompt()
	chunks, err := s.llmSession.Stream(ctx, prompt)
	if err != nil {
		return nil, err
	}
	out := make(chan string)
	go func() {
		defer close(out)
		var content string
		for c := range chunks {
			content += c.Content
			out <- content
		}
		s.transcript.Append(modelResponseEntry(content))
	}()
	return out, nil
}

// InvokeSubagent delegates one prompt to the named sub-agent (§4.8,
// §4.9): the child runs in a fresh session with no inherited transcript
// or state, and the invocation is recorded as a transcript entry here.
func (s *AgentSession) InvokeSubagent(ctx context.Context, name, prompt string) (AgentResponse, error) {
	const op = "session.AgentSession.InvokeSubagent"
	start := time.Now()

	if s.config.Subagents == nil {
		return AgentResponse{}, corerr.New(op, corerr.KindInvalidInput, "session has no subagent invoker configured")
	}
	content, err := s.config.Subagents.Invoke(ctx, name, prompt)
	if err != nil {
		return AgentResponse{}, err
	}
	s.transcript.Append(subagentInvocationEntry(name, prompt, content))

	return AgentResponse{
		Content:           content,
		TranscriptEntries: s.transcript.Entries(),
		Duration:          time.Since(start),
	}, nil
}

// Fork snapshots the transcript into a brand-new session with a fresh
// id; parent and fork diverge afterward (§4.8, P4). No state cells are
// copied.
func (s *AgentSession) Fork() *AgentSession {
	return &AgentSession{
		id:         uuid.NewString(),
		config:     s.config,
		transcript: s.transcript.Clone(),
		forkParent: s.id,
		llmSession: llm.NewSession(s.config.Provider, s.config.Instructions, nil, s.config.GenOptions),
		pipeline:   s.pipeline,
	}
}

// ForkParent returns the id of the session this one was forked from, or
// "" if it was not forked.
func (s *AgentSession) ForkParent() string { return s.forkParent }

// Cancel aborts the in-flight turn, if any; tools get a best-effort
// chance to observe ctx.Done() and clean up.
func (s *AgentSession) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}

// Save serializes {id, transcript, subagent-roster} to store (§4.8, §6).
func (s *AgentSession) Save(store Store) error {
	var roster []string
	if s.config.Subagents != nil {
		roster = s.config.Subagents.Names()
	}
	data, err := encodeBlob(s.id, time.Now(), s.transcript.Entries(), roster)
	if err != nil {
		return corerr.Wrap("session.AgentSession.Save", corerr.KindStorePersistenceError, "failed to encode session blob", err)
	}
	if err := store.Save(s.id, data); err != nil {
		return corerr.Wrap("session.AgentSession.Save", corerr.KindStorePersistenceError, "failed to persist session blob", err)
	}
	return nil
}

// Resume deserializes a session previously saved under id; handlers and
// middleware are rewired fresh from config rather than persisted, per
// §4.8.
func Resume(id string, store Store, config Config) (*AgentSession, error) {
	const op = "session.Resume"
	data, err := store.Load(id)
	if err != nil {
		return nil, corerr.Wrap(op, corerr.KindSessionNotFound, fmt.Sprintf("session %q not found", id), err)
	}
	b, err := decodeBlob(data)
	if err != nil {
		return nil, corerr.Wrap(op, corerr.KindStorePersistenceError, "failed to decode session blob", err)
	}

	sess, err := Create(config)
	if err != nil {
		return nil, err
	}
	sess.id = b.ID
	for _, e := range b.Entries {
		sess.transcript.Append(e)
	}
	return sess, nil
}
