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

package run

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/fluxgraph/agentcore/internal/corerr"
	"github.com/fluxgraph/agentcore/pkg/permission"
	"github.com/fluxgraph/agentcore/pkg/session"
)

// Execute drives one conversational turn of sess as a run: it emits
// runStarted, performs the turn (tool calls surface as toolCall /
// toolResult event pairs), and closes with runCompleted carrying the
// Result. The Result is also returned directly for callers that don't
// stream.
func Execute(ctx context.Context, sess *session.AgentSession, in Input, sink Sink) Result {
	turnID := uuid.NewString()
	emit := emitter(sink, sess.ID(), turnID)

	emit(Event{Kind: KindRunStarted})

	before := len(sess.Transcript())
	resp, err := sess.Prompt(ctx, promptText(in))

	entries := sess.Transcript()[before:]
	trace := make([]ToolTraceEntry, 0, len(entries))
	for _, e := range entries {
		if e.Kind != session.EntryToolCall {
			continue
		}
		emit(Event{Kind: KindToolCall, ToolName: e.ToolName, ToolArgs: e.ToolArgs})
		emit(Event{Kind: KindToolResult, ToolName: e.ToolName, ToolOutput: e.ToolOutput, ToolOK: e.ToolOK})
		trace = append(trace, ToolTraceEntry{ToolName: e.ToolName, Args: e.ToolArgs, Output: e.ToolOutput, OK: e.ToolOK})
	}

	result := Result{Status: StatusCompleted, FinalOutput: resp.Content, ToolTrace: trace}
	if err != nil {
		result.Status = statusFor(err)
		result.Error = err.Error()
		result.FinalOutput = ""
		emit(Event{Kind: KindError, Message: err.Error()})
	}
	emit(Event{Kind: KindRunCompleted, Result: &result})
	return result
}

// ExecuteStreaming drives one turn through sess.Stream, emitting a
// tokenDelta event per accumulated snapshot before the terminal
// runCompleted.
func ExecuteStreaming(ctx context.Context, sess *session.AgentSession, in Input, sink Sink) Result {
	turnID := uuid.NewString()
	emit := emitter(sink, sess.ID(), turnID)

	emit(Event{Kind: KindRunStarted})

	snapshots, err := sess.Stream(ctx, promptText(in))
	if err != nil {
		result := Result{Status: statusFor(err), Error: err.Error()}
		emit(Event{Kind: KindError, Message: err.Error()})
		emit(Event{Kind: KindRunCompleted, Result: &result})
		return result
	}

	var final string
	for snapshot := range snapshots {
		final = snapshot
		emit(Event{Kind: KindTokenDelta, Delta: snapshot})
	}

	result := Result{Status: StatusCompleted, FinalOutput: final}
	if err := ctx.Err(); err != nil {
		result = Result{Status: StatusCancelled, Error: err.Error()}
	}
	emit(Event{Kind: KindRunCompleted, Result: &result})
	return result
}

// ApprovalHandler wraps inner so that every interactive decision is
// mirrored onto the event stream as an approvalRequired /
// approvalResolved pair. Non-interactive transports pass a nil inner
// and get the §7 "no handler" behavior: every ask is denied.
func ApprovalHandler(inner permission.Handler, sink Sink, sessionID string) permission.Handler {
	return approvalHandler{inner: inner, emit: emitter(sink, sessionID, "")}
}

type approvalHandler struct {
	inner permission.Handler
	emit  func(Event)
}

func (h approvalHandler) RequestDecision(ctx context.Context, req permission.Request) (permission.Decision, error) {
	h.emit(Event{Kind: KindApprovalRequired, Approval: &req})
	if h.inner == nil {
		decision := permission.DecisionDenyOnce
		h.emit(Event{Kind: KindApprovalResolved, Approval: &req, Decision: decision})
		return decision, nil
	}
	decision, err := h.inner.RequestDecision(ctx, req)
	if err != nil {
		return decision, err
	}
	h.emit(Event{Kind: KindApprovalResolved, Approval: &req, Decision: decision})
	return decision, nil
}

func emitter(sink Sink, sessionID, turnID string) func(Event) {
	if sink == nil {
		return func(Event) {}
	}
	return func(e Event) {
		e.SessionID = sessionID
		e.TurnID = turnID
		e.Timestamp = time.Now()
		sink(e)
	}
}

func promptText(in Input) string {
	if in.Structured != nil {
		if data, err := json.Marshal(in.Structured); err == nil {
			return string(data)
		}
	}
	return in.Text
}

func statusFor(err error) Status {
	switch {
	case corerr.HasKind(err, corerr.KindPermissionDenied):
		return StatusDenied
	case corerr.HasKind(err, corerr.KindCancelled):
		return StatusCancelled
	case corerr.HasKind(err, corerr.KindCommandTimedOut), corerr.HasKind(err, corerr.KindRaceTimeout):
		return StatusTimedOut
	default:
		return StatusFailed
	}
}
