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

// Package run is the transport-facing run protocol (§6): an opaque input
// payload, a typed event stream, and a run result. Transport embeddings
// (HTTP, gRPC, a CLI) consume this package; the core stays oblivious to
// how events reach the outside world.
package run

import (
	"time"

	"github.com/fluxgraph/agentcore/pkg/permission"
)

// Kind discriminates the event stream's variants.
type Kind string

const (
	KindRunStarted       Kind = "runStarted"
	KindTokenDelta       Kind = "tokenDelta"
	KindToolCall         Kind = "toolCall"
	KindToolResult       Kind = "toolResult"
	KindApprovalRequired Kind = "approvalRequired"
	KindApprovalResolved Kind = "approvalResolved"
	KindWarning          Kind = "warning"
	KindError            Kind = "error"
	KindRunCompleted     Kind = "runCompleted"
)

// Event is one record in a run's event stream. Every event carries the
// session/turn id pair; the remaining fields are only meaningful for
// their Kind.
type Event struct {
	Kind      Kind      `json:"kind"`
	SessionID string    `json:"sessionId"`
	TurnID    string    `json:"turnId"`
	Timestamp time.Time `json:"ts"`

	// KindTokenDelta: the accumulated content so far (§9 "Streaming" —
	// snapshots are accumulating prefixes, not fragments).
	Delta string `json:"delta,omitempty"`

	// KindToolCall / KindToolResult
	ToolName   string         `json:"toolName,omitempty"`
	ToolArgs   map[string]any `json:"toolArgs,omitempty"`
	ToolOutput string         `json:"toolOutput,omitempty"`
	ToolOK     bool           `json:"toolOk,omitempty"`

	// KindApprovalRequired / KindApprovalResolved
	Approval *permission.Request `json:"approval,omitempty"`
	Decision permission.Decision `json:"decision,omitempty"`

	// KindWarning / KindError
	Message string `json:"message,omitempty"`

	// KindRunCompleted
	Result *Result `json:"result,omitempty"`
}

// Sink receives events as the run produces them. Callbacks run on the
// producer's task; a slow sink blocks the run (§5 "Backpressure").
type Sink func(Event)

// Input is the opaque run payload: plain text or a structured document.
// Exactly one of the two should be set; Structured wins when both are.
type Input struct {
	Text       string         `json:"text,omitempty"`
	Structured map[string]any `json:"structured,omitempty"`
}

// Status classifies how a run ended.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
	StatusDenied    Status = "denied"
	StatusTimedOut  Status = "timedOut"
)

// ToolTraceEntry is one tool invocation observed during the run.
type ToolTraceEntry struct {
	ToolName string         `json:"toolName"`
	Args     map[string]any `json:"args,omitempty"`
	Output   string         `json:"output,omitempty"`
	OK       bool           `json:"ok"`
}

// Result is the terminal record of a run.
type Result struct {
	Status      Status           `json:"status"`
	FinalOutput string           `json:"finalOutput,omitempty"`
	ToolTrace   []ToolTraceEntry `json:"toolTrace,omitempty"`
	Error       string           `json:"error,omitempty"`
}
