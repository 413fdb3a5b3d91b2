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

// Package session implements the AgentSession lifecycle: transcript,
// forking, persistence, and the turn loop that pipelines every tool
// invocation through the tool pipeline (§4.8).
package session

import (
	"sync"
	"time"
)

// EntryKind discriminates the variants of the SessionTranscript union
// type named in §3.
type EntryKind string

const (
	EntryUserPrompt      EntryKind = "user_prompt"
	EntryModelResponse   EntryKind = "model_response"
	EntryToolCall        EntryKind = "tool_call"
	EntrySubagentInvoked EntryKind = "subagent_invocation"
)

// Entry is one append-only transcript record. Every kind carries a
// Timestamp; the other fields are only meaningful for their EntryKind.
type Entry struct {
	Kind      EntryKind
	Timestamp time.Time

	// EntryUserPrompt / EntryModelResponse
	Text string

	// EntryToolCall
	ToolName   string
	ToolArgs   map[string]any
	ToolOutput string
	ToolOK     bool

	// EntrySubagentInvoked
	SubagentName   string
	SubagentPrompt string
	SubagentResult string
}

// Transcript is the ordered, append-only, concurrency-safe log of a
// session's turns.
type Transcript struct {
	mu      sync.Mutex
	entries []Entry
}

// Append adds e to the end of the transcript.
func (t *Transcript) Append(e Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, e)
}

// Entries returns a defensive copy of every entry recorded so far.
func (t *Transcript) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Clone deep-copies the transcript for use by Fork (§4.8, P4): mutations
// on the clone must never be visible on the original, and vice versa.
func (t *Transcript) Clone() *Transcript {
	t.mu.Lock()
	defer t.mu.Unlock()
	clone := &Transcript{entries: make([]Entry, len(t.entries))}
	copy(clone.entries, t.entries)
	return clone
}

func userPromptEntry(text string) Entry {
	return Entry{Kind: EntryUserPrompt, Timestamp: time.Now(), Text: text}
}

func modelResponseEntry(text string) Entry {
	return Entry{Kind: EntryModelResponse, Timestamp: time.Now(), Text: text}
}

func toolCallEntry(name string, args map[string]any, output string, ok bool) Entry {
	return Entry{
		Kind:       EntryToolCall,
		Timestamp:  time.Now(),
		ToolName:   name,
		ToolArgs:   args,
		ToolOutput: output,
		ToolOK:     ok,
	}
}

func subagentInvocationEntry(name, prompt, result string) Entry {
	return Entry{
		Kind:           EntrySubagentInvoked,
		Timestamp:      time.Now(),
		SubagentName:   name,
		SubagentPrompt: prompt,
		SubagentResult: result,
	}
}
