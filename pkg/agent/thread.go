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

// Package agent is the Agent Loop & Thread State Machine (§4.D): it drives
// the LM↔tool cycle for a conversation, appending to an append-only message
// history and alternating LM invocations with sequential tool dispatch
// until the LM signals turn completion.
package agent

import (
	"errors"

	"github.com/kadirpekel/substrate/pkg/llm"
)

// State is a thread's position in the per-thread state machine.
type State int

const (
	// Ready accepts either a new user task or a (possibly stray) tool result.
	Ready State = iota
	// AwaitingTools means the last assistant message carries one or more
	// unresolved ToolUse blocks, dispatched one at a time.
	AwaitingTools
)

func (s State) String() string {
	if s == AwaitingTools {
		return "AwaitingTools"
	}
	return "Ready"
}

// PendingToolCall is an extracted ToolUse awaiting dispatch — transient,
// lives only while the thread is AwaitingTools.
type PendingToolCall struct {
	ID    string
	Name  string
	Input map[string]any
}

// ErrStrayToolResult is never returned — a stray result is silently
// ignored per the spec's transition table — but is exported so callers can
// distinguish "ignored" from a real failure if they choose to inspect why
// ResolveToolResult made no progress. Kept as a sentinel for symmetry with
// the rest of the package's error set even though nothing here returns it.
var ErrStrayToolResult = errors.New("agent: tool result does not match any pending call")

// Thread is a single conversation: its append-only message history, its
// position in the Ready/AwaitingTools state machine, and (while
// AwaitingTools) the pending tool calls from the most recent assistant
// turn plus the results collected for them so far.
//
// Invariant: State == AwaitingTools if and only if the last message is an
// assistant message containing at least one unresolved ToolUse block.
type Thread struct {
	ID        string
	Messages  []llm.Message
	State     State
	Iteration int

	pending   []PendingToolCall
	next      int
	collected []llm.ContentBlock
}

// NewThread returns an empty thread in the initial Ready state.
func NewThread(id string) *Thread {
	return &Thread{ID: id, State: Ready}
}

// AppendUserText appends a single-text-block user message — the entry
// point for a new task arriving on a Ready thread.
func (t *Thread) AppendUserText(text string) {
	t.Messages = append(t.Messages, llm.TextMessage("user", text))
}

// AppendAssistant appends the LM's response blocks verbatim — preserving
// any interleaved text alongside ToolUse blocks — to the append-only
// history, then drives the LM-response dispatch rule: zero ToolUse blocks
// leaves the thread Ready for the caller to extract the final text; one or
// more transitions to AwaitingTools with every tool-use pending, in block
// order, starting at index 0.
func (t *Thread) AppendAssistant(blocks []llm.ContentBlock) {
	t.Messages = append(t.Messages, llm.Message{Role: "assistant", Content: blocks})
	t.Iteration++

	var pending []PendingToolCall
	for _, b := range blocks {
		if b.Kind == llm.BlockToolUse {
			pending = append(pending, PendingToolCall{ID: b.ToolUseID, Name: b.ToolName, Input: b.Input})
		}
	}

	if len(pending) == 0 {
		t.State = Ready
		t.pending = nil
		t.collected = nil
		t.next = 0
		return
	}

	t.State = AwaitingTools
	t.pending = pending
	t.collected = make([]llm.ContentBlock, 0, len(pending))
	t.next = 0
}

// CurrentToolCall returns the pending tool call due for dispatch next.
// ok is false once every pending call for this turn already has a
// collected result, or the thread isn't AwaitingTools at all.
func (t *Thread) CurrentToolCall() (PendingToolCall, bool) {
	if t.State != AwaitingTools || t.next >= len(t.pending) {
		return PendingToolCall{}, false
	}
	return t.pending[t.next], true
}

// ResolveToolResult records the outcome of the current pending tool call.
//
// Per the spec's transition table: a ToolResult arriving while Ready (no
// pending call at all), or one whose id doesn't match the current pending
// call, is a stray result and is silently ignored — resolved is false and
// the thread is left exactly as it was. A matching result advances to the
// next pending call; resolved reports whether every pending call for this
// turn now has a collected result, meaning the caller should call
// FlushToolResults and invoke the LM again.
func (t *Thread) ResolveToolResult(id, content string, isError bool) (resolved bool) {
	current, ok := t.CurrentToolCall()
	if !ok || current.ID != id {
		return false
	}
	t.collected = append(t.collected, llm.ToolResultBlock(id, content, isError))
	t.next++
	return t.next >= len(t.pending)
}

// FlushToolResults appends every collected tool result as one user message
// — preserving pending order, so the ids collected are always a prefix of
// the pending calls' ids — and returns the thread to Ready, clearing the
// pending-call bookkeeping so the next AppendAssistant starts clean.
func (t *Thread) FlushToolResults() {
	t.Messages = append(t.Messages, llm.Message{Role: "user", Content: t.collected})
	t.State = Ready
	t.pending = nil
	t.collected = nil
	t.next = 0
}

// PendingCount reports how many tool calls from the current turn still
// lack a collected result. Zero outside AwaitingTools.
func (t *Thread) PendingCount() int {
	if t.State != AwaitingTools {
		return 0
	}
	return len(t.pending) - t.next
}
