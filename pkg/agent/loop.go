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

package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kadirpekel/substrate/pkg/llm"
	"github.com/kadirpekel/substrate/pkg/payload"
	"github.com/kadirpekel/substrate/pkg/router"
	"github.com/kadirpekel/substrate/pkg/telemetry"
	"github.com/kadirpekel/substrate/pkg/tool"
	"github.com/kadirpekel/substrate/pkg/translate"
	"github.com/kadirpekel/substrate/pkg/xmlutil"
)

var tracer = telemetry.Tracer("github.com/kadirpekel/substrate/pkg/agent")

// Completer is the LM surface the agent loop drives — satisfied by
// pkg/llm.Pool. Kept narrow, mirroring pkg/translate.Completer, so tests
// can drive the loop against a fake without standing up an HTTP server.
type Completer interface {
	CompleteMessages(ctx context.Context, model string, messages []llm.Message, maxTokens int, system string, tools []llm.ToolDefinition) (*llm.MessagesResponse, error)
}

// Sender is the router surface the agent loop drives to dispatch a single
// tool call — satisfied by pkg/router.Router.
type Sender interface {
	Send(ctx context.Context, p payload.Payload) (router.Outcome, error)
}

// Option configures an Agent at construction time.
type Option func(*Agent)

// WithMaxTokens overrides the per-completion max_tokens budget (default 4096).
func WithMaxTokens(n int) Option {
	return func(a *Agent) { a.maxTokens = n }
}

// WithIterationCap sets the thread-wide LM↔tool cycle limit. Zero (the
// default) means unbounded, matching the source's observed behavior (§9
// Open Question: the source maintains an iteration counter but enforces no
// maximum) — callers that want a hard ceiling opt in explicitly.
func WithIterationCap(n int) Option {
	return func(a *Agent) { a.iterationCap = n }
}

// Agent drives the conversation: the per-thread state machine (§4.D) plus
// the LM pool and router it needs to actually execute a turn. It holds the
// composed system prompt and the tool definitions presented to the LM.
type Agent struct {
	pool   Completer
	router Sender
	tools  *tool.Registry
	system string

	maxTokens    int
	iterationCap int

	mu      sync.Mutex
	threads map[string]*Thread
}

// New builds an Agent. systemPrompt is the already-composed result of a
// PromptRegistry.Compose/ComposeLegacy call — composition happens once at
// startup wiring, not per turn.
func New(pool Completer, rt Sender, tools *tool.Registry, systemPrompt string, opts ...Option) *Agent {
	a := &Agent{
		pool:         pool,
		router:       rt,
		tools:        tools,
		system:       systemPrompt,
		maxTokens:    4096,
		iterationCap: 0,
		threads:      make(map[string]*Thread),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NewThreadID mints a fresh, unique thread identifier.
func NewThreadID() string { return uuid.NewString() }

// Thread returns the named thread, creating it (Ready, empty history) on
// first reference — "a thread is created once per conversation root".
func (a *Agent) Thread(id string) *Thread {
	a.mu.Lock()
	defer a.mu.Unlock()
	th, ok := a.threads[id]
	if !ok {
		th = NewThread(id)
		a.threads[id] = th
	}
	return th
}

// Prune removes a thread's in-memory state. No-op if the thread doesn't exist.
func (a *Agent) Prune(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.threads, id)
}

// Submit drives one full turn on the named thread: appends the user's
// task, then alternates LM invocations with sequential tool dispatch
// (§4.D) until the LM responds with zero ToolUse blocks, returning the
// final `<AgentResponse>` XML. Submit takes no per-thread lock: concurrent
// Submit calls on the same thread id race on that thread's history, so
// callers issue at most one at a time per thread (§5 assumes one
// in-flight task per thread).
func (a *Agent) Submit(ctx context.Context, threadID, task string) (string, error) {
	ctx, span := tracer.Start(ctx, "agent.Submit", trace.WithAttributes(
		attribute.String("substrate.thread_id", threadID),
	))
	defer span.End()

	th := a.Thread(threadID)
	th.AppendUserText(task)
	return a.drive(ctx, th)
}

func (a *Agent) drive(ctx context.Context, th *Thread) (string, error) {
	for {
		if a.iterationCap > 0 && th.Iteration >= a.iterationCap {
			return "", fmt.Errorf("agent: thread %s exceeded iteration cap (%d)", th.ID, a.iterationCap)
		}

		resp, err := a.pool.CompleteMessages(ctx, "", th.Messages, a.maxTokens, a.system, a.toolDefinitions())
		if err != nil {
			return "", fmt.Errorf("agent: llm invocation failed: %w", err)
		}

		th.AppendAssistant(resp.Content)

		if th.State == Ready {
			result := fmt.Sprintf("<AgentResponse><result>%s</result></AgentResponse>", xmlutil.Escape(resp.Text()))
			slog.Debug("agent: turn complete", "thread_id", th.ID, "iteration", th.Iteration)
			return result, nil
		}

		if err := a.dispatchPending(ctx, th); err != nil {
			return "", err
		}
		th.FlushToolResults()
	}
}

// dispatchPending drives the sequential-only tool dispatch rule: even
// though the LM may have emitted several ToolUse blocks, each is sent one
// at a time, in block order, and the next is never dispatched until the
// previous one's result has been collected.
func (a *Agent) dispatchPending(ctx context.Context, th *Thread) error {
	for {
		call, ok := th.CurrentToolCall()
		if !ok {
			return nil
		}

		tag := a.tools.XMLTagFor(call.Name)
		requestXML := translate.ToolCallToXMLWithTag(tag, call.Input)

		slog.Debug("agent: dispatching tool", "thread_id", th.ID, "tool", call.Name, "id", call.ID)

		outcome, err := a.router.Send(ctx, payload.Payload{
			ThreadID: th.ID,
			From:     "agent",
			To:       call.Name,
			XML:      []byte(requestXML),
			Tag:      tag,
		})

		var content string
		var isError bool
		switch {
		case err != nil:
			// Tool-domain and infrastructural router errors alike are
			// delivered back to the LM as a failed tool-result — the
			// agent never silently swallows an error (§7).
			content, isError = err.Error(), true
		case outcome.Kind == router.OutcomeReply:
			if verr := payload.Validate(outcome.ReplyXML, tool.ResponseSchema()); verr != nil {
				content, isError = verr.Error(), true
			} else {
				content, isError = translate.ResponseToResult(string(outcome.ReplyXML))
			}
		default:
			content, isError = fmt.Sprintf("tool %q produced no reply", call.Name), true
		}

		if resolved := th.ResolveToolResult(call.ID, content, isError); resolved {
			return nil
		}
	}
}

// toolDefinitions renders the registry's current descriptors as the LM
// tool list, sorted by name for deterministic prompt/tool-list output.
func (a *Agent) toolDefinitions() []llm.ToolDefinition {
	descs := a.tools.List()
	defs := make([]llm.ToolDefinition, 0, len(descs))
	for _, d := range descs {
		defs = append(defs, llm.ToolDefinition{Name: d.Name, Description: d.Description, InputSchema: d.InputSchema})
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}
