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

package llm

import (
	"context"
	"fmt"
	"sync"
)

// Pool is a model-aliasing front for a Client: the rest of the substrate
// talks in aliases ("small", "medium", "large") or thread-configured model
// IDs, never raw Anthropic model strings.
//
// The inner client and default-model alias are guarded by a single mutex
// (§5 "single authenticated client wrapped in mutual exclusion; model
// alias→ID resolution is serialized with the HTTP call"). Rebuilding the
// client on credential change (RebuildClient) atomically swaps the inner
// handle — callers never observe a half-configured Pool.
type Pool struct {
	mu           sync.Mutex
	client       *Client
	defaultModel string
}

// NewPool builds a Pool around client, resolving defaultAlias once up front.
func NewPool(client *Client, defaultAlias string) *Pool {
	return &Pool{client: client, defaultModel: ResolveModel(defaultAlias)}
}

// DefaultModel returns the resolved default model ID.
func (p *Pool) DefaultModel() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.defaultModel
}

// SetDefaultModel changes the default at runtime (e.g. a `/model` command).
func (p *Pool) SetDefaultModel(alias string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.defaultModel = ResolveModel(alias)
}

// RebuildClient atomically swaps the inner *Client — used when credentials
// change (new API key, new base URL). It waits for an in-flight call to
// finish, since calls hold the mutex; every call after this returns uses
// the new one. No intermediate state is ever observable.
func (p *Pool) RebuildClient(client *Client) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.client = client
}

// CompleteMessages sends a full conversation with optional tool definitions
// and returns the raw response — the primary entry point for the agent
// loop, which needs tool_use blocks, stop_reason, and usage, not just text.
func (p *Pool) CompleteMessages(ctx context.Context, model string, messages []Message, maxTokens int, system string, tools []ToolDefinition) (*MessagesResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	resolved := p.defaultModel
	if model != "" {
		resolved = ResolveModel(model)
	}

	req := &MessagesRequest{
		Model:     resolved,
		MaxTokens: maxTokens,
		Messages:  messages,
		System:    system,
		Tools:     tools,
	}

	resp, err := p.client.Messages(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Complete satisfies pkg/translate.Completer: a single-shot, tool-free
// completion that returns only the concatenated text of the response. Used
// by the form filler, never by the primary agent loop.
func (p *Pool) Complete(ctx context.Context, model string, system string, userPrompt string, maxTokens int) (string, error) {
	resp, err := p.CompleteMessages(ctx, model, []Message{TextMessage("user", userPrompt)}, maxTokens, system, nil)
	if err != nil {
		return "", fmt.Errorf("llm: complete: %w", err)
	}
	return resp.Text(), nil
}
