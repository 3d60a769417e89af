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

// Package llm is the Messages-API client the agent loop drives: wire types,
// an Anthropic-shaped HTTP client with retry/backoff, and a small pool that
// resolves model aliases before dispatch.
package llm

import "encoding/json"

// BlockKind discriminates a ContentBlock's variant. Content blocks are a
// sum type over text, tool_use, and tool_result — never a class hierarchy.
type BlockKind string

const (
	BlockText       BlockKind = "text"
	BlockToolUse    BlockKind = "tool_use"
	BlockToolResult BlockKind = "tool_result"
)

// ContentBlock is one block of a Message's content array. Only the fields
// relevant to Kind are populated; the rest are zero.
type ContentBlock struct {
	Kind BlockKind `json:"type"`

	// BlockText
	Text string `json:"text,omitempty"`

	// BlockToolUse
	ToolUseID string         `json:"id,omitempty"`
	ToolName  string         `json:"name,omitempty"`
	Input     map[string]any `json:"input,omitempty"`

	// BlockToolResult
	ToolResultID string `json:"tool_use_id,omitempty"`
	Content      string `json:"content,omitempty"`
	IsError      bool   `json:"is_error,omitempty"`
}

// TextBlock builds a text content block.
func TextBlock(text string) ContentBlock {
	return ContentBlock{Kind: BlockText, Text: text}
}

// ToolResultBlock builds a tool_result content block.
func ToolResultBlock(toolUseID, content string, isError bool) ContentBlock {
	return ContentBlock{Kind: BlockToolResult, ToolResultID: toolUseID, Content: content, IsError: isError}
}

// Message is one turn in the conversation sent to / returned from the
// Messages API.
type Message struct {
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
}

// TextMessage builds a single-text-block message for the given role.
func TextMessage(role, text string) Message {
	return Message{Role: role, Content: []ContentBlock{TextBlock(text)}}
}

// ToolDefinition is one tool's schema as presented to the model.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// MessagesRequest is the body of a POST /v1/messages call.
type MessagesRequest struct {
	Model       string           `json:"model"`
	MaxTokens   int              `json:"max_tokens"`
	Messages    []Message        `json:"messages"`
	System      string           `json:"system,omitempty"`
	Temperature *float64         `json:"temperature,omitempty"`
	Tools       []ToolDefinition `json:"tools,omitempty"`
}

// Usage reports token counts for a completion.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// MessagesResponse is the body of a successful /v1/messages response.
type MessagesResponse struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Role       string         `json:"role"`
	Content    []ContentBlock `json:"content"`
	Model      string         `json:"model"`
	StopReason string         `json:"stop_reason"`
	Usage      Usage          `json:"usage"`
}

// ToolUses returns every tool_use block in the response, in order.
func (r *MessagesResponse) ToolUses() []ContentBlock {
	var out []ContentBlock
	for _, b := range r.Content {
		if b.Kind == BlockToolUse {
			out = append(out, b)
		}
	}
	return out
}

// Text concatenates every text block in the response.
func (r *MessagesResponse) Text() string {
	var out string
	for _, b := range r.Content {
		if b.Kind == BlockText {
			out += b.Text
		}
	}
	return out
}

// errorBody matches the Anthropic API's JSON error envelope.
type errorBody struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func parseErrorBody(raw []byte) string {
	var e errorBody
	if json.Unmarshal(raw, &e) == nil && e.Error.Message != "" {
		return e.Error.Message
	}
	s := string(raw)
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

// modelAliases maps short aliases (as used throughout prompts, config, and
// the `small, small, medium` form-fill ladder) to full Anthropic model IDs.
var modelAliases = map[string]string{
	"small":  "claude-haiku-4-5",
	"medium": "claude-sonnet-4-6",
	"large":  "claude-opus-4-6",
}

// ResolveModel maps a short alias to a full model ID. Unknown aliases pass
// through unchanged — callers may already hold a full model ID.
func ResolveModel(alias string) string {
	if full, ok := modelAliases[alias]; ok {
		return full
	}
	return alias
}
