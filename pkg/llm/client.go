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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultBaseURL    = "https://api.anthropic.com"
	defaultAPIVersion = "2023-06-01"
)

// Error is returned for any failure talking to the Messages API.
type Error struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("llm: %s", e.Message)
	}
	return fmt.Sprintf("llm: API error (status %d): %s", e.StatusCode, e.Message)
}

// Client is a raw HTTP client for the Anthropic Messages API. It has no
// knowledge of threads, tools, or model aliasing — callers build a
// MessagesRequest and get back a MessagesResponse.
type Client struct {
	transport  *retryingTransport
	apiKey     string
	baseURL    string
	apiVersion string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL points the client at a non-default endpoint (test doubles,
// self-hosted gateways).
func WithBaseURL(url string) ClientOption {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient swaps the underlying *http.Client (custom timeouts, TLS
// transport, proxy configuration).
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.transport = newRetryingTransport(hc) }
}

// NewClient builds a Client authenticated with apiKey against the default
// Anthropic endpoint.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		transport:  newRetryingTransport(&http.Client{Timeout: 120 * time.Second}),
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		apiVersion: defaultAPIVersion,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Messages sends one completion request, retrying transient failures per
// the strategy table in retry.go.
func (c *Client) Messages(ctx context.Context, req *MessagesRequest) (*MessagesResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("llm: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("llm: build request: %w", err)
	}
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", c.apiVersion)
	httpReq.Header.Set("content-type", "application/json")

	resp, err := c.transport.do(httpReq)
	if err != nil {
		var re *RetryableError
		if asRetryable(err, &re) {
			return nil, &Error{StatusCode: re.StatusCode, Message: re.Error()}
		}
		return nil, fmt.Errorf("llm: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("llm: read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		info := parseRateLimitHeaders(resp.Header)
		return nil, &Error{StatusCode: resp.StatusCode, Message: "rate limited", RetryAfter: info.RetryAfter}
	}
	if resp.StatusCode >= 400 {
		return nil, &Error{StatusCode: resp.StatusCode, Message: parseErrorBody(raw)}
	}

	var out MessagesResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("llm: invalid response: %w", err)
	}
	return &out, nil
}

func asRetryable(err error, target **RetryableError) bool {
	re, ok := err.(*RetryableError)
	if ok {
		*target = re
	}
	return ok
}
