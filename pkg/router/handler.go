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

// Package router is the Payload Router: it delivers typed XML payloads
// between named handlers, validating each against its registered schema
// before dispatch and enforcing strict per-thread FIFO ordering.
package router

import (
	"context"

	"github.com/kadirpekel/substrate/pkg/payload"
)

// HandlerContext is passed to a Handler alongside its validated payload.
type HandlerContext struct {
	ThreadID string
	From     string
	OwnName  string
}

// Outcome is the tagged result of handling one payload — a sum type over
// the three dispatch outcomes a Handler may produce. Implementers must not
// model this as an interface hierarchy; switch on Kind.
type Outcome struct {
	Kind OutcomeKind

	// ReplyXML is set when Kind == OutcomeReply: routed back to From.
	ReplyXML []byte

	// SendTo / SendXML are set when Kind == OutcomeSend: routed to a named peer.
	SendTo  string
	SendXML []byte
}

// OutcomeKind discriminates the three handler outcomes.
type OutcomeKind int

const (
	// OutcomeReply routes the payload back to the sender within the same thread.
	OutcomeReply OutcomeKind = iota
	// OutcomeSend routes the payload to a different named peer.
	OutcomeSend
	// OutcomeNone is terminal — no further routing for this dispatch.
	OutcomeNone
)

// Reply builds a Reply outcome, routed back to the sender.
func Reply(xml []byte) Outcome { return Outcome{Kind: OutcomeReply, ReplyXML: xml} }

// Send builds a Send outcome addressed to a named peer.
func Send(to string, xml []byte) Outcome { return Outcome{Kind: OutcomeSend, SendTo: to, SendXML: xml} }

// None builds the terminal no-output outcome.
func None() Outcome { return Outcome{Kind: OutcomeNone} }

// Handler processes one validated payload at a time for a given thread.
type Handler interface {
	Handle(ctx context.Context, p payload.Validated, hc HandlerContext) (Outcome, error)
}

// HandlerFunc adapts a plain function to a Handler.
type HandlerFunc func(ctx context.Context, p payload.Validated, hc HandlerContext) (Outcome, error)

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, p payload.Validated, hc HandlerContext) (Outcome, error) {
	return f(ctx, p, hc)
}

// Registration binds a Handler to a name and the schema its payloads must
// satisfy before it is ever invoked.
type Registration struct {
	Name    string
	Schema  payload.Schema
	Handler Handler
}
