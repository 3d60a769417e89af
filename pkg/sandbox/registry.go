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

package sandbox

import (
	"context"
	"fmt"

	"github.com/kadirpekel/substrate/pkg/payload"
	"github.com/kadirpekel/substrate/pkg/router"
	"github.com/kadirpekel/substrate/pkg/tool"
)

// Handler adapts a loaded Component to router.Handler, wrapping every
// invocation's ToolResult into the standard ToolResponse envelope — the
// same contract every built-in tool satisfies, so the router and the
// agent loop never need to know a handler is sandboxed.
type Handler struct {
	comp *Component
}

// NewHandler wraps comp as a router.Handler.
func NewHandler(comp *Component) *Handler {
	return &Handler{comp: comp}
}

// Handle runs the extension and always produces a Reply outcome — tool
// execution failures are captured inside the ToolResponse envelope, never
// surfaced as a router-level error (§7: tool-domain errors are always
// delivered back to the LM).
func (h *Handler) Handle(ctx context.Context, p payload.Validated, hc router.HandlerContext) (router.Outcome, error) {
	envelope, err := h.comp.Handle(ctx, string(p.XML))
	if err != nil {
		return router.Outcome{}, fmt.Errorf("sandbox: %s: %w", hc.OwnName, err)
	}
	return router.Reply(envelope), nil
}

// Register wires a loaded Component's descriptor into reg and its handler
// into the router build under its own declared name and request tag — the
// registry generates the LM-visible tool definition automatically from
// the descriptor, exactly as it would for a built-in.
func Register(reg *tool.Registry, b *router.Builder, comp *Component) error {
	desc := comp.Metadata().Descriptor()
	if err := reg.Register(desc); err != nil {
		return fmt.Errorf("sandbox: register %q: %w", desc.Name, err)
	}

	b.Register(router.Registration{
		Name:    desc.Name,
		Schema:  requestSchema(desc),
		Handler: NewHandler(comp),
	})
	return nil
}

// requestSchema derives the incoming-payload schema for a sandboxed tool
// from its descriptor's InputSchema's "required" list — the router must
// validate a request against the extension's own declared shape before
// ever handing it to the guest, exactly as it does for built-ins.
// Strict=false: an extension's InputSchema is author-declared and may grow
// optional fields the router never needs to know about by name.
func requestSchema(desc tool.Descriptor) payload.Schema {
	fields := make(map[string]payload.FieldSchema)
	if required, ok := desc.InputSchema["required"].([]any); ok {
		for _, r := range required {
			if name, ok := r.(string); ok {
				fields[name] = payload.FieldSchema{Required: true, FieldType: payload.FieldString}
			}
		}
	}
	return payload.Schema{RootTag: desc.RequestTag, Fields: fields, Strict: false}
}
