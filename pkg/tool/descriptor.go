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

// Package tool defines the Tool Contract & Registry (§4.B): the shared
// shape every built-in or sandboxed tool declares itself with, the
// ToolResponse envelope every tool returns, and the registry that derives
// XML request tags and dispatches invocations.
package tool

// Descriptor is a tool's self-description: enough for the registry to
// generate an LM-visible tool definition and a human-readable listing
// without the caller knowing whether the tool is built-in or an extension.
type Descriptor struct {
	// Name is the canonical kebab-case tool name, e.g. "file-read".
	Name string

	// Description is a one-line human-readable summary.
	Description string

	// SemanticDescription is a fuller, LM-facing description used for
	// semantic form-filling prompts. Falls back to Description when empty.
	SemanticDescription string

	// InputSchema is a JSON-Schema-shaped object: {"type":"object",
	// "properties": {...}, "required": [...]}.
	InputSchema map[string]any

	// RequestTag is the canonical XML request tag name. Built-in tools get
	// this from the fixed name→tag map; extensions declare their own.
	RequestTag string

	// RequestSchema and ResponseSchema are human-readable XML schema
	// strings, carried for self-documentation the way the original's
	// ToolPeer trait exposes request_schema()/response_schema(). Sandboxed
	// extensions fill them from their metadata; built-in tools leave them
	// empty.
	RequestSchema  string
	ResponseSchema string
}

// XMLTemplate renders an empty-bodied XML template from the descriptor's
// InputSchema properties — used by the form filler to show the LM which
// tags it is allowed to fill.
func (d Descriptor) XMLTemplate() string {
	props, _ := d.InputSchema["properties"].(map[string]any)
	tmpl := "<" + d.RequestTag + ">"
	for name := range props {
		tmpl += "<" + name + "/>"
	}
	tmpl += "</" + d.RequestTag + ">"
	return tmpl
}

// FSGrant is one filesystem capability grant for a sandboxed tool.
type FSGrant struct {
	HostPath  string
	GuestPath string
	ReadOnly  bool
}

// CapabilityGrant is, for sandboxed tools only, the explicit and minimal
// set of host resources exposed to the guest. The zero value is the
// default: no filesystem, no environment, no stdio.
type CapabilityGrant struct {
	Filesystem []FSGrant
	Env        map[string]string
	Stdio      bool
}
