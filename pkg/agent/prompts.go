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
	"fmt"
	"strings"

	"github.com/kadirpekel/substrate/pkg/tool"
)

// PromptRegistry is the named registry of system-prompt fragments §4.D
// composes from. Fragments are registered at startup (from the organism
// YAML's `prompts` section) and never mutated once the agent is serving.
type PromptRegistry struct {
	fragments map[string]string
	order     []string
}

// NewPromptRegistry returns an empty fragment registry.
func NewPromptRegistry() *PromptRegistry {
	return &PromptRegistry{fragments: make(map[string]string)}
}

// Add registers a labeled fragment. Re-adding an existing label overwrites
// it in place without disturbing its position in registration order.
func (r *PromptRegistry) Add(label, fragment string) *PromptRegistry {
	if _, exists := r.fragments[label]; !exists {
		r.order = append(r.order, label)
	}
	r.fragments[label] = fragment
	return r
}

// Compose builds the final system prompt from a spec string: either a
// single label or several labels joined by "&", each trimmed of
// whitespace, concatenated with a blank line between fragments. The
// literal token "{tool_definitions}" in any fragment is replaced by an
// auto-formatted tool list (`- **name**: description` per line, one
// "Available tools:" header); an empty tool set collapses the token to the
// empty string, dropping the header entirely. Unknown labels fail with a
// clear error naming the label.
func (r *PromptRegistry) Compose(spec string, tools []tool.NameDescription) (string, error) {
	labels := strings.Split(spec, "&")
	parts := make([]string, 0, len(labels))
	for _, raw := range labels {
		label := strings.TrimSpace(raw)
		frag, ok := r.fragments[label]
		if !ok {
			return "", fmt.Errorf("agent: unknown prompt fragment label %q", label)
		}
		parts = append(parts, frag)
	}
	return interpolateTools(strings.Join(parts, "\n\n"), tools), nil
}

// ComposeLegacy is the original's no-spec path (SUPPLEMENTED FEATURES #2):
// used when the caller has no label spec at all, it concatenates every
// registered fragment in registration order rather than a caller-chosen
// subset.
func (r *PromptRegistry) ComposeLegacy(tools []tool.NameDescription) string {
	parts := make([]string, 0, len(r.order))
	for _, label := range r.order {
		parts = append(parts, r.fragments[label])
	}
	return interpolateTools(strings.Join(parts, "\n\n"), tools)
}

func interpolateTools(composed string, tools []tool.NameDescription) string {
	return strings.ReplaceAll(composed, "{tool_definitions}", renderToolDefinitions(tools))
}

// renderToolDefinitions formats a tool list for interpolation into a
// system-prompt fragment — `- **name**: description` per line under an
// "Available tools:" header. An empty list renders as the empty string so
// a spec fragment ending in "{tool_definitions}" doesn't leave a dangling
// header when no tools are registered.
func renderToolDefinitions(tools []tool.NameDescription) string {
	if len(tools) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Available tools:\n")
	for _, t := range tools {
		fmt.Fprintf(&b, "- **%s**: %s\n", t.Name, t.Description)
	}
	return b.String()
}
