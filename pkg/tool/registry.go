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

package tool

import (
	"fmt"
	"sort"
	"sync"

	"github.com/kadirpekel/substrate/pkg/translate"
)

// Registry holds every registered tool's Descriptor, built-in or extension,
// and derives the canonical XML request tag for a name. Registered at
// startup and treated as frozen thereafter, the way the router's handler
// table is.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Descriptor
}

// NewRegistry returns an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Descriptor)}
}

// Register adds a tool descriptor. Re-registering an existing name is an
// error — tool identity must be unique.
func (r *Registry) Register(d Descriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if d.Name == "" {
		return fmt.Errorf("tool: name cannot be empty")
	}
	if _, exists := r.tools[d.Name]; exists {
		return fmt.Errorf("tool: %q already registered", d.Name)
	}

	if d.RequestTag == "" {
		d.RequestTag = translate.XMLTagForTool(d.Name)
	}
	if d.SemanticDescription == "" {
		d.SemanticDescription = d.Description
	}

	r.tools[d.Name] = d
	return nil
}

// Get returns a tool's descriptor by name.
func (r *Registry) Get(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.tools[name]
	return d, ok
}

// List returns every registered descriptor, in no particular order.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(r.tools))
	for _, d := range r.tools {
		out = append(out, d)
	}
	return out
}

// XMLTagFor returns the registered tag for name if known, otherwise the
// deterministic fallback — forward-compatible with names never registered.
func (r *Registry) XMLTagFor(name string) string {
	r.mu.RLock()
	d, ok := r.tools[name]
	r.mu.RUnlock()
	if ok {
		return d.RequestTag
	}
	return translate.XMLTagForTool(name)
}

// Definitions renders (name, description) pairs for system-prompt
// composition, sorted by name so the composed prompt is stable across runs
// — matching agent.toolDefinitions()'s sort of the LM-visible tool array.
func (r *Registry) Definitions() []NameDescription {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]NameDescription, 0, len(r.tools))
	for _, d := range r.tools {
		out = append(out, NameDescription{Name: d.Name, Description: d.Description})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// NameDescription is a (name, description) pair used for tool listings.
type NameDescription struct {
	Name        string
	Description string
}
