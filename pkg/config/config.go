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

// Package config loads the organism YAML (§6): named prompt fragments,
// named handlers with their payload root tags and peer lists, per-handler
// capability grants for extensions, and the model catalog. Load-time
// parsed and frozen — nothing in this package mutates a *Config once
// Load returns it.
package config

import (
	"fmt"

	"github.com/kadirpekel/substrate/pkg/tool"
)

// FSGrantConfig is the YAML shape of one filesystem capability grant.
type FSGrantConfig struct {
	HostPath  string `yaml:"host_path"`
	GuestPath string `yaml:"guest_path"`
	ReadOnly  bool   `yaml:"read_only"`
}

// CapabilityConfig is the YAML shape of a handler's capability grant —
// present only for sandboxed (extension) handlers. The zero value is the
// spec's default grant: no filesystem, no environment, no stdio.
type CapabilityConfig struct {
	Filesystem []FSGrantConfig   `yaml:"filesystem"`
	Env        map[string]string `yaml:"env"`
	Stdio      bool              `yaml:"stdio"`
}

// Grant converts the YAML capability shape into the tool package's runtime
// data model, consumed by pkg/sandbox when loading an extension.
func (c CapabilityConfig) Grant() tool.CapabilityGrant {
	grant := tool.CapabilityGrant{Env: c.Env, Stdio: c.Stdio}
	for _, fs := range c.Filesystem {
		grant.Filesystem = append(grant.Filesystem, tool.FSGrant{
			HostPath:  fs.HostPath,
			GuestPath: fs.GuestPath,
			ReadOnly:  fs.ReadOnly,
		})
	}
	return grant
}

// HandlerConfig declares one named handler: its peer list (who it may
// Send to) and, if it names a wasm_path, the extension bytes to load plus
// the capability grant to build its guest context from.
type HandlerConfig struct {
	Name       string           `yaml:"name"`
	Peers      []string         `yaml:"peers"`
	WASMPath   string           `yaml:"wasm_path"`
	Capability CapabilityConfig `yaml:"capability"`
}

// IsExtension reports whether this handler names a WASM component to load,
// as opposed to a built-in tool wired in by name alone.
func (h HandlerConfig) IsExtension() bool { return h.WASMPath != "" }

// ModelConfig declares one model-catalog entry: alias → {provider,
// model_id, api_key_env, base_url}.
type ModelConfig struct {
	Provider  string `yaml:"provider"`
	ModelID   string `yaml:"model_id"`
	APIKeyEnv string `yaml:"api_key_env"`
	BaseURL   string `yaml:"base_url"`
}

// Config is the fully parsed, validated organism configuration.
type Config struct {
	Prompts  map[string]string      `yaml:"prompts"`
	Handlers []HandlerConfig        `yaml:"handlers"`
	Models   map[string]ModelConfig `yaml:"models"`
}

// Validate checks structural invariants the loader can't express as a
// plain unmarshal: handler names non-empty and unique, every model alias
// naming a concrete model_id.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Handlers))
	for _, h := range c.Handlers {
		if h.Name == "" {
			return fmt.Errorf("config: a handler entry has an empty name")
		}
		if seen[h.Name] {
			return fmt.Errorf("config: duplicate handler name %q", h.Name)
		}
		seen[h.Name] = true
	}
	for alias, m := range c.Models {
		if m.ModelID == "" {
			return fmt.Errorf("config: model alias %q is missing model_id", alias)
		}
	}
	return nil
}

// HandlerNames returns every declared handler's name, in declaration order.
func (c *Config) HandlerNames() []string {
	names := make([]string, len(c.Handlers))
	for i, h := range c.Handlers {
		names[i] = h.Name
	}
	return names
}
