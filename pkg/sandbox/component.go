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
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/kadirpekel/substrate/pkg/tool"
)

// ToolMetadata mirrors the extension's self-description (§4.C): name, two
// description strings (human-facing and LM-facing semantic description),
// request tag, XML request/response schemas, and an input JSON schema.
type ToolMetadata struct {
	Name                string         `json:"name"`
	Description         string         `json:"description"`
	SemanticDescription string         `json:"semantic_description"`
	RequestTag          string         `json:"request_tag"`
	RequestSchema       string         `json:"request_schema"`
	ResponseSchema      string         `json:"response_schema"`
	InputSchema         map[string]any `json:"input_schema"`
}

// Descriptor converts a component's cached metadata into a tool.Descriptor
// — the shape the registry and translation layer deal in, so the rest of
// the pipeline never needs to know a tool is sandboxed.
func (m ToolMetadata) Descriptor() tool.Descriptor {
	return tool.Descriptor{
		Name:                m.Name,
		Description:         m.Description,
		SemanticDescription: m.SemanticDescription,
		RequestTag:          m.RequestTag,
		RequestSchema:       m.RequestSchema,
		ResponseSchema:      m.ResponseSchema,
		InputSchema:         m.InputSchema,
	}
}

// guestResult is the JSON shape a component's handle() export returns —
// the ToolResult{success, payload} record from §4.C, decoded from the
// packed (ptr,len) the export hands back.
type guestResult struct {
	Success bool   `json:"success"`
	Payload string `json:"payload"`
}

// Component is one loaded extension: the compiled module (expensive,
// built once) plus its cached metadata and capability grant. Immutable
// after Load — every Handle call gets a fresh store and guest context, so
// no guest state survives between calls.
type Component struct {
	name     string
	engine   *Engine
	compiled wazero.CompiledModule
	metadata ToolMetadata
	grant    tool.CapabilityGrant
}

// Load compiles wasmBytes once, builds a minimal capability-free instance
// to call get_metadata (introspection happens exactly once per component,
// cached alongside the compiled artifact), and validates that grant's
// filesystem host paths exist — failing fast at load time rather than at
// the extension's first access attempt.
func Load(ctx context.Context, engine *Engine, name string, wasmBytes []byte, grant tool.CapabilityGrant) (*Component, error) {
	compiled, err := engine.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, fmt.Errorf("sandbox: compile %q: %w", name, err)
	}

	metadata, err := introspect(ctx, engine, compiled, name)
	if err != nil {
		_ = compiled.Close(ctx)
		return nil, fmt.Errorf("sandbox: introspect %q: %w", name, err)
	}

	if err := validateGrantHostPaths(grant); err != nil {
		_ = compiled.Close(ctx)
		return nil, fmt.Errorf("sandbox: %q capability grant: %w", name, err)
	}

	engine.log.Debug("extension loaded", "name", name, "request_tag", metadata.RequestTag)

	return &Component{name: name, engine: engine, compiled: compiled, metadata: metadata, grant: grant}, nil
}

// Metadata returns the component's cached introspection result.
func (c *Component) Metadata() ToolMetadata { return c.metadata }

// Close releases the compiled module.
func (c *Component) Close(ctx context.Context) error {
	return c.compiled.Close(ctx)
}

// Handle runs one invocation of the extension's handle() export against a
// freshly instantiated, capability-gated guest — built from c.grant, never
// from the capability-free introspection instance. The store and guest
// context are scoped to this single call; nothing survives it.
func (c *Component) Handle(ctx context.Context, requestXML string) ([]byte, error) {
	cfg, err := moduleConfig(c.grant)
	if err != nil {
		return tool.Err(err.Error()), nil
	}
	cfg = cfg.WithName(c.name + "-" + uuid.NewString())

	mod, err := c.engine.runtime.InstantiateModule(ctx, c.compiled, cfg)
	if err != nil {
		return tool.Err(fmt.Sprintf("instantiate: %v", err)), nil
	}
	defer mod.Close(ctx)

	ptr, err := writeGuestBytes(ctx, mod, []byte(requestXML))
	if err != nil {
		return tool.Err(err.Error()), nil
	}

	fn := mod.ExportedFunction("handle")
	if fn == nil {
		return tool.Err(`extension missing required export "handle"`), nil
	}

	results, err := fn.Call(ctx, packPtrLen(ptr, uint32(len(requestXML))))
	if err != nil {
		return tool.Err(fmt.Sprintf("guest trapped: %v", err)), nil
	}
	if len(results) != 1 {
		return tool.Err(`"handle" must return exactly one packed (ptr,len) value`), nil
	}

	raw, err := readPacked(mod, results[0])
	if err != nil {
		return tool.Err(err.Error()), nil
	}

	var out guestResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return tool.Err(fmt.Sprintf("malformed handle() result: %v", err)), nil
	}
	if out.Success {
		return tool.Ok(out.Payload), nil
	}
	return tool.Err(out.Payload), nil
}

// introspect instantiates a capability-free copy of compiled — no
// filesystem, no env, no stdio, per the default-deny grant — solely to
// call get_metadata().
func introspect(ctx context.Context, engine *Engine, compiled wazero.CompiledModule, name string) (ToolMetadata, error) {
	cfg, err := moduleConfig(tool.CapabilityGrant{})
	if err != nil {
		return ToolMetadata{}, err
	}
	cfg = cfg.WithName(name + "-introspect-" + uuid.NewString())

	mod, err := engine.runtime.InstantiateModule(ctx, compiled, cfg)
	if err != nil {
		return ToolMetadata{}, fmt.Errorf("instantiate for introspection: %w", err)
	}
	defer mod.Close(ctx)

	fn := mod.ExportedFunction("get_metadata")
	if fn == nil {
		return ToolMetadata{}, fmt.Errorf(`missing required export "get_metadata"`)
	}
	results, err := fn.Call(ctx)
	if err != nil {
		return ToolMetadata{}, fmt.Errorf("get_metadata call: %w", err)
	}
	if len(results) != 1 {
		return ToolMetadata{}, fmt.Errorf(`"get_metadata" must return exactly one packed (ptr,len) value`)
	}

	raw, err := readPacked(mod, results[0])
	if err != nil {
		return ToolMetadata{}, err
	}

	var m ToolMetadata
	if err := json.Unmarshal(raw, &m); err != nil {
		return ToolMetadata{}, fmt.Errorf("malformed metadata JSON: %w", err)
	}
	if m.Name == "" {
		return ToolMetadata{}, fmt.Errorf("metadata field %q missing", "name")
	}
	if m.RequestTag == "" {
		return ToolMetadata{}, fmt.Errorf("metadata field %q missing", "request_tag")
	}
	return m, nil
}

// validateGrantHostPaths fails fast (at Load, not at first access) when a
// filesystem capability grant names a host path that doesn't exist.
func validateGrantHostPaths(grant tool.CapabilityGrant) error {
	for _, fs := range grant.Filesystem {
		if _, err := os.Stat(fs.HostPath); err != nil {
			return fmt.Errorf("host path %q does not exist", fs.HostPath)
		}
	}
	return nil
}

// moduleConfig builds the guest's ModuleConfig from a capability grant:
// read-only / read-write filesystem mounts, individually-added env vars,
// and a single stdio-inheritance toggle. No capability is ever implicitly
// granted — an empty grant produces a ModuleConfig with no FS mounts, no
// env, and discarded stdio.
func moduleConfig(grant tool.CapabilityGrant) (wazero.ModuleConfig, error) {
	cfg := wazero.NewModuleConfig()

	fsConfig := wazero.NewFSConfig()
	for _, fs := range grant.Filesystem {
		if _, err := os.Stat(fs.HostPath); err != nil {
			return nil, fmt.Errorf("host path %q does not exist", fs.HostPath)
		}
		if fs.ReadOnly {
			fsConfig = fsConfig.WithReadOnlyDirMount(fs.HostPath, fs.GuestPath)
		} else {
			fsConfig = fsConfig.WithDirMount(fs.HostPath, fs.GuestPath)
		}
	}
	cfg = cfg.WithFSConfig(fsConfig)

	for k, v := range grant.Env {
		cfg = cfg.WithEnv(k, v)
	}

	if grant.Stdio {
		cfg = cfg.WithStdin(os.Stdin).WithStdout(os.Stdout).WithStderr(os.Stderr)
	}

	return cfg, nil
}

// writeGuestBytes asks the guest to allocate size bytes (via its exported
// "alloc" function) and copies data into the returned region.
func writeGuestBytes(ctx context.Context, mod api.Module, data []byte) (uint32, error) {
	alloc := mod.ExportedFunction("alloc")
	if alloc == nil {
		return 0, fmt.Errorf(`extension missing required export "alloc"`)
	}
	results, err := alloc.Call(ctx, uint64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("alloc call: %w", err)
	}
	ptr := uint32(results[0])
	if !mod.Memory().Write(ptr, data) {
		return 0, fmt.Errorf("out-of-bounds guest memory write (ptr=%d len=%d)", ptr, len(data))
	}
	return ptr, nil
}

// packPtrLen packs a (ptr,len) pair into a single uint64 — the high 32
// bits hold ptr, the low 32 bits hold len, matching the ABI guest modules
// in this pack export for get_metadata/handle's return values.
func packPtrLen(ptr, length uint32) uint64 {
	return uint64(ptr)<<32 | uint64(length)
}

// readPacked reads a packed (ptr,len) uint64 back out of the guest's
// linear memory.
func readPacked(mod api.Module, packed uint64) ([]byte, error) {
	ptr := uint32(packed >> 32)
	size := uint32(packed)
	buf, ok := mod.Memory().Read(ptr, size)
	if !ok {
		return nil, fmt.Errorf("out-of-bounds guest memory read (ptr=%d size=%d)", ptr, size)
	}
	out := make([]byte, len(buf))
	copy(out, buf)
	return out, nil
}
