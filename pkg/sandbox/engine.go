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

// Package sandbox is the Sandboxed Extension Runtime (§4.C): it loads,
// introspects, and executes capability-gated WASM tool components. Each
// instance's capability grant decides which filesystem mounts, environment
// variables and stdio its WASI configuration exposes; an empty grant
// exposes none of them. The WASI preview1 host module itself is
// instantiated once per engine and is linked for every guest, whatever
// its grant.
package sandbox

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// Engine is the process-wide compilation engine (§4.C step 1): constructed
// once, with a shared compilation cache, and reused to compile every
// extension the registry loads.
type Engine struct {
	runtime wazero.Runtime
	log     hclog.Logger
}

// NewEngine constructs a compilation engine configured for the component
// model and instantiates the WASI preview1 host module every extension's
// guest imports need for basic I/O primitives (gated per-call by the
// capability grant's ModuleConfig, never by a blanket WASI instantiation
// that leaks host access). log receives the engine's own debug lines
// (engine initialization, extension loads); it is not handed to wazero,
// so wazero's internal diagnostics do not reach it. SlogAdapter bridges
// it into the substrate's slog sink.
func NewEngine(ctx context.Context, log hclog.Logger) (*Engine, error) {
	if log == nil {
		log = hclog.NewNullLogger()
	}

	cfg := wazero.NewRuntimeConfig().WithCompilationCache(wazero.NewCompilationCache())
	rt := wazero.NewRuntimeWithConfig(ctx, cfg)

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("sandbox: instantiate WASI preview1: %w", err)
	}

	log.Debug("sandbox engine initialized")
	return &Engine{runtime: rt, log: log}, nil
}

// Close releases every compiled module and host resource the engine holds.
// Call once, at pipeline shutdown.
func (e *Engine) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}
