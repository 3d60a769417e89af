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

// Command substrate is the CLI for the agent execution substrate.
//
// Usage:
//
//	substrate run --config organism.yaml --task "list the files in ./pkg"
//	substrate validate --config organism.yaml
//	substrate version
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/kadirpekel/substrate/pkg/agent"
	"github.com/kadirpekel/substrate/pkg/config"
	"github.com/kadirpekel/substrate/pkg/llm"
	"github.com/kadirpekel/substrate/pkg/logger"
	"github.com/kadirpekel/substrate/pkg/router"
	"github.com/kadirpekel/substrate/pkg/sandbox"
	"github.com/kadirpekel/substrate/pkg/tool"
	"github.com/kadirpekel/substrate/pkg/tool/builtin"
)

// CLI defines the command-line interface.
type CLI struct {
	Version  VersionCmd  `cmd:"" help:"Show version information."`
	Run      RunCmd      `cmd:"" help:"Submit one task to a fresh thread and print the agent's response."`
	Validate ValidateCmd `cmd:"" help:"Validate an organism configuration file."`

	Config   string `short:"c" help:"Path to organism YAML." type:"path" default:"organism.yaml"`
	LogLevel string `help:"Log level (debug, info, warn, error)." default:"info"`
}

// VersionCmd prints the build version.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			version = info.Main.Version
		}
	}
	fmt.Printf("substrate version %s\n", version)
	return nil
}

// ValidateCmd loads and validates the organism config without building a
// pipeline — a fast way to catch a typo'd handler or model entry.
type ValidateCmd struct{}

func (c *ValidateCmd) Run(cli *CLI) error {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return err
	}
	fmt.Printf("ok: %d handler(s), %d model(s), %d prompt fragment(s)\n",
		len(cfg.Handlers), len(cfg.Models), len(cfg.Prompts))
	return nil
}

// RunCmd wires a complete pipeline from the organism config and submits a
// single task to a fresh thread.
type RunCmd struct {
	Task       string `help:"The task text to submit." required:""`
	ThreadID   string `help:"Thread id to submit on (default: a fresh random thread)."`
	Model      string `help:"Model alias to use for this run (default: the organism's default model)." default:"default"`
	Prompt     string `help:"'&'-joined system-prompt fragment labels to compose (default: every registered fragment; the YAML's fragment order is not preserved)."`
	MaxWorkers int    `help:"Scheduler worker cap; not used by run, which submits a single task." default:"4"`
}

func (c *RunCmd) Run(cli *CLI) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("shutting down")
		cancel()
	}()

	logger.SetDefault(logger.New(os.Stderr, logger.ParseLevel(cli.LogLevel)))

	cfg, err := config.Load(cli.Config)
	if err != nil {
		return fmt.Errorf("substrate: %w", err)
	}

	engine, err := sandbox.NewEngine(ctx, sandbox.NewSlogAdapter(slog.Default(), "sandbox"))
	if err != nil {
		return fmt.Errorf("substrate: %w", err)
	}
	defer engine.Close(ctx)

	registry := tool.NewRegistry()
	builder := router.NewBuilder()

	if err := builtin.Register(registry, builder); err != nil {
		return fmt.Errorf("substrate: register built-ins: %w", err)
	}

	var components []*sandbox.Component
	for _, h := range cfg.Handlers {
		if !h.IsExtension() {
			continue
		}
		wasmBytes, err := os.ReadFile(h.WASMPath)
		if err != nil {
			return fmt.Errorf("substrate: read extension %q: %w", h.Name, err)
		}
		comp, err := sandbox.Load(ctx, engine, h.Name, wasmBytes, h.Capability.Grant())
		if err != nil {
			return fmt.Errorf("substrate: load extension %q: %w", h.Name, err)
		}
		components = append(components, comp)
		if err := sandbox.Register(registry, builder, comp); err != nil {
			return fmt.Errorf("substrate: register extension %q: %w", h.Name, err)
		}
	}
	defer func() {
		for _, comp := range components {
			_ = comp.Close(ctx)
		}
	}()

	rt := builder.Build()

	model, ok := cfg.Models[c.Model]
	if !ok {
		return fmt.Errorf("substrate: unknown model alias %q", c.Model)
	}
	apiKey := os.Getenv(model.APIKeyEnv)
	if apiKey == "" {
		return fmt.Errorf("substrate: environment variable %q is not set", model.APIKeyEnv)
	}
	var clientOpts []llm.ClientOption
	if model.BaseURL != "" {
		clientOpts = append(clientOpts, llm.WithBaseURL(model.BaseURL))
	}
	client := llm.NewClient(apiKey, clientOpts...)
	pool := llm.NewPool(client, model.ModelID)

	prompts := agent.NewPromptRegistry()
	for label, frag := range cfg.Prompts {
		prompts.Add(label, frag)
	}

	var system string
	if c.Prompt != "" {
		system, err = prompts.Compose(c.Prompt, registry.Definitions())
		if err != nil {
			return fmt.Errorf("substrate: %w", err)
		}
	} else {
		system = prompts.ComposeLegacy(registry.Definitions())
	}

	a := agent.New(pool, rt, registry, system)

	threadID := c.ThreadID
	if threadID == "" {
		threadID = agent.NewThreadID()
	}

	result, err := a.Submit(ctx, threadID, c.Task)
	if err != nil {
		return fmt.Errorf("substrate: %w", err)
	}

	fmt.Println(result)
	return nil
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("substrate"),
		kong.Description("Agent execution substrate: payload routing, tool contracts, sandboxed extensions, and the agent loop."),
		kong.UsageOnError(),
	)
	if err := ctx.Run(&cli); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
