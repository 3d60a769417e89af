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

package builtin

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/kadirpekel/substrate/pkg/payload"
	"github.com/kadirpekel/substrate/pkg/router"
	"github.com/kadirpekel/substrate/pkg/tool"
	"github.com/kadirpekel/substrate/pkg/xmlutil"
)

const (
	maxCommandOutput     = 100 * 1024
	defaultExecTimeout   = 30 * time.Second
)

// DefaultAllowlist is the default set of allowed command executables.
var DefaultAllowlist = []string{
	"cargo", "rustc", "npm", "node", "python", "git", "pip", "make", "just", "rustup",
	"wasm-tools", "ls", "dir", "echo", "where", "which", "tree", "rg", "curl", "mkdir",
}

// CommandExecSchema describes the CommandExecRequest payload shape.
func CommandExecSchema() payload.Schema {
	return payload.Schema{
		RootTag: "CommandExecRequest",
		Fields: map[string]payload.FieldSchema{
			"command": {Required: true, FieldType: payload.FieldString},
		},
		Strict: false,
	}
}

// CommandExecTool executes allowlisted shell commands with a timeout and
// captures stdout/stderr. Non-zero exit is reported inside a success
// envelope; only a timeout or spawn failure produces a failure envelope.
type CommandExecTool struct {
	Allowlist []string
}

// NewCommandExecTool builds a CommandExecTool with the default allowlist.
func NewCommandExecTool() *CommandExecTool {
	return &CommandExecTool{Allowlist: append([]string(nil), DefaultAllowlist...)}
}

// NewCommandExecToolWithAllowlist builds a CommandExecTool restricted to
// the given allowlist.
func NewCommandExecToolWithAllowlist(allowlist []string) *CommandExecTool {
	return &CommandExecTool{Allowlist: allowlist}
}

// isAllowed reports whether command's first token, stripped of any path
// and (on Windows) ".exe" suffix, is in the allowlist.
func (c *CommandExecTool) isAllowed(command string) bool {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return false
	}
	exeName := filepath.Base(fields[0])
	for _, allowed := range c.Allowlist {
		if runtime.GOOS == "windows" {
			if strings.EqualFold(exeName, allowed) {
				return true
			}
			if trimmed := strings.TrimSuffix(exeName, ".exe"); strings.EqualFold(trimmed, allowed) {
				return true
			}
			continue
		}
		if exeName == allowed {
			return true
		}
	}
	return false
}

func truncateOutput(s string) string {
	if len(s) > maxCommandOutput {
		return s[:maxCommandOutput] + fmt.Sprintf("...\n(truncated at %d bytes)", maxCommandOutput)
	}
	return s
}

// Handle implements router.Handler.
func (c *CommandExecTool) Handle(ctx context.Context, p payload.Validated, hc router.HandlerContext) (router.Outcome, error) {
	xml := string(p.XML)

	command, _ := xmlutil.ExtractTag(xml, "command")
	if command == "" {
		return router.Reply(tool.Err("missing required <command>")), nil
	}

	if !c.isAllowed(command) {
		fields := strings.Fields(command)
		first := "(empty)"
		if len(fields) > 0 {
			first = fields[0]
		}
		return router.Reply(tool.Err(fmt.Sprintf(
			"command not allowed: %s. Allowed: %s", first, strings.Join(c.Allowlist, ", ")))), nil
	}

	timeout := defaultExecTimeout
	if s, ok := xmlutil.ExtractTag(xml, "timeout"); ok {
		if n, err := strconv.Atoi(s); err == nil {
			timeout = time.Duration(n) * time.Second
		}
	}
	workingDir, _ := xmlutil.ExtractTag(xml, "working_dir")

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	shell, shellFlag := "sh", "-c"
	if runtime.GOOS == "windows" {
		shell, shellFlag = "cmd", "/C"
	}

	cmd := exec.CommandContext(runCtx, shell, shellFlag, command)
	if workingDir != "" {
		cmd.Dir = workingDir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	if runCtx.Err() == context.DeadlineExceeded {
		return router.Reply(tool.Err(fmt.Sprintf("command timed out after %ds: %s", int(timeout.Seconds()), command))), nil
	}

	exitCode := 0
	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return router.Reply(tool.Err(fmt.Sprintf("execution error: %s", runErr))), nil
		}
	}

	response := fmt.Sprintf("exit_code: %d\nstdout:\n%s\nstderr:\n%s",
		exitCode, truncateOutput(stdout.String()), truncateOutput(stderr.String()))

	return router.Reply(tool.Ok(response)), nil
}
