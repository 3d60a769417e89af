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

// Package builtin implements the built-in tool handlers named by §4.B:
// file-read, file-write, file-edit, glob, grep, command-exec, and
// codebase-index. Each is a router.Handler that consumes a validated XML
// request and replies with a tool.Ok/tool.Err ToolResponse envelope.
package builtin

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/kadirpekel/substrate/pkg/payload"
	"github.com/kadirpekel/substrate/pkg/router"
	"github.com/kadirpekel/substrate/pkg/tool"
	"github.com/kadirpekel/substrate/pkg/xmlutil"
)

const (
	defaultReadOffset    = 1
	defaultReadLimit     = 2000
	maxLineLength        = 2000
	binarySniffWindow    = 8192
)

// FileReadSchema describes the FileReadRequest payload shape.
func FileReadSchema() payload.Schema {
	return payload.Schema{
		RootTag: "FileReadRequest",
		Fields: map[string]payload.FieldSchema{
			"path": {Required: true, FieldType: payload.FieldString},
		},
		Strict: false,
	}
}

// FileRead reads file contents with 1-based line numbers, honoring an
// optional offset and limit, and rejects binary files outright.
func FileRead(_ context.Context, p payload.Validated, hc router.HandlerContext) (router.Outcome, error) {
	xml := string(p.XML)

	path, _ := xmlutil.ExtractTag(xml, "path")
	if path == "" {
		return router.Reply(tool.Err("missing required <path>")), nil
	}

	offset := defaultReadOffset
	if s, ok := xmlutil.ExtractTag(xml, "offset"); ok {
		if n, err := strconv.Atoi(s); err == nil {
			offset = n
		}
	}
	limit := defaultReadLimit
	if s, ok := xmlutil.ExtractTag(xml, "limit"); ok {
		if n, err := strconv.Atoi(s); err == nil {
			limit = n
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return router.Reply(tool.Err(fmt.Sprintf("file not found: %s", path))), nil
	}
	if info.IsDir() {
		return router.Reply(tool.Err(fmt.Sprintf("path is a directory: %s", path))), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return router.Reply(tool.Err(fmt.Sprintf("read error: %s", err))), nil
	}

	if isBinary(raw) {
		return router.Reply(tool.Err(fmt.Sprintf("binary file detected: %s (%d bytes)", path, len(raw)))), nil
	}

	lines := splitLines(string(raw))
	total := len(lines)

	start := offset - 1
	if start < 0 {
		start = 0
	}
	end := start + limit
	if end > total {
		end = total
	}
	if start > total {
		start = total
	}

	var out strings.Builder
	for i := start; i < end; i++ {
		line := lines[i]
		lineNum := i + 1
		if len(line) > maxLineLength {
			out.WriteString(fmt.Sprintf("%d| %s...\n", lineNum, line[:maxLineLength]))
		} else {
			out.WriteString(fmt.Sprintf("%d| %s\n", lineNum, line))
		}
	}
	if end < total {
		out.WriteString(fmt.Sprintf("\n... (%d more lines, %d total)", total-end, total))
	}

	return router.Reply(tool.Ok(out.String())), nil
}

// isBinary reports whether data looks binary: any NUL byte in the first
// 8KiB, the same heuristic common tools use for "is this text".
func isBinary(data []byte) bool {
	checkLen := len(data)
	if checkLen > binarySniffWindow {
		checkLen = binarySniffWindow
	}
	return bytes.IndexByte(data[:checkLen], 0) >= 0
}

// splitLines splits on "\n" without keeping the line terminator, mirroring
// Rust's str::lines(): a trailing newline does not produce a final empty
// element.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return []string{""}
	}
	return strings.Split(s, "\n")
}
