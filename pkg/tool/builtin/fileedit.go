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
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/kadirpekel/substrate/pkg/payload"
	"github.com/kadirpekel/substrate/pkg/router"
	"github.com/kadirpekel/substrate/pkg/tool"
	"github.com/kadirpekel/substrate/pkg/xmlutil"
)

// FileEditSchema describes the FileEditRequest payload shape.
func FileEditSchema() payload.Schema {
	return payload.Schema{
		RootTag: "FileEditRequest",
		Fields: map[string]payload.FieldSchema{
			"path":       {Required: true, FieldType: payload.FieldString},
			"old_string": {Required: true, FieldType: payload.FieldString},
		},
		Strict: false,
	}
}

// FileEdit performs a surgical old_string→new_string replacement: exactly
// one occurrence is required, and the result is reported as a full unified
// diff over every line of the file.
func FileEdit(_ context.Context, p payload.Validated, hc router.HandlerContext) (router.Outcome, error) {
	xml := string(p.XML)

	path, _ := xmlutil.ExtractTag(xml, "path")
	if path == "" {
		return router.Reply(tool.Err("missing required <path>")), nil
	}
	oldString, _ := xmlutil.ExtractTag(xml, "old_string")
	if oldString == "" {
		return router.Reply(tool.Err("missing required <old_string>")), nil
	}
	newString, _ := xmlutil.ExtractTag(xml, "new_string")

	if _, err := os.Stat(path); err != nil {
		return router.Reply(tool.Err(fmt.Sprintf("file not found: %s", path))), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return router.Reply(tool.Err(fmt.Sprintf("read error: %s", err))), nil
	}
	content := string(raw)

	count := strings.Count(content, oldString)
	if count == 0 {
		return router.Reply(tool.Err("old_string not found in file")), nil
	}
	if count > 1 {
		lineNumbers := matchLineNumbers(content, oldString)
		return router.Reply(tool.Err(fmt.Sprintf(
			"old_string has %d matches (must be unique). Found at lines: %v", count, lineNumbers))), nil
	}

	newContent := strings.Replace(content, oldString, newString, 1)

	if err := os.WriteFile(path, []byte(newContent), newFilePerm); err != nil {
		return router.Reply(tool.Err(fmt.Sprintf("write error: %s", err))), nil
	}

	diffText, err := fullLineDiff(content, newContent)
	if err != nil {
		return router.Reply(tool.Err(fmt.Sprintf("diff error: %s", err))), nil
	}

	return router.Reply(tool.Ok(diffText)), nil
}

// matchLineNumbers returns the 1-based line number of every occurrence of
// needle in haystack.
func matchLineNumbers(haystack, needle string) []int {
	var lines []int
	searchStart := 0
	for {
		idx := strings.Index(haystack[searchStart:], needle)
		if idx < 0 {
			break
		}
		abs := searchStart + idx
		lineNum := strings.Count(haystack[:abs], "\n") + 1
		lines = append(lines, lineNum)
		searchStart = abs + 1
	}
	return lines
}

// fullLineDiff renders every line of before/after with a unified sign
// prefix ("-", "+", " ") — unlike difflib.GetUnifiedDiffString, it never
// collapses unchanged regions into a hunk with limited context, matching
// the file-edit tool's full-file diff contract.
func fullLineDiff(before, after string) (string, error) {
	a := splitLinesKeepEnds(before)
	b := splitLinesKeepEnds(after)

	matcher := difflib.NewMatcher(a, b)
	var out strings.Builder
	for _, op := range matcher.GetOpCodes() {
		switch op.Tag {
		case 'e':
			for _, line := range a[op.I1:op.I2] {
				out.WriteString(" " + line)
			}
		case 'd':
			for _, line := range a[op.I1:op.I2] {
				out.WriteString("-" + line)
			}
		case 'i':
			for _, line := range b[op.J1:op.J2] {
				out.WriteString("+" + line)
			}
		case 'r':
			for _, line := range a[op.I1:op.I2] {
				out.WriteString("-" + line)
			}
			for _, line := range b[op.J1:op.J2] {
				out.WriteString("+" + line)
			}
		}
	}
	return out.String(), nil
}

// splitLinesKeepEnds splits s into lines retaining trailing "\n" on every
// line but the (possible) last, mirroring Python's splitlines(keepends=True)
// semantics that difflib-style diffing expects.
func splitLinesKeepEnds(s string) []string {
	if s == "" {
		return nil
	}
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i+1])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}
