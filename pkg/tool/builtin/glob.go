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
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"

	"github.com/kadirpekel/substrate/pkg/payload"
	"github.com/kadirpekel/substrate/pkg/router"
	"github.com/kadirpekel/substrate/pkg/tool"
	"github.com/kadirpekel/substrate/pkg/xmlutil"
)

const maxGlobResults = 1000

// GlobSchema describes the GlobRequest payload shape.
func GlobSchema() payload.Schema {
	return payload.Schema{
		RootTag: "GlobRequest",
		Fields: map[string]payload.FieldSchema{
			"pattern": {Required: true, FieldType: payload.FieldString},
		},
		Strict: false,
	}
}

// Glob finds files matching a shell-style pattern under an optional
// base_path, walking the tree rather than relying on shell expansion so
// "**" works the same on every platform.
func Glob(_ context.Context, p payload.Validated, hc router.HandlerContext) (router.Outcome, error) {
	xml := string(p.XML)

	pattern, _ := xmlutil.ExtractTag(xml, "pattern")
	if pattern == "" {
		return router.Reply(tool.Err("missing required <pattern>")), nil
	}
	basePath, _ := xmlutil.ExtractTag(xml, "base_path")

	root := basePath
	fullPattern := pattern
	if basePath != "" {
		base := strings.TrimRight(basePath, "/\\")
		fullPattern = base + "/" + pattern
		root = base
	} else {
		root = globRootOf(pattern)
	}
	if root == "" {
		root = "."
	}

	g, err := glob.Compile(filepath.ToSlash(fullPattern), '/')
	if err != nil {
		return router.Reply(tool.Err(fmt.Sprintf("invalid glob pattern: %s", err))), nil
	}

	var results []string
	total := 0
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		slashPath := filepath.ToSlash(path)
		if !g.Match(slashPath) {
			return nil
		}
		total++
		if len(results) < maxGlobResults {
			results = append(results, slashPath)
		}
		return nil
	})
	if walkErr != nil {
		return router.Reply(tool.Err(fmt.Sprintf("invalid glob pattern: %s", walkErr))), nil
	}

	sort.Strings(results)

	var out strings.Builder
	out.WriteString(strings.Join(results, "\n"))
	if total > maxGlobResults {
		out.WriteString(fmt.Sprintf("\n\n... (%d total, showing first %d)", total, maxGlobResults))
	} else {
		out.WriteString(fmt.Sprintf("\n\n%d files matched", total))
	}

	return router.Reply(tool.Ok(out.String())), nil
}

// globRootOf returns the longest path prefix of pattern that contains no
// glob metacharacter, so the filesystem walk starts as close to the match
// as possible instead of always scanning from ".".
func globRootOf(pattern string) string {
	clean := filepath.ToSlash(pattern)
	segments := strings.Split(clean, "/")
	var fixed []string
	for _, seg := range segments {
		if strings.ContainsAny(seg, "*?[{") {
			break
		}
		fixed = append(fixed, seg)
	}
	if len(fixed) == 0 {
		return "."
	}
	return strings.Join(fixed, "/")
}
