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
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/kadirpekel/substrate/pkg/payload"
	"github.com/kadirpekel/substrate/pkg/router"
	"github.com/kadirpekel/substrate/pkg/tool"
	"github.com/kadirpekel/substrate/pkg/xmlutil"
)

const maxGrepMatches = 1000

// GrepSchema describes the GrepRequest payload shape.
func GrepSchema() payload.Schema {
	return payload.Schema{
		RootTag: "GrepRequest",
		Fields: map[string]payload.FieldSchema{
			"pattern": {Required: true, FieldType: payload.FieldString},
			"path":    {Required: true, FieldType: payload.FieldString},
		},
		Strict: false,
	}
}

// Grep searches path (a file or a directory, searched recursively) for
// lines matching a regular expression and reports each as "file:line:text".
func Grep(_ context.Context, p payload.Validated, hc router.HandlerContext) (router.Outcome, error) {
	xml := string(p.XML)

	pattern, _ := xmlutil.ExtractTag(xml, "pattern")
	if pattern == "" {
		return router.Reply(tool.Err("missing required <pattern>")), nil
	}
	path, _ := xmlutil.ExtractTag(xml, "path")
	if path == "" {
		return router.Reply(tool.Err("missing required <path>")), nil
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return router.Reply(tool.Err(fmt.Sprintf("invalid regex pattern: %s", err))), nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return router.Reply(tool.Err(fmt.Sprintf("path not found: %s", path))), nil
	}

	var files []string
	if info.IsDir() {
		_ = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil
			}
			files = append(files, p)
			return nil
		})
		sort.Strings(files)
	} else {
		files = []string{path}
	}

	var matches []string
	total := 0
	for _, f := range files {
		raw, err := os.ReadFile(f)
		if err != nil || isBinary(raw) {
			continue
		}
		scanner := bufio.NewScanner(strings.NewReader(string(raw)))
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		lineNum := 0
		for scanner.Scan() {
			lineNum++
			line := scanner.Text()
			if re.MatchString(line) {
				total++
				if len(matches) < maxGrepMatches {
					matches = append(matches, fmt.Sprintf("%s:%d:%s", f, lineNum, line))
				}
			}
		}
	}

	var out strings.Builder
	out.WriteString(strings.Join(matches, "\n"))
	if total > maxGrepMatches {
		out.WriteString(fmt.Sprintf("\n\n... (%d total matches, showing first %d)", total, maxGrepMatches))
	} else {
		out.WriteString(fmt.Sprintf("\n\n%d matches", total))
	}

	return router.Reply(tool.Ok(out.String())), nil
}
