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
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/kadirpekel/substrate/pkg/payload"
	"github.com/kadirpekel/substrate/pkg/router"
	"github.com/kadirpekel/substrate/pkg/tool"
	"github.com/kadirpekel/substrate/pkg/xmlutil"
)

// symbolPattern is one lightweight, language-agnostic declaration matcher.
// The index is a coarse ctags-style scan, not a real parser — it trades
// precision for zero build-system dependencies across languages.
type symbolPattern struct {
	kind string
	re   *regexp.Regexp
}

var symbolPatterns = []symbolPattern{
	{"func", regexp.MustCompile(`^\s*func\s+(?:\([^)]*\)\s*)?([A-Za-z_]\w*)\s*\(`)},
	{"type", regexp.MustCompile(`^\s*type\s+([A-Za-z_]\w*)\s+(?:struct|interface)\b`)},
	{"fn", regexp.MustCompile(`^\s*(?:pub(?:\([^)]*\))?\s+)?(?:async\s+)?fn\s+([A-Za-z_]\w*)\s*[(<]`)},
	{"struct", regexp.MustCompile(`^\s*(?:pub(?:\([^)]*\))?\s+)?struct\s+([A-Za-z_]\w*)`)},
	{"class", regexp.MustCompile(`^\s*(?:export\s+)?class\s+([A-Za-z_]\w*)`)},
	{"def", regexp.MustCompile(`^\s*def\s+([A-Za-z_]\w*)\s*\(`)},
	{"function", regexp.MustCompile(`^\s*(?:export\s+)?function\s+([A-Za-z_]\w*)\s*\(`)},
}

// Symbol is one declaration found while scanning a file.
type Symbol struct {
	Name string
	Kind string
	File string
	Line int
}

// Index is an in-memory, incrementally-built symbol table. A single Index
// instance is shared across calls, so index_file/index_directory followed
// by search/codebase_map see each other's work within a process lifetime.
type Index struct {
	mu      sync.RWMutex
	symbols map[string][]Symbol // keyed by file path
}

// NewIndex returns an empty symbol index.
func NewIndex() *Index {
	return &Index{symbols: make(map[string][]Symbol)}
}

// IndexFile scans path, replacing any symbols previously recorded for it.
func (ix *Index) IndexFile(path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	if isBinary(raw) {
		ix.mu.Lock()
		delete(ix.symbols, path)
		ix.mu.Unlock()
		return 0, nil
	}

	var found []Symbol
	for i, line := range splitLines(string(raw)) {
		for _, sp := range symbolPatterns {
			m := sp.re.FindStringSubmatch(line)
			if m != nil {
				found = append(found, Symbol{Name: m[1], Kind: sp.kind, File: path, Line: i + 1})
				break
			}
		}
	}

	ix.mu.Lock()
	ix.symbols[path] = found
	ix.mu.Unlock()
	return len(found), nil
}

// IndexDirectory recursively indexes every regular file under root.
func (ix *Index) IndexDirectory(root string) (files, symbols int, err error) {
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil || d.IsDir() {
			return nil
		}
		n, indexErr := ix.IndexFile(path)
		if indexErr != nil {
			return nil
		}
		files++
		symbols += n
		return nil
	})
	return files, symbols, err
}

// Search returns every symbol whose name contains query, case-sensitively.
func (ix *Index) Search(query string) []Symbol {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	var out []Symbol
	for _, syms := range ix.symbols {
		for _, s := range syms {
			if strings.Contains(s.Name, query) {
				out = append(out, s)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].File != out[j].File {
			return out[i].File < out[j].File
		}
		return out[i].Line < out[j].Line
	})
	return out
}

// Map returns a file -> symbol count summary of every indexed file.
func (ix *Index) Map() map[string]int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make(map[string]int, len(ix.symbols))
	for f, syms := range ix.symbols {
		out[f] = len(syms)
	}
	return out
}

func renderSymbolsXML(symbols []Symbol) string {
	var b strings.Builder
	b.WriteString("<symbols>")
	for _, s := range symbols {
		b.WriteString(fmt.Sprintf(`<symbol name=%q kind=%q file=%q line="%d"/>`,
			xmlutil.Escape(s.Name), s.Kind, xmlutil.Escape(s.File), s.Line))
	}
	b.WriteString("</symbols>")
	return b.String()
}

// CodebaseIndexSchema describes the CodeIndexRequest payload shape.
func CodebaseIndexSchema() payload.Schema {
	return payload.Schema{
		RootTag: "CodeIndexRequest",
		Fields: map[string]payload.FieldSchema{
			"action": {Required: true, FieldType: payload.FieldString},
		},
		Strict: false,
	}
}

// CodebaseIndexTool is the codebase-index built-in: a coarse symbol index
// driven by an action selector (index_file, index_directory, search,
// codebase_map).
type CodebaseIndexTool struct {
	index *Index
}

// NewCodebaseIndexTool returns a tool backed by a fresh, empty index.
func NewCodebaseIndexTool() *CodebaseIndexTool {
	return &CodebaseIndexTool{index: NewIndex()}
}

// Handle implements router.Handler.
func (t *CodebaseIndexTool) Handle(_ context.Context, p payload.Validated, hc router.HandlerContext) (router.Outcome, error) {
	xml := string(p.XML)

	action, _ := xmlutil.ExtractTag(xml, "action")
	switch action {
	case "index_file":
		path, _ := xmlutil.ExtractTag(xml, "path")
		if path == "" {
			return router.Reply(tool.Err("missing required <path>")), nil
		}
		n, err := t.index.IndexFile(path)
		if err != nil {
			return router.Reply(tool.Err(fmt.Sprintf("index error: %s", err))), nil
		}
		return router.Reply(tool.Ok(fmt.Sprintf("indexed %s: %d symbols", path, n))), nil

	case "index_directory":
		path, _ := xmlutil.ExtractTag(xml, "path")
		if path == "" {
			path = "."
		}
		files, symbols, err := t.index.IndexDirectory(path)
		if err != nil {
			return router.Reply(tool.Err(fmt.Sprintf("index error: %s", err))), nil
		}
		return router.Reply(tool.Ok(fmt.Sprintf("indexed %d files, %d symbols under %s", files, symbols, path))), nil

	case "search":
		query, _ := xmlutil.ExtractTag(xml, "query")
		if query == "" {
			return router.Reply(tool.Err("missing required <query>")), nil
		}
		results := t.index.Search(query)
		return router.Reply(tool.Ok(renderSymbolsXML(results))), nil

	case "codebase_map":
		summary := t.index.Map()
		files := make([]string, 0, len(summary))
		for f := range summary {
			files = append(files, f)
		}
		sort.Strings(files)
		var b strings.Builder
		b.WriteString("<codebase-map>")
		for _, f := range files {
			b.WriteString(fmt.Sprintf(`<file path=%q symbols="%d"/>`, xmlutil.Escape(f), summary[f]))
		}
		b.WriteString("</codebase-map>")
		return router.Reply(tool.Ok(b.String())), nil

	default:
		return router.Reply(tool.Err(fmt.Sprintf("unknown action: %s", action))), nil
	}
}
