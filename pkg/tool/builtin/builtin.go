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
	"fmt"

	"github.com/kadirpekel/substrate/pkg/router"
	"github.com/kadirpekel/substrate/pkg/tool"
)

// FileReadArgs is the typed request shape file-read's InputSchema is
// reflected from (§4.B: InputSchema is a JSON-Schema-shaped object).
type FileReadArgs struct {
	Path   string `json:"path" jsonschema:"required,description=Path to the file to read"`
	Offset int    `json:"offset,omitempty" jsonschema:"description=1-based line offset to start from"`
	Limit  int    `json:"limit,omitempty" jsonschema:"description=Maximum number of lines to return"`
}

// FileWriteArgs is file-write's typed request shape.
type FileWriteArgs struct {
	Path    string `json:"path" jsonschema:"required,description=Path to write"`
	Content string `json:"content" jsonschema:"required,description=File content"`
}

// FileEditArgs is file-edit's typed request shape.
type FileEditArgs struct {
	Path      string `json:"path" jsonschema:"required,description=Path to edit"`
	OldString string `json:"old_string" jsonschema:"required,description=Exact text to replace; must match exactly once"`
	NewString string `json:"new_string,omitempty" jsonschema:"description=Replacement text"`
}

// GlobArgs is glob's typed request shape.
type GlobArgs struct {
	Pattern  string `json:"pattern" jsonschema:"required,description=Glob pattern to match"`
	BasePath string `json:"base_path,omitempty" jsonschema:"description=Directory to search under"`
}

// GrepArgs is grep's typed request shape.
type GrepArgs struct {
	Pattern string `json:"pattern" jsonschema:"required,description=Regular expression to search for"`
	Path    string `json:"path" jsonschema:"required,description=File or directory to search"`
}

// CommandExecArgs is command-exec's typed request shape.
type CommandExecArgs struct {
	Command    string `json:"command" jsonschema:"required,description=Shell command to execute"`
	Timeout    int    `json:"timeout,omitempty" jsonschema:"description=Timeout in seconds"`
	WorkingDir string `json:"working_dir,omitempty" jsonschema:"description=Working directory for the command"`
}

// CodeIndexArgs is codebase-index's typed request shape.
type CodeIndexArgs struct {
	Action string `json:"action" jsonschema:"required,description=One of index_file, index_directory, search, codebase_map"`
	Path   string `json:"path,omitempty" jsonschema:"description=File or directory path"`
	Query  string `json:"query,omitempty" jsonschema:"description=Search query"`
}

// Register wires every built-in tool's Descriptor into reg and its handler
// into the router build — the one place that has to know both the
// registry and the router exist. Every descriptor's InputSchema is
// reflected off its typed Args struct via tool.SchemaFromType, rather than
// hand-authored, so the schema and the handler's expected fields can never
// drift apart silently.
func Register(reg *tool.Registry, b *router.Builder) error {
	fileReadSchema, err := tool.SchemaFromType[FileReadArgs]()
	if err != nil {
		return fmt.Errorf("builtin: file-read schema: %w", err)
	}
	fileWriteSchema, err := tool.SchemaFromType[FileWriteArgs]()
	if err != nil {
		return fmt.Errorf("builtin: file-write schema: %w", err)
	}
	fileEditSchema, err := tool.SchemaFromType[FileEditArgs]()
	if err != nil {
		return fmt.Errorf("builtin: file-edit schema: %w", err)
	}
	globSchema, err := tool.SchemaFromType[GlobArgs]()
	if err != nil {
		return fmt.Errorf("builtin: glob schema: %w", err)
	}
	grepSchema, err := tool.SchemaFromType[GrepArgs]()
	if err != nil {
		return fmt.Errorf("builtin: grep schema: %w", err)
	}
	commandExecSchema, err := tool.SchemaFromType[CommandExecArgs]()
	if err != nil {
		return fmt.Errorf("builtin: command-exec schema: %w", err)
	}
	codeIndexSchema, err := tool.SchemaFromType[CodeIndexArgs]()
	if err != nil {
		return fmt.Errorf("builtin: codebase-index schema: %w", err)
	}

	descriptors := []tool.Descriptor{
		{
			Name:        "file-read",
			Description: "Read file contents with line numbers. Supports offset and limit. Detects binary files.",
			RequestTag:  "FileReadRequest",
			InputSchema: fileReadSchema,
		},
		{
			Name:        "file-write",
			Description: "Write or create a file. Auto-creates parent directories.",
			RequestTag:  "FileWriteRequest",
			InputSchema: fileWriteSchema,
		},
		{
			Name:        "file-edit",
			Description: "Surgical text replacement in files. Requires exactly one match.",
			RequestTag:  "FileEditRequest",
			InputSchema: fileEditSchema,
		},
		{
			Name:        "glob",
			Description: "Find files by glob pattern.",
			RequestTag:  "GlobRequest",
			InputSchema: globSchema,
		},
		{
			Name:        "grep",
			Description: "Search files for lines matching a regular expression.",
			RequestTag:  "GrepRequest",
			InputSchema: grepSchema,
		},
		{
			Name:        "command-exec",
			Description: "Execute allowed shell commands with timeout and output capture.",
			RequestTag:  "CommandExecRequest",
			InputSchema: commandExecSchema,
		},
		{
			Name:        "codebase-index",
			Description: "Index and search source-file symbols via index_file, index_directory, search, or codebase_map actions.",
			RequestTag:  "CodeIndexRequest",
			InputSchema: codeIndexSchema,
		},
	}

	for _, d := range descriptors {
		if err := reg.Register(d); err != nil {
			return err
		}
	}

	execTool := NewCommandExecTool()
	indexTool := NewCodebaseIndexTool()

	b.Register(router.Registration{Name: "file-read", Schema: FileReadSchema(), Handler: router.HandlerFunc(FileRead)})
	b.Register(router.Registration{Name: "file-write", Schema: FileWriteSchema(), Handler: router.HandlerFunc(FileWrite)})
	b.Register(router.Registration{Name: "file-edit", Schema: FileEditSchema(), Handler: router.HandlerFunc(FileEdit)})
	b.Register(router.Registration{Name: "glob", Schema: GlobSchema(), Handler: router.HandlerFunc(Glob)})
	b.Register(router.Registration{Name: "grep", Schema: GrepSchema(), Handler: router.HandlerFunc(Grep)})
	b.Register(router.Registration{Name: "command-exec", Schema: CommandExecSchema(), Handler: execTool})
	b.Register(router.Registration{Name: "codebase-index", Schema: CodebaseIndexSchema(), Handler: indexTool})

	return nil
}
