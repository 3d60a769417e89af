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

// Package translate is the JSON↔XML Translation Layer (§4.E): it converts
// an LM provider's JSON tool call into the pipeline's canonical XML request,
// unpacks a ToolResponse envelope back into an LM-native tool result, and
// performs LM-assisted semantic form-filling with a model-escalation ladder.
package translate

import "strings"

// builtinTags is the fixed name→tag map for built-in tools (§6). Extensions
// carry their own declared tag and never consult this map.
var builtinTags = map[string]string{
	"file-read":      "FileReadRequest",
	"file-write":     "FileWriteRequest",
	"file-edit":      "FileEditRequest",
	"glob":           "GlobRequest",
	"grep":           "GrepRequest",
	"command-exec":   "CommandExecRequest",
	"codebase-index": "CodeIndexRequest",
}

// XMLTagForTool resolves the canonical XML request tag for a built-in tool
// name. Unknown names fall back to the deterministic kebab→PascalCase+Request
// rule so the wire format never breaks forward compatibility.
func XMLTagForTool(toolName string) string {
	if tag, ok := builtinTags[toolName]; ok {
		return tag
	}
	return KebabToPascalRequest(toolName)
}

// KebabToPascalRequest converts a kebab-case tool name to PascalCase and
// appends "Request" — e.g. "email-sender" → "EmailSenderRequest".
func KebabToPascalRequest(name string) string {
	parts := strings.Split(name, "-")
	var b strings.Builder
	for _, part := range parts {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	b.WriteString("Request")
	return b.String()
}
