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

package tool

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// SchemaFromType derives a tool's InputSchema from a Go struct's `json` and
// `jsonschema` tags, rather than hand-authoring the {"type":"object",
// "properties": {...}} map. Supported jsonschema tags: "required",
// "description=...", "enum=a|b", "minimum=N,maximum=M" — the same subset
// the original's function-tool reflector recognizes.
func SchemaFromType[T any]() (map[string]any, error) {
	reflector := &jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		DoNotReference:             true,
	}

	schema := reflector.Reflect(new(T))

	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("tool: marshal schema: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("tool: unmarshal schema: %w", err)
	}
	delete(out, "$schema")
	delete(out, "$id")

	if out["type"] != "object" {
		return out, nil
	}
	result := map[string]any{"type": "object", "properties": out["properties"]}
	if required, ok := out["required"]; ok {
		result["required"] = required
	}
	if additional, ok := out["additionalProperties"]; ok {
		result["additionalProperties"] = additional
	}
	return result, nil
}
