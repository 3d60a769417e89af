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

// Package payload defines the unit of pipeline traffic: an XML byte
// sequence with a known root tag, an addressing envelope, and the schema
// machinery the router uses to validate it before handler dispatch.
package payload

import (
	"fmt"
	"regexp"
	"strings"
)

// Payload is the unit of pipeline traffic. Immutable once in flight.
type Payload struct {
	ThreadID string
	From     string
	To       string
	XML      []byte
	Tag      string
}

// Validated is a Payload that has already passed schema validation — the
// only form a Handler is ever allowed to see.
type Validated struct {
	XML []byte
	Tag string
}

// FieldType describes the shape a schema field must take. The spec's
// "shape equivalent to JSON Schema object type" is deliberately narrow:
// every field is just text content of a child XML element.
type FieldType int

const (
	// FieldString is the only field type the wire format carries — XML
	// child element text content. Nested structure is JSON-in-a-string
	// (see pkg/translate), never modeled as a FieldType.
	FieldString FieldType = iota
)

// FieldSchema describes one named field of a payload.
type FieldSchema struct {
	Required  bool
	FieldType FieldType
}

// Schema describes the shape a handler expects its payloads in.
//
// Strict=false (the envelope types, e.g. ToolResponse) allows any field;
// only RootTag and the Required fields are checked. Strict=true additionally
// rejects unknown fields — reserved for tightly specified request shapes.
type Schema struct {
	RootTag string
	Fields  map[string]FieldSchema
	Strict  bool
}

var tagRe = regexp.MustCompile(`<([A-Za-z_][\w.\-]*)[ >/]`)

// RootTagOf extracts the root element name from an XML byte sequence, or
// "" if none can be found.
func RootTagOf(xml []byte) string {
	m := tagRe.FindSubmatch(xml)
	if m == nil {
		return ""
	}
	return string(m[1])
}

// Validate checks xml against schema: the root tag must match, every
// required field must be present as a non-empty child element, and (when
// Strict) no unrecognized top-level field may appear. It never inspects
// field *values* — only presence, exactly as the spec mandates.
func Validate(xml []byte, schema Schema) error {
	root := RootTagOf(xml)
	if root != schema.RootTag {
		return fmt.Errorf("%w: expected root tag <%s>, got <%s>", ErrSchemaViolation, schema.RootTag, root)
	}

	s := string(xml)
	for name, field := range schema.Fields {
		if !field.Required {
			continue
		}
		if !hasNonEmptyTag(s, name) {
			return fmt.Errorf("%w: missing required field <%s>", ErrSchemaViolation, name)
		}
	}

	if schema.Strict {
		for _, name := range topLevelTags(s, schema.RootTag) {
			if _, known := schema.Fields[name]; !known {
				return fmt.Errorf("%w: unexpected field <%s>", ErrSchemaViolation, name)
			}
		}
	}

	return nil
}

func hasNonEmptyTag(xml, tag string) bool {
	open := "<" + tag + ">"
	close := "</" + tag + ">"
	start := strings.Index(xml, open)
	if start < 0 {
		return false
	}
	start += len(open)
	end := strings.Index(xml[start:], close)
	if end < 0 {
		return false
	}
	return end > 0
}

// topLevelTags returns the distinct names of elements at any depth inside
// root; for the flat wire format these are root's children.
func topLevelTags(xml, root string) []string {
	inner := strings.TrimPrefix(xml, "<"+root+">")
	if idx := strings.LastIndex(inner, "</"+root+">"); idx >= 0 {
		inner = inner[:idx]
	}
	seen := map[string]bool{}
	var out []string
	for _, m := range tagRe.FindAllStringSubmatch(inner, -1) {
		name := m[1]
		if strings.HasPrefix(name, "/") {
			continue
		}
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}
