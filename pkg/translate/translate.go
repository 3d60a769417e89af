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

package translate

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/kadirpekel/substrate/pkg/xmlutil"
)

// ToolCallToXML renders an LM tool call's JSON input object as pipeline XML
// under tag, resolved via XMLTagForTool for the tool's canonical name.
func ToolCallToXML(toolName string, input map[string]any) string {
	return ToolCallToXMLWithTag(XMLTagForTool(toolName), input)
}

// ToolCallToXMLWithTag renders input under an explicit tag — used for
// extension tools, whose tag comes from the registry rather than the
// built-in name→tag map.
func ToolCallToXMLWithTag(tag string, input map[string]any) string {
	keys := make([]string, 0, len(input))
	for k := range input {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("<")
	b.WriteString(tag)
	b.WriteString(">")
	for _, k := range keys {
		text := valueToText(input[k])
		b.WriteString("<")
		b.WriteString(k)
		b.WriteString(">")
		b.WriteString(xmlutil.Escape(text))
		b.WriteString("</")
		b.WriteString(k)
		b.WriteString(">")
	}
	b.WriteString("</")
	b.WriteString(tag)
	b.WriteString(">")
	return b.String()
}

// valueToText stringifies one JSON value for embedding as XML element text.
// Primitives render bare; objects and arrays serialize as compact JSON — an
// intentional escape hatch (§9 Open Question) that extensions needing rich
// nested structure must parse back out in the guest.
func valueToText(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		if val {
			return "true"
		}
		return "false"
	case json.Number:
		return val.String()
	case float64:
		return canonicalFloat(val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(b)
	}
}

func canonicalFloat(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}

// ResponseToResult extracts (content, isError) from a <ToolResponse>
// envelope: success→<result> (default "(empty result)"), failure→<error>
// (default "(unknown error)"). XML entities are unescaped.
func ResponseToResult(xml string) (content string, isError bool) {
	successText, _ := xmlutil.ExtractTag(xml, "success")
	success := successText == "true"

	if success {
		result, ok := xmlutil.ExtractTag(xml, "result")
		if !ok {
			result = "(empty result)"
		}
		return result, false
	}

	errText, ok := xmlutil.ExtractTag(xml, "error")
	if !ok {
		errText = "(unknown error)"
	}
	return errText, true
}
