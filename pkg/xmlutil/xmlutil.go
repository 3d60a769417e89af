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

// Package xmlutil holds the small, shared XML string helpers used by the
// tool envelope, the translation layer, and the payload schema validator —
// entity escaping and flat tag extraction, nothing more.
package xmlutil

import "strings"

// Escape XML-escapes the four entities the wire format requires.
func Escape(s string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
	)
	return r.Replace(s)
}

// Unescape reverses Escape. Idempotent on text with no entities.
func Unescape(s string) string {
	r := strings.NewReplacer(
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&amp;", "&",
	)
	return r.Replace(s)
}

// ExtractTag returns the unescaped text content between <tag> and </tag>,
// or ("", false) if the tag is absent or malformed.
func ExtractTag(xml, tag string) (string, bool) {
	open := "<" + tag + ">"
	close := "</" + tag + ">"
	start := strings.Index(xml, open)
	if start < 0 {
		return "", false
	}
	start += len(open)
	end := strings.Index(xml[start:], close)
	if end < 0 {
		return "", false
	}
	return Unescape(xml[start : start+end]), true
}
