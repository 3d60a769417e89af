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

package xmlutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeReplacesFourEntities(t *testing.T) {
	assert.Equal(t, "a &amp; b &lt;tag&gt; &quot;q&quot;", Escape(`a & b <tag> "q"`))
}

func TestUnescapeReversesEscape(t *testing.T) {
	original := `a & b <tag> "q"`
	assert.Equal(t, original, Unescape(Escape(original)))
}

func TestUnescapeIsIdempotentOnPlainText(t *testing.T) {
	assert.Equal(t, "no entities here", Unescape("no entities here"))
}

func TestExtractTagReturnsUnescapedContent(t *testing.T) {
	v, ok := ExtractTag("<path>a &amp; b.go</path>", "path")
	assert.True(t, ok)
	assert.Equal(t, "a & b.go", v)
}

func TestExtractTagMissingReturnsFalse(t *testing.T) {
	_, ok := ExtractTag("<FileReadRequest></FileReadRequest>", "path")
	assert.False(t, ok)
}

func TestExtractTagUnclosedReturnsFalse(t *testing.T) {
	_, ok := ExtractTag("<path>no closing tag", "path")
	assert.False(t, ok)
}

func TestExtractTagEmptyBodyReturnsTrue(t *testing.T) {
	v, ok := ExtractTag("<path></path>", "path")
	assert.True(t, ok)
	assert.Equal(t, "", v)
}
