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
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToolCallToXML(t *testing.T) {
	xml := ToolCallToXML("file-read", map[string]any{"path": "src/main.go", "limit": json(100)})
	assert.True(t, strings.HasPrefix(xml, "<FileReadRequest>"))
	assert.True(t, strings.HasSuffix(xml, "</FileReadRequest>"))
	assert.Contains(t, xml, "<path>src/main.go</path>")
}

func json(n int) any { return float64(n) }

func TestToolCallToXMLEscapesChars(t *testing.T) {
	xml := ToolCallToXML("command-exec", map[string]any{"command": "echo '<hello>'"})
	assert.Contains(t, xml, "&lt;hello&gt;")
}

func TestXMLTagForTool(t *testing.T) {
	cases := map[string]string{
		"file-read":      "FileReadRequest",
		"file-write":     "FileWriteRequest",
		"file-edit":      "FileEditRequest",
		"glob":           "GlobRequest",
		"grep":           "GrepRequest",
		"command-exec":   "CommandExecRequest",
		"codebase-index": "CodeIndexRequest",
	}
	for tool, want := range cases {
		assert.Equal(t, want, XMLTagForTool(tool))
	}
}

func TestXMLTagForToolUnknownDynamic(t *testing.T) {
	assert.Equal(t, "EmailSenderRequest", XMLTagForTool("email-sender"))
	assert.Equal(t, "MyCoolToolRequest", XMLTagForTool("my-cool-tool"))
	assert.Equal(t, "SimpleRequest", XMLTagForTool("simple"))
}

func TestResponseToResultSuccess(t *testing.T) {
	content, isErr := ResponseToResult("<ToolResponse><success>true</success><result>file contents here</result></ToolResponse>")
	assert.Equal(t, "file contents here", content)
	assert.False(t, isErr)
}

func TestResponseToResultError(t *testing.T) {
	content, isErr := ResponseToResult("<ToolResponse><success>false</success><error>file not found</error></ToolResponse>")
	assert.Equal(t, "file not found", content)
	assert.True(t, isErr)
}

func TestResponseToResultEntities(t *testing.T) {
	content, isErr := ResponseToResult("<ToolResponse><success>true</success><result>a &lt; b &amp; c</result></ToolResponse>")
	assert.Equal(t, "a < b & c", content)
	assert.False(t, isErr)
}

func TestModelLadder(t *testing.T) {
	assert.Equal(t, "small", ModelForAttempt(0))
	assert.Equal(t, "small", ModelForAttempt(1))
	assert.Equal(t, "medium", ModelForAttempt(2))
	assert.Equal(t, "medium", ModelForAttempt(5))
}

func TestStripXMLFencing(t *testing.T) {
	fenced := "```xml\n<FileReadRequest><path>foo.go</path></FileReadRequest>\n```"
	cleaned := StripXMLFencing(fenced)
	assert.True(t, strings.HasPrefix(cleaned, "<FileReadRequest>"))
	assert.True(t, strings.HasSuffix(cleaned, "</FileReadRequest>"))
	require.NoError(t, ValidateXML(cleaned, "FileReadRequest"))
}

func TestValidateXML(t *testing.T) {
	require.NoError(t, ValidateXML("<ShellRequest><command>ls</command></ShellRequest>", "ShellRequest"))

	err := ValidateXML("<ShellRequest><command>ls</command></ShellRequest>", "FileOpsRequest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected root tag")

	err = ValidateXML("not xml at all", "FileOpsRequest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not valid XML")

	err = ValidateXML("<FileOpsRequest><action>read</action>", "FileOpsRequest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing closing tag")
}

type stubCompleter struct {
	responses []string
	errs      []error
	calls     int
	models    []string
	prompts   []string
}

func (s *stubCompleter) Complete(ctx context.Context, model, system, prompt string, maxTokens int) (string, error) {
	i := s.calls
	s.calls++
	s.models = append(s.models, model)
	s.prompts = append(s.prompts, prompt)
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i < len(s.responses) {
		return s.responses[i], nil
	}
	return "", errors.New("no more stub responses")
}

func TestFormFillerSucceedsOnFirstAttempt(t *testing.T) {
	stub := &stubCompleter{responses: []string{"<EchoRequest><message>hi</message></EchoRequest>"}}
	filler := NewFormFiller(stub, 3)

	result := filler.Fill(context.Background(), "say hi", "echo", "echoes input", "<EchoRequest><message/></EchoRequest>", "EchoRequest")
	require.True(t, result.Success)
	assert.Equal(t, "<EchoRequest><message>hi</message></EchoRequest>", result.FilledXML)
	assert.Equal(t, []string{"small"}, stub.models)
}

func TestFormFillerEscalatesLadderAndNeverUsesLarge(t *testing.T) {
	stub := &stubCompleter{responses: []string{"not xml", "still not xml", "also not xml"}}
	filler := NewFormFiller(stub, 3)

	result := filler.Fill(context.Background(), "say hi", "echo", "echoes input", "<EchoRequest><message/></EchoRequest>", "EchoRequest")
	require.False(t, result.Success)
	assert.NotEmpty(t, result.LastError)
	assert.Equal(t, []string{"small", "small", "medium"}, stub.models)
	for _, m := range stub.models {
		assert.NotEqual(t, "large", m)
	}
}

func TestFormFillerRetryCarriesPriorError(t *testing.T) {
	stub := &stubCompleter{responses: []string{"nope", "<EchoRequest><message>hi</message></EchoRequest>"}}
	filler := NewFormFiller(stub, 3)

	result := filler.Fill(context.Background(), "say hi", "echo", "echoes input", "<EchoRequest><message/></EchoRequest>", "EchoRequest")
	require.True(t, result.Success)
	assert.Equal(t, 2, stub.calls)
	require.Len(t, stub.prompts, 2)
	assert.Contains(t, stub.prompts[1], "Your previous attempt failed: not valid XML: doesn't start with '<'")
}
