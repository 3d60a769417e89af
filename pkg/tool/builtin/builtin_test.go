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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/substrate/pkg/payload"
	"github.com/kadirpekel/substrate/pkg/router"
	"github.com/kadirpekel/substrate/pkg/xmlutil"
)

func makeCtx() router.HandlerContext {
	return router.HandlerContext{ThreadID: "t1", From: "agent", OwnName: "tool"}
}

func validated(tag, xml string) payload.Validated {
	return payload.Validated{XML: []byte(xml), Tag: tag}
}

func resultOf(t *testing.T, outcome router.Outcome) (bool, string) {
	t.Helper()
	require.Equal(t, router.OutcomeReply, outcome.Kind)
	xml := string(outcome.ReplyXML)
	success := contains(xml, "<success>true</success>")
	tag := "result"
	if !success {
		tag = "error"
	}
	open := "<" + tag + ">"
	close := "</" + tag + ">"
	start := indexOf(xml, open)
	if start < 0 {
		return success, ""
	}
	start += len(open)
	end := indexOf(xml[start:], close)
	if end < 0 {
		return success, ""
	}
	return success, xmlutil.Unescape(xml[start : start+end])
}

func contains(s, substr string) bool { return indexOf(s, substr) >= 0 }
func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}

func TestFileReadBasic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("line one\nline two\nline three\n"), 0o644))

	xml := fmt.Sprintf("<FileReadRequest><path>%s</path></FileReadRequest>", path)
	outcome, err := FileRead(context.Background(), validated("FileReadRequest", xml), makeCtx())
	require.NoError(t, err)

	ok, content := resultOf(t, outcome)
	assert.True(t, ok)
	assert.Contains(t, content, "1| line one")
	assert.Contains(t, content, "2| line two")
	assert.Contains(t, content, "3| line three")
}

func TestFileReadOffsetAndLimit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	var content string
	for i := 1; i <= 10; i++ {
		content += fmt.Sprintf("line %d\n", i)
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	xml := fmt.Sprintf("<FileReadRequest><path>%s</path><offset>5</offset><limit>3</limit></FileReadRequest>", path)
	outcome, err := FileRead(context.Background(), validated("FileReadRequest", xml), makeCtx())
	require.NoError(t, err)

	ok, got := resultOf(t, outcome)
	assert.True(t, ok)
	assert.Contains(t, got, "5| line 5")
	assert.Contains(t, got, "7| line 7")
	assert.NotContains(t, got, "8| line 8")
}

func TestFileReadTruncationMarker(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	var content string
	for i := 1; i <= 100; i++ {
		content += fmt.Sprintf("line %d\n", i)
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	xml := fmt.Sprintf("<FileReadRequest><path>%s</path><limit>10</limit></FileReadRequest>", path)
	outcome, err := FileRead(context.Background(), validated("FileReadRequest", xml), makeCtx())
	require.NoError(t, err)

	ok, got := resultOf(t, outcome)
	assert.True(t, ok)
	assert.Contains(t, got, "... (90 more lines, 100 total)")
}

func TestFileReadMissingFile(t *testing.T) {
	xml := "<FileReadRequest><path>/nonexistent/file.txt</path></FileReadRequest>"
	outcome, err := FileRead(context.Background(), validated("FileReadRequest", xml), makeCtx())
	require.NoError(t, err)

	ok, got := resultOf(t, outcome)
	assert.False(t, ok)
	assert.Contains(t, got, "file not found")
}

func TestFileReadDirectoryRejected(t *testing.T) {
	dir := t.TempDir()
	xml := fmt.Sprintf("<FileReadRequest><path>%s</path></FileReadRequest>", dir)
	outcome, err := FileRead(context.Background(), validated("FileReadRequest", xml), makeCtx())
	require.NoError(t, err)

	ok, got := resultOf(t, outcome)
	assert.False(t, ok)
	assert.Contains(t, got, "directory")
}

func TestFileReadBinaryRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bin")
	require.NoError(t, os.WriteFile(path, []byte{0x00, 0x01, 0x02, 0xFF}, 0o644))

	xml := fmt.Sprintf("<FileReadRequest><path>%s</path></FileReadRequest>", path)
	outcome, err := FileRead(context.Background(), validated("FileReadRequest", xml), makeCtx())
	require.NoError(t, err)

	ok, got := resultOf(t, outcome)
	assert.False(t, ok)
	assert.Contains(t, got, "binary file")
}

func TestFileReadMissingPathTag(t *testing.T) {
	outcome, err := FileRead(context.Background(), validated("FileReadRequest", "<FileReadRequest></FileReadRequest>"), makeCtx())
	require.NoError(t, err)
	ok, got := resultOf(t, outcome)
	assert.False(t, ok)
	assert.Contains(t, got, "missing required")
}

func TestFileWriteNewFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.txt")
	xml := fmt.Sprintf("<FileWriteRequest><path>%s</path><content>hello world</content></FileWriteRequest>", path)

	outcome, err := FileWrite(context.Background(), validated("FileWriteRequest", xml), makeCtx())
	require.NoError(t, err)

	ok, got := resultOf(t, outcome)
	assert.True(t, ok)
	assert.Contains(t, got, "11 bytes")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))
}

func TestFileWriteCreatesParentDirs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a", "b", "c", "deep.txt")
	xml := fmt.Sprintf("<FileWriteRequest><path>%s</path><content>deep content</content></FileWriteRequest>", path)

	outcome, err := FileWrite(context.Background(), validated("FileWriteRequest", xml), makeCtx())
	require.NoError(t, err)
	ok, _ := resultOf(t, outcome)
	assert.True(t, ok)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "deep content", string(data))
}

func TestFileWriteMissingPath(t *testing.T) {
	xml := "<FileWriteRequest><content>hello</content></FileWriteRequest>"
	outcome, err := FileWrite(context.Background(), validated("FileWriteRequest", xml), makeCtx())
	require.NoError(t, err)
	ok, got := resultOf(t, outcome)
	assert.False(t, ok)
	assert.Contains(t, got, "missing required")
}

func TestFileEditSingleMatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.go")
	require.NoError(t, os.WriteFile(path, []byte("func hello() {\n\tprintln(\"greetings\")\n}\n"), 0o644))

	xml := fmt.Sprintf(
		"<FileEditRequest><path>%s</path><old_string>func hello()</old_string><new_string>func world()</new_string></FileEditRequest>", path)
	outcome, err := FileEdit(context.Background(), validated("FileEditRequest", xml), makeCtx())
	require.NoError(t, err)

	ok, diff := resultOf(t, outcome)
	assert.True(t, ok)
	assert.Contains(t, diff, "-func hello()")
	assert.Contains(t, diff, "+func world()")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "func world()")
	assert.Contains(t, string(data), "greetings")
}

func TestFileEditNoMatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.txt")
	require.NoError(t, os.WriteFile(path, []byte("line one\nline two\n"), 0o644))

	xml := fmt.Sprintf(
		"<FileEditRequest><path>%s</path><old_string>nonexistent</old_string><new_string>replacement</new_string></FileEditRequest>", path)
	outcome, err := FileEdit(context.Background(), validated("FileEditRequest", xml), makeCtx())
	require.NoError(t, err)
	ok, got := resultOf(t, outcome)
	assert.False(t, ok)
	assert.Contains(t, got, "not found")
}

func TestFileEditMultipleMatchesRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.txt")
	require.NoError(t, os.WriteFile(path, []byte("foo bar\nfoo baz\nfoo qux\n"), 0o644))

	xml := fmt.Sprintf(
		"<FileEditRequest><path>%s</path><old_string>foo</old_string><new_string>replaced</new_string></FileEditRequest>", path)
	outcome, err := FileEdit(context.Background(), validated("FileEditRequest", xml), makeCtx())
	require.NoError(t, err)
	ok, got := resultOf(t, outcome)
	assert.False(t, ok)
	assert.Contains(t, got, "3 matches")
	assert.Contains(t, got, "lines:")
}

func TestFileEditMultilineReplacement(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "multi.txt")
	require.NoError(t, os.WriteFile(path, []byte("aaa\nbbb\nccc\nddd\n"), 0o644))

	xml := fmt.Sprintf(
		"<FileEditRequest><path>%s</path><old_string>bbb\nccc</old_string><new_string>BBB\nCCC\nEEE</new_string></FileEditRequest>", path)
	outcome, err := FileEdit(context.Background(), validated("FileEditRequest", xml), makeCtx())
	require.NoError(t, err)
	ok, diff := resultOf(t, outcome)
	assert.True(t, ok)
	assert.Contains(t, diff, "-bbb")
	assert.Contains(t, diff, "+BBB")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "aaa\nBBB\nCCC\nEEE\nddd\n", string(data))
}

func TestFileEditDiffOutputFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "diff.txt")
	require.NoError(t, os.WriteFile(path, []byte("alpha\nbeta\ngamma\n"), 0o644))

	xml := fmt.Sprintf(
		"<FileEditRequest><path>%s</path><old_string>beta</old_string><new_string>BETA</new_string></FileEditRequest>", path)
	outcome, err := FileEdit(context.Background(), validated("FileEditRequest", xml), makeCtx())
	require.NoError(t, err)
	ok, diff := resultOf(t, outcome)
	assert.True(t, ok)
	assert.Contains(t, diff, " alpha\n")
	assert.Contains(t, diff, "-beta\n")
	assert.Contains(t, diff, "+BETA\n")
	assert.Contains(t, diff, " gamma\n")
}

func TestGlobFindsFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.go"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.txt"), nil, 0o644))

	pattern := filepath.ToSlash(filepath.Join(dir, "*.go"))
	xml := fmt.Sprintf("<GlobRequest><pattern>%s</pattern></GlobRequest>", pattern)
	outcome, err := Glob(context.Background(), validated("GlobRequest", xml), makeCtx())
	require.NoError(t, err)

	ok, got := resultOf(t, outcome)
	assert.True(t, ok)
	assert.Contains(t, got, "a.go")
	assert.Contains(t, got, "b.go")
	assert.NotContains(t, got, "c.txt")
	assert.Contains(t, got, "2 files matched")
}

func TestGlobRecursive(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "top.go"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "nested.go"), nil, 0o644))

	pattern := filepath.ToSlash(filepath.Join(dir, "**/*.go"))
	xml := fmt.Sprintf("<GlobRequest><pattern>%s</pattern></GlobRequest>", pattern)
	outcome, err := Glob(context.Background(), validated("GlobRequest", xml), makeCtx())
	require.NoError(t, err)

	ok, got := resultOf(t, outcome)
	assert.True(t, ok)
	assert.Contains(t, got, "nested.go")
}

func TestGlobMissingPattern(t *testing.T) {
	outcome, err := Glob(context.Background(), validated("GlobRequest", "<GlobRequest></GlobRequest>"), makeCtx())
	require.NoError(t, err)
	ok, got := resultOf(t, outcome)
	assert.False(t, ok)
	assert.Contains(t, got, "missing required")
}

func TestGrepFindsMatches(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.go")
	require.NoError(t, os.WriteFile(path, []byte("package main\n\nfunc main() {}\n"), 0o644))

	xml := fmt.Sprintf("<GrepRequest><pattern>func \\w+</pattern><path>%s</path></GrepRequest>", path)
	outcome, err := Grep(context.Background(), validated("GrepRequest", xml), makeCtx())
	require.NoError(t, err)

	ok, got := resultOf(t, outcome)
	assert.True(t, ok)
	assert.Contains(t, got, "func main")
	assert.Contains(t, got, "1 matches")
}

func TestGrepMissingFields(t *testing.T) {
	outcome, err := Grep(context.Background(), validated("GrepRequest", "<GrepRequest></GrepRequest>"), makeCtx())
	require.NoError(t, err)
	ok, got := resultOf(t, outcome)
	assert.False(t, ok)
	assert.Contains(t, got, "missing required")
}

func TestCommandExecAllowlist(t *testing.T) {
	tool := NewCommandExecTool()
	assert.True(t, tool.isAllowed("echo hello"))
	assert.True(t, tool.isAllowed("git status"))
	assert.False(t, tool.isAllowed("rm -rf /"))
}

func TestCommandExecCustomAllowlist(t *testing.T) {
	tool := NewCommandExecToolWithAllowlist([]string{"myapp"})
	assert.True(t, tool.isAllowed("myapp --flag"))
	assert.False(t, tool.isAllowed("echo hello"))
}

func TestCommandExecEcho(t *testing.T) {
	execTool := NewCommandExecTool()
	xml := "<CommandExecRequest><command>echo hello world</command></CommandExecRequest>"
	outcome, err := execTool.Handle(context.Background(), validated("CommandExecRequest", xml), makeCtx())
	require.NoError(t, err)

	ok, got := resultOf(t, outcome)
	assert.True(t, ok)
	assert.Contains(t, got, "exit_code: 0")
	assert.Contains(t, got, "hello world")
}

func TestCommandExecBlocked(t *testing.T) {
	execTool := NewCommandExecTool()
	xml := "<CommandExecRequest><command>rm -rf /</command></CommandExecRequest>"
	outcome, err := execTool.Handle(context.Background(), validated("CommandExecRequest", xml), makeCtx())
	require.NoError(t, err)
	ok, got := resultOf(t, outcome)
	assert.False(t, ok)
	assert.Contains(t, got, "not allowed")
}

func TestCommandExecMissingCommand(t *testing.T) {
	execTool := NewCommandExecTool()
	outcome, err := execTool.Handle(context.Background(), validated("CommandExecRequest", "<CommandExecRequest></CommandExecRequest>"), makeCtx())
	require.NoError(t, err)
	ok, got := resultOf(t, outcome)
	assert.False(t, ok)
	assert.Contains(t, got, "missing required")
}

func TestCodebaseIndexFileAndSearch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.go")
	require.NoError(t, os.WriteFile(path, []byte("package main\n\nfunc DoThing() {}\n"), 0o644))

	idx := NewCodebaseIndexTool()

	xml := fmt.Sprintf("<CodeIndexRequest><action>index_file</action><path>%s</path></CodeIndexRequest>", path)
	outcome, err := idx.Handle(context.Background(), validated("CodeIndexRequest", xml), makeCtx())
	require.NoError(t, err)
	ok, got := resultOf(t, outcome)
	assert.True(t, ok)
	assert.Contains(t, got, "1 symbols")

	searchXML := "<CodeIndexRequest><action>search</action><query>DoThing</query></CodeIndexRequest>"
	outcome, err = idx.Handle(context.Background(), validated("CodeIndexRequest", searchXML), makeCtx())
	require.NoError(t, err)
	ok, got = resultOf(t, outcome)
	assert.True(t, ok)
	assert.Contains(t, got, `name="DoThing"`)
	assert.Contains(t, got, `kind="func"`)
}

func TestCodebaseIndexUnknownAction(t *testing.T) {
	idx := NewCodebaseIndexTool()
	outcome, err := idx.Handle(context.Background(), validated("CodeIndexRequest", "<CodeIndexRequest><action>bogus</action></CodeIndexRequest>"), makeCtx())
	require.NoError(t, err)
	ok, got := resultOf(t, outcome)
	assert.False(t, ok)
	assert.Contains(t, got, "unknown action")
}
