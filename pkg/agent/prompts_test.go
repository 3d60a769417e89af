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

package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/substrate/pkg/tool"
)

func TestComposePromptSpecExample(t *testing.T) {
	r := NewPromptRegistry().
		Add("safety", "bounded.").
		Add("base", "agent.\n{tool_definitions}")

	got, err := r.Compose("safety & base", []tool.NameDescription{{Name: "x", Description: "Xtool"}})
	require.NoError(t, err)
	assert.Equal(t, "bounded.\n\nagent.\nAvailable tools:\n- **x**: Xtool\n", got)
}

func TestComposeEmptyToolsCollapsesToken(t *testing.T) {
	r := NewPromptRegistry().Add("base", "agent.\n{tool_definitions}end")
	got, err := r.Compose("base", nil)
	require.NoError(t, err)
	assert.Equal(t, "agent.\nend", got)
}

func TestComposeUnknownLabelFails(t *testing.T) {
	r := NewPromptRegistry().Add("base", "x")
	_, err := r.Compose("missing", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestComposeLegacyJoinsRegistrationOrder(t *testing.T) {
	r := NewPromptRegistry().Add("b", "second").Add("a", "first")
	got := r.ComposeLegacy(nil)
	assert.Equal(t, "second\n\nfirst", got)
}

func TestComposeTrimsWhitespaceAroundLabels(t *testing.T) {
	r := NewPromptRegistry().Add("safety", "S").Add("base", "B")
	got, err := r.Compose("  safety  &  base  ", nil)
	require.NoError(t, err)
	assert.Equal(t, "S\n\nB", got)
}
