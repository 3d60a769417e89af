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

package sandbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/substrate/pkg/tool"
)

func TestValidateGrantHostPathsRejectsMissingPath(t *testing.T) {
	grant := tool.CapabilityGrant{
		Filesystem: []tool.FSGrant{{HostPath: "/does/not/exist/at/all", GuestPath: "/data", ReadOnly: true}},
	}
	err := validateGrantHostPaths(grant)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestValidateGrantHostPathsAcceptsExistingPath(t *testing.T) {
	grant := tool.CapabilityGrant{
		Filesystem: []tool.FSGrant{{HostPath: t.TempDir(), GuestPath: "/data", ReadOnly: true}},
	}
	assert.NoError(t, validateGrantHostPaths(grant))
}

func TestValidateGrantHostPathsAcceptsEmptyGrant(t *testing.T) {
	assert.NoError(t, validateGrantHostPaths(tool.CapabilityGrant{}))
}

func TestModuleConfigRejectsMissingHostPath(t *testing.T) {
	grant := tool.CapabilityGrant{
		Filesystem: []tool.FSGrant{{HostPath: "/nope/nope/nope", GuestPath: "/g", ReadOnly: false}},
	}
	_, err := moduleConfig(grant)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestModuleConfigAcceptsEmptyGrant(t *testing.T) {
	cfg, err := moduleConfig(tool.CapabilityGrant{})
	require.NoError(t, err)
	assert.NotNil(t, cfg)
}

func TestPackUnpackPtrLenRoundTrips(t *testing.T) {
	packed := packPtrLen(0xABCD, 42)
	assert.Equal(t, uint32(0xABCD), uint32(packed>>32))
	assert.Equal(t, uint32(42), uint32(packed))
}

func TestToolMetadataDescriptorMapping(t *testing.T) {
	m := ToolMetadata{
		Name:                "echo",
		Description:         "echoes input",
		SemanticDescription: "echoes whatever text it is given",
		RequestTag:          "EchoRequest",
		RequestSchema:       "<EchoRequest><text/></EchoRequest>",
		ResponseSchema:      "<ToolResponse>...</ToolResponse>",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"text": map[string]any{"type": "string"}},
			"required":   []any{"text"},
		},
	}
	d := m.Descriptor()
	assert.Equal(t, "echo", d.Name)
	assert.Equal(t, "EchoRequest", d.RequestTag)
	assert.Equal(t, "echoes whatever text it is given", d.SemanticDescription)
	assert.Equal(t, m.InputSchema, d.InputSchema)
}

func TestRequestSchemaDerivesRequiredFields(t *testing.T) {
	d := tool.Descriptor{
		Name:       "echo",
		RequestTag: "EchoRequest",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"text": map[string]any{"type": "string"}},
			"required":   []any{"text"},
		},
	}
	schema := requestSchema(d)
	assert.Equal(t, "EchoRequest", schema.RootTag)
	assert.False(t, schema.Strict)
	require.Contains(t, schema.Fields, "text")
	assert.True(t, schema.Fields["text"].Required)
}

func TestRequestSchemaWithNoRequiredFields(t *testing.T) {
	d := tool.Descriptor{Name: "echo", RequestTag: "EchoRequest", InputSchema: map[string]any{}}
	schema := requestSchema(d)
	assert.Empty(t, schema.Fields)
}
