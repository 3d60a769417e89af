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
	"github.com/kadirpekel/substrate/pkg/payload"
	"github.com/kadirpekel/substrate/pkg/xmlutil"
)

// ResponseSchema is the shared schema for the ToolResponse envelope; the
// agent loop validates every tool reply against it before unpacking the
// envelope. strict=false — it must allow the variable <result>/<error>
// child that every tool response carries.
func ResponseSchema() payload.Schema {
	return payload.Schema{
		RootTag: "ToolResponse",
		Fields: map[string]payload.FieldSchema{
			"success": {Required: true, FieldType: payload.FieldString},
		},
		Strict: false,
	}
}

// Ok builds a success ToolResponse envelope as XML bytes.
func Ok(result string) []byte {
	return []byte("<ToolResponse><success>true</success><result>" + xmlutil.Escape(result) + "</result></ToolResponse>")
}

// Err builds a failure ToolResponse envelope as XML bytes.
func Err(message string) []byte {
	return []byte("<ToolResponse><success>false</success><error>" + xmlutil.Escape(message) + "</error></ToolResponse>")
}
