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

	"github.com/kadirpekel/substrate/pkg/payload"
	"github.com/kadirpekel/substrate/pkg/router"
	"github.com/kadirpekel/substrate/pkg/tool"
	"github.com/kadirpekel/substrate/pkg/xmlutil"
)

const newDirPerm = 0o755
const newFilePerm = 0o644

// FileWriteSchema describes the FileWriteRequest payload shape.
func FileWriteSchema() payload.Schema {
	return payload.Schema{
		RootTag: "FileWriteRequest",
		Fields: map[string]payload.FieldSchema{
			"path": {Required: true, FieldType: payload.FieldString},
		},
		Strict: false,
	}
}

// FileWrite writes or creates a file, auto-creating missing parent
// directories.
func FileWrite(_ context.Context, p payload.Validated, hc router.HandlerContext) (router.Outcome, error) {
	xml := string(p.XML)

	path, _ := xmlutil.ExtractTag(xml, "path")
	if path == "" {
		return router.Reply(tool.Err("missing required <path>")), nil
	}
	content, _ := xmlutil.ExtractTag(xml, "content")

	if parent := filepath.Dir(path); parent != "." {
		if _, err := os.Stat(parent); os.IsNotExist(err) {
			if err := os.MkdirAll(parent, newDirPerm); err != nil {
				return router.Reply(tool.Err(fmt.Sprintf("failed to create directories: %s", err))), nil
			}
		}
	}

	if err := os.WriteFile(path, []byte(content), newFilePerm); err != nil {
		return router.Reply(tool.Err(fmt.Sprintf("write error: %s", err))), nil
	}

	return router.Reply(tool.Ok(fmt.Sprintf("wrote %d bytes to %s", len(content), path))), nil
}
