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

package config

import (
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Loader reads the organism YAML off the filesystem. Unlike the wider
// koanf-backed loaders this substrate descends from, there is only one
// backend here: go.mod carries koanf's file provider and nothing that
// would let a remote backend (consul, etcd, zookeeper) be added without
// fabricating a dependency, so Loader stays scoped to a single path on
// disk.
type Loader struct {
	path string
}

// NewLoader returns a Loader that will read the organism config from path.
func NewLoader(path string) (*Loader, error) {
	if path == "" {
		return nil, fmt.Errorf("config: path is required")
	}
	return &Loader{path: path}, nil
}

// Load reads and parses the YAML at l.path, then validates the result.
func (l *Loader) Load() (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(l.path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("config: load %s: %w", l.path, err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
		return nil, fmt.Errorf("config: unmarshal %s: %w", l.path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load is a convenience wrapper around NewLoader(path).Load() for callers
// that don't need to hold on to a Loader value.
func Load(path string) (*Config, error) {
	l, err := NewLoader(path)
	if err != nil {
		return nil, err
	}
	return l.Load()
}
