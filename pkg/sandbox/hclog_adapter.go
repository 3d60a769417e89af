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
	"io"
	"log"
	"log/slog"

	"github.com/hashicorp/go-hclog"
)

// SlogAdapter bridges the substrate's process-wide slog.Logger into the
// hclog.Logger shape the engine (and, via go-plugin's shared heritage, the
// wider extension-hosting code) expects. Only the handful of methods the
// sandbox package actually calls are meaningfully implemented; the rest
// satisfy the interface without doing real work, matching the narrow
// surface hector's own plugin host exercises.
type SlogAdapter struct {
	logger *slog.Logger
	name   string
}

// NewSlogAdapter wraps logger as an hclog.Logger named name.
func NewSlogAdapter(logger *slog.Logger, name string) hclog.Logger {
	return &SlogAdapter{logger: logger, name: name}
}

func (a *SlogAdapter) Log(level hclog.Level, msg string, args ...interface{}) {
	switch level {
	case hclog.Trace, hclog.Debug:
		a.logger.Debug(msg, args...)
	case hclog.Warn:
		a.logger.Warn(msg, args...)
	case hclog.Error:
		a.logger.Error(msg, args...)
	default:
		a.logger.Info(msg, args...)
	}
}

func (a *SlogAdapter) Trace(msg string, args ...interface{}) { a.logger.Debug(msg, args...) }
func (a *SlogAdapter) Debug(msg string, args ...interface{}) { a.logger.Debug(msg, args...) }
func (a *SlogAdapter) Info(msg string, args ...interface{})  { a.logger.Info(msg, args...) }
func (a *SlogAdapter) Warn(msg string, args ...interface{})  { a.logger.Warn(msg, args...) }
func (a *SlogAdapter) Error(msg string, args ...interface{}) { a.logger.Error(msg, args...) }

func (a *SlogAdapter) IsTrace() bool { return true }
func (a *SlogAdapter) IsDebug() bool { return true }
func (a *SlogAdapter) IsInfo() bool  { return true }
func (a *SlogAdapter) IsWarn() bool  { return true }
func (a *SlogAdapter) IsError() bool { return true }

func (a *SlogAdapter) ImpliedArgs() []interface{} { return nil }

func (a *SlogAdapter) With(args ...interface{}) hclog.Logger {
	return &SlogAdapter{logger: a.logger, name: a.name}
}

func (a *SlogAdapter) Name() string { return a.name }

func (a *SlogAdapter) Named(name string) hclog.Logger {
	if a.name == "" {
		return &SlogAdapter{logger: a.logger, name: name}
	}
	return &SlogAdapter{logger: a.logger, name: a.name + "." + name}
}

func (a *SlogAdapter) ResetNamed(name string) hclog.Logger {
	return &SlogAdapter{logger: a.logger, name: name}
}

func (a *SlogAdapter) SetLevel(hclog.Level) {}

func (a *SlogAdapter) GetLevel() hclog.Level { return hclog.Debug }

func (a *SlogAdapter) StandardLogger(opts *hclog.StandardLoggerOptions) *log.Logger {
	return log.New(io.Discard, "", 0)
}

func (a *SlogAdapter) StandardWriter(opts *hclog.StandardLoggerOptions) io.Writer {
	return io.Discard
}
