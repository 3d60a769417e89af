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

package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitTracerProviderDisabledIsNoop(t *testing.T) {
	tp := InitTracerProvider(Config{Enabled: false})
	require.NotNil(t, tp)

	tracer := tp.Tracer("test")
	_, span := tracer.Start(context.Background(), "op")
	assert.False(t, span.SpanContext().IsValid())
	span.End()
}

func TestInitTracerProviderEnabledRecordsSpans(t *testing.T) {
	tp := InitTracerProvider(Config{Enabled: true, ServiceName: "test-service"})
	require.NotNil(t, tp)

	tracer := Tracer("test")
	_, span := tracer.Start(context.Background(), "op")
	assert.True(t, span.SpanContext().IsValid())
	span.End()
}
