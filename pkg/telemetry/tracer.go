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

// Package telemetry wires the agent loop and router's spans into an
// OpenTelemetry TracerProvider. Unlike hector's OTLP-backed tracer, this
// substrate carries no OTLP exporter dependency — spans are recorded by a
// small slog-backed exporter instead, so tracing works without a collector
// to send to.
package telemetry

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Config controls whether tracing is wired at all.
type Config struct {
	Enabled     bool
	ServiceName string
}

// InitTracerProvider installs and returns the process-wide TracerProvider.
// When cfg.Enabled is false it installs a no-op provider — every Start call
// elsewhere in the substrate becomes a zero-cost no-op, matching the
// pattern hector's own tracer setup uses for its disabled path.
func InitTracerProvider(cfg Config) trace.TracerProvider {
	if !cfg.Enabled {
		tp := noop.NewTracerProvider()
		otel.SetTracerProvider(tp)
		return tp
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(&slogExporter{service: cfg.ServiceName}),
	)
	otel.SetTracerProvider(tp)
	return tp
}

// Tracer returns a named tracer off the globally installed provider.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// slogExporter is a minimal sdktrace.SpanExporter that logs each completed
// span as a single structured record rather than shipping it to a
// collector — the substrate has no OTLP exporter in its dependency set.
type slogExporter struct {
	service string
}

func (e *slogExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, s := range spans {
		slog.Info("span",
			"service", e.service,
			"name", s.Name(),
			"trace_id", s.SpanContext().TraceID().String(),
			"span_id", s.SpanContext().SpanID().String(),
			"duration", s.EndTime().Sub(s.StartTime()).Round(time.Microsecond).String(),
		)
	}
	return nil
}

func (e *slogExporter) Shutdown(ctx context.Context) error { return nil }
