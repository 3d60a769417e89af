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

package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kadirpekel/substrate/pkg/payload"
	"github.com/kadirpekel/substrate/pkg/telemetry"
)

var tracer = telemetry.Tracer("github.com/kadirpekel/substrate/pkg/router")

// ErrUnknownTarget is returned when send() addresses a name with no
// registered handler.
var ErrUnknownTarget = errors.New("router: unknown target")

// Router delivers XML payloads between named handlers. The handler table is
// built once at startup (via Build) and frozen for the pipeline's lifetime,
// matching §5's "built once at startup, frozen" invariant.
type Router struct {
	handlers map[string]Registration

	mu         sync.Mutex        // guards threadLock map membership only
	threadLock map[string]*sync.Mutex

	bus eventBus

	dispatched prometheus.Counter
	rejected   prometheus.Counter
}

// Builder accumulates Registrations before the Router is frozen.
type Builder struct {
	regs map[string]Registration
}

// NewBuilder starts a fresh, empty router build.
func NewBuilder() *Builder {
	return &Builder{regs: make(map[string]Registration)}
}

// Register adds a handler registration. Registering the same name twice is
// a programmer error and panics — this only ever happens at startup wiring.
func (b *Builder) Register(reg Registration) *Builder {
	if _, exists := b.regs[reg.Name]; exists {
		panic(fmt.Sprintf("router: handler %q already registered", reg.Name))
	}
	b.regs[reg.Name] = reg
	return b
}

// Build freezes the handler table into a Router.
func (b *Builder) Build() *Router {
	frozen := make(map[string]Registration, len(b.regs))
	for k, v := range b.regs {
		frozen[k] = v
	}
	return &Router{
		handlers:   frozen,
		threadLock: make(map[string]*sync.Mutex),
		dispatched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "substrate_router_dispatched_total",
			Help: "Payloads successfully delivered to a handler.",
		}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "substrate_router_rejected_total",
			Help: "Payloads rejected by schema validation or unknown target.",
		}),
	}
}

// Collectors exposes the router's prometheus metrics for registration with
// the process's default registerer.
func (r *Router) Collectors() []prometheus.Collector {
	return []prometheus.Collector{r.dispatched, r.rejected}
}

// Subscribe returns a lazy, best-effort event feed for observability.
func (r *Router) Subscribe(buffer int) <-chan Event {
	return r.bus.subscribe(buffer)
}

// Send validates the payload against the target's registered schema, then
// invokes the target handler. Within one thread_id, Send calls are
// serialized FIFO; across threads no ordering is guaranteed.
//
// Router-level errors (unknown target, schema failure) are returned
// synchronously and the payload is never delivered to the handler body.
func (r *Router) Send(ctx context.Context, p payload.Payload) (Outcome, error) {
	ctx, span := tracer.Start(ctx, "router.Send", trace.WithAttributes(
		attribute.String("substrate.thread_id", p.ThreadID),
		attribute.String("substrate.target", p.To),
	))
	defer span.End()

	reg, ok := r.handlers[p.To]
	if !ok {
		r.bus.publish(Event{Kind: EventUnknownTarget, ThreadID: p.ThreadID, Target: p.To})
		r.rejected.Inc()
		return Outcome{}, fmt.Errorf("%w: %s", ErrUnknownTarget, p.To)
	}

	if err := payload.Validate(p.XML, reg.Schema); err != nil {
		r.bus.publish(Event{Kind: EventSchemaRejected, ThreadID: p.ThreadID, Target: p.To, Error: err.Error()})
		r.rejected.Inc()
		return Outcome{}, err
	}

	lock := r.lockFor(p.ThreadID)
	lock.Lock()
	defer lock.Unlock()

	validated := payload.Validated{XML: p.XML, Tag: payload.RootTagOf(p.XML)}
	hc := HandlerContext{ThreadID: p.ThreadID, From: p.From, OwnName: p.To}

	outcome, err := reg.Handler.Handle(ctx, validated, hc)
	if err != nil {
		slog.Error("handler error", "target", p.To, "thread_id", p.ThreadID, "error", err)
		return Outcome{}, err
	}

	r.dispatched.Inc()
	r.bus.publish(Event{Kind: EventDelivered, ThreadID: p.ThreadID, Target: p.To})
	return outcome, nil
}

func (r *Router) lockFor(threadID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.threadLock[threadID]
	if !ok {
		lock = &sync.Mutex{}
		r.threadLock[threadID] = lock
	}
	return lock
}
