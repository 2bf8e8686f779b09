// Copyright 2025 The Rivaas Authors
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

package inspector

import (
	"context"
	"time"
)

// LifecycleKind identifies a point in the request collection lifecycle.
type LifecycleKind int

const (
	// HandlerStarted fires when the matched handler begins executing,
	// after the surrounding middleware has run.
	HandlerStarted LifecycleKind = iota

	// HandlerFinished fires when the matched handler returns.
	HandlerFinished

	// LogEmitted fires for every log entry captured into the collector's
	// buffer.
	LogEmitted
)

// String returns the kind's name for logging and span events.
func (k LifecycleKind) String() string {
	switch k {
	case HandlerStarted:
		return "handler_started"
	case HandlerFinished:
		return "handler_finished"
	case LogEmitted:
		return "log_emitted"
	default:
		return "unknown"
	}
}

// LifecycleEvent is a typed notification about one collector's progress
// through the request lifecycle. Subscribers receive events synchronously
// on the request goroutine and must not block.
type LifecycleEvent struct {
	Kind      LifecycleKind
	Time      time.Time
	Collector *Collector

	// Log is set for LogEmitted events and nil otherwise.
	Log *LogEntry
}

// LifecycleHandler receives lifecycle events for every collector created by
// an Inspector. Register implementations with [WithLifecycleHandler].
//
// Handler panics are contained and reported through the Inspector's
// operational events; they never propagate into request handling.
type LifecycleHandler interface {
	HandleLifecycle(ctx context.Context, e LifecycleEvent)
}

// LifecycleHandlerFunc adapts a function to the LifecycleHandler interface.
type LifecycleHandlerFunc func(ctx context.Context, e LifecycleEvent)

// HandleLifecycle calls f(ctx, e).
func (f LifecycleHandlerFunc) HandleLifecycle(ctx context.Context, e LifecycleEvent) {
	f(ctx, e)
}

// publishLifecycle delivers an event to every registered handler,
// containing per-handler panics.
func (i *Inspector) publishLifecycle(ctx context.Context, e LifecycleEvent) {
	for _, handler := range i.lifecycleHandlers {
		i.callLifecycleHandler(ctx, handler, e)
	}
}

func (i *Inspector) callLifecycleHandler(ctx context.Context, handler LifecycleHandler, e LifecycleEvent) {
	defer func() {
		if rec := recover(); rec != nil {
			i.emitWarning("Lifecycle handler panicked", "kind", e.Kind.String(), "panic", rec)
		}
	}()
	handler.HandleLifecycle(ctx, e)
}
