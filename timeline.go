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
	"fmt"
	"sync"
	"time"
)

// timeline accumulates named spans for one request.
//
// Spans are keyed by name: opening an already-open name keeps the first
// start time, and closing a name that was never opened records a span with
// a zero start. Both rules match what request timelines conventionally do,
// and keep begin/end pairs safe to fire from middleware and handlers that
// don't coordinate with each other.
type timeline struct {
	mu    sync.Mutex
	spans map[string]*Span
	order []string
}

func newTimeline() *timeline {
	return &timeline{
		spans: make(map[string]*Span),
	}
}

// begin opens the named span at the given time. The start time is set only
// if it is still unset, so repeated begins are idempotent.
func (tl *timeline) begin(name string, at time.Time, attrs map[string]any) {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	span, ok := tl.spans[name]
	if !ok {
		span = &Span{Name: name, Attrs: attrs}
		tl.spans[name] = span
		tl.order = append(tl.order, name)
	}
	if span.Start.IsZero() {
		span.Start = at
	}
}

// end closes the named span at the given time. The end time is set even if
// the span was never opened; the resulting zero-start span is a degenerate
// shape consumers must tolerate.
func (tl *timeline) end(name string, at time.Time) {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	span, ok := tl.spans[name]
	if !ok {
		span = &Span{Name: name}
		tl.spans[name] = span
		tl.order = append(tl.order, name)
	}
	span.End = at
}

// endIfOpen closes the named span only if it exists and is still open.
// Unlike end, it never fabricates a degenerate span.
func (tl *timeline) endIfOpen(name string, at time.Time) {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	if span, ok := tl.spans[name]; ok && span.End.IsZero() {
		span.End = at
	}
}

// snapshot copies all spans in insertion order, computing durations for
// spans with both endpoints set.
func (tl *timeline) snapshot() []Span {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	out := make([]Span, 0, len(tl.order))
	for _, name := range tl.order {
		span := *tl.spans[name]
		if !span.Start.IsZero() && !span.End.IsZero() {
			span.Duration = span.End.Sub(span.Start)
		}
		out = append(out, span)
	}
	return out
}

// clear discards all spans.
func (tl *timeline) clear() {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	tl.spans = make(map[string]*Span)
	tl.order = nil
}

// attrsFromArgs converts slog-style key-value pairs into a span attribute
// map. A dangling key is kept with a nil value; non-string keys are
// stringified.
func attrsFromArgs(args []any) map[string]any {
	if len(args) == 0 {
		return nil
	}
	attrs := make(map[string]any, (len(args)+1)/2)
	for i := 0; i < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprint(args[i])
		}
		if i+1 < len(args) {
			attrs[key] = args[i+1]
		} else {
			attrs[key] = nil
		}
	}
	return attrs
}
