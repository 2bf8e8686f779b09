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
	"log/slog"
	"strings"
	"sync"
)

// logBuffer accumulates the log entries emitted during one request.
// It is bounded: once capacity is reached, further entries are counted but
// not stored. A capacity of zero disables capture entirely.
type logBuffer struct {
	mu      sync.Mutex
	entries []LogEntry
	max     int
	dropped int
}

func newLogBuffer(max int) *logBuffer {
	return &logBuffer{max: max}
}

// add stores the entry, or counts it as dropped once the buffer is full.
// Returns false when the entry was not stored.
func (b *logBuffer) add(entry LogEntry) bool {
	if b.max <= 0 {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.entries) >= b.max {
		b.dropped++
		return false
	}
	b.entries = append(b.entries, entry)
	return true
}

// snapshot copies the buffered entries and the dropped count.
func (b *logBuffer) snapshot() ([]LogEntry, int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]LogEntry, len(b.entries))
	copy(out, b.entries)
	return out, b.dropped
}

func (b *logBuffer) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.entries)
}

// captureHandler is a slog.Handler that copies every record into the
// collector's log buffer and forwards it to the wrapped handler. Capture is
// a tee: records are never swallowed, and the wrapped handler's level
// filtering still applies to forwarding.
//
// Clones produced by WithAttrs and WithGroup share the same collector, so
// derived loggers all feed the same request buffer.
type captureHandler struct {
	collector *Collector
	next      slog.Handler // nil means capture only
	base      map[string]any
	groups    []string
}

// Enabled always reports true: every record must reach the buffer even when
// the wrapped handler would filter it out.
func (h *captureHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

func (h *captureHandler) Handle(ctx context.Context, record slog.Record) error {
	entry := LogEntry{
		Time:    record.Time,
		Level:   record.Level,
		Message: record.Message,
	}
	if len(h.base) > 0 || record.NumAttrs() > 0 {
		attrs := make(map[string]any, len(h.base)+record.NumAttrs())
		for k, v := range h.base {
			attrs[k] = v
		}
		prefix := joinGroups(h.groups)
		record.Attrs(func(a slog.Attr) bool {
			flattenAttr(attrs, prefix, a)
			return true
		})
		entry.Attrs = attrs
	}

	h.collector.noteLog(ctx, entry)

	if h.next != nil && h.next.Enabled(ctx, record.Level) {
		return h.next.Handle(ctx, record.Clone())
	}
	return nil
}

func (h *captureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	clone := h.clone()
	prefix := joinGroups(h.groups)
	for _, a := range attrs {
		flattenAttr(clone.base, prefix, a)
	}
	if h.next != nil {
		clone.next = h.next.WithAttrs(attrs)
	}
	return clone
}

func (h *captureHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := h.clone()
	clone.groups = append(clone.groups, name)
	if h.next != nil {
		clone.next = h.next.WithGroup(name)
	}
	return clone
}

func (h *captureHandler) clone() *captureHandler {
	base := make(map[string]any, len(h.base))
	for k, v := range h.base {
		base[k] = v
	}
	groups := make([]string, len(h.groups))
	copy(groups, h.groups)
	return &captureHandler{
		collector: h.collector,
		next:      h.next,
		base:      base,
		groups:    groups,
	}
}

func joinGroups(groups []string) string {
	if len(groups) == 0 {
		return ""
	}
	return strings.Join(groups, ".") + "."
}

// flattenAttr resolves an attribute into dotted-key map form. Group attrs
// recurse with their name appended to the prefix.
func flattenAttr(dst map[string]any, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Value.Kind() == slog.KindGroup {
		groupPrefix := prefix
		if a.Key != "" {
			groupPrefix = prefix + a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			flattenAttr(dst, groupPrefix, ga)
		}
		return
	}
	if a.Key == "" {
		return
	}
	dst[prefix+a.Key] = a.Value.Any()
}
