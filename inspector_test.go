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
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// eventRecorder collects operational events for assertions.
type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) handler() EventHandler {
	return func(e Event) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, e)
	}
}

func (r *eventRecorder) byType(t EventType) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func (r *eventRecorder) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Message
	}
	return out
}

// =============================================================================
// Construction Tests
// =============================================================================

// TestNewDefaults tests the default configuration.
func TestNewDefaults(t *testing.T) {
	t.Parallel()

	insp, err := New()
	require.NoError(t, err)
	require.NotNil(t, insp)
	t.Cleanup(func() { _ = insp.Shutdown(t.Context()) })

	assert.True(t, insp.IsEnabled())
	assert.Equal(t, DefaultServiceName, insp.ServiceName())
	assert.Equal(t, DefaultServiceVersion, insp.ServiceVersion())
	assert.Equal(t, NoopProvider, insp.GetProvider())

	assert.True(t, insp.collectLog)
	assert.False(t, insp.collectRoutes)
	assert.Equal(t, DefaultMaxLogEntries, insp.maxLogEntries)
	require.NotNil(t, insp.store)
	assert.Equal(t, DefaultMaxStoredRecords, insp.store.max)

	records, err := insp.Records()
	require.NoError(t, err)
	assert.Empty(t, records)
}

// TestNewServiceIdentity tests the identity accessors.
func TestNewServiceIdentity(t *testing.T) {
	t.Parallel()

	insp := TestingInspector(t,
		WithServiceName("order-api"),
		WithServiceVersion("v2.1.0"),
	)

	assert.Equal(t, "order-api", insp.ServiceName())
	assert.Equal(t, "v2.1.0", insp.ServiceVersion())
}

// TestNewValidationErrors tests that invalid configurations are rejected
// with descriptive errors.
func TestNewValidationErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		opts        []Option
		expectedErr string
	}{
		{
			name:        "empty service name",
			opts:        []Option{WithServiceName("")},
			expectedErr: "service name cannot be empty",
		},
		{
			name:        "empty service version",
			opts:        []Option{WithServiceVersion("")},
			expectedErr: "service version cannot be empty",
		},
		{
			name:        "nil session provider",
			opts:        []Option{WithSessionProvider(nil)},
			expectedErr: "sessionProvider: cannot be nil",
		},
		{
			name:        "nil user provider",
			opts:        []Option{WithUserProvider(nil)},
			expectedErr: "userProvider: cannot be nil",
		},
		{
			name:        "nil route lister",
			opts:        []Option{WithRouteLister(nil)},
			expectedErr: "routeLister: cannot be nil",
		},
		{
			name:        "nil handler namer",
			opts:        []Option{WithHandlerNamer(nil)},
			expectedErr: "handlerNamer: cannot be nil",
		},
		{
			name:        "nil redact func",
			opts:        []Option{WithRedactFunc(nil)},
			expectedErr: "redactFunc: cannot be nil",
		},
		{
			name:        "nil lifecycle handler",
			opts:        []Option{WithLifecycleHandler(nil)},
			expectedErr: "lifecycleHandler: cannot be nil",
		},
		{
			name:        "empty redact key",
			opts:        []Option{WithRedactKeys("")},
			expectedErr: "redactKeys: key cannot be empty",
		},
		{
			name:        "negative max log entries",
			opts:        []Option{WithMaxLogEntries(-1)},
			expectedErr: "maxLogEntries: must be >= 0, got -1",
		},
		{
			name:        "negative max stored records",
			opts:        []Option{WithMaxStoredRecords(-5)},
			expectedErr: "maxStoredRecords: must be >= 0, got -5",
		},
		{
			name:        "conflicting providers",
			opts:        []Option{WithStdout(), WithNoop()},
			expectedErr: "provider: multiple providers configured",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			insp, err := New(tt.opts...)
			require.Error(t, err)
			assert.Nil(t, insp)
			assert.Contains(t, err.Error(), tt.expectedErr)
			assert.Contains(t, err.Error(), "invalid configuration")
		})
	}
}

// TestNewCollectsMultipleValidationErrors tests that option errors are
// joined rather than reported one at a time.
func TestNewCollectsMultipleValidationErrors(t *testing.T) {
	t.Parallel()

	_, err := New(
		WithSessionProvider(nil),
		WithMaxLogEntries(-1),
	)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "sessionProvider: cannot be nil")
	assert.Contains(t, err.Error(), "maxLogEntries: must be >= 0, got -1")
	assert.Contains(t, err.Error(), "; ")
}

// TestMustNew tests the panicking constructor.
func TestMustNew(t *testing.T) {
	t.Parallel()

	t.Run("valid configuration returns inspector", func(t *testing.T) {
		t.Parallel()

		insp := MustNew(WithServiceName("test-service"))
		require.NotNil(t, insp)
		t.Cleanup(func() { _ = insp.Shutdown(t.Context()) })

		assert.Equal(t, "test-service", insp.ServiceName())
	})

	t.Run("invalid configuration panics", func(t *testing.T) {
		t.Parallel()

		assert.PanicsWithValue(t,
			"Failed to initialize inspector: invalid configuration: service name cannot be empty",
			func() { MustNew(WithServiceName("")) },
		)
	})
}

// TestDisabledInspector tests the guard paths of a zero-value Inspector.
func TestDisabledInspector(t *testing.T) {
	t.Parallel()

	insp := &Inspector{}

	assert.False(t, insp.IsEnabled())
	assert.Equal(t, Provider(""), insp.GetProvider())
	assert.NoError(t, insp.Start(context.Background()))
	assert.NoError(t, insp.Shutdown(context.Background()))
	assert.NoError(t, insp.Submit(context.Background(), &Record{ID: "r1"}))
}

// =============================================================================
// Start / Shutdown Tests
// =============================================================================

// TestInspectorStartNoop tests that non-network providers start
// immediately and idempotently.
func TestInspectorStartNoop(t *testing.T) {
	t.Parallel()

	insp := TestingInspector(t)

	assert.False(t, insp.providerDeferred.Load())
	require.NoError(t, insp.Start(t.Context()))
	require.NoError(t, insp.Start(t.Context()))
	assert.True(t, insp.started.Load())
}

// TestInspectorStartOTLPDeferred tests that OTLP initialization waits for
// Start.
func TestInspectorStartOTLPDeferred(t *testing.T) {
	t.Parallel()

	insp := TestingInspector(t, WithOTLP("localhost:4317", OTLPInsecure()))

	assert.True(t, insp.providerDeferred.Load())
	assert.Nil(t, insp.tracer)

	// Records resolved before Start are stored, not exported.
	col := insp.Collect(RawRequest{Method: "GET", URI: "/early"})
	col.SetResponse(200)
	rec, err := col.Resolve()
	require.NoError(t, err)
	require.NoError(t, insp.Submit(t.Context(), rec))

	ctx, cancel := context.WithTimeout(t.Context(), 2*time.Second)
	defer cancel()
	require.NoError(t, insp.Start(ctx))

	assert.False(t, insp.providerDeferred.Load())
	assert.NotNil(t, insp.tracer)

	// Idempotent after successful start.
	require.NoError(t, insp.Start(ctx))
}

// TestInspectorShutdownIdempotent tests that repeated shutdowns share one
// result.
func TestInspectorShutdownIdempotent(t *testing.T) {
	t.Parallel()

	insp, err := New(WithServiceName("test-service"), WithStdout())
	require.NoError(t, err)

	assert.NoError(t, insp.Shutdown(t.Context()))
	assert.NoError(t, insp.Shutdown(t.Context()))
}

// =============================================================================
// Submit Tests
// =============================================================================

// TestInspectorSubmit tests the record pipeline: store, then export.
func TestInspectorSubmit(t *testing.T) {
	t.Parallel()

	t.Run("nil record is ignored", func(t *testing.T) {
		t.Parallel()

		insp := TestingInspector(t)
		assert.NoError(t, insp.Submit(t.Context(), nil))
	})

	t.Run("record lands in the store", func(t *testing.T) {
		t.Parallel()

		insp := TestingInspector(t)

		col := insp.Collect(RawRequest{Method: "GET", URI: "/users"})
		col.SetResponse(200)
		rec, err := col.Resolve()
		require.NoError(t, err)

		require.NoError(t, insp.Submit(t.Context(), rec))

		stored, ok, err := insp.Record(rec.ID)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "/users", stored.URI)
	})

	t.Run("store disabled still submits", func(t *testing.T) {
		t.Parallel()

		insp := TestingInspector(t, WithoutStore())

		col := insp.Collect(RawRequest{Method: "GET", URI: "/users"})
		col.SetResponse(200)
		rec, err := col.Resolve()
		require.NoError(t, err)

		assert.NoError(t, insp.Submit(t.Context(), rec))
	})
}

// TestInspectorSubmitEviction tests that a full store evicts the oldest
// record and reports it as a debug event.
func TestInspectorSubmitEviction(t *testing.T) {
	t.Parallel()

	rec := &eventRecorder{}
	insp := TestingInspector(t,
		WithMaxStoredRecords(1),
		WithEventHandler(rec.handler()),
	)

	submit := func(uri string) *Record {
		col := insp.Collect(RawRequest{Method: "GET", URI: uri})
		col.SetResponse(200)
		r, err := col.Resolve()
		require.NoError(t, err)
		require.NoError(t, insp.Submit(t.Context(), r))
		return r
	}

	first := submit("/first")
	second := submit("/second")

	records, err := insp.Records()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, second.ID, records[0].ID)

	evictions := 0
	for _, e := range rec.byType(EventDebug) {
		if e.Message == "Stored record evicted" {
			evictions++
			assert.Equal(t, []any{"record_id", first.ID}, e.Args)
		}
	}
	assert.Equal(t, 1, evictions)
}

// =============================================================================
// Operational Event Tests
// =============================================================================

// TestEventEmission tests that internal operations surface as typed
// events.
func TestEventEmission(t *testing.T) {
	t.Parallel()

	rec := &eventRecorder{}
	insp := TestingInspector(t, WithEventHandler(rec.handler()))

	insp.Collect(RawRequest{})

	debugs := rec.byType(EventDebug)
	require.NotEmpty(t, debugs)
	assert.Contains(t, rec.messages(), "Collector created")
}

// TestEventEmissionWithoutHandler tests that emissions are safe with no
// handler configured.
func TestEventEmissionWithoutHandler(t *testing.T) {
	t.Parallel()

	insp := TestingInspector(t)

	assert.NotPanics(t, func() {
		insp.emitError("e")
		insp.emitWarning("w")
		insp.emitInfo("i")
		insp.emitDebug("d")
	})
}

// TestDefaultEventHandler tests severity routing to a slog.Logger.
func TestDefaultEventHandler(t *testing.T) {
	t.Parallel()

	t.Run("nil logger yields no-op handler", func(t *testing.T) {
		t.Parallel()

		handler := DefaultEventHandler(nil)
		require.NotNil(t, handler)
		assert.NotPanics(t, func() {
			handler(Event{Type: EventError, Message: "dropped"})
		})
	})

	t.Run("events map to log levels", func(t *testing.T) {
		t.Parallel()

		mem := &memHandler{level: slog.LevelDebug}
		handler := DefaultEventHandler(slog.New(mem))

		handler(Event{Type: EventError, Message: "an error", Args: []any{"k", "v"}})
		handler(Event{Type: EventWarning, Message: "a warning"})
		handler(Event{Type: EventInfo, Message: "an info"})
		handler(Event{Type: EventDebug, Message: "a debug"})

		require.Equal(t, 4, mem.count())
		mem.mu.Lock()
		defer mem.mu.Unlock()
		assert.Equal(t, slog.LevelError, mem.records[0].Level)
		assert.Equal(t, "an error", mem.records[0].Message)
		assert.Equal(t, slog.LevelWarn, mem.records[1].Level)
		assert.Equal(t, slog.LevelInfo, mem.records[2].Level)
		assert.Equal(t, slog.LevelDebug, mem.records[3].Level)
	})
}

// TestWithLoggerRoutesEvents tests the WithLogger convenience option.
func TestWithLoggerRoutesEvents(t *testing.T) {
	t.Parallel()

	mem := &memHandler{level: slog.LevelDebug}
	insp := TestingInspector(t, WithLogger(slog.New(mem)))

	insp.Collect(RawRequest{})

	assert.Positive(t, mem.count())
}

// TestLifecycleKindString tests lifecycle kind names.
func TestLifecycleKindString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind     LifecycleKind
		expected string
	}{
		{HandlerStarted, "handler_started"},
		{HandlerFinished, "handler_finished"},
		{LogEmitted, "log_emitted"},
		{LifecycleKind(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, tt.kind.String())
		})
	}
}

// TestExtractTraceContext tests W3C trace context extraction from request
// headers.
func TestExtractTraceContext(t *testing.T) {
	t.Parallel()

	insp := TestingInspector(t)

	// The default propagator is a no-op unless otel.SetTextMapPropagator
	// was called, so extraction must at minimum return a usable context.
	ctx := insp.extractTraceContext(context.Background(), nil)
	assert.NotNil(t, ctx)
}
