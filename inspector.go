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
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// EventType represents the severity of an internal operational event.
type EventType int

const (
	// EventError indicates an error event (e.g., failed to export a record).
	EventError EventType = iota
	// EventWarning indicates a warning event (e.g., a capability panicked).
	EventWarning
	// EventInfo indicates an informational event (e.g., inspector initialized).
	EventInfo
	// EventDebug indicates a debug event (e.g., detailed operation logs).
	EventDebug
)

// Event represents an internal operational event from the inspector package.
// Events are used to report errors, warnings, and informational messages
// about the inspector's own operation; they are distinct from the
// per-request [LifecycleEvent] stream.
type Event struct {
	Type    EventType
	Message string
	Args    []any // slog-style key-value pairs
}

// EventHandler processes internal operational events from the inspector
// package. Implementations can log events, send them to monitoring systems,
// or take custom actions based on event type.
//
// Example custom handler:
//
//	inspector.WithEventHandler(func(e inspector.Event) {
//	    if e.Type == inspector.EventError {
//	        sentry.CaptureMessage(e.Message)
//	    }
//	    slog.Default().Info(e.Message, e.Args...)
//	})
type EventHandler func(Event)

// DefaultEventHandler returns an EventHandler that logs events to the
// provided slog.Logger. This is the default implementation used by
// WithLogger.
//
// If logger is nil, returns a no-op handler that discards all events.
func DefaultEventHandler(logger *slog.Logger) EventHandler {
	if logger == nil {
		return func(Event) {} // no-op
	}
	return func(e Event) {
		switch e.Type {
		case EventError:
			logger.Error(e.Message, e.Args...)
		case EventWarning:
			logger.Warn(e.Message, e.Args...)
		case EventInfo:
			logger.Info(e.Message, e.Args...)
		case EventDebug:
			logger.Debug(e.Message, e.Args...)
		}
	}
}

const (
	// DefaultServiceName is the default service name used when none is provided.
	DefaultServiceName = "rivaas-service"

	// DefaultServiceVersion is the default service version when none is provided.
	DefaultServiceVersion = "1.0.0"

	// DefaultMaxLogEntries is the default per-request log buffer capacity.
	DefaultMaxLogEntries = 1000

	// DefaultMaxStoredRecords is the default capacity of the in-memory
	// record store.
	DefaultMaxStoredRecords = 128
)

// Inspector captures per-request diagnostic records. It is created once via
// [New], holds the configuration, capabilities and export pipeline, and
// spawns one [Collector] per request through [Collect] or the middleware.
//
// Important: Inspector configuration is immutable after creation via New().
// All configuration must be done through functional options. The only
// mutable state is the record store and the export pipeline, both of which
// are safe for concurrent use.
//
// Global State:
// By default, this package does NOT set the global OpenTelemetry tracer
// provider. Use WithGlobalTracerProvider() if you want global registration.
// This allows multiple inspector configurations to coexist in the same
// process.
type Inspector struct {
	// Export pipeline
	tracer         trace.Tracer
	tracerProvider trace.TracerProvider
	sdkProvider    *sdktrace.TracerProvider
	propagator     propagation.TextMapPropagator
	eventHandler   EventHandler

	// Optional application capabilities
	session SessionProvider
	user    UserProvider
	routes  RouteLister
	namer   HandlerNamer

	// Capture policy
	redact         *redactPolicy
	requestHeaders []string // nil records the full header map
	maxLogEntries  int
	maxStored      int

	// Identity and provider configuration
	serviceName    string
	serviceVersion string
	provider       Provider
	otlpEndpoint   string

	lifecycleHandlers []LifecycleHandler

	store   *recordStore
	metrics *selfMetrics

	// Deferred OTLP initialization (network providers initialize in Start)
	providerDeferred atomic.Bool
	started          atomic.Bool

	// Shutdown synchronization
	shutdownOnce sync.Once
	shutdownErr  error

	// Small types and booleans at end
	collectLog           bool
	collectRoutes        bool
	timelineOff          bool
	otlpInsecure         bool
	providerSet          bool
	customTracerProvider bool
	registerGlobal       bool
	metricsEnabled       bool
	enabled              bool

	// Validation errors (collected during option application)
	validationErrors []error
}

// New creates a new Inspector with the given options.
// Returns an error if the configuration is invalid or the export provider
// fails to initialize. For a version that panics on error, use [MustNew].
//
// Default configuration:
//   - Service name: DefaultServiceName ("rivaas-service")
//   - Provider: NoopProvider (records collected and stored, not exported)
//   - Log capture: enabled, DefaultMaxLogEntries per request
//   - Route snapshots: disabled (enable with WithRouteSnapshot)
//   - Record store: DefaultMaxStoredRecords
//   - Redaction: keys containing "password", case-insensitively
//
// OTLP providers establish network connections and therefore finish
// initializing in [Inspector.Start]; records resolved before Start are
// stored but not exported.
//
// Example:
//
//	insp, err := inspector.New(
//	    inspector.WithServiceName("my-api"),
//	    inspector.WithOTLP("localhost:4317", inspector.OTLPInsecure()),
//	    inspector.WithRouteSnapshot(),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer insp.Shutdown(context.Background())
func New(opts ...Option) (*Inspector, error) {
	insp := newDefaultInspector()

	// Apply options
	for _, opt := range opts {
		opt(insp)
	}

	// Validate configuration
	if err := insp.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Initialize the provider (OTLP defers to Start)
	if err := insp.initializeProvider(); err != nil {
		return nil, fmt.Errorf("failed to initialize inspector: %w", err)
	}

	if insp.metricsEnabled {
		metrics, err := newSelfMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize inspector metrics: %w", err)
		}
		insp.metrics = metrics
	}

	if insp.maxStored > 0 {
		insp.store = newRecordStore(insp.maxStored)
	}

	return insp, nil
}

// newDefaultInspector creates an Inspector with default values.
func newDefaultInspector() *Inspector {
	return &Inspector{
		enabled:        true,
		serviceName:    DefaultServiceName,
		serviceVersion: DefaultServiceVersion,
		propagator:     otel.GetTextMapPropagator(),
		provider:       NoopProvider,
		redact:         defaultRedactPolicy(),
		collectLog:     true,
		collectRoutes:  false,
		maxLogEntries:  DefaultMaxLogEntries,
		maxStored:      DefaultMaxStoredRecords,
	}
}

// MustNew creates a new Inspector with the given options.
// It panics if the configuration is invalid or the provider fails to
// initialize.
//
// Example:
//
//	insp := inspector.MustNew(
//	    inspector.WithServiceName("my-api"),
//	    inspector.WithStdout(),
//	)
//	defer insp.Shutdown(context.Background())
func MustNew(opts ...Option) *Inspector {
	insp, err := New(opts...)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize inspector: %v", err))
	}
	return insp
}

// validate checks that the configuration is valid.
func (i *Inspector) validate() error {
	// Check for validation errors collected during option application
	if len(i.validationErrors) > 0 {
		var errMsgs []string
		for _, err := range i.validationErrors {
			errMsgs = append(errMsgs, err.Error())
		}
		return fmt.Errorf("validation errors: %s", strings.Join(errMsgs, "; "))
	}

	if i.serviceName == "" {
		return fmt.Errorf("service name cannot be empty")
	}
	if i.serviceVersion == "" {
		return fmt.Errorf("service version cannot be empty")
	}
	if i.maxLogEntries < 0 {
		return fmt.Errorf("max log entries cannot be negative, got %d", i.maxLogEntries)
	}
	if i.maxStored < 0 {
		return fmt.Errorf("max stored records cannot be negative, got %d", i.maxStored)
	}

	switch i.provider {
	case NoopProvider, StdoutProvider, OTLPHTTPProvider:
		// No provider-specific validation needed
	case OTLPProvider:
		if i.otlpEndpoint == "" {
			i.emitWarning("OTLP endpoint not specified, will use default", "default", "localhost:4317")
			i.otlpEndpoint = "localhost:4317"
		}
	default:
		return fmt.Errorf("unsupported export provider: %s", i.provider)
	}

	return nil
}

// Start finishes initialization for providers that need a network
// connection (OTLP gRPC and OTLP HTTP). It is idempotent; non-network
// providers return immediately.
//
// Records resolved before Start with an OTLP provider are stored and
// counted but not exported.
//
// Example:
//
//	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer cancel()
//
//	insp := inspector.MustNew(inspector.WithOTLP("localhost:4317"))
//	if err := insp.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
func (i *Inspector) Start(ctx context.Context) error {
	if !i.enabled {
		return nil
	}

	// Idempotent: only start once
	if !i.started.CompareAndSwap(false, true) {
		return nil
	}

	if i.providerDeferred.Load() {
		if err := i.initializeProviderWithContext(ctx); err != nil {
			i.started.Store(false) // Reset on failure to allow retry
			return fmt.Errorf("failed to initialize export provider: %w", err)
		}
		i.providerDeferred.Store(false)
	}

	return nil
}

// Shutdown flushes pending exports and releases the export pipeline.
// It is idempotent; all concurrent calls wait for the same shutdown.
//
// Example:
//
//	defer func() {
//	    ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
//	    defer cancel()
//	    if err := insp.Shutdown(ctx); err != nil {
//	        log.Printf("inspector shutdown: %v", err)
//	    }
//	}()
func (i *Inspector) Shutdown(ctx context.Context) error {
	if !i.enabled {
		return nil
	}

	i.shutdownOnce.Do(func() {
		// User-provided tracer providers are managed by the user.
		if i.sdkProvider != nil && !i.customTracerProvider {
			i.emitDebug("Shutting down tracer provider")
			if err := i.sdkProvider.Shutdown(ctx); err != nil {
				i.emitError("Error shutting down tracer provider", "error", err)
				i.shutdownErr = fmt.Errorf("tracer provider shutdown: %w", err)
			}
		}
		if i.metrics != nil {
			if err := i.metrics.shutdown(ctx); err != nil {
				i.emitError("Error shutting down metrics provider", "error", err)
				if i.shutdownErr == nil {
					i.shutdownErr = fmt.Errorf("metrics provider shutdown: %w", err)
				}
			}
		}
	})

	return i.shutdownErr
}

// Collect creates the collector for one request. The middleware calls this
// for every request it serves; manual integrations construct the RawRequest
// themselves:
//
//	c := insp.Collect(inspector.RawRequest{
//	    Method: "POST",
//	    URI:    "/orders?expand=items",
//	})
//	defer func() {
//	    rec, err := c.Resolve()
//	    ...
//	}()
func (i *Inspector) Collect(raw RawRequest) *Collector {
	c := newCollector(i, raw)
	i.emitDebug("Collector created", "record_id", c.id)
	return c
}

// Submit runs a resolved record through the export pipeline: the in-memory
// store, self-metrics, and the configured export provider. Export failures
// are reported through operational events as well as the returned error;
// the store and metrics always run.
func (i *Inspector) Submit(ctx context.Context, rec *Record) error {
	if rec == nil || !i.enabled {
		return nil
	}

	if i.store != nil {
		if evicted := i.store.add(rec); evicted != "" {
			i.emitDebug("Stored record evicted", "record_id", evicted)
		}
		i.metrics.setStoredRecords(ctx, i.store.len())
	}

	i.metrics.observeRecord(ctx, rec)

	if err := i.exportRecord(ctx, rec); err != nil {
		i.emitError("Failed to export record", "record_id", rec.ID, "error", err)
		i.metrics.addExportFailure(ctx)
		return fmt.Errorf("export record %s: %w", rec.ID, err)
	}

	return nil
}

// IsEnabled returns true if the inspector is enabled.
func (i *Inspector) IsEnabled() bool {
	return i.enabled
}

// ServiceName returns the configured service name.
func (i *Inspector) ServiceName() string {
	return i.serviceName
}

// ServiceVersion returns the configured service version.
func (i *Inspector) ServiceVersion() string {
	return i.serviceVersion
}

// GetProvider returns the configured export provider.
func (i *Inspector) GetProvider() Provider {
	if !i.enabled {
		return ""
	}
	return i.provider
}

// extractTraceContext pulls W3C trace context from request headers so that
// exported record spans parent to the caller's trace.
func (i *Inspector) extractTraceContext(ctx context.Context, headers http.Header) context.Context {
	if i.propagator == nil {
		return ctx
	}
	return i.propagator.Extract(ctx, propagation.HeaderCarrier(headers))
}

// emitError emits an error event if an event handler is configured.
func (i *Inspector) emitError(msg string, args ...any) {
	if i.eventHandler != nil {
		i.eventHandler(Event{Type: EventError, Message: msg, Args: args})
	}
}

// emitWarning emits a warning event if an event handler is configured.
func (i *Inspector) emitWarning(msg string, args ...any) {
	if i.eventHandler != nil {
		i.eventHandler(Event{Type: EventWarning, Message: msg, Args: args})
	}
}

// emitInfo emits an info event if an event handler is configured.
func (i *Inspector) emitInfo(msg string, args ...any) {
	if i.eventHandler != nil {
		i.eventHandler(Event{Type: EventInfo, Message: msg, Args: args})
	}
}

// emitDebug emits a debug event if an event handler is configured.
func (i *Inspector) emitDebug(msg string, args ...any) {
	if i.eventHandler != nil {
		i.eventHandler(Event{Type: EventDebug, Message: msg, Args: args})
	}
}
