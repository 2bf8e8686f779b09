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
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Option defines functional options for Inspector configuration.
// Options are applied during Inspector creation via New().
type Option func(*Inspector)

// WithServiceName sets the service name for exported records.
// This name appears in span attributes as 'service.name'.
//
// Example:
//
//	insp := inspector.New(inspector.WithServiceName("my-api"))
func WithServiceName(name string) Option {
	return func(i *Inspector) {
		i.serviceName = name
	}
}

// WithServiceVersion sets the service version for exported records.
// This version appears in span attributes as 'service.version'.
//
// Example:
//
//	insp := inspector.New(inspector.WithServiceVersion("v1.2.3"))
func WithServiceVersion(version string) Option {
	return func(i *Inspector) {
		i.serviceVersion = version
	}
}

// WithSessionProvider configures the session capability. Session snapshots
// in records stay empty without it.
//
// Example:
//
//	insp := inspector.New(inspector.WithSessionProvider(
//	    inspector.SessionProviderFunc(func(r *http.Request) map[string]any {
//	        return sessions.Values(r)
//	    }),
//	))
func WithSessionProvider(p SessionProvider) Option {
	return func(i *Inspector) {
		if p == nil {
			i.validationErrors = append(i.validationErrors,
				fmt.Errorf("sessionProvider: cannot be nil"))
			return
		}
		i.session = p
	}
}

// WithUserProvider configures the authenticated-user capability. Records
// carry no user identity without it.
func WithUserProvider(p UserProvider) Option {
	return func(i *Inspector) {
		if p == nil {
			i.validationErrors = append(i.validationErrors,
				fmt.Errorf("userProvider: cannot be nil"))
			return
		}
		i.user = p
	}
}

// WithRouteLister configures the route table capability, used for route
// snapshots and handler-name lookups. For rivaas applications, use
// [RouteListerFor] to adapt a router.
func WithRouteLister(l RouteLister) Option {
	return func(i *Inspector) {
		if l == nil {
			i.validationErrors = append(i.validationErrors,
				fmt.Errorf("routeLister: cannot be nil"))
			return
		}
		i.routes = l
	}
}

// WithHandlerNamer configures the handler-name capability, the first tier
// of handler resolution. Rivaas applications do not need it: the router
// middleware binds handler names through the route table instead.
func WithHandlerNamer(n HandlerNamer) Option {
	return func(i *Inspector) {
		if n == nil {
			i.validationErrors = append(i.validationErrors,
				fmt.Errorf("handlerNamer: cannot be nil"))
			return
		}
		i.namer = n
	}
}

// WithRouteSnapshot enables route table snapshots in records. Snapshots are
// off by default; they add the full route table to every record, which is
// useful during development and noisy in production.
//
// Example:
//
//	insp := inspector.New(
//	    inspector.WithRouteLister(inspector.RouteListerFor(r)),
//	    inspector.WithRouteSnapshot(),
//	)
func WithRouteSnapshot() Option {
	return func(i *Inspector) {
		i.collectRoutes = true
	}
}

// WithoutLogCapture disables log capture entirely: no buffering and no
// LogEmitted lifecycle events. Loggers returned by [Collector.Logger] still
// forward to their base handler.
func WithoutLogCapture() Option {
	return func(i *Inspector) {
		i.collectLog = false
	}
}

// WithMaxLogEntries bounds the per-request log buffer. Entries beyond the
// limit are counted in Record.DroppedLogs but not stored. Zero disables
// buffering while keeping LogEmitted events.
func WithMaxLogEntries(n int) Option {
	return func(i *Inspector) {
		if n < 0 {
			i.validationErrors = append(i.validationErrors,
				fmt.Errorf("maxLogEntries: must be >= 0, got %d", n))
			return
		}
		i.maxLogEntries = n
	}
}

// WithRequestHeaders restricts header capture to the named headers.
// By default the full header map is captured. Sensitive headers
// (Authorization, Cookie, ...) are never captured, in either mode.
//
// Example:
//
//	insp := inspector.New(
//	    inspector.WithRequestHeaders("Accept", "Content-Type", "X-Request-ID"),
//	)
func WithRequestHeaders(names ...string) Option {
	return func(i *Inspector) {
		filtered := make([]string, 0, len(names))
		for _, name := range names {
			if sensitiveHeaders[strings.ToLower(name)] {
				continue
			}
			filtered = append(filtered, name)
		}
		i.requestHeaders = filtered
	}
}

// WithRedactKeys adds case-insensitive substrings to the session redaction
// policy, on top of the built-in "password" rule.
//
// Example:
//
//	insp := inspector.New(inspector.WithRedactKeys("token", "secret"))
func WithRedactKeys(keys ...string) Option {
	return func(i *Inspector) {
		for _, key := range keys {
			if key == "" {
				i.validationErrors = append(i.validationErrors,
					fmt.Errorf("redactKeys: key cannot be empty"))
				continue
			}
			i.redact.substrings = append(i.redact.substrings, strings.ToLower(key))
		}
	}
}

// WithRedactFunc replaces the redaction policy with a custom predicate.
// The predicate receives each top-level session key and reports whether its
// value must be masked.
func WithRedactFunc(fn func(key string) bool) Option {
	return func(i *Inspector) {
		if fn == nil {
			i.validationErrors = append(i.validationErrors,
				fmt.Errorf("redactFunc: cannot be nil"))
			return
		}
		i.redact.custom = fn
	}
}

// WithoutTimeline disables the built-in middleware and handler spans.
// Spans opened explicitly via [Collector.StartSpan] are unaffected.
func WithoutTimeline() Option {
	return func(i *Inspector) {
		i.timelineOff = true
	}
}

// WithMaxStoredRecords sets the capacity of the in-memory record store.
// When full, the oldest record is evicted. Zero disables the store and the
// debug handler.
func WithMaxStoredRecords(n int) Option {
	return func(i *Inspector) {
		if n < 0 {
			i.validationErrors = append(i.validationErrors,
				fmt.Errorf("maxStoredRecords: must be >= 0, got %d", n))
			return
		}
		i.maxStored = n
	}
}

// WithoutStore disables the in-memory record store and the debug handler.
func WithoutStore() Option {
	return func(i *Inspector) {
		i.maxStored = 0
	}
}

// WithMetrics enables self-metrics (records, export failures, dropped
// logs) on a private Prometheus registry exposed via
// [Inspector.MetricsHandler].
func WithMetrics() Option {
	return func(i *Inspector) {
		i.metricsEnabled = true
	}
}

// WithLifecycleHandler registers a subscriber for the typed per-request
// lifecycle events (HandlerStarted, HandlerFinished, LogEmitted).
// Handlers run synchronously on the request goroutine; panics are contained
// and reported as operational events.
//
// Example:
//
//	inspector.WithLifecycleHandler(inspector.LifecycleHandlerFunc(
//	    func(ctx context.Context, e inspector.LifecycleEvent) {
//	        if e.Kind == inspector.HandlerFinished {
//	            audit.Touch(e.Collector.ID())
//	        }
//	    },
//	))
func WithLifecycleHandler(h LifecycleHandler) Option {
	return func(i *Inspector) {
		if h == nil {
			i.validationErrors = append(i.validationErrors,
				fmt.Errorf("lifecycleHandler: cannot be nil"))
			return
		}
		i.lifecycleHandlers = append(i.lifecycleHandlers, h)
	}
}

// WithEventHandler sets a custom event handler for internal operational
// events. Use this for advanced use cases like sending errors to Sentry,
// custom alerting, or integrating with non-slog logging systems.
//
// Example:
//
//	inspector.New(inspector.WithEventHandler(func(e inspector.Event) {
//	    if e.Type == inspector.EventError {
//	        sentry.CaptureMessage(e.Message)
//	    }
//	    myLogger.Log(e.Type, e.Message, e.Args...)
//	}))
func WithEventHandler(handler EventHandler) Option {
	return func(i *Inspector) {
		i.eventHandler = handler
	}
}

// WithLogger sets the logger for internal operational events using the
// default event handler. This is a convenience wrapper around
// WithEventHandler that logs events to the provided slog.Logger.
//
// Example:
//
//	// Use stdlib slog
//	inspector.New(inspector.WithLogger(slog.Default()))
//
//	// Use custom slog logger
//	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
//	inspector.New(inspector.WithLogger(logger))
func WithLogger(logger *slog.Logger) Option {
	return WithEventHandler(DefaultEventHandler(logger))
}

// WithTracerProvider allows you to provide a custom OpenTelemetry
// TracerProvider for record export. When using this option, the package
// will NOT set the global otel.SetTracerProvider() by default. Use
// WithGlobalTracerProvider() if you want global registration.
//
// This is useful when:
//   - You want to manage the tracer provider lifecycle yourself
//   - You need multiple independent inspector configurations
//   - You want to avoid global state in your application
//
// Note: When using WithTracerProvider, provider options (WithOTLP,
// WithStdout, etc.) are ignored since you're managing the provider
// yourself.
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(i *Inspector) {
		i.tracerProvider = provider
		i.customTracerProvider = true
	}
}

// WithGlobalTracerProvider registers the tracer provider as the global
// OpenTelemetry tracer provider via otel.SetTracerProvider().
// By default, tracer providers are not registered globally to allow
// multiple configurations to coexist in the same process.
func WithGlobalTracerProvider() Option {
	return func(i *Inspector) {
		i.registerGlobal = true
	}
}

// WithCustomTracer allows using a custom OpenTelemetry tracer for record
// export. This is useful when you need specific tracer configuration or
// want to use a tracer from an existing OpenTelemetry setup.
func WithCustomTracer(tracer trace.Tracer) Option {
	return func(i *Inspector) {
		i.tracer = tracer
	}
}

// WithCustomPropagator allows using a custom OpenTelemetry propagator for
// linking exported records to incoming trace context. By default, uses the
// global propagator from otel.GetTextMapPropagator().
func WithCustomPropagator(propagator propagation.TextMapPropagator) Option {
	return func(i *Inspector) {
		i.propagator = propagator
	}
}

// OTLPOption configures OTLP provider behavior.
type OTLPOption func(*otlpConfig)

type otlpConfig struct {
	insecure bool
}

// OTLPInsecure enables insecure gRPC for OTLP.
// Default is false (uses TLS). Set to true for local development.
func OTLPInsecure() OTLPOption {
	return func(c *otlpConfig) {
		c.insecure = true
	}
}

// WithOTLP configures the OTLP gRPC export provider with an endpoint.
// Endpoint format: "host:port" (e.g., "localhost:4317")
//
// Only one provider can be configured. Configuring multiple providers
// (e.g., WithOTLP and WithStdout) will result in a validation error.
//
// Example:
//
//	// Simple:
//	insp := inspector.MustNew(inspector.WithOTLP("localhost:4317"))
//
//	// With insecure option:
//	insp := inspector.MustNew(inspector.WithOTLP("localhost:4317", inspector.OTLPInsecure()))
func WithOTLP(endpoint string, opts ...OTLPOption) Option {
	return func(i *Inspector) {
		if i.providerSet {
			i.validationErrors = append(i.validationErrors,
				fmt.Errorf("provider: multiple providers configured (already have %q, cannot add %q); only one provider allowed", i.provider, OTLPProvider))

			return
		}
		i.provider = OTLPProvider
		i.otlpEndpoint = endpoint
		i.providerSet = true
		cfg := &otlpConfig{}
		for _, opt := range opts {
			opt(cfg)
		}
		i.otlpInsecure = cfg.insecure
	}
}

// WithOTLPHTTP configures the OTLP HTTP export provider with an endpoint.
// Endpoint format: "http://host:port" (e.g., "http://localhost:4318")
//
// Only one provider can be configured. Configuring multiple providers
// will result in a validation error.
//
// Example:
//
//	insp := inspector.MustNew(inspector.WithOTLPHTTP("http://localhost:4318"))
func WithOTLPHTTP(endpoint string) Option {
	return func(i *Inspector) {
		if i.providerSet {
			i.validationErrors = append(i.validationErrors,
				fmt.Errorf("provider: multiple providers configured (already have %q, cannot add %q); only one provider allowed", i.provider, OTLPHTTPProvider))

			return
		}
		i.provider = OTLPHTTPProvider
		i.otlpEndpoint = endpoint
		i.providerSet = true
	}
}

// WithStdout configures the stdout export provider for development and
// debugging. Records are pretty-printed as OTLP spans.
//
// Only one provider can be configured. Configuring multiple providers
// will result in a validation error.
//
// Example:
//
//	insp := inspector.MustNew(inspector.WithStdout())
func WithStdout() Option {
	return func(i *Inspector) {
		if i.providerSet {
			i.validationErrors = append(i.validationErrors,
				fmt.Errorf("provider: multiple providers configured (already have %q, cannot add %q); only one provider allowed", i.provider, StdoutProvider))

			return
		}
		i.provider = StdoutProvider
		i.providerSet = true
	}
}

// WithNoop configures the noop export provider (default). Records are
// collected, stored and counted, but not exported.
//
// Only one provider can be configured. Configuring multiple providers
// will result in a validation error.
//
// Example:
//
//	insp := inspector.MustNew(inspector.WithNoop())
func WithNoop() Option {
	return func(i *Inspector) {
		if i.providerSet {
			i.validationErrors = append(i.validationErrors,
				fmt.Errorf("provider: multiple providers configured (already have %q, cannot add %q); only one provider allowed", i.provider, NoopProvider))

			return
		}
		i.provider = NoopProvider
		i.providerSet = true
	}
}
