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

// Package inspector collects a per-request diagnostic record for Go HTTP
// services: the resolved method and URI, the matched handler's name, request
// headers, response status and size, a sanitized session snapshot, the
// authenticated user, captured log entries, and a timeline of named spans.
// Records are exported through OpenTelemetry and optionally kept in an
// in-memory store browsable over HTTP.
//
// # Basic Usage
//
//	import (
//	    "context"
//	    "log"
//	    "net/http"
//
//	    "rivaas.dev/inspector"
//	)
//
//	insp, err := inspector.New(
//	    inspector.WithServiceName("user-api"),
//	    inspector.WithServiceVersion("v1.0.0"),
//	    inspector.WithStdout(),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer insp.Shutdown(context.Background())
//
//	handler := inspector.Middleware(insp)(mux)
//	http.ListenAndServe(":8080", handler)
//
// # Providers
//
// Four export providers are supported:
//
//   - NoopProvider (default): records are collected but not exported
//   - StdoutProvider: prints records to stdout (for development/testing)
//   - OTLPProvider: sends records to an OTLP collector over gRPC
//   - OTLPHTTPProvider: sends records to an OTLP collector over HTTP
//
// OTLP providers establish network connections, so they finish
// initialization in Start:
//
//	insp, _ := inspector.New(
//	    inspector.WithServiceName("user-api"),
//	    inspector.WithOTLP("otel-collector:4317"),
//	)
//	if err := insp.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Capturing Logs and Spans
//
// Handlers reach the request's collector through the context. The collector
// hands out a capturing logger and records custom timeline spans:
//
//	func handle(w http.ResponseWriter, r *http.Request) {
//	    if c, ok := inspector.FromContext(r.Context()); ok {
//	        log := c.Logger(slog.Default())
//	        log.Info("looking up user", "user_id", id)
//
//	        c.StartSpan("db.query")
//	        rows, err := db.Query(...)
//	        c.EndSpan("db.query")
//	    }
//	}
//
// # Capabilities
//
// Session data, the authenticated user, the route table, and handler names
// come from host-provided capabilities. Each capability is optional; absent
// ones degrade to empty values in the record:
//
//	insp, _ := inspector.New(
//	    inspector.WithSessionProvider(mySessions),
//	    inspector.WithUserProvider(myAuth),
//	    inspector.WithRouteLister(inspector.RouteListerFor(r)),
//	)
//
// # Browsing Records
//
// Resolved records land in a bounded in-memory store, newest first. Mount
// the debug handler to browse them as JSON:
//
//	mux.Handle("/debug/requests/", http.StripPrefix("/debug/requests", insp.DebugHandler()))
//
// # Redaction
//
// Session values whose keys look sensitive are replaced with a placeholder
// before the record is assembled. Keys containing "password" are always
// redacted; WithRedactKeys and WithRedactFunc extend the policy:
//
//	insp, _ := inspector.New(
//	    inspector.WithRedactKeys("token", "secret"),
//	)
//
// Request headers are filtered the same way: Authorization, Cookie, and
// Set-Cookie are dropped unless an explicit header whitelist is configured.
//
// # Thread Safety
//
// All methods are safe for concurrent use. The Inspector is immutable after
// creation; per-request state lives in the Collector, whose buffers accept
// writes from handler-spawned goroutines.
//
// # Global State
//
// By default, this package does NOT set the global OpenTelemetry tracer
// provider. Use WithGlobalTracerProvider() if you want the export provider
// registered as the global default via otel.SetTracerProvider().
//
// This allows multiple inspectors to coexist in the same process, and makes
// it easier to integrate Rivaas into larger binaries that already manage
// their own global tracer provider.
//
// # Production and Development Helpers
//
// Pre-configured setups for common scenarios:
//
//	// Production: OTLP export with self-metrics
//	insp, err := inspector.NewProduction("user-api", "v1.2.3", "otel-collector:4317")
//
//	// Development: stdout export with route snapshots
//	insp, err := inspector.NewDevelopment("user-api", "dev")
//
// # Path Filtering
//
// Exclude specific paths from collection:
//
//	handler := inspector.Middleware(insp,
//	    inspector.WithExcludePaths("/health", "/metrics", "/ready"),
//	)(mux)
//
// # Custom Tracer Provider
//
// For advanced use cases, provide your own OpenTelemetry tracer provider:
//
//	insp, _ := inspector.New(
//	    inspector.WithServiceName("user-api"),
//	    inspector.WithTracerProvider(customProvider),
//	)
package inspector
