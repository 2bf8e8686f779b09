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

// Package semconv provides semantic conventions for exported request records.
//
// The semconv package defines constants for the attribute names the
// inspector places on exported spans and span events. They follow
// OpenTelemetry semantic conventions where applicable, ensuring
// interoperability with OpenTelemetry-compatible tools and observability
// platforms; inspector-specific attributes use the "rivaas.inspector."
// prefix.
//
// # Key Features
//
//   - HTTP attributes: method, route, target, status code, response size
//   - Request identification: record ID, handler name
//   - Capture counters: log entries, dropped logs, session keys, routes
//   - User identity: authenticated end-user ID
//   - Log events: severity and message of captured log entries
//
// # Usage
//
// Use these constants as keys when querying exported records in a tracing
// backend, or when building span attributes by hand:
//
//	package main
//
//	import (
//	    "go.opentelemetry.io/otel/attribute"
//
//	    "rivaas.dev/inspector/semconv"
//	)
//
//	func recordAttrs(method, target string, status int) []attribute.KeyValue {
//	    return []attribute.KeyValue{
//	        attribute.String(semconv.HTTPMethod, method),
//	        attribute.String(semconv.HTTPTarget, target),
//	        attribute.Int(semconv.HTTPStatusCode, status),
//	    }
//	}
//
// The record ID attribute links exported spans back to the in-memory record
// store, so a span found in a tracing backend can be looked up on the debug
// handler while it is still retained:
//
//	GET /debug/requests/{req.id}
//
// # Reference
//
// OpenTelemetry Semantic Conventions: https://opentelemetry.io/docs/specs/semconv/
package semconv
