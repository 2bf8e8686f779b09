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

package semconv

// Service metadata constants.
//
// These constants represent service-level attributes that identify the
// service instance a record was captured from. They are set once per
// inspector, not per request.
const (
	// ServiceName identifies the service that produced the record.
	// It should be set to a stable name that identifies the logical service.
	ServiceName = "service.name"

	// ServiceVersion identifies the version of the service that produced
	// the record. It should be set to the version string of the service
	// instance.
	ServiceVersion = "service.version"
)

// HTTP attribute constants.
//
// These constants represent HTTP request and response attributes following
// OpenTelemetry semantic conventions. They are placed on the root span of
// every exported record.
const (
	// HTTPMethod stores the HTTP request method after override resolution.
	// Common values include "GET", "POST", "PUT", "DELETE", "PATCH", "HEAD", "OPTIONS".
	HTTPMethod = "http.method"

	// HTTPRoute stores the normalized request path with the query string and
	// trailing slashes removed (e.g., "/orders/42").
	HTTPRoute = "http.route"

	// HTTPTarget stores the request target exactly as received, including
	// the query string (e.g., "/orders/42?expand=items").
	HTTPTarget = "http.target"

	// HTTPStatusCode stores the HTTP response status code.
	// It represents the numeric status code returned to the client (e.g., 200, 404, 500).
	HTTPStatusCode = "http.status_code"

	// HTTPResponseSize stores the number of response body bytes written.
	HTTPResponseSize = "http.response_content_length"
)

// Request attribute constants.
//
// These constants identify a single captured request and the application
// code that served it.
const (
	// RequestID stores the unique identifier of the record. The same value
	// is used by the in-memory store and the debug handler, so spans can be
	// cross-referenced with stored records.
	RequestID = "req.id"

	// HandlerName stores the resolved handler name, such as
	// "UserController.Index" or "anonymous function".
	HandlerName = "rivaas.inspector.handler"

	// LogCount stores the number of log entries captured during the request.
	LogCount = "rivaas.inspector.logs"

	// DroppedLogs stores the number of log entries discarded because the
	// per-request buffer was full.
	DroppedLogs = "rivaas.inspector.logs_dropped"

	// SessionKeys stores the number of top-level session keys captured,
	// after sanitization.
	SessionKeys = "rivaas.inspector.session_keys"

	// RouteCount stores the number of routes in the record's route table
	// snapshot.
	RouteCount = "rivaas.inspector.routes"

	// EnduserID stores the identifier of the authenticated user, when a
	// user provider is configured and a user is attached to the request.
	EnduserID = "enduser.id"
)

// Log event constants.
//
// These constants are used on the span events that represent log entries
// captured during a request.
const (
	// LogSeverity stores the slog level of a captured log entry, such as
	// "INFO" or "ERROR".
	LogSeverity = "log.severity"

	// LogMessage stores the message of a captured log entry.
	LogMessage = "log.message"
)
