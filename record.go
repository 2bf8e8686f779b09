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
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"log/slog"
	mathrand "math/rand/v2"
	"net/http"
	"net/url"
	"os"
	"time"
)

// Record is the diagnostic snapshot of a single HTTP request.
// It is produced by [Collector.Resolve] after the response has been written
// and is immutable from that point on.
//
// A Record is safe to marshal to JSON; the debug handler and the export
// providers both consume it read-only.
type Record struct {
	// ID uniquely identifies the request within this process.
	ID string `json:"id"`

	// Method is the resolved HTTP method. Never empty: form-based method
	// overrides (the _method convention) take precedence over the raw
	// method when no live request is bound.
	Method string `json:"method"`

	// URI is the request URI verbatim, including the query string.
	// Never empty; "unknown" when nothing could be resolved.
	URI string `json:"uri"`

	// Handler is the textual identifier of the matched handler.
	// Anonymous functions yield the literal "anonymous function".
	// Empty when no handler could be resolved.
	Handler string `json:"handler,omitempty"`

	// RequestHeaders holds the captured request headers. Sensitive headers
	// (Authorization, Cookie, ...) are never present.
	RequestHeaders http.Header `json:"request_headers"`

	// ResponseStatus is the HTTP status code recorded via
	// [Collector.SetResponse].
	ResponseStatus int `json:"response_status"`

	// ResponseSize is the number of body bytes written, when known.
	ResponseSize int64 `json:"response_size,omitempty"`

	// Routes is a snapshot of the application route table. Empty (never
	// nil) unless route snapshots are enabled and a RouteLister is
	// configured.
	Routes []RouteDescriptor `json:"routes"`

	// Session holds the sanitized session snapshot. Empty (never nil)
	// when no SessionProvider is configured.
	Session map[string]any `json:"session"`

	// User identifies the authenticated user, or nil for guests and for
	// applications without a UserProvider.
	User *UserIdentity `json:"user,omitempty"`

	// Logs contains every log entry captured during the request,
	// in emission order.
	Logs []LogEntry `json:"logs"`

	// DroppedLogs counts entries discarded because the log buffer
	// overflowed its capacity.
	DroppedLogs int `json:"dropped_logs,omitempty"`

	// Timeline contains the spans observed during the request, ordered by
	// start time. Spans that were never closed carry a zero End; spans
	// that were closed without being opened carry a zero Start. Consumers
	// must tolerate both degenerate shapes.
	Timeline []Span `json:"timeline"`

	// StartedAt is when collection began for this request.
	StartedAt time.Time `json:"started_at"`

	// Duration is the wall time between StartedAt and Resolve.
	Duration time.Duration `json:"duration"`
}

// RouteDescriptor describes one registered route in the application's
// route table.
type RouteDescriptor struct {
	Method string `json:"method"`
	Path   string `json:"path"`

	// Name is the route's registered name, if the application names
	// routes.
	Name string `json:"name,omitempty"`

	// HandlerName is the textual handler identifier; "anonymous function"
	// for closures.
	HandlerName string `json:"handler_name"`

	// Middleware lists the middleware attached to the route, if known.
	Middleware []string `json:"middleware,omitempty"`
}

// LogEntry is one captured log record.
type LogEntry struct {
	Time    time.Time      `json:"time"`
	Level   slog.Level     `json:"level"`
	Message string         `json:"message"`
	Attrs   map[string]any `json:"attrs,omitempty"`
}

// Span is one timeline entry. Start or End may be the zero time for
// degenerate spans (closed without open, or still open at resolve time).
type Span struct {
	Name     string         `json:"name"`
	Start    time.Time      `json:"start"`
	End      time.Time      `json:"end"`
	Duration time.Duration  `json:"duration"`
	Attrs    map[string]any `json:"attrs,omitempty"`
}

// UserIdentity identifies the authenticated user attached to a request.
type UserIdentity struct {
	// ID is the user's stable identifier.
	ID string `json:"id"`

	// DisplayKey is the human-facing identifier, typically an email
	// address.
	DisplayKey string `json:"display_key,omitempty"`

	// Attributes carries additional identity attributes (name, email, ...).
	Attributes map[string]any `json:"attributes,omitempty"`
}

// RawRequest is the request state a [Collector] falls back to when no live
// *http.Request is bound at resolve time. The middleware fills it from the
// incoming request; manual integrations construct it directly.
//
// Keeping this explicit (rather than reading ambient server state) makes the
// fallback path testable and keeps the collector free of process globals.
type RawRequest struct {
	// Method is the server-reported HTTP method.
	Method string

	// URI is the request URI verbatim, including the query string.
	URI string

	// Header holds the raw request headers.
	Header http.Header

	// Form holds parsed form data, used for the _method override.
	Form url.Values
}

// rawRequestFrom captures the RawRequest view of a live request.
// The form is only consulted for the method override, so ParseForm errors
// degrade to an empty form rather than failing collection.
func rawRequestFrom(r *http.Request) RawRequest {
	raw := RawRequest{
		Method: r.Method,
		URI:    r.RequestURI,
		Header: r.Header,
	}
	if r.Form != nil {
		raw.Form = r.Form
	} else if r.PostForm != nil {
		raw.Form = r.PostForm
	}
	return raw
}

// newRecordID generates a random hex string identifying one record.
func newRecordID() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback: combine timestamp + random number + process ID for better entropy
		// This is extremely unlikely to happen (crypto/rand failure is rare), but when
		// it does, we want collision resistance better than timestamp alone.
		ts := time.Now().UnixNano()
		rnd := mathrand.Uint64()
		pid := os.Getpid()

		// Layout: [8 bytes: timestamp][4 bytes: random][4 bytes: pid]
		binary.BigEndian.PutUint64(bytes[0:8], uint64(ts))
		binary.BigEndian.PutUint32(bytes[8:12], uint32(rnd))
		binary.BigEndian.PutUint32(bytes[12:16], uint32(pid))
	}
	return hex.EncodeToString(bytes)
}
