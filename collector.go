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
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Built-in timeline span names contributed by the middleware.
const (
	// MiddlewareSpan covers the time between collector creation and the
	// start of the matched handler.
	MiddlewareSpan = "middleware"

	// HandlerSpan covers the matched handler's execution.
	HandlerSpan = "handler"
)

// Collector gathers the diagnostic state of a single request and assembles
// it into a [Record] via Resolve. One collector serves exactly one request:
// the middleware creates a fresh collector per request, and collectors are
// never pooled, because [Collector.Reset] keeps the log buffer intact by
// design.
//
// A collector's buffers are safe to feed from multiple goroutines (a
// request handler may log from goroutines it spawns), but the lifecycle
// methods (SetRequest, SetResponse, Resolve, Reset) belong to the request
// goroutine.
type Collector struct {
	insp      *Inspector
	id        string
	startedAt time.Time

	mu             sync.Mutex
	raw            RawRequest
	req            *http.Request
	handler        any
	responseStatus int
	responseSize   int64
	responseSet    bool

	logs  *logBuffer
	spans *timeline
}

func newCollector(insp *Inspector, raw RawRequest) *Collector {
	return &Collector{
		insp:      insp,
		id:        newRecordID(),
		startedAt: time.Now(),
		raw:       raw,
		logs:      newLogBuffer(insp.maxLogEntries),
		spans:     newTimeline(),
	}
}

// ID returns the record identifier this collector will resolve under.
func (c *Collector) ID() string {
	return c.id
}

// StartedAt returns when collection began.
func (c *Collector) StartedAt() time.Time {
	return c.startedAt
}

// SetRequest binds the live request. The bound request takes precedence
// over the RawRequest fallback for method, URI and headers, and is what the
// session, user and handler-name capabilities receive.
func (c *Collector) SetRequest(r *http.Request) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.req = r
}

// SetHandler binds the value the host matched as the request handler.
// It is the last resort for handler-name resolution, consulted when neither
// the HandlerNamer capability nor the route table can answer. Accepts
// functions, strings, or arbitrary handler objects.
func (c *Collector) SetHandler(handler any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = handler
}

// SetResponse records the response status code. It must be called before
// Resolve; resolving without a response is a programming error and fails
// with ErrResponseNotSet.
func (c *Collector) SetResponse(status int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responseStatus = status
	c.responseSet = true
}

// SetResponseSize records the number of response body bytes written.
func (c *Collector) SetResponseSize(n int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responseSize = n
}

// ResponseStatus returns the recorded status code, or ErrResponseNotSet
// when SetResponse has not been called.
func (c *Collector) ResponseStatus() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.responseSet {
		return 0, ErrResponseNotSet
	}
	return c.responseStatus, nil
}

// Resolve assembles the record for this request. It reads the collector's
// buffers and the Inspector's capabilities; it does not mutate them, so a
// second Resolve produces an equivalent record.
//
// The only error condition is a missing response: every optional input
// (capabilities, bound request, handler) degrades to an empty value
// instead.
func (c *Collector) Resolve() (*Record, error) {
	c.mu.Lock()
	req := c.req
	raw := c.raw
	handler := c.handler
	status := c.responseStatus
	size := c.responseSize
	responseSet := c.responseSet
	c.mu.Unlock()

	if !responseSet {
		return nil, ErrResponseNotSet
	}

	now := time.Now()
	c.spans.endIfOpen(MiddlewareSpan, now)

	rec := &Record{
		ID:             c.id,
		Method:         resolveMethod(req, raw),
		URI:            resolveURI(req, raw),
		RequestHeaders: filterHeaders(requestHeaders(req, raw), c.insp.requestHeaders),
		ResponseStatus: status,
		ResponseSize:   size,
		StartedAt:      c.startedAt,
		Duration:       now.Sub(c.startedAt),
	}

	rec.Handler = c.resolveHandlerName(req, raw, handler)
	rec.Routes = c.routeSnapshot()
	rec.Session = sanitizeSession(c.insp.safeSessionData(req), c.insp.redact)
	rec.User = c.insp.safeCurrentUser(req)
	rec.Logs, rec.DroppedLogs = c.logs.snapshot()
	rec.Timeline = c.spans.snapshot()

	return rec, nil
}

// Reset discards the timeline, preparing the collector for reuse within the
// same request (for example a worker that handles retries in place).
//
// The log buffer is deliberately not cleared: captured log entries belong
// to the request, not to one timeline pass, and survive a reset. Hosts that
// serve multiple requests must create a fresh collector per request rather
// than resetting one.
func (c *Collector) Reset() {
	c.spans.clear()
}

// StartSpan opens a named timeline span. Opening a name that is already
// open keeps the first start time. Optional slog-style key-value pairs
// become span attributes.
func (c *Collector) StartSpan(name string, args ...any) {
	c.spans.begin(name, time.Now(), attrsFromArgs(args))
}

// EndSpan closes a named timeline span. Closing a name that was never
// opened records a degenerate span with a zero start time.
func (c *Collector) EndSpan(name string) {
	c.spans.end(name, time.Now())
}

// Measure runs fn inside a span with the given name.
func (c *Collector) Measure(name string, fn func()) {
	c.StartSpan(name)
	defer c.EndSpan(name)
	fn()
}

// BeginHandler marks the transition from middleware to the matched handler:
// it closes the middleware span, opens the handler span, and publishes a
// HandlerStarted lifecycle event.
func (c *Collector) BeginHandler(ctx context.Context) {
	now := time.Now()
	if !c.insp.timelineOff {
		c.spans.endIfOpen(MiddlewareSpan, now)
		c.spans.begin(HandlerSpan, now, nil)
	}
	c.insp.publishLifecycle(ctx, LifecycleEvent{
		Kind:      HandlerStarted,
		Time:      now,
		Collector: c,
	})
}

// EndHandler marks the matched handler's return: it closes the handler span
// and publishes a HandlerFinished lifecycle event. Safe to call without a
// preceding BeginHandler; the resulting span has a zero start time.
func (c *Collector) EndHandler(ctx context.Context) {
	now := time.Now()
	if !c.insp.timelineOff {
		c.spans.end(HandlerSpan, now)
	}
	c.insp.publishLifecycle(ctx, LifecycleEvent{
		Kind:      HandlerFinished,
		Time:      now,
		Collector: c,
	})
}

// LogHandler wraps a slog.Handler so that every record it sees is captured
// into this collector's buffer before being forwarded. Pass nil to capture
// without forwarding.
func (c *Collector) LogHandler(next slog.Handler) slog.Handler {
	return &captureHandler{collector: c, next: next}
}

// Logger returns a logger whose output is captured into this collector's
// buffer and forwarded to base. A nil base uses slog.Default().
//
// Example:
//
//	log := collector.Logger(slog.Default())
//	log.Info("looking up user", "user_id", id)
func (c *Collector) Logger(base *slog.Logger) *slog.Logger {
	if base == nil {
		base = slog.Default()
	}
	return slog.New(c.LogHandler(base.Handler()))
}

// noteLog receives one captured log entry from a captureHandler.
func (c *Collector) noteLog(ctx context.Context, entry LogEntry) {
	if !c.insp.collectLog {
		return
	}
	c.logs.add(entry)
	c.insp.publishLifecycle(ctx, LifecycleEvent{
		Kind:      LogEmitted,
		Time:      entry.Time,
		Collector: c,
		Log:       &entry,
	})
}

// resolveHandlerName runs the handler resolution tiers: the HandlerNamer
// capability first, then a route table lookup keyed by method and path,
// then reflection over the bound handler value.
func (c *Collector) resolveHandlerName(req *http.Request, raw RawRequest, handler any) string {
	if name, ok := c.insp.safeHandlerName(req); ok && name != "" {
		return name
	}

	if c.insp.routes != nil {
		method := resolveMethod(req, raw)
		path := resolvePathInfo(req, raw)
		if name, ok := lookupRouteHandler(c.insp.safeListRoutes(), method, path); ok {
			return name
		}
	}

	return classifyHandler(handler)
}

// routeSnapshot returns the route table for the record. Disabled snapshots
// and absent capabilities both yield an empty, non-nil slice.
func (c *Collector) routeSnapshot() []RouteDescriptor {
	if !c.insp.collectRoutes || c.insp.routes == nil {
		return []RouteDescriptor{}
	}

	listed := c.insp.safeListRoutes()
	routes := make([]RouteDescriptor, 0, len(listed))
	for _, rt := range listed {
		if rt.HandlerName == "" {
			rt.HandlerName = AnonymousHandler
		}
		if rt.Middleware != nil {
			rt.Middleware = append([]string(nil), rt.Middleware...)
		}
		routes = append(routes, rt)
	}
	return routes
}

// resolveMethod applies the three-tier method fallback: the bound request,
// then a _method form override (uppercased), then the raw server-reported
// method. The result is never empty.
//
// Form-based overrides apply to bound POST requests as well, matching the
// frameworks that use the _method convention. Only form state that has
// already been parsed is consulted; resolution never reads the body.
func resolveMethod(req *http.Request, raw RawRequest) string {
	if req != nil && req.Method != "" {
		if req.Method == http.MethodPost {
			if override := methodOverride(req, raw); override != "" {
				return override
			}
		}
		return req.Method
	}
	if raw.Form != nil {
		if override := raw.Form.Get("_method"); override != "" {
			return strings.ToUpper(override)
		}
	}
	if raw.Method != "" {
		return raw.Method
	}
	return http.MethodGet
}

// methodOverride returns the uppercased _method form value, if one was
// parsed.
func methodOverride(req *http.Request, raw RawRequest) string {
	var form url.Values
	switch {
	case req != nil && req.PostForm != nil:
		form = req.PostForm
	case req != nil && req.Form != nil:
		form = req.Form
	default:
		form = raw.Form
	}
	if form == nil {
		return ""
	}
	if override := form.Get("_method"); override != "" {
		return strings.ToUpper(override)
	}
	return ""
}

// resolveURI returns the request URI verbatim, including the query string.
// Falls back to "unknown" so records never carry an empty URI.
func resolveURI(req *http.Request, raw RawRequest) string {
	if req != nil {
		if req.RequestURI != "" {
			return req.RequestURI
		}
		if req.URL != nil {
			if uri := req.URL.RequestURI(); uri != "" {
				return uri
			}
		}
	}
	if raw.URI != "" {
		return raw.URI
	}
	return "unknown"
}

// resolvePathInfo returns the route-lookup path: the bound request's URL
// path, or the raw URI stripped of query string and trailing slashes.
func resolvePathInfo(req *http.Request, raw RawRequest) string {
	if req != nil && req.URL != nil && req.URL.Path != "" {
		return req.URL.Path
	}
	return pathInfoFromURI(raw.URI)
}

// requestHeaders picks the header source: the bound request's headers when
// available, the raw snapshot otherwise.
func requestHeaders(req *http.Request, raw RawRequest) http.Header {
	if req != nil && req.Header != nil {
		return req.Header
	}
	return raw.Header
}

// lookupRouteHandler searches the route table for an entry matching the
// method and path. A matching entry with no handler name is a registered
// closure.
func lookupRouteHandler(routes []RouteDescriptor, method, path string) (string, bool) {
	wantMethod := strings.ToUpper(method)
	wantPath := pathInfoFromURI(path)
	for _, rt := range routes {
		if strings.ToUpper(rt.Method) != wantMethod {
			continue
		}
		if pathInfoFromURI(rt.Path) != wantPath {
			continue
		}
		if rt.HandlerName != "" {
			return rt.HandlerName, true
		}
		return AnonymousHandler, true
	}
	return "", false
}

// collectorContextKey is the context key under which the middleware stores
// the request's collector.
type collectorContextKey struct{}

// ContextWithCollector returns a context carrying the collector.
func ContextWithCollector(ctx context.Context, c *Collector) context.Context {
	return context.WithValue(ctx, collectorContextKey{}, c)
}

// FromContext returns the collector stored in the context by the
// middleware, if any. Handlers use it to add custom timeline spans or to
// obtain a capturing logger:
//
//	if c, ok := inspector.FromContext(r.Context()); ok {
//	    c.StartSpan("db.query")
//	    defer c.EndSpan("db.query")
//	}
func FromContext(ctx context.Context) (*Collector, bool) {
	c, ok := ctx.Value(collectorContextKey{}).(*Collector)
	return c, ok
}
