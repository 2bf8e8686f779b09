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
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// MiddlewareOption configures the inspector middleware.
// These options are separate from Inspector options and only affect HTTP
// middleware behavior.
type MiddlewareOption func(*middlewareConfig)

// middlewareConfig holds configuration for the middleware.
type middlewareConfig struct {
	pathFilter       *pathFilter
	validationErrors []error // Errors collected during option application
}

// newMiddlewareConfig creates a default middleware configuration.
func newMiddlewareConfig() *middlewareConfig {
	return &middlewareConfig{
		pathFilter: newPathFilter(),
	}
}

// validate checks the middleware configuration and returns any collected errors.
func (c *middlewareConfig) validate() error {
	if len(c.validationErrors) == 0 {
		return nil
	}

	var errMsgs []string
	for _, err := range c.validationErrors {
		errMsgs = append(errMsgs, err.Error())
	}

	return fmt.Errorf("middleware validation errors: %s", strings.Join(errMsgs, "; "))
}

// Middleware creates a middleware function for standalone HTTP integration.
// It collects one record per request: it binds the live request, times the
// middleware and handler phases, captures the response status and size, and
// submits the resolved record to the export pipeline.
//
// Handlers reach the request's collector through [FromContext] to add custom
// timeline spans, bind the matched handler, or obtain a capturing logger.
//
// Path filtering is configured via MiddlewareOption.
// Panics if any middleware option is invalid (e.g., invalid regex pattern).
//
// Example:
//
//	insp := inspector.MustNew(
//	    inspector.WithServiceName("my-api"),
//	    inspector.WithOTLP("localhost:4317"),
//	)
//
//	handler := inspector.Middleware(insp,
//	    inspector.WithExcludePaths("/health", "/metrics"),
//	)(mux)
//
//	http.ListenAndServe(":8080", handler)
func Middleware(insp *Inspector, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	cfg := newMiddlewareConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	// Validate configuration - panic on error for consistent API
	if err := cfg.validate(); err != nil {
		panic(fmt.Sprintf("inspector.Middleware: %v", err))
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !insp.IsEnabled() {
				next.ServeHTTP(w, r)
				return
			}

			// Check if path should be excluded
			if cfg.pathFilter != nil && cfg.pathFilter.shouldExclude(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			// Parse form-encoded bodies up front so the _method override is
			// visible to method resolution. ParseForm is idempotent, so
			// handlers that parse the form themselves are unaffected.
			if r.Method == http.MethodPost && isFormEncoded(r.Header.Get("Content-Type")) {
				_ = r.ParseForm()
			}

			c := insp.Collect(rawRequestFrom(r))
			c.SetRequest(r)

			// Link exported records to the caller's trace
			ctx := insp.extractTraceContext(r.Context(), r.Header)
			ctx = ContextWithCollector(ctx, c)
			r = r.WithContext(ctx)

			if !insp.timelineOff {
				c.StartSpan(MiddlewareSpan)
			}

			// Wrap response writer to capture status code and size
			rw := newResponseWriter(w)

			c.BeginHandler(ctx)
			next.ServeHTTP(rw, r)
			c.EndHandler(ctx)

			c.SetResponse(rw.StatusCode())
			c.SetResponseSize(rw.Size())

			rec, err := c.Resolve()
			if err != nil {
				insp.emitError("Failed to resolve record", "record_id", c.ID(), "error", err)
				insp.metrics.addResolveFailure(ctx)
				return
			}

			// Submit reports export failures through operational events.
			_ = insp.Submit(ctx, rec)
		})
	}
}

// isFormEncoded reports whether a Content-Type is a URL-encoded form.
func isFormEncoded(contentType string) bool {
	return strings.HasPrefix(contentType, "application/x-www-form-urlencoded")
}

// responseWriter wraps http.ResponseWriter to capture status code and size.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	size       int64
	written    bool
}

// newResponseWriter creates a new responseWriter.
func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w}
}

// WriteHeader captures the status code.
func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.ResponseWriter.WriteHeader(code)
		rw.written = true
	}
}

// Write captures the response size.
func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.written = true
	}
	if rw.statusCode == 0 {
		rw.statusCode = http.StatusOK
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.size += int64(n)

	return n, err
}

// StatusCode returns the HTTP status code.
func (rw *responseWriter) StatusCode() int {
	if rw.statusCode == 0 {
		return http.StatusOK
	}

	return rw.statusCode
}

// Size returns the response size in bytes.
func (rw *responseWriter) Size() int64 {
	return rw.size
}

// Flush implements http.Flusher.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack implements http.Hijacker for WebSocket support.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}

	return nil, nil, fmt.Errorf("underlying ResponseWriter doesn't support Hijack")
}

// Push implements http.Pusher for HTTP/2 server push.
func (rw *responseWriter) Push(target string, opts *http.PushOptions) error {
	if p, ok := rw.ResponseWriter.(http.Pusher); ok {
		return p.Push(target, opts)
	}

	return http.ErrNotSupported
}

// Unwrap returns the underlying ResponseWriter for http.ResponseController support.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
