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

// This file contains integration tests for the inspector with other middleware.
//
// These tests verify that the inspector works correctly when combined with
// RequestID and Recovery middleware in realistic scenarios, and that records
// flow through the debug endpoint, self-metrics, and trace export end to end.

//go:build integration

package inspector_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"rivaas.dev/inspector"
	"rivaas.dev/router"
	"rivaas.dev/middleware/recovery"
	"rivaas.dev/middleware/requestid"
)

// testLogHandler captures log records for testing.
// It implements slog.Handler to intercept log output and make it available for assertions.
type testLogHandler struct {
	mu      sync.Mutex
	records []testLogRecord
}

type testLogRecord struct {
	level slog.Level
	msg   string
	attrs map[string]any
}

func newTestLogHandler() *testLogHandler {
	return &testLogHandler{
		records: make([]testLogRecord, 0),
	}
}

func (h *testLogHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

func (h *testLogHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	attrs := make(map[string]any)
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})

	h.records = append(h.records, testLogRecord{
		level: r.Level,
		msg:   r.Message,
		attrs: attrs,
	})

	return nil
}

func (h *testLogHandler) WithAttrs(_ []slog.Attr) slog.Handler {
	return h
}

func (h *testLogHandler) WithGroup(_ string) slog.Handler {
	return h
}

func (h *testLogHandler) getRecords(level slog.Level) []testLogRecord {
	h.mu.Lock()
	defer h.mu.Unlock()

	var result []testLogRecord
	for _, r := range h.records {
		if r.level == level {
			result = append(result, r)
		}
	}

	return result
}

// latestStoredRecord returns the newest stored record, failing the spec when
// the store is empty or disabled.
func latestStoredRecord(insp *inspector.Inspector) *inspector.Record {
	records, err := insp.Records()
	Expect(err).NotTo(HaveOccurred())
	Expect(records).NotTo(BeEmpty(), "inspector should have stored a record")
	return records[0]
}

var _ = Describe("Inspector Integration", Label("integration", "inspector"), func() {
	Describe("with RequestID and Recovery", func() {
		It("should record requests with the client request ID captured", func() {
			r := router.MustNew()
			insp := inspector.MustNew(
				inspector.WithServiceName("integration-api"),
				inspector.WithRequestHeaders("Accept", "X-Request-Id"),
				inspector.WithRouteLister(inspector.RouteListerFor(r)),
			)

			r.Use(requestid.New())
			r.Use(inspector.RouterMiddleware(insp))
			r.Use(recovery.New())

			r.GET("/orders", func(c *router.Context) {
				// Verify RequestID is available alongside the collector
				reqID := requestid.Get(c)
				Expect(reqID).NotTo(BeEmpty(), "RequestID should be available in handler")

				_, ok := inspector.FromContext(c.Request.Context())
				Expect(ok).To(BeTrue(), "collector should be available in handler")

				//nolint:errcheck // Test handler
				c.JSON(http.StatusOK, map[string]string{
					"request_id": reqID,
					"message":    "success",
				})
			})

			req := httptest.NewRequest(http.MethodGet, "/orders", nil)
			req.Header.Set("Accept", "application/json")
			req.Header.Set("X-Request-Id", "req-integration-1")
			w := httptest.NewRecorder()

			r.ServeHTTP(w, req)

			// Verify response
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(ContainSubstring("success"))
			Expect(w.Header().Get("X-Request-ID")).To(Equal("req-integration-1"))

			// Verify the inspector captured the request
			rec := latestStoredRecord(insp)
			Expect(rec.Method).To(Equal(http.MethodGet))
			Expect(rec.URI).To(Equal("/orders"))
			Expect(rec.ResponseStatus).To(Equal(http.StatusOK))
			Expect(rec.ResponseSize).To(BeNumerically(">", 0))
			Expect(rec.Duration).To(BeNumerically(">", 0))
			Expect(rec.Handler).NotTo(BeEmpty(), "handler name should come from the route table")
			Expect(rec.RequestHeaders.Get("X-Request-Id")).To(Equal("req-integration-1"))
			Expect(rec.RequestHeaders.Get("Accept")).To(Equal("application/json"))

			// Verify the middleware and handler phases were timed
			Expect(rec.Timeline).To(HaveLen(2))
			Expect(rec.Timeline[0].Name).To(Equal(inspector.MiddlewareSpan))
			Expect(rec.Timeline[1].Name).To(Equal(inspector.HandlerSpan))
		})

		It("should record the error status when Recovery catches a panic", func() {
			r := router.MustNew()
			insp := inspector.MustNew(inspector.WithServiceName("integration-api"))

			r.Use(requestid.New())
			r.Use(inspector.RouterMiddleware(insp))
			r.Use(recovery.New())

			r.GET("/panic", func(c *router.Context) {
				panic("test panic")
			})

			req := httptest.NewRequest(http.MethodGet, "/panic", nil)
			w := httptest.NewRecorder()

			// Should not panic - Recovery middleware should catch it
			r.ServeHTTP(w, req)

			// Verify Recovery handled the panic
			Expect(w.Code).To(Equal(http.StatusInternalServerError))

			// Verify RequestID is still set
			Expect(w.Header().Get("X-Request-ID")).NotTo(BeEmpty(), "RequestID should be set even when panic occurs")

			// Verify the inspector recorded the recovered request
			rec := latestStoredRecord(insp)
			Expect(rec.Method).To(Equal(http.MethodGet))
			Expect(rec.URI).To(Equal("/panic"))
			Expect(rec.ResponseStatus).To(Equal(http.StatusInternalServerError))
			Expect(rec.Duration).To(BeNumerically(">", 0))
		})
	})

	Describe("request logging", func() {
		It("should capture handler logs and forward them to the base handler", func() {
			base := newTestLogHandler()

			r := router.MustNew()
			insp := inspector.MustNew(inspector.WithServiceName("integration-api"))

			r.Use(inspector.RouterMiddleware(insp))

			r.GET("/orders", func(c *router.Context) {
				col, ok := inspector.FromContext(c.Request.Context())
				Expect(ok).To(BeTrue())

				logger := slog.New(col.LogHandler(base))
				logger.InfoContext(c.Request.Context(), "order placed", "order_id", 42)

				//nolint:errcheck // Test handler
				c.JSON(http.StatusOK, map[string]string{"message": "ok"})
			})

			req := httptest.NewRequest(http.MethodGet, "/orders", nil)
			w := httptest.NewRecorder()

			r.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))

			// Verify the record carries the log entry
			rec := latestStoredRecord(insp)
			Expect(rec.Logs).To(HaveLen(1))
			Expect(rec.Logs[0].Message).To(Equal("order placed"))
			Expect(rec.Logs[0].Level).To(Equal(slog.LevelInfo))
			Expect(rec.Logs[0].Attrs).To(HaveKeyWithValue("order_id", int64(42)))

			// Verify the entry was forwarded to the base handler as well
			forwarded := base.getRecords(slog.LevelInfo)
			Expect(forwarded).To(HaveLen(1), "log should pass through to the base handler")
			Expect(forwarded[0].msg).To(Equal("order placed"))
			Expect(forwarded[0].attrs).To(HaveKeyWithValue("order_id", int64(42)))
		})
	})

	Describe("debug endpoint", func() {
		It("should serve stored records over HTTP", func() {
			r := router.MustNew()
			insp := inspector.MustNew(inspector.WithServiceName("integration-api"))

			r.Use(inspector.RouterMiddleware(insp))

			r.GET("/orders/:id", func(c *router.Context) {
				//nolint:errcheck // Test handler
				c.String(http.StatusOK, "order "+c.Param("id"))
			})

			for _, path := range []string{"/orders/1", "/orders/2"} {
				req := httptest.NewRequest(http.MethodGet, path, nil)
				w := httptest.NewRecorder()
				r.ServeHTTP(w, req)
				Expect(w.Code).To(Equal(http.StatusOK))
			}

			// Mount the debug handler the way an application would
			mux := http.NewServeMux()
			mux.Handle("/debug/requests/", http.StripPrefix("/debug/requests", insp.DebugHandler()))

			listReq := httptest.NewRequest(http.MethodGet, "/debug/requests/", nil)
			listW := httptest.NewRecorder()
			mux.ServeHTTP(listW, listReq)

			Expect(listW.Code).To(Equal(http.StatusOK))
			Expect(listW.Header().Get("Content-Type")).To(Equal("application/json; charset=utf-8"))
			Expect(listW.Body.String()).To(ContainSubstring("/orders/1"))
			Expect(listW.Body.String()).To(ContainSubstring("/orders/2"))

			// Fetch the newest record individually
			rec := latestStoredRecord(insp)
			getReq := httptest.NewRequest(http.MethodGet, "/debug/requests/"+rec.ID, nil)
			getW := httptest.NewRecorder()
			mux.ServeHTTP(getW, getReq)

			Expect(getW.Code).To(Equal(http.StatusOK))
			Expect(getW.Body.String()).To(ContainSubstring(`"method": "GET"`))
			Expect(getW.Body.String()).To(ContainSubstring("/orders/2"))
		})
	})

	Describe("self metrics", func() {
		It("should expose record counters on the metrics endpoint", func() {
			r := router.MustNew()
			insp := inspector.MustNew(
				inspector.WithServiceName("integration-api"),
				inspector.WithMetrics(),
			)
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = insp.Shutdown(shutdownCtx)
			}()

			r.Use(inspector.RouterMiddleware(insp))

			r.GET("/ping", func(c *router.Context) {
				//nolint:errcheck // Test handler
				c.String(http.StatusOK, "pong")
			})

			for range 3 {
				req := httptest.NewRequest(http.MethodGet, "/ping", nil)
				w := httptest.NewRecorder()
				r.ServeHTTP(w, req)
				Expect(w.Code).To(Equal(http.StatusOK))
			}

			handler, err := insp.MetricsHandler()
			Expect(err).NotTo(HaveOccurred())

			scrapeReq := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			scrapeW := httptest.NewRecorder()
			handler.ServeHTTP(scrapeW, scrapeReq)

			Expect(scrapeW.Code).To(Equal(http.StatusOK))
			body := scrapeW.Body.String()
			Expect(body).To(ContainSubstring("inspector_records_total"))
			Expect(body).To(ContainSubstring(`http_method="GET"`))
			Expect(body).To(ContainSubstring("inspector_stored_records"))
		})
	})

	Describe("trace context propagation", func() {
		It("should link exported spans to the caller's trace", func() {
			exporter := tracetest.NewInMemoryExporter()
			tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

			r := router.MustNew()
			insp := inspector.MustNew(
				inspector.WithServiceName("integration-api"),
				inspector.WithTracerProvider(tp),
				inspector.WithCustomPropagator(propagation.TraceContext{}),
			)

			r.Use(inspector.RouterMiddleware(insp))

			r.GET("/ping", func(c *router.Context) {
				//nolint:errcheck // Test handler
				c.String(http.StatusOK, "pong")
			})

			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
			w := httptest.NewRecorder()

			r.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))

			// One root span plus the two timeline phases
			spans := exporter.GetSpans()
			Expect(spans).To(HaveLen(3))
			for _, s := range spans {
				Expect(s.SpanContext.TraceID().String()).To(Equal("4bf92f3577b34da6a3ce929d0e0e4736"))
			}

			var root tracetest.SpanStub
			for _, s := range spans {
				if s.Name == "GET /ping" {
					root = s
				}
			}
			Expect(root.Name).To(Equal("GET /ping"), "root span should be named after the request")
			Expect(root.Parent.SpanID().String()).To(Equal("00f067aa0ba902b7"))
			Expect(root.Parent.IsRemote()).To(BeTrue())
		})
	})

	Describe("session and user capture", func() {
		It("should sanitize session data and attach the user identity", func() {
			r := router.MustNew()
			insp := inspector.MustNew(
				inspector.WithServiceName("integration-api"),
				inspector.WithSessionProvider(inspector.SessionProviderFunc(func(_ *http.Request) map[string]any {
					return map[string]any{
						"cart_items": 3,
						"password":   "hunter2",
						"theme":      "dark",
					}
				})),
				inspector.WithUserProvider(inspector.UserProviderFunc(func(_ *http.Request) (inspector.UserIdentity, bool) {
					return inspector.UserIdentity{ID: "user-42", DisplayKey: "ada@example.com"}, true
				})),
			)

			r.Use(inspector.RouterMiddleware(insp))

			r.GET("/profile", func(c *router.Context) {
				//nolint:errcheck // Test handler
				c.String(http.StatusOK, "profile")
			})

			req := httptest.NewRequest(http.MethodGet, "/profile", nil)
			w := httptest.NewRecorder()

			r.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))

			rec := latestStoredRecord(insp)
			Expect(rec.Session).To(HaveKeyWithValue("password", inspector.RedactedValue))
			Expect(rec.Session).To(HaveKeyWithValue("theme", "dark"))
			Expect(rec.Session).To(HaveKeyWithValue("cart_items", 3))

			Expect(rec.User).NotTo(BeNil())
			Expect(rec.User.ID).To(Equal("user-42"))
			Expect(rec.User.DisplayKey).To(Equal("ada@example.com"))
		})
	})
})
