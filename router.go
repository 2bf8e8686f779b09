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
	"net/http"
	"strings"
	"sync"

	"rivaas.dev/router"
	"rivaas.dev/router/route"
)

// statusSizer is a capability interface for response writers that already
// track status and size. Reusing an existing wrapper avoids double counting
// when the router or another middleware wrapped the writer first.
type statusSizer interface {
	StatusCode() int
	Size() int64
}

// RouterMiddleware creates a rivaas router middleware that collects one
// record per request and submits it on completion. Register it early so the
// timeline covers the rest of the chain, and wire the router's route table
// into the inspector so handler names resolve:
//
//	r := router.MustNew()
//	insp := inspector.MustNew(
//		inspector.WithServiceName("user-api"),
//		inspector.WithRouteLister(inspector.RouteListerFor(r)),
//	)
//	r.Use(inspector.RouterMiddleware(insp))
//
// Handler names are looked up by the matched route pattern, so
// parameterized routes resolve the same way static ones do. Invalid options
// panic, matching Middleware.
func RouterMiddleware(insp *Inspector, opts ...MiddlewareOption) router.HandlerFunc {
	cfg := newMiddlewareConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	// Validate configuration - panic on error for consistent API
	if err := cfg.validate(); err != nil {
		panic(fmt.Sprintf("inspector.RouterMiddleware: %v", err))
	}

	// The pattern index is built from the route table on first request;
	// routes are registered before the router starts serving, so a single
	// snapshot is enough.
	var index routeNameIndex

	return func(c *router.Context) {
		if !insp.IsEnabled() {
			c.Next()
			return
		}

		r := c.Request
		if cfg.pathFilter.shouldExclude(r.URL.Path) {
			c.Next()
			return
		}

		// Parse form-encoded bodies up front so the _method override is
		// visible to method resolution. ParseForm is idempotent, so
		// handlers that parse the form themselves are unaffected.
		if r.Method == http.MethodPost && isFormEncoded(r.Header.Get("Content-Type")) {
			_ = r.ParseForm()
		}

		col := insp.Collect(rawRequestFrom(r))

		// Link exported records to the caller's trace
		ctx := insp.extractTraceContext(r.Context(), r.Header)
		ctx = ContextWithCollector(ctx, col)
		c.Request = r.WithContext(ctx)
		col.SetRequest(c.Request)

		if !insp.timelineOff {
			col.StartSpan(MiddlewareSpan)
		}

		// Reuse an existing status-tracking writer when present
		var ss statusSizer
		if existing, ok := c.Response.(statusSizer); ok {
			ss = existing
		} else {
			wrapped := newResponseWriter(c.Response)
			c.Response = wrapped
			ss = wrapped
		}

		// The router matches on the wire method, so the index lookup uses
		// it too, even when the record later reports a _method override.
		if pattern := c.RoutePattern(); pattern != "" {
			if name, ok := index.lookup(insp, r.Method, pattern); ok {
				col.SetHandler(name)
			}
		}

		col.BeginHandler(ctx)
		c.Next()
		col.EndHandler(ctx)

		col.SetResponse(ss.StatusCode())
		col.SetResponseSize(ss.Size())

		rec, err := col.Resolve()
		if err != nil {
			insp.emitError("Failed to resolve record", "record_id", col.ID(), "error", err)
			insp.metrics.addResolveFailure(ctx)
			return
		}

		// Submit reports export failures through operational events.
		_ = insp.Submit(ctx, rec)
	}
}

// routeNameIndex maps "METHOD pattern" keys to handler names. Built lazily
// from the inspector's route lister so route registration order does not
// matter.
type routeNameIndex struct {
	once  sync.Once
	names map[string]string
}

func (idx *routeNameIndex) lookup(insp *Inspector, method, pattern string) (string, bool) {
	idx.once.Do(func() {
		listed := insp.safeListRoutes()
		idx.names = make(map[string]string, len(listed))
		for _, rt := range listed {
			name := rt.HandlerName
			if name == "" {
				name = AnonymousHandler
			}
			idx.names[routeNameKey(rt.Method, rt.Path)] = name
		}
	})
	name, ok := idx.names[routeNameKey(method, pattern)]
	return name, ok
}

func routeNameKey(method, pattern string) string {
	return strings.ToUpper(method) + " " + pattern
}

// RouteListerFor adapts a rivaas router's route table to the RouteLister
// capability. The router does not name routes, so descriptors carry no Name;
// closures registered without a named function surface as
// "anonymous function" through the usual snapshot normalization.
func RouteListerFor(r *router.Router) RouteLister {
	return RouteListerFunc(func() []RouteDescriptor {
		infos := r.Routes()
		routes := make([]RouteDescriptor, 0, len(infos))
		for _, info := range infos {
			routes = append(routes, routeDescriptorFrom(info))
		}
		return routes
	})
}

// routeDescriptorFrom maps one router route entry to a descriptor.
func routeDescriptorFrom(info route.Info) RouteDescriptor {
	return RouteDescriptor{
		Method:      info.Method,
		Path:        info.Path,
		HandlerName: info.HandlerName,
		Middleware:  append([]string(nil), info.Middleware...),
	}
}
