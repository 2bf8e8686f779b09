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
	"net/http"
	"testing"
	"time"
)

// TestingInspector creates a test [Inspector] with sensible defaults for
// unit tests. Records export through [NoopProvider] unless a provider option
// is passed, so tests make no external connections. Shutdown runs via
// t.Cleanup.
//
// Example:
//
//	func TestSomething(t *testing.T) {
//	    t.Parallel()
//	    insp := inspector.TestingInspector(t)
//	    // Use insp...
//	}
func TestingInspector(t testing.TB, opts ...Option) *Inspector {
	t.Helper()

	// Default options for testing
	defaultOpts := []Option{
		WithServiceName("test-service"),
		WithServiceVersion("v1.0.0"),
	}

	// Allow test-specific options to override defaults
	allOpts := append(defaultOpts, opts...)

	insp, err := New(allOpts...)
	if err != nil {
		t.Fatalf("TestingInspector: failed to create inspector: %v", err)
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := insp.Shutdown(ctx); err != nil {
			t.Logf("TestingInspector: shutdown warning: %v", err)
		}
	})

	return insp
}

// TestingInspectorWithStdout creates a test [Inspector] that exports records
// through [StdoutProvider]. This is useful for debugging tests that need to
// see export output. Shutdown runs via t.Cleanup.
//
// Example:
//
//	func TestSomething(t *testing.T) {
//	    t.Parallel()
//	    insp := inspector.TestingInspectorWithStdout(t)
//	    // Use insp...
//	}
func TestingInspectorWithStdout(t testing.TB, opts ...Option) *Inspector {
	t.Helper()

	// Default options for testing with stdout
	defaultOpts := []Option{
		WithServiceName("test-service"),
		WithServiceVersion("v1.0.0"),
		WithStdout(),
	}

	// Allow test-specific options to override defaults
	allOpts := append(defaultOpts, opts...)

	insp, err := New(allOpts...)
	if err != nil {
		t.Fatalf("TestingInspectorWithStdout: failed to create inspector: %v", err)
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := insp.Shutdown(ctx); err != nil {
			t.Logf("TestingInspectorWithStdout: shutdown warning: %v", err)
		}
	})

	return insp
}

// TestingMiddleware creates test middleware backed by a [TestingInspector].
//
// Example:
//
//	func TestSomething(t *testing.T) {
//	    t.Parallel()
//	    middleware := inspector.TestingMiddleware(t)
//	    handler := middleware(myHandler)
//	    // Use handler...
//	}
func TestingMiddleware(t testing.TB, middlewareOpts ...MiddlewareOption) func(http.Handler) http.Handler {
	t.Helper()

	insp := TestingInspector(t)

	return Middleware(insp, middlewareOpts...)
}

// TestingMiddlewareWithInspector creates test middleware around an existing
// inspector. This is useful when the test needs to inspect stored records or
// configure both the inspector and middleware options.
//
// Example:
//
//	func TestSomething(t *testing.T) {
//	    t.Parallel()
//	    insp := inspector.TestingInspector(t, inspector.WithMaxLogEntries(10))
//	    middleware := inspector.TestingMiddlewareWithInspector(t, insp,
//	        inspector.WithExcludePaths("/health"),
//	    )
//	    handler := middleware(myHandler)
//	    // Use handler...
//	}
func TestingMiddlewareWithInspector(t testing.TB, insp *Inspector, middlewareOpts ...MiddlewareOption) func(http.Handler) http.Handler {
	t.Helper()

	return Middleware(insp, middlewareOpts...)
}
