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
	"regexp"
	"strings"
)

// pathFilter handles path exclusion logic for the middleware.
// It supports exact paths, prefixes, and regex patterns.
type pathFilter struct {
	paths    map[string]bool
	prefixes []string
	patterns []*regexp.Regexp
}

// newPathFilter creates a new path filter.
func newPathFilter() *pathFilter {
	return &pathFilter{
		paths: make(map[string]bool),
	}
}

// addPaths adds exact paths to exclude.
func (pf *pathFilter) addPaths(paths ...string) {
	for _, p := range paths {
		pf.paths[p] = true
	}
}

// addPrefixes adds path prefixes to exclude.
func (pf *pathFilter) addPrefixes(prefixes ...string) {
	pf.prefixes = append(pf.prefixes, prefixes...)
}

// addPatterns adds compiled regex patterns to exclude.
func (pf *pathFilter) addPatterns(patterns ...*regexp.Regexp) {
	pf.patterns = append(pf.patterns, patterns...)
}

// shouldExclude returns true if the path should be excluded from collection.
func (pf *pathFilter) shouldExclude(path string) bool {
	if pf == nil {
		return false
	}

	// Check exact paths (O(1) lookup)
	if pf.paths[path] {
		return true
	}

	// Check prefixes
	for _, prefix := range pf.prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}

	// Check patterns
	for _, pattern := range pf.patterns {
		if pattern.MatchString(path) {
			return true
		}
	}

	return false
}

// MaxExcludedPaths is the maximum number of paths that can be excluded from
// collection.
const MaxExcludedPaths = 1000

// WithExcludePaths excludes specific paths from collection.
// Excluded paths will not create collectors or produce records.
// This is useful for health checks, metrics endpoints, etc.
//
// Maximum of 1000 paths can be excluded to prevent unbounded growth.
//
// Example:
//
//	handler := inspector.Middleware(insp,
//	    inspector.WithExcludePaths("/health", "/metrics"),
//	)(mux)
func WithExcludePaths(paths ...string) MiddlewareOption {
	return func(c *middlewareConfig) {
		if c.pathFilter == nil {
			c.pathFilter = newPathFilter()
		}
		for i, path := range paths {
			if i >= MaxExcludedPaths {
				break
			}
			c.pathFilter.addPaths(path)
		}
	}
}

// WithExcludePrefixes excludes paths with the given prefixes from collection.
// This is useful for excluding entire path hierarchies like /debug/, /internal/, etc.
//
// Example:
//
//	handler := inspector.Middleware(insp,
//	    inspector.WithExcludePrefixes("/debug/", "/internal/"),
//	)(mux)
func WithExcludePrefixes(prefixes ...string) MiddlewareOption {
	return func(c *middlewareConfig) {
		if c.pathFilter == nil {
			c.pathFilter = newPathFilter()
		}
		c.pathFilter.addPrefixes(prefixes...)
	}
}

// WithExcludePatterns excludes paths matching the given regex patterns from
// collection. The patterns are compiled once during configuration.
// Invalid patterns surface as a panic from [Middleware].
//
// Example:
//
//	handler := inspector.Middleware(insp,
//	    inspector.WithExcludePatterns(`^/v[0-9]+/internal/.*`),
//	)(mux)
func WithExcludePatterns(patterns ...string) MiddlewareOption {
	return func(c *middlewareConfig) {
		if c.pathFilter == nil {
			c.pathFilter = newPathFilter()
		}
		for _, pattern := range patterns {
			compiled, err := regexp.Compile(pattern)
			if err != nil {
				c.validationErrors = append(c.validationErrors,
					fmt.Errorf("excludePatterns: invalid regex %q: %w", pattern, err))

				continue
			}
			c.pathFilter.addPatterns(compiled)
		}
	}
}
