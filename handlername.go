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
	"reflect"
	"runtime"
	"strings"
)

// AnonymousHandler is the handler name recorded for closures and other
// handlers with no stable symbol name.
const AnonymousHandler = "anonymous function"

// classifyHandler derives a textual identifier from whatever the host bound
// as the request handler:
//
//   - a string is used verbatim (route tables that store "Controller@action"
//     style references),
//   - a function resolves through its runtime symbol name,
//   - any other value is reported as an instance of its type,
//   - nil yields the empty string, leaving the record's handler unset.
func classifyHandler(handler any) string {
	if handler == nil {
		return ""
	}

	if s, ok := handler.(string); ok {
		return s
	}

	rv := reflect.ValueOf(handler)
	switch rv.Kind() {
	case reflect.Func:
		if rv.IsNil() {
			return ""
		}
		return funcHandlerName(rv)
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return ""
		}
	}

	return "instance of " + indirectTypeName(rv.Type())
}

// funcHandlerName resolves a function value to a readable symbol name.
// Method values come out as "Type.Method"; closures collapse to
// AnonymousHandler.
func funcHandlerName(rv reflect.Value) string {
	funcPtr := runtime.FuncForPC(rv.Pointer())
	if funcPtr == nil {
		return "unknown"
	}

	fullName := funcPtr.Name()

	// Method values carry a -fm suffix.
	name := strings.TrimSuffix(fullName, "-fm")

	// Drop the import path, keeping "pkg.Symbol".
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}

	if isAnonymousFuncName(name) {
		return AnonymousHandler
	}

	// "pkg.(*Type).Method" -> "Type.Method"; "pkg.Func" -> "Func".
	name = strings.ReplaceAll(name, "(*", "")
	name = strings.ReplaceAll(name, ")", "")
	if parts := strings.Split(name, "."); len(parts) > 1 {
		name = strings.Join(parts[1:], ".")
	}

	if name == "" {
		return "unknown"
	}
	return name
}

// isAnonymousFuncName reports whether a symbol name is a compiler-generated
// closure name ("pkg.Func.func1", "pkg.Func.func2.1", ...). The suffix after
// ".func" must be digits and dots only; named functions that merely contain
// "func" in their identifier do not match.
func isAnonymousFuncName(name string) bool {
	idx := strings.Index(name, ".func")
	if idx < 0 {
		return false
	}
	suffix := name[idx+len(".func"):]
	if suffix == "" {
		return false
	}
	for _, r := range suffix {
		if (r < '0' || r > '9') && r != '.' {
			return false
		}
	}
	return true
}

// indirectTypeName names a type with pointers stripped, without the import
// path.
func indirectTypeName(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() != "" {
		return t.Name()
	}
	return t.String()
}

// pathInfoFromURI derives the route-lookup path from a raw request URI:
// the query string is stripped, trailing slashes are removed, and a leading
// slash is guaranteed. Used when no live request is bound at resolve time.
func pathInfoFromURI(uri string) string {
	path := uri
	if idx := strings.IndexByte(path, '?'); idx >= 0 {
		path = path[:idx]
	}
	for len(path) > 1 && strings.HasSuffix(path, "/") {
		path = path[:len(path)-1]
	}
	if path == "" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}
