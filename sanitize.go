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
	"encoding/json"
	"fmt"
	"net/http"
	"net/textproto"
	"reflect"
	"strings"
	"time"
)

const (
	// RedactedValue replaces session values whose key matches the
	// redaction policy.
	RedactedValue = "[redacted]"

	// UnserializableValue replaces session values that cannot be
	// represented in a record (functions, channels, cyclic structures).
	UnserializableValue = "[unserializable]"
)

// maxNormalizeDepth bounds recursion through nested session values.
const maxNormalizeDepth = 8

// redactPolicy decides which session keys have their values masked.
// The zero policy redacts nothing; the default policy matches any key
// containing "password", case-insensitively.
type redactPolicy struct {
	substrings []string
	custom     func(key string) bool
}

func defaultRedactPolicy() *redactPolicy {
	return &redactPolicy{substrings: []string{"password"}}
}

func (p *redactPolicy) shouldRedact(key string) bool {
	if p == nil {
		return false
	}
	if p.custom != nil {
		return p.custom(key)
	}
	lower := strings.ToLower(key)
	for _, sub := range p.substrings {
		if strings.Contains(lower, sub) {
			return true
		}
	}
	return false
}

// sanitizeSession deep-normalizes a session snapshot into record-safe
// values and applies the redaction policy to top-level keys.
// The result is never nil.
func sanitizeSession(data map[string]any, policy *redactPolicy) map[string]any {
	out := make(map[string]any, len(data))
	for key, value := range data {
		if policy.shouldRedact(key) {
			out[key] = RedactedValue
			continue
		}
		out[key] = normalizeValue(value, maxNormalizeDepth)
	}
	return out
}

// normalizeValue converts an arbitrary session value into a shape that
// survives JSON marshaling. Values that cannot be represented become
// UnserializableValue rather than failing the snapshot.
func normalizeValue(v any, depth int) any {
	if v == nil {
		return nil
	}
	if depth <= 0 {
		return UnserializableValue
	}

	switch val := v.(type) {
	case bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64,
		time.Time, time.Duration:
		return val
	case []byte:
		return string(val)
	case error:
		return val.Error()
	case fmt.Stringer:
		return val.String()
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return normalizeValue(rv.Elem().Interface(), depth-1)
	case reflect.Map:
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			key := fmt.Sprint(iter.Key().Interface())
			out[key] = normalizeValue(iter.Value().Interface(), depth-1)
		}
		return out
	case reflect.Slice, reflect.Array:
		out := make([]any, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out = append(out, normalizeValue(rv.Index(i).Interface(), depth-1))
		}
		return out
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return UnserializableValue
	default:
		// Structs and anything else: keep the value if it marshals.
		if _, err := json.Marshal(v); err != nil {
			return UnserializableValue
		}
		return v
	}
}

// sensitiveHeaders contains header names that must never appear in a record.
// These headers typically contain authentication credentials or other
// sensitive data.
var sensitiveHeaders = map[string]bool{
	"authorization":       true,
	"cookie":              true,
	"set-cookie":          true,
	"x-api-key":           true,
	"x-auth-token":        true,
	"proxy-authorization": true,
	"www-authenticate":    true,
}

// filterHeaders copies request headers into a record. With no allowlist the
// full header map is captured; otherwise only the named headers are. In
// both cases sensitive headers are dropped, even when explicitly allowed.
func filterHeaders(src http.Header, allow []string) http.Header {
	out := make(http.Header, len(src))
	if src == nil {
		return out
	}

	if len(allow) == 0 {
		for name, values := range src {
			if sensitiveHeaders[strings.ToLower(name)] {
				continue
			}
			out[name] = append([]string(nil), values...)
		}
		return out
	}

	for _, name := range allow {
		canonical := textproto.CanonicalMIMEHeaderKey(name)
		if sensitiveHeaders[strings.ToLower(canonical)] {
			continue
		}
		if values, ok := src[canonical]; ok {
			out[canonical] = append([]string(nil), values...)
		}
	}
	return out
}
