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
	"net/http"
	"strings"
)

// DebugHandler returns an [http.Handler] that serves retained records as
// pretty-printed JSON:
//
//	GET /      the retained records, newest first
//	GET /{id}  a single record
//
// Mount it under a prefix with [http.StripPrefix]:
//
//	mux.Handle("/debug/requests/", http.StripPrefix("/debug/requests", insp.DebugHandler()))
//
// The handler is read-only and safe for concurrent use. Records contain
// sanitized session data and filtered headers, but treat the endpoint as
// sensitive: expose it on an internal listener or behind authentication.
func (i *Inspector) DebugHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			writeDebugError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		if i.store == nil {
			writeDebugError(w, http.StatusServiceUnavailable, "record store disabled")
			return
		}

		id := strings.Trim(r.URL.Path, "/")
		if id == "" {
			writeDebugJSON(w, http.StatusOK, i.store.list())
			return
		}

		rec, ok := i.store.get(id)
		if !ok {
			writeDebugError(w, http.StatusNotFound, "record not found")
			return
		}
		writeDebugJSON(w, http.StatusOK, rec)
	})
}

func writeDebugJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func writeDebugError(w http.ResponseWriter, status int, msg string) {
	writeDebugJSON(w, status, map[string]string{"error": msg})
}
