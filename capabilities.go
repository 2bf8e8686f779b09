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

import "net/http"

// The capability interfaces describe the optional application services a
// record can draw on. Each one is configured explicitly on the Inspector;
// an absent capability degrades the corresponding record field to its empty
// value instead of failing collection.
//
// Capability implementations may receive a nil *http.Request when a record
// is resolved without a live request bound.

// SessionProvider exposes the session data for a request. The returned map
// is sanitized by the collector before it reaches a record, so providers
// may return their values as-is.
type SessionProvider interface {
	SessionData(r *http.Request) map[string]any
}

// SessionProviderFunc adapts a function to the SessionProvider interface.
type SessionProviderFunc func(r *http.Request) map[string]any

// SessionData calls f(r).
func (f SessionProviderFunc) SessionData(r *http.Request) map[string]any {
	return f(r)
}

// UserProvider resolves the authenticated user for a request.
// The second return value reports whether a user is present; guests return
// false.
type UserProvider interface {
	CurrentUser(r *http.Request) (UserIdentity, bool)
}

// UserProviderFunc adapts a function to the UserProvider interface.
type UserProviderFunc func(r *http.Request) (UserIdentity, bool)

// CurrentUser calls f(r).
func (f UserProviderFunc) CurrentUser(r *http.Request) (UserIdentity, bool) {
	return f(r)
}

// RouteLister enumerates the application's registered routes.
type RouteLister interface {
	ListRoutes() []RouteDescriptor
}

// RouteListerFunc adapts a function to the RouteLister interface.
type RouteListerFunc func() []RouteDescriptor

// ListRoutes calls f().
func (f RouteListerFunc) ListRoutes() []RouteDescriptor {
	return f()
}

// HandlerNamer resolves the matched handler's textual identifier for a
// request. Implementations that cannot answer (unmatched route, nil
// request) return false and the collector falls back to the route table and
// then to handler reflection.
type HandlerNamer interface {
	HandlerName(r *http.Request) (string, bool)
}

// HandlerNamerFunc adapts a function to the HandlerNamer interface.
type HandlerNamerFunc func(r *http.Request) (string, bool)

// HandlerName calls f(r).
func (f HandlerNamerFunc) HandlerName(r *http.Request) (string, bool) {
	return f(r)
}

// SessionData returns the sanitized session snapshot for the request.
// Unlike resolution, which degrades silently, this accessor returns
// ErrCapabilityAbsent when no SessionProvider is configured.
func (i *Inspector) SessionData(r *http.Request) (map[string]any, error) {
	if i.session == nil {
		return nil, ErrCapabilityAbsent
	}
	return sanitizeSession(i.safeSessionData(r), i.redact), nil
}

// CurrentUser returns the authenticated user for the request.
// Returns ErrCapabilityAbsent when no UserProvider is configured; a nil
// identity with nil error means the request is unauthenticated.
func (i *Inspector) CurrentUser(r *http.Request) (*UserIdentity, error) {
	if i.user == nil {
		return nil, ErrCapabilityAbsent
	}
	return i.safeCurrentUser(r), nil
}

// Routes returns the application route snapshot.
// Returns ErrCapabilityAbsent when no RouteLister is configured.
func (i *Inspector) Routes() ([]RouteDescriptor, error) {
	if i.routes == nil {
		return nil, ErrCapabilityAbsent
	}
	return i.safeListRoutes(), nil
}

// safeSessionData calls the session capability, containing panics.
func (i *Inspector) safeSessionData(r *http.Request) (data map[string]any) {
	if i.session == nil {
		return nil
	}
	defer func() {
		if rec := recover(); rec != nil {
			i.emitWarning("Session provider panicked", "panic", rec)
			data = nil
		}
	}()
	return i.session.SessionData(r)
}

// safeCurrentUser calls the user capability, containing panics.
func (i *Inspector) safeCurrentUser(r *http.Request) (user *UserIdentity) {
	if i.user == nil {
		return nil
	}
	defer func() {
		if rec := recover(); rec != nil {
			i.emitWarning("User provider panicked", "panic", rec)
			user = nil
		}
	}()
	identity, ok := i.user.CurrentUser(r)
	if !ok {
		return nil
	}
	return &identity
}

// safeListRoutes calls the route capability, containing panics.
func (i *Inspector) safeListRoutes() (routes []RouteDescriptor) {
	if i.routes == nil {
		return nil
	}
	defer func() {
		if rec := recover(); rec != nil {
			i.emitWarning("Route lister panicked", "panic", rec)
			routes = nil
		}
	}()
	return i.routes.ListRoutes()
}

// safeHandlerName calls the handler namer capability, containing panics.
func (i *Inspector) safeHandlerName(r *http.Request) (name string, ok bool) {
	if i.namer == nil {
		return "", false
	}
	defer func() {
		if rec := recover(); rec != nil {
			i.emitWarning("Handler namer panicked", "panic", rec)
			name, ok = "", false
		}
	}()
	return i.namer.HandlerName(r)
}
