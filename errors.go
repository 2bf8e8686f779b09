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

import "errors"

var (
	// ErrResponseNotSet is returned by [Collector.Resolve] and
	// [Collector.ResponseStatus] when no response was attached via
	// [Collector.SetResponse]. A response is mandatory for a complete
	// record, so this is treated as a programming error rather than
	// silently defaulting the status.
	ErrResponseNotSet = errors.New("inspector: response not set; call SetResponse before Resolve")

	// ErrCapabilityAbsent is returned by the Inspector's direct capability
	// accessors when the corresponding provider was not configured.
	// Resolve never returns it; missing capabilities degrade to empty
	// values there.
	ErrCapabilityAbsent = errors.New("inspector: capability not configured")

	// ErrStoreDisabled is returned when record lookups are attempted while
	// the in-memory store is disabled.
	ErrStoreDisabled = errors.New("inspector: record store disabled")
)
