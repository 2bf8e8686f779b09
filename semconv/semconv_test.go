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

package semconv

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServiceMetadataConstants(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		constant string
		want     string
	}{
		{
			name:     "ServiceName",
			constant: ServiceName,
			want:     "service.name",
		},
		{
			name:     "ServiceVersion",
			constant: ServiceVersion,
			want:     "service.version",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.NotEmpty(t, tt.constant, "constant should not be empty")
			assert.Equal(t, tt.want, tt.constant, "constant should match expected value")
		})
	}
}

func TestHTTPAttributeConstants(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		constant string
		want     string
	}{
		{
			name:     "HTTPMethod",
			constant: HTTPMethod,
			want:     "http.method",
		},
		{
			name:     "HTTPRoute",
			constant: HTTPRoute,
			want:     "http.route",
		},
		{
			name:     "HTTPTarget",
			constant: HTTPTarget,
			want:     "http.target",
		},
		{
			name:     "HTTPStatusCode",
			constant: HTTPStatusCode,
			want:     "http.status_code",
		},
		{
			name:     "HTTPResponseSize",
			constant: HTTPResponseSize,
			want:     "http.response_content_length",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.NotEmpty(t, tt.constant, "constant should not be empty")
			assert.Equal(t, tt.want, tt.constant, "constant should match expected value")
		})
	}
}

func TestRequestAttributeConstants(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		constant string
		want     string
	}{
		{
			name:     "RequestID",
			constant: RequestID,
			want:     "req.id",
		},
		{
			name:     "HandlerName",
			constant: HandlerName,
			want:     "rivaas.inspector.handler",
		},
		{
			name:     "LogCount",
			constant: LogCount,
			want:     "rivaas.inspector.logs",
		},
		{
			name:     "DroppedLogs",
			constant: DroppedLogs,
			want:     "rivaas.inspector.logs_dropped",
		},
		{
			name:     "SessionKeys",
			constant: SessionKeys,
			want:     "rivaas.inspector.session_keys",
		},
		{
			name:     "RouteCount",
			constant: RouteCount,
			want:     "rivaas.inspector.routes",
		},
		{
			name:     "EnduserID",
			constant: EnduserID,
			want:     "enduser.id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.NotEmpty(t, tt.constant, "constant should not be empty")
			assert.Equal(t, tt.want, tt.constant, "constant should match expected value")
		})
	}
}

func TestLogEventConstants(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		constant string
		want     string
	}{
		{
			name:     "LogSeverity",
			constant: LogSeverity,
			want:     "log.severity",
		},
		{
			name:     "LogMessage",
			constant: LogMessage,
			want:     "log.message",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.NotEmpty(t, tt.constant, "constant should not be empty")
			assert.Equal(t, tt.want, tt.constant, "constant should match expected value")
		})
	}
}

func TestInspectorConstantsUsePackagePrefix(t *testing.T) {
	t.Parallel()

	prefixed := []string{
		HandlerName,
		LogCount,
		DroppedLogs,
		SessionKeys,
		RouteCount,
	}

	for _, constant := range prefixed {
		assert.True(t, strings.HasPrefix(constant, "rivaas.inspector."),
			"constant %q should use the rivaas.inspector. prefix", constant)
	}
}

func TestConstantsUniqueness(t *testing.T) {
	t.Parallel()

	allConstants := []string{
		ServiceName,
		ServiceVersion,
		HTTPMethod,
		HTTPRoute,
		HTTPTarget,
		HTTPStatusCode,
		HTTPResponseSize,
		RequestID,
		HandlerName,
		LogCount,
		DroppedLogs,
		SessionKeys,
		RouteCount,
		EnduserID,
		LogSeverity,
		LogMessage,
	}

	seen := make(map[string]bool)
	for _, constant := range allConstants {
		assert.False(t, seen[constant], "constant %q should be unique", constant)
		seen[constant] = true
	}
}
