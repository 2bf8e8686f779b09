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
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"rivaas.dev/inspector/semconv"
)

// exportRecord renders a resolved record as an OpenTelemetry span tree: one
// root span for the request, a child span per timeline entry, and a span
// event per captured log entry. The span timestamps replay the record's
// capture times, so the exported trace reflects when things happened, not
// when Submit ran.
//
// When ctx carries trace context extracted from the incoming request, the
// root span parents to the caller's trace.
func (i *Inspector) exportRecord(ctx context.Context, rec *Record) error {
	if i.tracer == nil || i.providerDeferred.Load() {
		// OTLP providers finish initializing in Start. Records resolved
		// before that are stored and counted, not exported.
		return nil
	}

	endedAt := rec.StartedAt.Add(rec.Duration)

	ctx, root := i.tracer.Start(ctx, recordSpanName(rec),
		trace.WithTimestamp(rec.StartedAt),
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(i.recordAttributes(rec)...),
	)

	for _, entry := range rec.Logs {
		root.AddEvent("log",
			trace.WithTimestamp(entry.Time),
			trace.WithAttributes(logEventAttributes(entry)...),
		)
	}

	for _, span := range rec.Timeline {
		exportTimelineSpan(ctx, i.tracer, span, rec.StartedAt, endedAt)
	}

	if rec.ResponseStatus >= 400 {
		root.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", rec.ResponseStatus))
	} else {
		root.SetStatus(codes.Ok, "")
	}

	root.End(trace.WithTimestamp(endedAt))

	return nil
}

// recordSpanName names the root span after the handler when one was
// resolved, falling back to "METHOD /path".
func recordSpanName(rec *Record) string {
	if rec.Handler != "" {
		return rec.Handler
	}
	return rec.Method + " " + pathInfoFromURI(rec.URI)
}

// recordAttributes builds the root span's attribute set.
func (i *Inspector) recordAttributes(rec *Record) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 12)

	attrs = append(attrs,
		attribute.String(semconv.RequestID, rec.ID),
		attribute.String(semconv.HTTPMethod, rec.Method),
		attribute.String(semconv.HTTPTarget, rec.URI),
		attribute.String(semconv.HTTPRoute, pathInfoFromURI(rec.URI)),
		attribute.Int(semconv.HTTPStatusCode, rec.ResponseStatus),
		attribute.String(semconv.ServiceName, i.serviceName),
		attribute.String(semconv.ServiceVersion, i.serviceVersion),
		attribute.Int(semconv.LogCount, len(rec.Logs)),
	)

	if rec.Handler != "" {
		attrs = append(attrs, attribute.String(semconv.HandlerName, rec.Handler))
	}
	if rec.ResponseSize > 0 {
		attrs = append(attrs, attribute.Int64(semconv.HTTPResponseSize, rec.ResponseSize))
	}
	if rec.DroppedLogs > 0 {
		attrs = append(attrs, attribute.Int(semconv.DroppedLogs, rec.DroppedLogs))
	}
	if len(rec.Session) > 0 {
		attrs = append(attrs, attribute.Int(semconv.SessionKeys, len(rec.Session)))
	}
	if len(rec.Routes) > 0 {
		attrs = append(attrs, attribute.Int(semconv.RouteCount, len(rec.Routes)))
	}
	if rec.User != nil && rec.User.ID != "" {
		attrs = append(attrs, attribute.String(semconv.EnduserID, rec.User.ID))
	}

	return attrs
}

// logEventAttributes builds the attribute set of one log span event.
func logEventAttributes(entry LogEntry) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 2+len(entry.Attrs))
	attrs = append(attrs,
		attribute.String(semconv.LogSeverity, entry.Level.String()),
		attribute.String(semconv.LogMessage, entry.Message),
	)
	for key, value := range entry.Attrs {
		attrs = append(attrs, buildAttribute(key, value))
	}
	return attrs
}

// exportTimelineSpan renders one timeline entry as a child span. Timeline
// entries may be degenerate (closed without being opened, or never closed);
// missing endpoints are clamped to the request window so the exported span
// is always well-formed.
func exportTimelineSpan(ctx context.Context, tracer trace.Tracer, span Span, startedAt, endedAt time.Time) {
	start := span.Start
	end := span.End

	if start.IsZero() {
		// Closed without being opened: render a point at the close time.
		start = end
		if start.IsZero() {
			start = startedAt
		}
	}
	if end.IsZero() {
		// Never closed: extend to the end of the request.
		end = endedAt
	}
	if end.Before(start) {
		end = start
	}

	attrs := make([]attribute.KeyValue, 0, len(span.Attrs))
	for key, value := range span.Attrs {
		attrs = append(attrs, buildAttribute(key, value))
	}

	_, child := tracer.Start(ctx, span.Name,
		trace.WithTimestamp(start),
		trace.WithAttributes(attrs...),
	)
	child.End(trace.WithTimestamp(end))
}

// buildAttribute creates a type-safe attribute from a value.
// Types without native OpenTelemetry handling are converted to string using
// fmt.Sprintf("%v", value).
func buildAttribute(key string, value any) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	case bool:
		return attribute.Bool(key, v)
	default:
		return attribute.String(key, fmt.Sprintf("%v", v))
	}
}
