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
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

// Provider represents the record export provider type.
type Provider string

const (
	// NoopProvider disables record export (default). Records are still
	// collected, stored and counted.
	NoopProvider Provider = "noop"

	// StdoutProvider exports records as pretty-printed spans on stdout.
	// Useful for development and debugging.
	StdoutProvider Provider = "stdout"

	// OTLPProvider exports records over OTLP gRPC.
	OTLPProvider Provider = "otlp"

	// OTLPHTTPProvider exports records over OTLP HTTP.
	OTLPHTTPProvider Provider = "otlp-http"
)

// initializeProvider initializes the export provider based on configuration.
// OTLP providers require a network connection and defer to
// initializeProviderWithContext, which Start calls with the lifecycle
// context.
func (i *Inspector) initializeProvider() error {
	// A user-provided tracer provider overrides any provider option.
	if i.customTracerProvider {
		return i.initCustomProvider()
	}

	switch i.provider {
	case NoopProvider:
		return i.initNoopProvider()
	case StdoutProvider:
		return i.initStdoutProvider()
	case OTLPProvider, OTLPHTTPProvider:
		i.providerDeferred.Store(true)
		return nil
	default:
		return fmt.Errorf("unsupported export provider: %s", i.provider)
	}
}

// initializeProviderWithContext initializes OTLP providers with a context.
// The context is used for network connection establishment.
func (i *Inspector) initializeProviderWithContext(ctx context.Context) error {
	switch i.provider {
	case OTLPProvider:
		return i.initOTLPProvider(ctx)
	case OTLPHTTPProvider:
		return i.initOTLPHTTPProvider(ctx)
	default:
		return fmt.Errorf("provider %s does not require context initialization", i.provider)
	}
}

// initCustomProvider wires a user-provided tracer provider.
func (i *Inspector) initCustomProvider() error {
	if i.tracerProvider == nil {
		return fmt.Errorf("custom tracer provider is nil")
	}
	i.emitDebug("Using custom user-provided tracer provider")
	if i.tracer == nil {
		i.tracer = i.tracerProvider.Tracer("rivaas.dev/inspector")
	}
	if i.registerGlobal {
		i.emitDebug("Setting global OpenTelemetry tracer provider", "provider", "custom")
		otel.SetTracerProvider(i.tracerProvider)
	}

	return nil
}

// initNoopProvider creates a tracer provider with no exporter.
func (i *Inspector) initNoopProvider() error {
	res := createResource(i.serviceName, i.serviceVersion)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
	)

	i.sdkProvider = tp
	i.tracerProvider = tp
	i.tracer = tp.Tracer("rivaas.dev/inspector")

	if i.registerGlobal {
		i.emitDebug("Setting global OpenTelemetry tracer provider", "provider", "noop")
		otel.SetTracerProvider(tp)
	}

	return nil
}

// initStdoutProvider initializes the stdout record exporter.
func (i *Inspector) initStdoutProvider() error {
	// Create stdout exporter with pretty printing
	exporter, err := stdouttrace.New(
		stdouttrace.WithPrettyPrint(),
	)
	if err != nil {
		return fmt.Errorf("failed to create stdout exporter: %w", err)
	}

	// Create resource with service information
	res := createResource(i.serviceName, i.serviceVersion)

	// Create tracer provider
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	i.sdkProvider = tp
	i.tracerProvider = tp
	i.tracer = tp.Tracer("rivaas.dev/inspector")

	if i.registerGlobal {
		i.emitDebug("Setting global OpenTelemetry tracer provider", "provider", "stdout")
		otel.SetTracerProvider(tp)
	} else {
		i.emitDebug("Skipping global tracer provider registration", "provider", "stdout")
	}

	i.emitInfo("Record export initialized", "provider", "stdout", "service", i.serviceName)

	return nil
}

// initOTLPProvider initializes the OTLP gRPC record exporter.
// The context is used for connection establishment.
func (i *Inspector) initOTLPProvider(ctx context.Context) error {
	// Build OTLP options
	opts := []otlptracegrpc.Option{}

	if i.otlpEndpoint != "" {
		opts = append(opts, otlptracegrpc.WithEndpoint(i.otlpEndpoint))
	}

	if i.otlpInsecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	// Create OTLP exporter with the provided context
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to create OTLP gRPC exporter: %w", err)
	}

	// Create resource with service information
	res := createResource(i.serviceName, i.serviceVersion)

	// Create tracer provider
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	i.sdkProvider = tp
	i.tracerProvider = tp
	i.tracer = tp.Tracer("rivaas.dev/inspector")

	if i.registerGlobal {
		i.emitDebug("Setting global OpenTelemetry tracer provider", "provider", "otlp")
		otel.SetTracerProvider(tp)
	} else {
		i.emitDebug("Skipping global tracer provider registration", "provider", "otlp")
	}

	i.emitInfo("Record export initialized", "provider", "otlp", "endpoint", i.otlpEndpoint, "service", i.serviceName)

	return nil
}

// initOTLPHTTPProvider initializes the OTLP HTTP record exporter.
// The context is used for connection establishment.
func (i *Inspector) initOTLPHTTPProvider(ctx context.Context) error {
	// Build OTLP HTTP options
	opts := []otlptracehttp.Option{}

	if i.otlpEndpoint != "" {
		// Parse endpoint to extract host:port and determine if HTTP or HTTPS
		endpoint := i.otlpEndpoint
		isHTTP := false

		// Remove protocol prefix if present
		if trimmed, ok := strings.CutPrefix(endpoint, "http://"); ok {
			endpoint = trimmed
			isHTTP = true
		} else if trimmedHTTPS, trimmedOk := strings.CutPrefix(endpoint, "https://"); trimmedOk {
			endpoint = trimmedHTTPS
		}

		// Remove trailing path if present
		if idx := strings.Index(endpoint, "/"); idx != -1 {
			endpoint = endpoint[:idx]
		}

		opts = append(opts, otlptracehttp.WithEndpoint(endpoint))
		if isHTTP {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
	}

	// Create OTLP HTTP exporter with the provided context
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to create OTLP HTTP exporter: %w", err)
	}

	// Create resource with service information
	res := createResource(i.serviceName, i.serviceVersion)

	// Create tracer provider
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	i.sdkProvider = tp
	i.tracerProvider = tp
	i.tracer = tp.Tracer("rivaas.dev/inspector")

	if i.registerGlobal {
		i.emitDebug("Setting global OpenTelemetry tracer provider", "provider", "otlp-http")
		otel.SetTracerProvider(tp)
	} else {
		i.emitDebug("Skipping global tracer provider registration", "provider", "otlp-http")
	}

	i.emitInfo("Record export initialized", "provider", "otlp-http", "endpoint", i.otlpEndpoint, "service", i.serviceName)

	return nil
}

// createResource creates an OpenTelemetry resource with service information.
func createResource(serviceName, serviceVersion string) *resource.Resource {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(serviceVersion),
	)
}
