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
	"net/http"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// selfMetrics instruments the inspector itself: how many records it
// produces, how long requests take, and where the pipeline loses data.
// All recording methods are nil-safe, so call sites never need to check
// whether self-metrics are enabled.
type selfMetrics struct {
	registry *promclient.Registry
	handler  http.Handler
	provider *sdkmetric.MeterProvider
	meter    metric.Meter

	recordCount     metric.Int64Counter
	recordDuration  metric.Float64Histogram
	storedRecords   metric.Int64Gauge
	droppedLogs     metric.Int64Counter
	exportFailures  metric.Int64Counter
	resolveFailures metric.Int64Counter
}

// newSelfMetrics builds the self-metrics pipeline on a private Prometheus
// registry, so inspector metrics never collide with the application's own
// registry.
func newSelfMetrics() (*selfMetrics, error) {
	m := &selfMetrics{}

	// Create a custom Prometheus registry to avoid conflicts with the
	// global registry
	m.registry = promclient.NewRegistry()

	// Create Prometheus exporter with custom registry
	exporter, err := prometheus.New(
		prometheus.WithRegisterer(m.registry),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
	}

	m.provider = sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
	)

	// Create handler for the custom registry
	m.handler = promhttp.HandlerFor(
		m.registry,
		promhttp.HandlerOpts{},
	)

	m.meter = m.provider.Meter("rivaas.dev/inspector")

	if err := m.initializeInstruments(); err != nil {
		return nil, err
	}

	return m, nil
}

// initializeInstruments creates the metric instruments.
func (m *selfMetrics) initializeInstruments() error {
	var err error

	m.recordCount, err = m.meter.Int64Counter(
		"inspector_records_total",
		metric.WithDescription("Total number of request records resolved"),
	)
	if err != nil {
		return fmt.Errorf("failed to create record count counter: %w", err)
	}

	m.recordDuration, err = m.meter.Float64Histogram(
		"inspector_record_duration_seconds",
		metric.WithDescription("Wall time covered by request records in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create record duration histogram: %w", err)
	}

	m.storedRecords, err = m.meter.Int64Gauge(
		"inspector_stored_records",
		metric.WithDescription("Number of records retained in the in-memory store"),
	)
	if err != nil {
		return fmt.Errorf("failed to create stored records gauge: %w", err)
	}

	m.droppedLogs, err = m.meter.Int64Counter(
		"inspector_logs_dropped_total",
		metric.WithDescription("Total number of log entries dropped by full buffers"),
	)
	if err != nil {
		return fmt.Errorf("failed to create dropped logs counter: %w", err)
	}

	m.exportFailures, err = m.meter.Int64Counter(
		"inspector_export_failures_total",
		metric.WithDescription("Total number of record export failures"),
	)
	if err != nil {
		return fmt.Errorf("failed to create export failures counter: %w", err)
	}

	m.resolveFailures, err = m.meter.Int64Counter(
		"inspector_resolve_failures_total",
		metric.WithDescription("Total number of record resolution failures"),
	)
	if err != nil {
		return fmt.Errorf("failed to create resolve failures counter: %w", err)
	}

	return nil
}

// observeRecord records one resolved record.
func (m *selfMetrics) observeRecord(ctx context.Context, rec *Record) {
	if m == nil || rec == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("http.method", rec.Method),
		attribute.String("http.status_class", statusClass(rec.ResponseStatus)),
	)

	m.recordCount.Add(ctx, 1, attrs)
	m.recordDuration.Record(ctx, rec.Duration.Seconds(), attrs)

	if rec.DroppedLogs > 0 {
		m.droppedLogs.Add(ctx, int64(rec.DroppedLogs))
	}
}

// setStoredRecords records the store's current size.
func (m *selfMetrics) setStoredRecords(ctx context.Context, n int) {
	if m == nil {
		return
	}
	m.storedRecords.Record(ctx, int64(n))
}

// addExportFailure counts one failed record export.
func (m *selfMetrics) addExportFailure(ctx context.Context) {
	if m == nil {
		return
	}
	m.exportFailures.Add(ctx, 1)
}

// addResolveFailure counts one failed record resolution.
func (m *selfMetrics) addResolveFailure(ctx context.Context) {
	if m == nil {
		return
	}
	m.resolveFailures.Add(ctx, 1)
}

// shutdown flushes and stops the meter provider.
func (m *selfMetrics) shutdown(ctx context.Context) error {
	if m == nil || m.provider == nil {
		return nil
	}
	return m.provider.Shutdown(ctx)
}

// statusClass returns the HTTP status class (2xx, 3xx, 4xx, 5xx).
func statusClass(statusCode int) string {
	switch statusCode / 100 {
	case 2:
		return "2xx"
	case 3:
		return "3xx"
	case 4:
		return "4xx"
	case 5:
		return "5xx"
	default:
		return "unknown"
	}
}

// MetricsHandler returns the Prometheus [http.Handler] for inspector
// self-metrics. Returns an error when self-metrics are not enabled; enable
// them with [WithMetrics].
//
// Example:
//
//	handler, err := insp.MetricsHandler()
//	if err == nil {
//	    mux.Handle("/metrics", handler)
//	}
func (i *Inspector) MetricsHandler() (http.Handler, error) {
	if i.metrics == nil {
		return nil, fmt.Errorf("self-metrics not enabled; use WithMetrics")
	}
	return i.metrics.handler, nil
}
