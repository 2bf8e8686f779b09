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

// NewProduction creates an inspector configured for production use: records
// export over OTLP gRPC to the given endpoint and self-metrics are enabled.
// Call Start to establish the collector connection.
//
// Example:
//
//	insp, err := inspector.NewProduction("user-api", "v1.2.3", "otel-collector:4317")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := insp.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
func NewProduction(serviceName, serviceVersion, otlpEndpoint string) (*Inspector, error) {
	return New(
		WithServiceName(serviceName),
		WithServiceVersion(serviceVersion),
		WithOTLP(otlpEndpoint),
		WithMetrics(),
	)
}

// NewDevelopment creates an inspector configured for local development:
// records print to stdout and route snapshots are enabled so the debug
// handler shows the full route table.
//
// Example:
//
//	insp, err := inspector.NewDevelopment("user-api", "dev")
//	if err != nil {
//	    log.Fatal(err)
//	}
func NewDevelopment(serviceName, serviceVersion string) (*Inspector, error) {
	return New(
		WithServiceName(serviceName),
		WithServiceVersion(serviceVersion),
		WithStdout(),
		WithRouteSnapshot(),
	)
}
