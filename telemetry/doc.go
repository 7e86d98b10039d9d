// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package telemetry wires OpenTelemetry tracing for the server.
//
//	shutdown, err := telemetry.Setup(ctx, "route-optimiser", cfg.OTelEndpoint)
//	defer shutdown(context.Background())
//
// Spans are created per request by middleware.WithTracing.
package telemetry
