/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package logger

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/trace"
	otelTrace "go.opentelemetry.io/otel/trace"
)

const tracePipeline = "traces"

// TracingConfig holds the configuration for OpenTelemetry tracing setup
type TracingConfig struct {
	ServiceName    string
	ServiceVersion string
	Logger         Logger
	OTel           *OTelConfig
}

// InitializeTracing installs a global TracerProvider and starts the process root span.
// Spans are exported only when OTel is enabled with an endpoint; the provider is
// flushed by Shutdown, and callers end the returned span.
func InitializeTracing(ctx context.Context, config TracingConfig) (*trace.TracerProvider, context.Context, otelTrace.Span, error) {
	res, err := newResource(ctx, config.ServiceName, config.ServiceVersion)
	if err != nil {
		return nil, ctx, nil, err
	}

	tpOptions := []trace.TracerProviderOption{trace.WithResource(res)}

	if config.OTel != nil && config.OTel.Enabled && config.OTel.Endpoint != "" {
		exporter, err := newTraceExporter(ctx, config.OTel)
		if err != nil {
			return nil, ctx, nil, fmt.Errorf("failed to create trace exporter: %w", err)
		}

		tpOptions = append(tpOptions, trace.WithBatcher(exporter))
	}

	tp := trace.NewTracerProvider(tpOptions...)

	registerPipeline(tracePipeline, tp)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	name := config.ServiceName
	if name == "" {
		name = defaultServiceName
	}

	ctx, root := tp.Tracer(name).Start(ctx, name+".main")

	if config.Logger != nil {
		sc := root.SpanContext()
		config.Logger.Debug().
			Str("service", name).
			Str("trace_id", sc.TraceID().String()).
			Str("span_id", sc.SpanID().String()).
			Msg("Initialized OpenTelemetry tracing")
	}

	return tp, ctx, root, nil
}

func newTraceExporter(ctx context.Context, cfg *OTelConfig) (trace.SpanExporter, error) {
	target, err := resolveTarget(cfg)
	if err != nil {
		return nil, err
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(target.endpoint)}

	switch {
	case target.insecure:
		opts = append(opts, otlptracegrpc.WithInsecure())
	case target.creds != nil:
		opts = append(opts, otlptracegrpc.WithTLSCredentials(target.creds))
	}

	if len(target.headers) > 0 {
		opts = append(opts, otlptracegrpc.WithHeaders(target.headers))
	}

	return otlptracegrpc.New(ctx, opts...)
}
