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
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

var ErrOTelMetricsDisabled = errors.New("OTel metrics exporter disabled")

const (
	defaultExportInterval = 15 * time.Second
	metricPipeline        = "metrics"
)

// MetricsConfig captures what the OTLP metrics pipeline needs.
type MetricsConfig struct {
	ServiceName    string
	ServiceVersion string
	OTel           *OTelConfig
	ExportInterval time.Duration
}

// InitializeMetrics installs a global MeterProvider that pushes to the OTLP endpoint.
// Until Shutdown, repeated calls return the first provider.
func InitializeMetrics(ctx context.Context, config MetricsConfig) (*sdkmetric.MeterProvider, error) {
	if config.OTel == nil || !config.OTel.Enabled || config.OTel.Endpoint == "" {
		return nil, ErrOTelMetricsDisabled
	}

	if p, ok := registeredPipeline(metricPipeline); ok {
		if mp, ok := p.(*sdkmetric.MeterProvider); ok {
			return mp, nil
		}
	}

	target, err := resolveTarget(config.OTel)
	if err != nil {
		return nil, err
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(target.endpoint)}

	switch {
	case target.insecure:
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	case target.creds != nil:
		opts = append(opts, otlpmetricgrpc.WithTLSCredentials(target.creds))
	}

	if len(target.headers) > 0 {
		opts = append(opts, otlpmetricgrpc.WithHeaders(target.headers))
	}

	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metric exporter: %w", err)
	}

	res, err := newResource(ctx, config.ServiceName, config.ServiceVersion)
	if err != nil {
		return nil, err
	}

	interval := config.ExportInterval
	if interval <= 0 {
		interval = defaultExportInterval
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
	)

	registerPipeline(metricPipeline, provider)
	otel.SetMeterProvider(provider)

	return provider, nil
}
