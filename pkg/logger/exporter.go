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
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.31.0"
	"google.golang.org/grpc/credentials"

	"github.com/carverauto/serviceradar-live/pkg/version"
)

const shutdownTimeout = 10 * time.Second

var errFailedToParseCACert = errors.New("failed to parse CA certificate")

// otlpTarget is the resolved connection settings shared by the log, metric and trace exporters.
type otlpTarget struct {
	endpoint string
	insecure bool
	creds    credentials.TransportCredentials
	headers  map[string]string
}

func resolveTarget(cfg *OTelConfig) (otlpTarget, error) {
	target := otlpTarget{
		endpoint: cfg.Endpoint,
		insecure: cfg.Insecure,
		headers:  cfg.Headers,
	}

	if cfg.Insecure || cfg.TLS == nil {
		return target, nil
	}

	tlsConfig, err := loadTLS(cfg.TLS)
	if err != nil {
		return otlpTarget{}, fmt.Errorf("failed to setup TLS configuration: %w", err)
	}

	target.creds = credentials.NewTLS(tlsConfig)

	return target, nil
}

func loadTLS(c *TLSConfig) (*tls.Config, error) {
	out := &tls.Config{MinVersion: tls.VersionTLS12}

	if c.CertFile != "" && c.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}

		out.Certificates = append(out.Certificates, cert)
	}

	if c.CAFile == "" {
		return out, nil
	}

	pem, err := os.ReadFile(c.CAFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA certificate: %w", err)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, errFailedToParseCACert
	}

	out.RootCAs = pool

	return out, nil
}

func newResource(ctx context.Context, serviceName, serviceVersion string) (*resource.Resource, error) {
	if serviceName == "" {
		serviceName = defaultServiceName
	}

	if serviceVersion == "" {
		serviceVersion = version.GetVersion()
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	return res, nil
}

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

//nolint:gochecknoglobals // providers are process-wide and flushed together on exit
var (
	pipelinesMu sync.Mutex
	pipelines   = map[string]shutdowner{}
)

func registerPipeline(name string, p shutdowner) {
	pipelinesMu.Lock()
	pipelines[name] = p
	pipelinesMu.Unlock()
}

func registeredPipeline(name string) (shutdowner, bool) {
	pipelinesMu.Lock()
	defer pipelinesMu.Unlock()

	p, ok := pipelines[name]

	return p, ok
}

// ShutdownOTEL flushes and stops the log, metric and trace providers.
func ShutdownOTEL() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	pipelinesMu.Lock()
	active := pipelines
	pipelines = map[string]shutdowner{}
	pipelinesMu.Unlock()

	var errs []error

	for name, p := range active {
		if err := p.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	return errors.Join(errs...)
}
