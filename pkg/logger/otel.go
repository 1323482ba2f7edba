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
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	log "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

var (
	ErrOTelLoggingDisabled  = errors.New("OTel logging is disabled")
	ErrOTelEndpointRequired = errors.New("OTel endpoint is required when enabled")
)

const (
	maxAttributeValueLength = 4096
	defaultLoggerScope      = "serviceradar-live"
	logPipeline             = "logs"
)

type OTelConfig struct {
	Enabled      bool              `json:"enabled" yaml:"enabled"`
	Endpoint     string            `json:"endpoint" yaml:"endpoint"`
	Headers      map[string]string `json:"headers" yaml:"headers"`
	ServiceName  string            `json:"service_name" yaml:"service_name"`
	BatchTimeout Duration          `json:"batch_timeout" yaml:"batch_timeout"`
	Insecure     bool              `json:"insecure" yaml:"insecure"`
	TLS          *TLSConfig        `json:"tls,omitempty" yaml:"tls,omitempty"`
}

type TLSConfig struct {
	CertFile string `json:"cert_file" yaml:"cert_file"`
	KeyFile  string `json:"key_file" yaml:"key_file"`
	CAFile   string `json:"ca_file,omitempty" yaml:"ca_file,omitempty"`
}

//nolint:gochecknoglobals // fixed mapping
var severities = map[zerolog.Level]log.Severity{
	zerolog.TraceLevel: log.SeverityTrace,
	zerolog.DebugLevel: log.SeverityDebug,
	zerolog.InfoLevel:  log.SeverityInfo,
	zerolog.WarnLevel:  log.SeverityWarn,
	zerolog.ErrorLevel: log.SeverityError,
	zerolog.FatalLevel: log.SeverityFatal,
	zerolog.PanicLevel: log.SeverityFatal,
}

// OTelWriter is a zerolog output that re-emits each JSON line as an OTLP log record.
// The component field selects the instrumentation scope.
type OTelWriter struct {
	ctx      context.Context
	provider *sdklog.LoggerProvider

	mu     sync.Mutex
	scopes map[string]log.Logger
}

func NewOTelWriter(ctx context.Context, config OTelConfig) (*OTelWriter, error) {
	if !config.Enabled {
		return nil, ErrOTelLoggingDisabled
	}

	if config.Endpoint == "" {
		return nil, ErrOTelEndpointRequired
	}

	target, err := resolveTarget(&config)
	if err != nil {
		return nil, err
	}

	opts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(target.endpoint)}

	switch {
	case target.insecure:
		opts = append(opts, otlploggrpc.WithInsecure())
	case target.creds != nil:
		opts = append(opts, otlploggrpc.WithTLSCredentials(target.creds))
	}

	if len(target.headers) > 0 {
		opts = append(opts, otlploggrpc.WithHeaders(target.headers))
	}

	exporter, err := otlploggrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP log exporter: %w", err)
	}

	res, err := newResource(ctx, config.ServiceName, "")
	if err != nil {
		return nil, err
	}

	batchTimeout := time.Duration(config.BatchTimeout)
	if batchTimeout <= 0 {
		batchTimeout = defaultBatchTimeout
	}

	provider := sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter, sdklog.WithExportTimeout(batchTimeout))),
	)

	registerPipeline(logPipeline, provider)
	global.SetLoggerProvider(provider)

	return &OTelWriter{
		ctx:      ctx,
		provider: provider,
		scopes:   make(map[string]log.Logger),
	}, nil
}

// Write never fails; lines that are not JSON objects are dropped.
func (w *OTelWriter) Write(p []byte) (int, error) {
	var entry map[string]interface{}
	if err := json.Unmarshal(p, &entry); err != nil {
		return len(p), nil
	}

	scope := defaultLoggerScope
	if c, ok := entry[ComponentField].(string); ok && c != "" {
		scope = c
	}

	w.scope(scope).Emit(w.ctx, buildRecord(entry))

	return len(p), nil
}

func (w *OTelWriter) scope(name string) log.Logger {
	w.mu.Lock()
	defer w.mu.Unlock()

	l, ok := w.scopes[name]
	if !ok {
		l = w.provider.Logger(name)
		w.scopes[name] = l
	}

	return l
}

func buildRecord(entry map[string]interface{}) log.Record {
	var rec log.Record

	for key, value := range entry {
		switch key {
		case zerolog.TimestampFieldName:
			if ts, ok := value.(string); ok {
				if t, err := time.Parse(zerolog.TimeFieldFormat, ts); err == nil {
					rec.SetTimestamp(t)
					continue
				}
			}
		case zerolog.LevelFieldName:
			if lvl, ok := value.(string); ok {
				rec.SetSeverity(severityOf(lvl))
				rec.SetSeverityText(lvl)

				continue
			}
		case zerolog.MessageFieldName:
			if msg, ok := value.(string); ok {
				rec.SetBody(log.StringValue(msg))
				continue
			}
		case ComponentField:
			continue
		}

		rec.AddAttributes(attributeOf(key, value))
	}

	return rec
}

func severityOf(level string) log.Severity {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		if strings.EqualFold(level, "warning") {
			return log.SeverityWarn
		}

		return log.SeverityInfo
	}

	if s, ok := severities[lvl]; ok {
		return s
	}

	return log.SeverityInfo
}

// attributeOf keeps scalar JSON values typed and flattens everything else to JSON text.
func attributeOf(key string, value interface{}) log.KeyValue {
	switch v := value.(type) {
	case string:
		return log.String(key, truncate(v))
	case bool:
		return log.Bool(key, v)
	case float64:
		return log.Float64(key, v)
	case nil:
		return log.String(key, "null")
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return log.String(key, truncate(fmt.Sprint(value)))
	}

	return log.String(key, truncate(string(raw)))
}

func truncate(s string) string {
	if len(s) <= maxAttributeValueLength {
		return s
	}

	return strings.ToValidUTF8(s[:maxAttributeValueLength-3], "") + "..."
}
