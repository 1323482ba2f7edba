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
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/log"
)

func TestNewOTelWriter_Disabled(t *testing.T) {
	w, err := NewOTelWriter(context.Background(), OTelConfig{Enabled: false})

	require.ErrorIs(t, err, ErrOTelLoggingDisabled)
	assert.Nil(t, w)
}

func TestNewOTelWriter_NoEndpoint(t *testing.T) {
	w, err := NewOTelWriter(context.Background(), OTelConfig{Enabled: true})

	require.ErrorIs(t, err, ErrOTelEndpointRequired)
	assert.Nil(t, w)
}

func TestSeverityOf(t *testing.T) {
	tests := []struct {
		level    string
		expected log.Severity
	}{
		{"trace", log.SeverityTrace},
		{"debug", log.SeverityDebug},
		{"info", log.SeverityInfo},
		{"warn", log.SeverityWarn},
		{"WARNING", log.SeverityWarn},
		{"error", log.SeverityError},
		{"fatal", log.SeverityFatal},
		{"panic", log.SeverityFatal},
		{"bogus", log.SeverityInfo},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.expected, severityOf(tt.level))
		})
	}
}

func TestAttributeOf(t *testing.T) {
	assert.Equal(t, log.KindBool, attributeOf("ok", true).Value.Kind())
	assert.InDelta(t, 42.0, attributeOf("n", float64(42)).Value.AsFloat64(), 0)
	assert.Equal(t, "null", attributeOf("x", nil).Value.AsString())
	assert.Equal(t, `["a","b"]`, attributeOf("topics", []interface{}{"a", "b"}).Value.AsString())

	long := attributeOf("frame", strings.Repeat("x", maxAttributeValueLength*2)).Value.AsString()
	assert.Len(t, long, maxAttributeValueLength)
	assert.True(t, strings.HasSuffix(long, "..."))
}

func TestBuildRecord(t *testing.T) {
	rec := buildRecord(map[string]interface{}{
		"level":     "warn",
		"message":   "Reconnect scheduled",
		"component": "transport",
		"attempt":   float64(2),
	})

	assert.Equal(t, log.SeverityWarn, rec.Severity())
	assert.Equal(t, "warn", rec.SeverityText())
	assert.Equal(t, "Reconnect scheduled", rec.Body().AsString())

	keys := map[string]bool{}
	rec.WalkAttributes(func(kv log.KeyValue) bool {
		keys[kv.Key] = true
		return true
	})

	assert.Equal(t, map[string]bool{"attempt": true}, keys)
}

func TestParseHeaderList(t *testing.T) {
	assert.Equal(t, map[string]string{"a": "1", "b": "x=y"}, parseHeaderList("a=1, junk ,b = x=y"))
	assert.Empty(t, parseHeaderList(""))
}

type countingPipeline struct{ calls int }

func (c *countingPipeline) Shutdown(context.Context) error {
	c.calls++
	return nil
}

func TestShutdownOTEL_FlushesRegisteredPipelinesOnce(t *testing.T) {
	p := &countingPipeline{}
	registerPipeline("test", p)

	require.NoError(t, ShutdownOTEL())
	require.NoError(t, ShutdownOTEL())
	assert.Equal(t, 1, p.calls)
}

func TestFromZerolog_SetDebug(t *testing.T) {
	var buf strings.Builder

	l := FromZerolog(zerolog.New(&buf).Level(zerolog.WarnLevel))
	l.Debug().Msg("hidden")
	assert.Empty(t, buf.String())

	l.SetDebug(true)
	l.Debug().Msg("shown")
	assert.Contains(t, buf.String(), "shown")

	c := l.WithComponent("router")
	c.Warn().Msg("x")
	assert.Contains(t, buf.String(), `"component":"router"`)
}

func TestConfigZerologLevel(t *testing.T) {
	lvl, err := (&Config{}).ZerologLevel()
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, lvl)

	lvl, err = (&Config{Level: "error", Debug: true}).ZerologLevel()
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, lvl)

	_, err = (&Config{Level: "nope"}).ZerologLevel()
	assert.Error(t, err)
}

func TestDuration_UnmarshalJSON(t *testing.T) {
	var cfg OTelConfig

	require.NoError(t, json.Unmarshal([]byte(`{"batch_timeout":"2s"}`), &cfg))
	assert.Equal(t, Duration(2*time.Second), cfg.BatchTimeout)

	require.NoError(t, json.Unmarshal([]byte(`{"batch_timeout":1000}`), &cfg))
	assert.Equal(t, Duration(time.Microsecond), cfg.BatchTimeout)

	require.ErrorIs(t, json.Unmarshal([]byte(`{"batch_timeout":"soon"}`), &cfg), errInvalidDuration)
}

func TestDefaultOTelConfig_FromEnv(t *testing.T) {
	t.Setenv("OTEL_LOGS_ENABLED", "yes")
	t.Setenv("OTEL_EXPORTER_OTLP_LOGS_ENDPOINT", "collector:4317")
	t.Setenv("OTEL_EXPORTER_OTLP_LOGS_HEADERS", "x-token = abc, x-env=prod")
	t.Setenv("OTEL_EXPORTER_OTLP_LOGS_TIMEOUT", "3s")
	t.Setenv("OTEL_SERVICE_NAME", "")

	cfg := DefaultOTelConfig()

	assert.True(t, cfg.Enabled)
	assert.Equal(t, "collector:4317", cfg.Endpoint)
	assert.Equal(t, map[string]string{"x-token": "abc", "x-env": "prod"}, cfg.Headers)
	assert.Equal(t, Duration(3*time.Second), cfg.BatchTimeout)
	assert.Equal(t, defaultServiceName, cfg.ServiceName)
}

func TestInitializeMetrics_Disabled(t *testing.T) {
	_, err := InitializeMetrics(context.Background(), MetricsConfig{})
	require.ErrorIs(t, err, ErrOTelMetricsDisabled)
}

func TestInitializeTracing_NoExporter(t *testing.T) {
	tp, ctx, span, err := InitializeTracing(context.Background(), TracingConfig{
		ServiceName: "stream-client-test",
		Logger:      NewTestLogger(),
	})
	require.NoError(t, err)

	assert.NotNil(t, tp)
	defer func() { _ = ShutdownOTEL() }()
	defer span.End()

	assert.NotNil(t, ctx)
	assert.True(t, span.SpanContext().IsValid())
}
