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

package livemetrics

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/carverauto/serviceradar-live/pkg/models"
)

const (
	meterName            = "serviceradar.live"
	metricFramesTotal    = "live_frames_total"
	metricStateChanges   = "live_connection_state_changes_total"
	metricReconnects     = "live_reconnect_attempts_total"
	metricAlertsTotal    = "live_alerts_total"
	metricForwardDropped = "live_events_dropped_total"
)

var (
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	meterOnce sync.Once
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	framesCounter metric.Int64Counter
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	stateCounter metric.Int64Counter
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	reconnectCounter metric.Int64Counter
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	alertCounter metric.Int64Counter
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	droppedCounter metric.Int64Counter
)

func newCounter(meter metric.Meter, name, description string) metric.Int64Counter {
	counter, err := meter.Int64Counter(name, metric.WithDescription(description))
	if err != nil {
		otel.Handle(err)
		return nil
	}

	return counter
}

func initMeter() {
	meter := otel.Meter(meterName)

	framesCounter = newCounter(meter, metricFramesTotal, "Decoded live-metrics frames by type")
	stateCounter = newCounter(meter, metricStateChanges, "Websocket connection state transitions")
	reconnectCounter = newCounter(meter, metricReconnects, "Scheduled websocket reconnect attempts")
	alertCounter = newCounter(meter, metricAlertsTotal, "Alerts received on the live stream")
	droppedCounter = newCounter(meter, metricForwardDropped, "Events not forwarded because the forward buffer was full")
}

// RecordFrame counts one decoded frame.
func RecordFrame(ctx context.Context, msgType models.MessageType) {
	meterOnce.Do(initMeter)
	if framesCounter == nil {
		return
	}

	framesCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("type", string(msgType))))
}

// RecordStateChange counts one transition and, for reconnecting, one reconnect attempt.
func RecordStateChange(ctx context.Context, prev, next models.ConnectionState) {
	meterOnce.Do(initMeter)

	if stateCounter != nil {
		stateCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("from", string(prev)),
			attribute.String("to", string(next)),
		))
	}

	if next == models.StateReconnecting && reconnectCounter != nil {
		reconnectCounter.Add(ctx, 1)
	}
}

// RecordAlert counts one alert delivery.
func RecordAlert(ctx context.Context, severity models.Severity, redelivery bool) {
	meterOnce.Do(initMeter)
	if alertCounter == nil {
		return
	}

	alertCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("severity", string(severity)),
		attribute.Bool("redelivery", redelivery),
	))
}

// RecordDroppedEvent counts one event the forwarder could not buffer.
func RecordDroppedEvent(ctx context.Context, kind string) {
	meterOnce.Do(initMeter)
	if droppedCounter == nil {
		return
	}

	droppedCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}
