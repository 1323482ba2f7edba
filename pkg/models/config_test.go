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

package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuration_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Duration
		wantErr  bool
	}{
		{name: "milliseconds number", input: `5000`, expected: Duration(5 * time.Second)},
		{name: "duration string", input: `"250ms"`, expected: Duration(250 * time.Millisecond)},
		{name: "complex string", input: `"1m30s"`, expected: Duration(90 * time.Second)},
		{name: "invalid string", input: `"soon"`, wantErr: true},
		{name: "invalid type", input: `true`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Duration

			err := json.Unmarshal([]byte(tt.input), &d)
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, d)
		})
	}
}

func TestStreamConfig_Defaults(t *testing.T) {
	var cfg StreamConfig
	require.NoError(t, json.Unmarshal([]byte(`{"url":"ws://localhost:8000/ws/metrics"}`), &cfg))

	cfg.ApplyDefaults()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, Duration(5*time.Second), cfg.ReconnectInterval)
	assert.Equal(t, 10, cfg.ReconnectBudget())
	assert.Equal(t, Duration(30*time.Second), cfg.HeartbeatInterval)
	assert.Equal(t, Duration(30*time.Second), cfg.MaxReconnectDelay)
	assert.Equal(t, []string{TopicMetrics, TopicAlerts, TopicAgentStatus}, cfg.Subscriptions)
	assert.Equal(t, 100, cfg.History.Agent)
	assert.Equal(t, 24, cfg.History.System)
	assert.Equal(t, 100, cfg.History.Alerts)
	assert.Zero(t, cfg.PongTimeout)
}

func TestStreamConfig_ExplicitZeroBudgetSurvivesDefaults(t *testing.T) {
	var cfg StreamConfig
	require.NoError(t, json.Unmarshal([]byte(`{"url":"wss://x/ws","max_reconnect_attempts":0,"subscriptions":[]}`), &cfg))

	cfg.ApplyDefaults()

	assert.Equal(t, 0, cfg.ReconnectBudget())
	assert.Empty(t, cfg.Subscriptions)
}

func TestStreamConfig_Validate(t *testing.T) {
	negative := -1

	tests := []struct {
		name string
		cfg  StreamConfig
		err  error
	}{
		{name: "missing url", cfg: StreamConfig{}, err: errStreamURLRequired},
		{name: "http scheme", cfg: StreamConfig{URL: "http://x"}, err: errStreamURLScheme},
		{name: "negative budget", cfg: StreamConfig{URL: "ws://x", MaxReconnectAttempts: &negative}, err: errNegativeReconnectBudget},
		{name: "negative history", cfg: StreamConfig{URL: "ws://x", History: HistoryConfig{Agent: -2}}, err: errNegativeHistory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, tt.cfg.Validate(), tt.err)
		})
	}
}

func TestClientConfig_Validate(t *testing.T) {
	cfg := &ClientConfig{}
	require.ErrorIs(t, cfg.Validate(), errStreamConfigRequired)

	cfg.Stream = &StreamConfig{URL: "ws://localhost/ws"}
	cfg.Events = EventsConfig{Enabled: true, StreamName: "events"}
	require.ErrorIs(t, cfg.Validate(), errNATSURLRequired)

	cfg.NATS = &NATSConfig{URL: "nats://localhost:4222", CredsFile: "user.creds", NKeySeedFile: "user.nk"}
	require.ErrorIs(t, cfg.Validate(), errNATSAuthConflict)

	cfg.NATS = &NATSConfig{URL: "nats://localhost:4222"}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "serviceradar/live", cfg.Events.Source)
}
