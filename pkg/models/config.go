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
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/carverauto/serviceradar-live/pkg/logger"
)

const (
	DefaultReconnectInterval    = 5 * time.Second
	DefaultMaxReconnectAttempts = 10
	DefaultHeartbeatInterval    = 30 * time.Second
	DefaultMaxReconnectDelay    = 30 * time.Second
	DefaultConnectTimeout       = 10 * time.Second
	DefaultWriteTimeout         = 10 * time.Second

	DefaultAgentHistory  = 100
	DefaultSystemHistory = 24
	DefaultAlertHistory  = 100
)

// Known topic names published by the telemetry endpoint.
const (
	TopicMetrics     = "metrics"
	TopicAlerts      = "alerts"
	TopicAgentStatus = "agent_status"
)

var (
	errInvalidDuration          = errors.New("invalid duration")
	errStreamURLRequired        = errors.New("stream url is required")
	errStreamURLScheme          = errors.New("stream url must use ws or wss")
	errNegativeReconnectBudget  = errors.New("max_reconnect_attempts must be non-negative")
	errNonPositiveInterval      = errors.New("reconnect_interval and heartbeat_interval must be positive")
	errNegativeHistory          = errors.New("history sizes must be non-negative")
	errStreamConfigRequired     = errors.New("stream configuration is required")
	errNATSURLRequired          = errors.New("nats url is required")
	errEventsStreamNameRequired = errors.New("events stream_name is required when enabled")
	errNATSAuthConflict         = errors.New("nats creds_file and nkey_seed_file are mutually exclusive")
)

// Duration is a time.Duration that unmarshals from either a Go duration string ("5s")
// or a JSON number of milliseconds (5000).
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value * float64(time.Millisecond)))
		return nil
	case string:
		dur, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%w: %w", errInvalidDuration, err)
		}

		*d = Duration(dur)

		return nil
	default:
		return errInvalidDuration
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// HistoryConfig sizes the reconciler's rolling windows.
type HistoryConfig struct {
	Agent     int `json:"agent"`      // samples kept per agent
	System    int `json:"system"`     // system-wide samples (sparkline window)
	Alerts    int `json:"alerts"`     // alert history entries
	MaxAgents int `json:"max_agents"` // 0 = unbounded
}

// StreamConfig configures the live-metrics websocket client.
// Fields tagged hot:"reload" can change on a running client; hot:"restart"
// fields only take effect on the next start.
type StreamConfig struct {
	URL                  string            `json:"url" hot:"restart"`
	ReconnectInterval    Duration          `json:"reconnect_interval" hot:"restart"`
	MaxReconnectAttempts *int              `json:"max_reconnect_attempts,omitempty" hot:"restart"`
	MaxReconnectDelay    Duration          `json:"max_reconnect_delay" hot:"restart"`
	HeartbeatInterval    Duration          `json:"heartbeat_interval" hot:"restart"`
	PongTimeout          Duration          `json:"pong_timeout" hot:"restart"` // 0 disables the watchdog
	ConnectTimeout       Duration          `json:"connect_timeout" hot:"restart"`
	WriteTimeout         Duration          `json:"write_timeout" hot:"restart"`
	Subscriptions        []string          `json:"subscriptions" hot:"reload"`
	Headers              map[string]string `json:"headers,omitempty" hot:"restart"`
	Security             *SecurityConfig   `json:"security,omitempty" hot:"restart"`
	History              HistoryConfig     `json:"history" hot:"restart"`
}

// ApplyDefaults fills zero values with the documented defaults.
func (c *StreamConfig) ApplyDefaults() {
	if c.ReconnectInterval == 0 {
		c.ReconnectInterval = Duration(DefaultReconnectInterval)
	}

	if c.MaxReconnectAttempts == nil {
		attempts := DefaultMaxReconnectAttempts
		c.MaxReconnectAttempts = &attempts
	}

	if c.MaxReconnectDelay == 0 {
		c.MaxReconnectDelay = Duration(DefaultMaxReconnectDelay)
	}

	if c.HeartbeatInterval == 0 {
		c.HeartbeatInterval = Duration(DefaultHeartbeatInterval)
	}

	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = Duration(DefaultConnectTimeout)
	}

	if c.WriteTimeout == 0 {
		c.WriteTimeout = Duration(DefaultWriteTimeout)
	}

	if c.Subscriptions == nil {
		c.Subscriptions = []string{TopicMetrics, TopicAlerts, TopicAgentStatus}
	}

	if c.History.Agent == 0 {
		c.History.Agent = DefaultAgentHistory
	}

	if c.History.System == 0 {
		c.History.System = DefaultSystemHistory
	}

	if c.History.Alerts == 0 {
		c.History.Alerts = DefaultAlertHistory
	}
}

// ReconnectBudget returns the configured attempt budget, defaulting when unset.
func (c *StreamConfig) ReconnectBudget() int {
	if c.MaxReconnectAttempts == nil {
		return DefaultMaxReconnectAttempts
	}

	return *c.MaxReconnectAttempts
}

// Validate implements config.Validator.
func (c *StreamConfig) Validate() error {
	if c.URL == "" {
		return errStreamURLRequired
	}

	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("invalid stream url %q: %w", c.URL, err)
	}

	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("%w: got %q", errStreamURLScheme, u.Scheme)
	}

	if c.MaxReconnectAttempts != nil && *c.MaxReconnectAttempts < 0 {
		return errNegativeReconnectBudget
	}

	if c.ReconnectInterval < 0 || c.HeartbeatInterval < 0 {
		return errNonPositiveInterval
	}

	if c.History.Agent < 0 || c.History.System < 0 || c.History.Alerts < 0 || c.History.MaxAgents < 0 {
		return errNegativeHistory
	}

	return nil
}

// NATSConfig configures NATS connectivity
type NATSConfig struct {
	URL          string          `json:"url"`
	CredsFile    string          `json:"creds_file,omitempty"`
	NKeySeedFile string          `json:"nkey_seed_file,omitempty"`
	Security     *SecurityConfig `json:"security,omitempty"`
}

// Validate ensures the NATS configuration is valid
func (c *NATSConfig) Validate() error {
	if c.URL == "" {
		return errNATSURLRequired
	}

	if c.CredsFile != "" && c.NKeySeedFile != "" {
		return errNATSAuthConflict
	}

	return nil
}

// EventsConfig configures forwarding of alerts and connection changes to JetStream.
type EventsConfig struct {
	Enabled    bool   `json:"enabled"`
	StreamName string `json:"stream_name"`
	Source     string `json:"source"`
}

// Validate ensures the events configuration is valid
func (c *EventsConfig) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.StreamName == "" {
		return errEventsStreamNameRequired
	}

	if c.Source == "" {
		c.Source = "serviceradar/live"
	}

	return nil
}

// MetricsExportConfig toggles the OTLP metrics and trace pipelines of the client binary.
type MetricsExportConfig struct {
	Enabled        bool     `json:"enabled"`
	ExportInterval Duration `json:"export_interval"`
	Tracing        bool     `json:"tracing"`
}

// ClientConfig is the root configuration of the stream-client binary.
type ClientConfig struct {
	Stream  *StreamConfig       `json:"stream"`
	Logging *logger.Config      `json:"logging"`
	NATS    *NATSConfig         `json:"nats,omitempty"`
	Events  EventsConfig        `json:"events"`
	Metrics MetricsExportConfig `json:"metrics"`
}

// Validate implements config.Validator.
func (c *ClientConfig) Validate() error {
	if c.Stream == nil {
		return errStreamConfigRequired
	}

	c.Stream.ApplyDefaults()

	if err := c.Stream.Validate(); err != nil {
		return err
	}

	if err := c.Events.Validate(); err != nil {
		return err
	}

	if c.Events.Enabled {
		if c.NATS == nil {
			return errNATSURLRequired
		}

		if err := c.NATS.Validate(); err != nil {
			return err
		}
	}

	return nil
}
