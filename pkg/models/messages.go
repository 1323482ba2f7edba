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
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// MessageType is the discriminant of every frame on the metrics socket.
type MessageType string

const (
	MessageTypeMetrics      MessageType = "metrics"
	MessageTypeAgentMetrics MessageType = "agent_metrics"
	MessageTypeAlert        MessageType = "alert"
	MessageTypeAgentStatus  MessageType = "agent_status"
	MessageTypeSystemHealth MessageType = "system_health"
	MessageTypePong         MessageType = "pong"
	MessageTypeConnection   MessageType = "connection"

	MessageTypeSubscribe   MessageType = "subscribe"
	MessageTypeUnsubscribe MessageType = "unsubscribe"
	MessageTypePing        MessageType = "ping"
)

// epochMillisThreshold separates epoch seconds from epoch milliseconds (year 5138 in seconds).
const epochMillisThreshold = 1e11

var (
	ErrEmptyFrame       = errors.New("empty frame")
	ErrMissingType      = errors.New("frame has no type")
	ErrInvalidTimestamp = errors.New("invalid timestamp")
	ErrMissingData      = errors.New("frame has no data")
)

// pythonISOLayouts covers isoformat() output without a zone, which is read as UTC.
var pythonISOLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
}

// InboundMessage is a decoded server frame. Data stays raw until the router
// knows which payload type to decode it into.
type InboundMessage struct {
	Type      MessageType
	Timestamp time.Time
	AgentID   string
	Data      json.RawMessage
}

type inboundFrame struct {
	Type      MessageType     `json:"type"`
	Timestamp json.RawMessage `json:"timestamp"`
	AgentID   string          `json:"agentId"`
	Data      json.RawMessage `json:"data"`
}

// DecodeInbound parses one frame. receivedAt is used when the frame carries no timestamp.
func DecodeInbound(b []byte, receivedAt time.Time) (*InboundMessage, error) {
	if len(bytes.TrimSpace(b)) == 0 {
		return nil, ErrEmptyFrame
	}

	var frame inboundFrame
	if err := json.Unmarshal(b, &frame); err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}

	if frame.Type == "" {
		return nil, ErrMissingType
	}

	ts, err := ParseTimestamp(frame.Timestamp, receivedAt)
	if err != nil {
		return nil, err
	}

	data := frame.Data
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		data = nil
	}

	return &InboundMessage{
		Type:      frame.Type,
		Timestamp: ts,
		AgentID:   frame.AgentID,
		Data:      data,
	}, nil
}

// HasAgent reports whether the frame is scoped to a single agent.
func (m *InboundMessage) HasAgent() bool {
	return m.AgentID != ""
}

// DecodeData unmarshals the payload into dst.
func (m *InboundMessage) DecodeData(dst interface{}) error {
	if len(m.Data) == 0 {
		return fmt.Errorf("%w: %s", ErrMissingData, m.Type)
	}

	if err := json.Unmarshal(m.Data, dst); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", m.Type, err)
	}

	return nil
}

// ParseTimestamp normalizes a wire timestamp (ISO-8601 string, numeric string or
// epoch number) to UTC. An absent or null value yields fallback.
func ParseTimestamp(raw json.RawMessage, fallback time.Time) (time.Time, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return fallback, nil
	}

	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return time.Time{}, fmt.Errorf("%w: %w", ErrInvalidTimestamp, err)
		}

		return parseTimestampString(s, fallback)
	}

	var f float64
	if err := json.Unmarshal(trimmed, &f); err != nil {
		return time.Time{}, fmt.Errorf("%w: %s", ErrInvalidTimestamp, string(trimmed))
	}

	return epochToTime(f)
}

func parseTimestampString(s string, fallback time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback, nil
	}

	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}

	for _, layout := range pythonISOLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}

	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return epochToTime(f)
	}

	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
}

func epochToTime(f float64) (time.Time, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidTimestamp, f)
	}

	if f >= epochMillisThreshold {
		return time.UnixMilli(int64(f)).UTC(), nil
	}

	sec, frac := math.Modf(f)

	return time.Unix(int64(sec), int64(frac*float64(time.Second))).UTC(), nil
}

// OutboundMessage is a client frame: subscribe, unsubscribe or ping.
type OutboundMessage struct {
	Type      MessageType
	Topics    []string
	Timestamp time.Time
}

type outboundFrame struct {
	Type      MessageType `json:"type"`
	Topics    []string    `json:"topics,omitempty"`
	Timestamp string      `json:"timestamp"`
}

func (m OutboundMessage) MarshalJSON() ([]byte, error) {
	return json.Marshal(outboundFrame{
		Type:      m.Type,
		Topics:    m.Topics,
		Timestamp: m.Timestamp.UTC().Format(time.RFC3339Nano),
	})
}

func (m *OutboundMessage) UnmarshalJSON(b []byte) error {
	var frame outboundFrame
	if err := json.Unmarshal(b, &frame); err != nil {
		return err
	}

	ts, err := parseTimestampString(frame.Timestamp, time.Time{})
	if err != nil {
		return err
	}

	m.Type = frame.Type
	m.Topics = frame.Topics
	m.Timestamp = ts

	return nil
}

func NewSubscribe(topics []string, now time.Time) OutboundMessage {
	return OutboundMessage{Type: MessageTypeSubscribe, Topics: topics, Timestamp: now}
}

func NewUnsubscribe(topics []string, now time.Time) OutboundMessage {
	return OutboundMessage{Type: MessageTypeUnsubscribe, Topics: topics, Timestamp: now}
}

func NewPing(now time.Time) OutboundMessage {
	return OutboundMessage{Type: MessageTypePing, Timestamp: now}
}
