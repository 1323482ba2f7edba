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
	"time"
)

// ConnectionState is the lifecycle state of the metrics socket.
type ConnectionState string

const (
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateDisconnected ConnectionState = "disconnected"
	StateReconnecting ConnectionState = "reconnecting"
	StateError        ConnectionState = "error"
)

func (s ConnectionState) String() string {
	return string(s)
}

// AgentStatusPayload is the data of an agent_status frame.
type AgentStatusPayload struct {
	Status string `json:"status"`
}

// AgentStatus is the current status of one agent. No history is kept.
type AgentStatus struct {
	AgentID  string    `json:"agentId"`
	Status   string    `json:"status"`
	LastSeen time.Time `json:"lastSeen"`
}

// Agent status values used by the fleet badge counts.
const (
	AgentStatusOnline  = "online"
	AgentStatusOffline = "offline"
	AgentStatusWarning = "warning"
	AgentStatusError   = "error"
)

// SystemHealth is the latest system_health frame. Components is kept raw since
// its shape is owned by the server.
type SystemHealth struct {
	Timestamp  time.Time                  `json:"timestamp"`
	Status     string                     `json:"status"`
	Components map[string]json.RawMessage `json:"components,omitempty"`
}
