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

import "time"

// AgentMetricsSample is one point sample reported for a single agent.
type AgentMetricsSample struct {
	AgentID           string    `json:"agentId"`
	Timestamp         time.Time `json:"timestamp"`
	CPU               float64   `json:"cpu"`
	Memory            float64   `json:"memory"`
	Disk              float64   `json:"disk,omitempty"`
	RequestRate       float64   `json:"requestRate"`
	ErrorRate         float64   `json:"errorRate"`
	ResponseTime      float64   `json:"responseTime"`
	ActiveConnections int64     `json:"activeConnections,omitempty"`
}

// AgentCounts summarizes the fleet by health bucket.
type AgentCounts struct {
	Total   int `json:"total"`
	Online  int `json:"online"`
	Offline int `json:"offline"`
	Warning int `json:"warning"`
	Error   int `json:"error"`
}

// SystemAverages are fleet-wide averages.
type SystemAverages struct {
	AvgCPU          float64 `json:"avgCpu"`
	AvgMemory       float64 `json:"avgMemory"`
	AvgResponseTime float64 `json:"avgResponseTime"`
	TotalRequests   int64   `json:"totalRequests"`
	ErrorRate       float64 `json:"errorRate"`
}

// NetworkStats describes the network as seen by the fleet.
type NetworkStats struct {
	Latency    float64 `json:"latency"`
	Bandwidth  float64 `json:"bandwidth"`
	PacketLoss float64 `json:"packetLoss"`
}

// SystemMetricsSample is an aggregate snapshot of the whole system.
type SystemMetricsSample struct {
	Timestamp time.Time      `json:"timestamp"`
	Agents    AgentCounts    `json:"agents"`
	System    SystemAverages `json:"system"`
	Network   NetworkStats   `json:"network"`
}
