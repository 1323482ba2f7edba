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

// Severity of an alert. Values outside the known set are kept verbatim.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// AlertEvent is a triggered alert. ID is its identity; re-delivery of the same
// ID describes the same alert.
type AlertEvent struct {
	ID           string    `json:"id"`
	AlertRuleID  string    `json:"alertRuleId"`
	AgentID      string    `json:"agentId,omitempty"`
	TriggeredAt  time.Time `json:"triggeredAt"`
	Value        float64   `json:"value"`
	Threshold    float64   `json:"threshold"`
	Severity     Severity  `json:"severity"`
	Message      string    `json:"message"`
	Acknowledged bool      `json:"acknowledged"`
}
