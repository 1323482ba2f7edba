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

// Payload timestamps use the same tolerant parsing as frame timestamps, so
// zone-less isoformat strings and epoch numbers decode. Absent values stay zero.

func (s *AgentMetricsSample) UnmarshalJSON(b []byte) error {
	type alias AgentMetricsSample

	aux := struct {
		*alias
		Timestamp json.RawMessage `json:"timestamp"`
	}{alias: (*alias)(s)}

	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}

	return setTime(&s.Timestamp, aux.Timestamp)
}

func (s *SystemMetricsSample) UnmarshalJSON(b []byte) error {
	type alias SystemMetricsSample

	aux := struct {
		*alias
		Timestamp json.RawMessage `json:"timestamp"`
	}{alias: (*alias)(s)}

	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}

	return setTime(&s.Timestamp, aux.Timestamp)
}

func (a *AlertEvent) UnmarshalJSON(b []byte) error {
	type alias AlertEvent

	aux := struct {
		*alias
		TriggeredAt json.RawMessage `json:"triggeredAt"`
	}{alias: (*alias)(a)}

	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}

	return setTime(&a.TriggeredAt, aux.TriggeredAt)
}

func (h *SystemHealth) UnmarshalJSON(b []byte) error {
	type alias SystemHealth

	aux := struct {
		*alias
		Timestamp json.RawMessage `json:"timestamp"`
	}{alias: (*alias)(h)}

	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}

	return setTime(&h.Timestamp, aux.Timestamp)
}

func setTime(dst *time.Time, raw json.RawMessage) error {
	ts, err := ParseTimestamp(raw, time.Time{})
	if err != nil {
		return err
	}

	*dst = ts

	return nil
}
