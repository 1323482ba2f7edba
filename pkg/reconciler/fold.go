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

package reconciler

import (
	"time"

	"github.com/carverauto/serviceradar-live/pkg/models"
)

// Event is one input to the fold. The set is closed.
type Event interface {
	apply(s State) State
}

type SystemMetricsReceived struct {
	Sample models.SystemMetricsSample
}

type AgentMetricsReceived struct {
	Sample models.AgentMetricsSample
}

type AlertReceived struct {
	Alert models.AlertEvent
}

// AlertAcknowledged sets the local acknowledged flag of an alert.
type AlertAcknowledged struct {
	ID           string
	Acknowledged bool
}

type AgentStatusChanged struct {
	Status models.AgentStatus
}

type SystemHealthReceived struct {
	Health models.SystemHealth
}

type PongReceived struct {
	At time.Time
}

// Apply folds ev into prev and returns the new state. prev is not modified.
func Apply(prev State, ev Event) State {
	if prev.agents == nil {
		prev = NewState(prev.limits)
	}

	return ev.apply(prev)
}

func (e SystemMetricsReceived) apply(s State) State {
	s.system = s.system.Append(e.Sample)

	return s.touch(e.Sample.Timestamp)
}

func (e AgentMetricsReceived) apply(s State) State {
	id := e.Sample.AgentID
	if id == "" {
		return s
	}

	s.seq++

	agents := make(map[string]agentSeries, len(s.agents)+1)
	for k, v := range s.agents {
		agents[k] = v
	}

	series, ok := agents[id]
	if !ok {
		series.buffer = NewRollingBuffer[models.AgentMetricsSample](s.limits.Agent)
	}

	series.buffer = series.buffer.Append(e.Sample)
	series.touched = s.seq
	agents[id] = series

	if s.limits.MaxAgents > 0 {
		for len(agents) > s.limits.MaxAgents {
			evictLeastRecent(agents, id)
		}
	}

	s.agents = agents

	return s.touch(e.Sample.Timestamp)
}

// evictLeastRecent drops the agent updated longest ago, never keep.
func evictLeastRecent(agents map[string]agentSeries, keep string) {
	victim := ""

	var oldest uint64

	for id, series := range agents {
		if id == keep {
			continue
		}

		if victim == "" || series.touched < oldest {
			victim, oldest = id, series.touched
		}
	}

	delete(agents, victim)
}

func (e AlertReceived) apply(s State) State {
	alert := e.Alert
	if alert.ID == "" {
		return s
	}

	if i := s.alertIndex(alert.ID); i >= 0 {
		// re-delivery replaces in place; acknowledgement is local state
		alert.Acknowledged = alert.Acknowledged || s.alerts[i].Acknowledged

		alerts := make([]models.AlertEvent, len(s.alerts))
		copy(alerts, s.alerts)
		alerts[i] = alert
		s.alerts = alerts

		return s.touch(alert.TriggeredAt)
	}

	n := min(len(s.alerts)+1, s.limits.Alerts)
	alerts := make([]models.AlertEvent, 0, n)
	alerts = append(alerts, alert)
	alerts = append(alerts, s.alerts[:n-1]...)
	s.alerts = alerts

	return s.touch(alert.TriggeredAt)
}

func (e AlertAcknowledged) apply(s State) State {
	i := s.alertIndex(e.ID)
	if i < 0 || s.alerts[i].Acknowledged == e.Acknowledged {
		return s
	}

	alerts := make([]models.AlertEvent, len(s.alerts))
	copy(alerts, s.alerts)
	alerts[i].Acknowledged = e.Acknowledged
	s.alerts = alerts

	return s
}

func (e AgentStatusChanged) apply(s State) State {
	if e.Status.AgentID == "" {
		return s
	}

	statuses := make(map[string]models.AgentStatus, len(s.statuses)+1)
	for k, v := range s.statuses {
		statuses[k] = v
	}

	statuses[e.Status.AgentID] = e.Status
	s.statuses = statuses

	return s.touch(e.Status.LastSeen)
}

func (e SystemHealthReceived) apply(s State) State {
	health := e.Health
	s.health = &health

	return s.touch(health.Timestamp)
}

func (e PongReceived) apply(s State) State {
	if e.At.After(s.lastPong) {
		s.lastPong = e.At
	}

	return s
}
