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

// Package reconciler folds live-metrics events into bounded, read-only state.
package reconciler

import (
	"sort"
	"time"

	"github.com/carverauto/serviceradar-live/pkg/models"
)

// agentSeries is the history of one agent.
type agentSeries struct {
	buffer *RollingBuffer[models.AgentMetricsSample]
	// touched orders agents by last update for max_agents eviction
	touched uint64
}

// State is an immutable view of everything reconciled so far. Apply never
// mutates its input; maps are copied before they are changed.
type State struct {
	limits      models.HistoryConfig
	agents      map[string]agentSeries
	system      *RollingBuffer[models.SystemMetricsSample]
	alerts      []models.AlertEvent
	statuses    map[string]models.AgentStatus
	health      *models.SystemHealth
	lastPong    time.Time
	lastUpdated time.Time
	seq         uint64
}

// NewState returns empty state sized by limits; zero limits take the defaults.
func NewState(limits models.HistoryConfig) State {
	if limits.Agent <= 0 {
		limits.Agent = models.DefaultAgentHistory
	}

	if limits.System <= 0 {
		limits.System = models.DefaultSystemHistory
	}

	if limits.Alerts <= 0 {
		limits.Alerts = models.DefaultAlertHistory
	}

	if limits.MaxAgents < 0 {
		limits.MaxAgents = 0
	}

	return State{
		limits:   limits,
		agents:   map[string]agentSeries{},
		system:   NewRollingBuffer[models.SystemMetricsSample](limits.System),
		statuses: map[string]models.AgentStatus{},
	}
}

// Limits returns the history sizes in effect.
func (s State) Limits() models.HistoryConfig { return s.limits }

// SystemHistory returns system samples, oldest first.
func (s State) SystemHistory() []models.SystemMetricsSample { return s.system.Items() }

// LatestSystem returns the newest system sample.
func (s State) LatestSystem() (models.SystemMetricsSample, bool) { return s.system.Last() }

// Agents returns the ids of agents with metric history, sorted.
func (s State) Agents() []string {
	ids := make([]string, 0, len(s.agents))
	for id := range s.agents {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids
}

// AgentHistory returns the samples of one agent, oldest first.
func (s State) AgentHistory(agentID string) []models.AgentMetricsSample {
	series, ok := s.agents[agentID]
	if !ok {
		return nil
	}

	return series.buffer.Items()
}

// LatestAgent returns the newest sample of one agent.
func (s State) LatestAgent(agentID string) (models.AgentMetricsSample, bool) {
	series, ok := s.agents[agentID]
	if !ok {
		return models.AgentMetricsSample{}, false
	}

	return series.buffer.Last()
}

// Alerts returns the alert history, newest first.
func (s State) Alerts() []models.AlertEvent {
	out := make([]models.AlertEvent, len(s.alerts))
	copy(out, s.alerts)

	return out
}

// Alert looks an alert up by id.
func (s State) Alert(id string) (models.AlertEvent, bool) {
	if i := s.alertIndex(id); i >= 0 {
		return s.alerts[i], true
	}

	return models.AlertEvent{}, false
}

// AgentStatus returns the current status of one agent.
func (s State) AgentStatus(agentID string) (models.AgentStatus, bool) {
	st, ok := s.statuses[agentID]
	return st, ok
}

// Statuses returns a copy of the agent status map.
func (s State) Statuses() map[string]models.AgentStatus {
	out := make(map[string]models.AgentStatus, len(s.statuses))
	for k, v := range s.statuses {
		out[k] = v
	}

	return out
}

// StatusCounts counts agents per status value.
func (s State) StatusCounts() map[string]int {
	counts := make(map[string]int)
	for _, st := range s.statuses {
		counts[st.Status]++
	}

	return counts
}

// Health returns the latest system_health payload.
func (s State) Health() (models.SystemHealth, bool) {
	if s.health == nil {
		return models.SystemHealth{}, false
	}

	return *s.health, true
}

// LastPong returns when the last pong was received.
func (s State) LastPong() time.Time { return s.lastPong }

// LastUpdated returns the time of the newest data event folded in.
func (s State) LastUpdated() time.Time { return s.lastUpdated }

// Stale reports whether no data arrived within threshold of now.
func (s State) Stale(now time.Time, threshold time.Duration) bool {
	if s.lastUpdated.IsZero() {
		return true
	}

	return now.Sub(s.lastUpdated) > threshold
}

func (s State) alertIndex(id string) int {
	for i := range s.alerts {
		if s.alerts[i].ID == id {
			return i
		}
	}

	return -1
}

func (s State) touch(at time.Time) State {
	if at.After(s.lastUpdated) {
		s.lastUpdated = at
	}

	return s
}
