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
	"sync"
	"time"

	"github.com/carverauto/serviceradar-live/pkg/logger"
	"github.com/carverauto/serviceradar-live/pkg/models"
	"github.com/carverauto/serviceradar-live/pkg/router"
)

// Snapshot is the read-only state handed to listeners. Version increases by
// one with every folded event.
type Snapshot struct {
	State
	Version uint64
}

// Listener is called after every folded event, in fold order.
type Listener func(snap Snapshot)

// Store owns the reconciled state of one session. It implements router.Handler.
//
// Listeners run synchronously on the goroutine that applied the event. They may
// read the store but must not apply events to it.
type Store struct {
	// notifyMu orders apply+notify pairs
	notifyMu sync.Mutex

	mu        sync.RWMutex
	state     State
	version   uint64
	listeners map[uint64]Listener
	nextID    uint64
	logger    logger.Logger
}

var _ router.Handler = (*Store)(nil)

// StoreOption configures a Store.
type StoreOption func(*Store)

func WithStoreLogger(log logger.Logger) StoreOption {
	return func(s *Store) {
		s.logger = log
	}
}

// NewStore returns an empty store sized by limits.
func NewStore(limits models.HistoryConfig, opts ...StoreOption) *Store {
	s := &Store{
		state:     NewState(limits),
		listeners: make(map[uint64]Listener),
		logger:    logger.NewTestLogger(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Subscribe registers l and returns a function that removes it.
func (s *Store) Subscribe(l Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Snapshot returns the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Snapshot{State: s.state, Version: s.version}
}

// Apply folds ev into the store and notifies listeners.
func (s *Store) Apply(ev Event) Snapshot {
	snap, _ := s.applyIf(ev, nil)
	return snap
}

// applyIf folds ev only when keep accepts the current state. The check and the
// fold share one critical section; a rejected event bumps no version and
// notifies no one.
func (s *Store) applyIf(ev Event, keep func(State) bool) (Snapshot, bool) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()

	if keep != nil && !keep(s.state) {
		snap := Snapshot{State: s.state, Version: s.version}
		s.mu.Unlock()

		return snap, false
	}

	s.state = Apply(s.state, ev)
	s.version++
	snap := Snapshot{State: s.state, Version: s.version}

	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		s.notify(l, snap)
	}

	return snap, true
}

func (s *Store) notify(l Listener, snap Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Interface("panic", r).Msg("Snapshot listener panicked")
		}
	}()

	l(snap)
}

// Acknowledge sets the local acknowledged flag of an alert. It reports whether
// the flag changed; an unknown id or a flag already at that value is a no-op.
func (s *Store) Acknowledge(id string, acknowledged bool) bool {
	_, changed := s.applyIf(AlertAcknowledged{ID: id, Acknowledged: acknowledged}, func(st State) bool {
		alert, ok := st.Alert(id)
		return ok && alert.Acknowledged != acknowledged
	})

	return changed
}

func (s *Store) HandleSystemMetrics(sample models.SystemMetricsSample) {
	s.Apply(SystemMetricsReceived{Sample: sample})
}

func (s *Store) HandleAgentMetrics(sample models.AgentMetricsSample) {
	s.Apply(AgentMetricsReceived{Sample: sample})
}

func (s *Store) HandleAlert(alert models.AlertEvent) {
	s.Apply(AlertReceived{Alert: alert})
}

func (s *Store) HandleAgentStatus(status models.AgentStatus) {
	s.Apply(AgentStatusChanged{Status: status})
}

func (s *Store) HandleSystemHealth(health models.SystemHealth) {
	s.Apply(SystemHealthReceived{Health: health})
}

func (s *Store) HandlePong(receivedAt time.Time) {
	s.Apply(PongReceived{At: receivedAt})
}
