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

// Package subscription keeps the desired topic set declaratively so it
// survives reconnects.
package subscription

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/carverauto/serviceradar-live/pkg/logger"
	"github.com/carverauto/serviceradar-live/pkg/models"
)

// Sender writes a message only when a connection is open. The transport's
// SendIfConnected satisfies it.
type Sender interface {
	SendIfConnected(msg models.OutboundMessage) bool
}

// Option configures a Manager.
type Option func(*Manager)

func WithLogger(l logger.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

func WithNow(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// Manager tracks the desired topics. The full set is replayed by the transport
// on every open through Topics; Subscribe and Unsubscribe only send deltas.
type Manager struct {
	mu     sync.Mutex
	topics map[string]struct{}
	sender Sender
	logger logger.Logger
	now    func() time.Time
}

func NewManager(initial []string, opts ...Option) *Manager {
	m := &Manager{
		topics: make(map[string]struct{}, len(initial)),
		logger: logger.NewTestLogger(),
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	for _, topic := range normalize(initial) {
		m.topics[topic] = struct{}{}
	}

	return m
}

// Attach sets the sender used for deltas.
func (m *Manager) Attach(sender Sender) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sender = sender
}

// Subscribe adds topics and, when connected, subscribes to the ones that were new.
func (m *Manager) Subscribe(topics ...string) {
	m.mu.Lock()

	var added []string

	for _, topic := range normalize(topics) {
		if _, ok := m.topics[topic]; ok {
			continue
		}

		m.topics[topic] = struct{}{}
		added = append(added, topic)
	}

	sender := m.sender
	m.mu.Unlock()

	// sent outside the lock: the transport reads Topics while holding its own lock
	m.sendDelta(sender, models.NewSubscribe, added)
}

// Unsubscribe removes topics and, when connected, unsubscribes from the ones that were present.
func (m *Manager) Unsubscribe(topics ...string) {
	m.mu.Lock()

	var removed []string

	for _, topic := range normalize(topics) {
		if _, ok := m.topics[topic]; !ok {
			continue
		}

		delete(m.topics, topic)
		removed = append(removed, topic)
	}

	sender := m.sender
	m.mu.Unlock()

	m.sendDelta(sender, models.NewUnsubscribe, removed)
}

// Set replaces the desired topics, unsubscribing from dropped ones before
// subscribing to new ones.
func (m *Manager) Set(topics ...string) {
	want := normalize(topics)

	m.mu.Lock()

	keep := make(map[string]struct{}, len(want))

	var added, removed []string

	for _, topic := range want {
		keep[topic] = struct{}{}

		if _, ok := m.topics[topic]; !ok {
			added = append(added, topic)
		}
	}

	for topic := range m.topics {
		if _, ok := keep[topic]; !ok {
			removed = append(removed, topic)
		}
	}

	sort.Strings(removed)

	m.topics = keep
	sender := m.sender
	m.mu.Unlock()

	m.sendDelta(sender, models.NewUnsubscribe, removed)
	m.sendDelta(sender, models.NewSubscribe, added)
}

func (m *Manager) sendDelta(sender Sender, build func([]string, time.Time) models.OutboundMessage, topics []string) {
	if len(topics) == 0 || sender == nil {
		return
	}

	msg := build(topics, m.now())

	if !sender.SendIfConnected(msg) {
		m.logger.Debug().Str("type", string(msg.Type)).Strs("topics", topics).Msg("Not connected, topics will be applied on next connect")
	}
}

// Topics returns the desired topics, sorted.
func (m *Manager) Topics() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.topics))
	for topic := range m.topics {
		out = append(out, topic)
	}

	sort.Strings(out)

	return out
}

// Has reports whether topic is desired.
func (m *Manager) Has(topic string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.topics[strings.TrimSpace(topic)]

	return ok
}

// normalize trims, drops empties and de-duplicates while keeping first-seen order.
func normalize(topics []string) []string {
	seen := make(map[string]struct{}, len(topics))
	out := make([]string, 0, len(topics))

	for _, topic := range topics {
		topic = strings.TrimSpace(topic)
		if topic == "" {
			continue
		}

		if _, ok := seen[topic]; ok {
			continue
		}

		seen[topic] = struct{}{}
		out = append(out, topic)
	}

	return out
}
