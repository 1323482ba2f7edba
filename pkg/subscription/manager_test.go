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

package subscription

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/carverauto/serviceradar-live/pkg/models"
)

type fakeSender struct {
	mu        sync.Mutex
	connected bool
	sent      []models.OutboundMessage
}

func (s *fakeSender) SendIfConnected(msg models.OutboundMessage) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return false
	}

	s.sent = append(s.sent, msg)

	return true
}

var fixedNow = func() time.Time { return time.Date(2025, 5, 4, 10, 30, 0, 0, time.UTC) }

func TestManager_TopicsAreASortedSet(t *testing.T) {
	m := NewManager([]string{"metrics", " alerts ", "metrics", ""})

	assert.Equal(t, []string{"alerts", "metrics"}, m.Topics())
	assert.True(t, m.Has("alerts"))
	assert.False(t, m.Has("agent_status"))
}

func TestManager_SendsOnlyDeltasWhenConnected(t *testing.T) {
	sender := &fakeSender{connected: true}
	m := NewManager([]string{"metrics"}, WithNow(fixedNow))
	m.Attach(sender)

	m.Subscribe("metrics", "alerts", "alerts")
	m.Subscribe("metrics")
	m.Unsubscribe("agent_status")
	m.Unsubscribe("metrics", "metrics")

	assert.Equal(t, []models.OutboundMessage{
		models.NewSubscribe([]string{"alerts"}, fixedNow()),
		models.NewUnsubscribe([]string{"metrics"}, fixedNow()),
	}, sender.sent)

	assert.Equal(t, []string{"alerts"}, m.Topics())
}

func TestManager_DisconnectedChangesApplyToReplaySet(t *testing.T) {
	sender := &fakeSender{}
	m := NewManager(nil, WithNow(fixedNow))
	m.Attach(sender)

	m.Subscribe("metrics", "agent_status")
	m.Unsubscribe("agent_status")

	assert.Empty(t, sender.sent)
	assert.Equal(t, []string{"metrics"}, m.Topics())
}

func TestManager_WithoutSender(t *testing.T) {
	m := NewManager(nil)

	assert.NotPanics(t, func() { m.Subscribe("alerts") })
	assert.Equal(t, []string{"alerts"}, m.Topics())
}

func TestManager_SetReplacesTopics(t *testing.T) {
	sender := &fakeSender{connected: true}
	m := NewManager([]string{"metrics", "alerts"}, WithNow(fixedNow))
	m.Attach(sender)

	m.Set("alerts", "agent_status", " agent_status ")

	assert.Equal(t, []models.OutboundMessage{
		models.NewUnsubscribe([]string{"metrics"}, fixedNow()),
		models.NewSubscribe([]string{"agent_status"}, fixedNow()),
	}, sender.sent)
	assert.Equal(t, []string{"agent_status", "alerts"}, m.Topics())

	m.Set("alerts", "agent_status")
	assert.Len(t, sender.sent, 2)

	m.Set()
	assert.Empty(t, m.Topics())
	assert.Equal(t, models.NewUnsubscribe([]string{"agent_status", "alerts"}, fixedNow()), sender.sent[2])
}
