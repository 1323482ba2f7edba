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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/serviceradar-live/pkg/logger"
	"github.com/carverauto/serviceradar-live/pkg/models"
)

func TestStoreNotifiesInOrder(t *testing.T) {
	store := NewStore(models.HistoryConfig{}, WithStoreLogger(logger.NewTestLogger()))

	var versions []uint64

	unsubscribe := store.Subscribe(func(snap Snapshot) {
		versions = append(versions, snap.Version)
	})

	store.HandleSystemMetrics(models.SystemMetricsSample{Timestamp: t0, Agents: models.AgentCounts{Online: 85}})
	store.HandleAgentMetrics(models.AgentMetricsSample{AgentID: "a1", Timestamp: t0})
	store.HandleAlert(models.AlertEvent{ID: "x", TriggeredAt: t0})

	unsubscribe()
	store.HandleSystemHealth(models.SystemHealth{Timestamp: t0, Status: "healthy"})

	assert.Equal(t, []uint64{1, 2, 3}, versions)

	snap := store.Snapshot()
	assert.Equal(t, uint64(4), snap.Version)

	hist := snap.SystemHistory()
	require.Len(t, hist, 1)
	assert.Equal(t, 85, hist[0].Agents.Online)
}

func TestStoreSnapshotsAreIsolated(t *testing.T) {
	store := NewStore(models.HistoryConfig{})

	var first Snapshot

	store.Subscribe(func(snap Snapshot) {
		if snap.Version == 1 {
			first = snap
		}
	})

	store.HandleAgentStatus(models.AgentStatus{AgentID: "a1", Status: models.AgentStatusOnline, LastSeen: t0})
	store.HandleAgentStatus(models.AgentStatus{AgentID: "a1", Status: models.AgentStatusError, LastSeen: t0})

	st, ok := first.AgentStatus("a1")
	require.True(t, ok)
	assert.Equal(t, models.AgentStatusOnline, st.Status)

	st, _ = store.Snapshot().AgentStatus("a1")
	assert.Equal(t, models.AgentStatusError, st.Status)
}

func TestStoreAcknowledge(t *testing.T) {
	store := NewStore(models.HistoryConfig{})

	assert.False(t, store.Acknowledge("missing", true))

	store.HandleAlert(models.AlertEvent{ID: "a", TriggeredAt: t0})
	require.True(t, store.Acknowledge("a", true))

	alert, ok := store.Snapshot().Alert("a")
	require.True(t, ok)
	assert.True(t, alert.Acknowledged)

	version := store.Snapshot().Version
	assert.False(t, store.Acknowledge("a", true))
	assert.Equal(t, version, store.Snapshot().Version)

	store.HandleAlert(models.AlertEvent{ID: "a", TriggeredAt: t0, Value: 2})

	alert, _ = store.Snapshot().Alert("a")
	assert.True(t, alert.Acknowledged)
	assert.Len(t, store.Snapshot().Alerts(), 1)
}

func TestStoreAcknowledgeNoopDoesNotNotify(t *testing.T) {
	store := NewStore(models.HistoryConfig{})
	store.HandleAlert(models.AlertEvent{ID: "a", TriggeredAt: t0})

	var versions []uint64

	store.Subscribe(func(snap Snapshot) { versions = append(versions, snap.Version) })

	assert.False(t, store.Acknowledge("missing", true))
	assert.False(t, store.Acknowledge("a", false))
	assert.True(t, store.Acknowledge("a", true))
	assert.True(t, store.Acknowledge("a", false))

	assert.Equal(t, []uint64{2, 3}, versions)
}

func TestStoreAcknowledgeConcurrent(t *testing.T) {
	store := NewStore(models.HistoryConfig{})
	store.HandleAlert(models.AlertEvent{ID: "a", TriggeredAt: t0})

	const callers = 16

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		changed int
	)

	for range callers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			if store.Acknowledge("a", true) {
				mu.Lock()
				changed++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, 1, changed)
	assert.Equal(t, uint64(2), store.Snapshot().Version)
}

func TestStoreListenerPanicRecovered(t *testing.T) {
	store := NewStore(models.HistoryConfig{})

	calls := 0

	store.Subscribe(func(Snapshot) { panic("boom") })
	store.Subscribe(func(Snapshot) { calls++ })

	assert.NotPanics(t, func() {
		store.HandlePong(t0)
	})
	assert.Equal(t, 1, calls)
	assert.Equal(t, t0, store.Snapshot().LastPong())
}

func TestStoreListenerMayReadStore(t *testing.T) {
	store := NewStore(models.HistoryConfig{})

	var seen uint64

	store.Subscribe(func(Snapshot) {
		seen = store.Snapshot().Version
	})

	store.HandleSystemMetrics(models.SystemMetricsSample{Timestamp: t0})
	assert.Equal(t, uint64(1), seen)
}

func TestStoreConcurrentApply(t *testing.T) {
	store := NewStore(models.HistoryConfig{Agent: 1000})

	var (
		mu   sync.Mutex
		last uint64
		ok   = true
	)

	store.Subscribe(func(snap Snapshot) {
		mu.Lock()
		defer mu.Unlock()

		if snap.Version != last+1 {
			ok = false
		}

		last = snap.Version
	})

	var wg sync.WaitGroup

	for w := 0; w < 4; w++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := 0; i < 100; i++ {
				store.HandleAgentMetrics(models.AgentMetricsSample{AgentID: "a1", Timestamp: t0.Add(time.Duration(i) * time.Millisecond)})
			}
		}()
	}

	wg.Wait()

	assert.True(t, ok, "listeners saw versions out of order")
	assert.Len(t, store.Snapshot().AgentHistory("a1"), 400)
}
