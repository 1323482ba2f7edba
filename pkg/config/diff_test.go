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

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/carverauto/serviceradar-live/pkg/models"
)

func TestFieldsChangedByTag(t *testing.T) {
	old := &models.StreamConfig{
		URL:               "ws://localhost:8080/ws/metrics",
		HeartbeatInterval: models.Duration(30 * time.Second),
		Subscriptions:     []string{"metrics"},
	}

	same := *old
	assert.Empty(t, RestartRequired(old, &same))
	assert.Empty(t, Reloadable(old, &same))

	changed := *old
	changed.Subscriptions = []string{"metrics", "alerts"}
	changed.HeartbeatInterval = models.Duration(10 * time.Second)
	changed.URL = "wss://live.example.com/ws/metrics"

	assert.Equal(t, []string{"Subscriptions"}, Reloadable(old, &changed))
	assert.Equal(t, []string{"URL", "HeartbeatInterval"}, RestartRequired(old, &changed))
	assert.Equal(t, []string{"URL", "HeartbeatInterval", "Subscriptions"},
		FieldsChangedByTag(old, &changed, HotTag, map[string]bool{HotRestart: true, HotReload: true}))
}

func TestFieldsChangedByTagMismatchedTypes(t *testing.T) {
	assert.Nil(t, FieldsChangedByTag(&models.StreamConfig{}, &models.NATSConfig{}, HotTag, map[string]bool{HotRestart: true}))
	assert.Nil(t, FieldsChangedByTag(nil, &models.StreamConfig{}, HotTag, map[string]bool{HotRestart: true}))
	assert.Nil(t, FieldsChangedByTag("a", "b", HotTag, map[string]bool{HotRestart: true}))
}
