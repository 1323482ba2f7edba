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

package router

//go:generate mockgen -destination=mock_router.go -package=router github.com/carverauto/serviceradar-live/pkg/router Handler

import (
	"time"

	"github.com/carverauto/serviceradar-live/pkg/models"
)

// Handler receives exactly one typed callback per accepted frame.
type Handler interface {
	HandleSystemMetrics(sample models.SystemMetricsSample)
	HandleAgentMetrics(sample models.AgentMetricsSample)
	HandleAlert(alert models.AlertEvent)
	HandleAgentStatus(status models.AgentStatus)
	HandleSystemHealth(health models.SystemHealth)
	HandlePong(receivedAt time.Time)
}

// RawObserver sees every decoded frame before type dispatch.
type RawObserver func(msg *models.InboundMessage)

// Clock supplies receipt times.
type Clock interface {
	Now() time.Time
}
