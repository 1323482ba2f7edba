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

package stream

import "github.com/carverauto/serviceradar-live/pkg/models"

//nolint:gochecknoglobals // static transition table
var transitions = map[models.ConnectionState][]models.ConnectionState{
	models.StateDisconnected: {models.StateConnecting},
	models.StateConnecting:   {models.StateConnected, models.StateReconnecting, models.StateError, models.StateDisconnected},
	models.StateConnected:    {models.StateDisconnected, models.StateReconnecting, models.StateError},
	models.StateReconnecting: {models.StateConnecting, models.StateError, models.StateDisconnected},
	models.StateError:        {models.StateConnecting, models.StateDisconnected},
}

// CanTransition reports whether from -> to is an edge of the connection state machine.
func CanTransition(from, to models.ConnectionState) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}

	return false
}
