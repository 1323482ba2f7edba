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

import "time"

const defaultBackoffCap = 30 * time.Second

// Backoff computes reconnect delays as min(Base * 2^attempt, Cap).
type Backoff struct {
	Base time.Duration
	Cap  time.Duration
}

// Delay returns the wait before reconnect attempt number attempt (zero based).
// The result never exceeds Cap and does not overflow for large attempts.
func (b Backoff) Delay(attempt int) time.Duration {
	limit := b.Cap
	if limit <= 0 {
		limit = defaultBackoffCap
	}

	if b.Base <= 0 {
		return 0
	}

	delay := b.Base
	if delay >= limit {
		return limit
	}

	for i := 0; i < attempt; i++ {
		if delay > limit/2 {
			return limit
		}

		delay *= 2
	}

	return delay
}
