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

// outboundQueue is an unbounded FIFO of messages waiting for a connection.
type outboundQueue struct {
	items []models.OutboundMessage
}

func (q *outboundQueue) push(msg models.OutboundMessage) {
	q.items = append(q.items, msg)
}

func (q *outboundQueue) peek() (models.OutboundMessage, bool) {
	if len(q.items) == 0 {
		return models.OutboundMessage{}, false
	}

	return q.items[0], true
}

func (q *outboundQueue) pop() {
	if len(q.items) == 0 {
		return
	}

	q.items[0] = models.OutboundMessage{}
	q.items = q.items[1:]

	if len(q.items) == 0 {
		q.items = nil
	}
}

func (q *outboundQueue) len() int {
	return len(q.items)
}
