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

// RollingBuffer is an immutable fixed-capacity sequence. Append returns a new
// buffer and leaves the receiver untouched; once full the oldest item is evicted.
type RollingBuffer[T any] struct {
	items    []T
	capacity int
}

// NewRollingBuffer returns an empty buffer. Capacities below one are raised to one.
func NewRollingBuffer[T any](capacity int) *RollingBuffer[T] {
	if capacity < 1 {
		capacity = 1
	}

	return &RollingBuffer[T]{capacity: capacity}
}

// Append returns a buffer holding the receiver's items followed by v.
func (b *RollingBuffer[T]) Append(v T) *RollingBuffer[T] {
	start := 0
	if len(b.items) >= b.capacity {
		start = len(b.items) - b.capacity + 1
	}

	items := make([]T, 0, min(len(b.items)+1, b.capacity))
	items = append(items, b.items[start:]...)
	items = append(items, v)

	return &RollingBuffer[T]{items: items, capacity: b.capacity}
}

func (b *RollingBuffer[T]) Len() int {
	if b == nil {
		return 0
	}

	return len(b.items)
}

func (b *RollingBuffer[T]) Cap() int {
	if b == nil {
		return 0
	}

	return b.capacity
}

// Items returns a copy, oldest first.
func (b *RollingBuffer[T]) Items() []T {
	if b == nil {
		return nil
	}

	out := make([]T, len(b.items))
	copy(out, b.items)

	return out
}

// Last returns the newest item.
func (b *RollingBuffer[T]) Last() (T, bool) {
	var zero T

	if b == nil || len(b.items) == 0 {
		return zero, false
	}

	return b.items[len(b.items)-1], true
}
