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

package livemetrics

import (
	"context"
	"sync"
	"time"

	"github.com/carverauto/serviceradar-live/pkg/logger"
	"github.com/carverauto/serviceradar-live/pkg/models"
	"github.com/carverauto/serviceradar-live/pkg/natsutil"
)

const (
	defaultForwardBuffer  = 256
	defaultPublishTimeout = 5 * time.Second

	kindConnection = "connection"
	kindAlert      = "alert"
)

type forwardItem struct {
	connection *models.ConnectionEventData
	alert      *models.AlertEventData
}

func (i forwardItem) kind() string {
	if i.alert != nil {
		return kindAlert
	}

	return kindConnection
}

// EventForwarder publishes connection changes and alerts from a single worker
// goroutine so socket callbacks never block on the bus. Events arriving while
// the buffer is full are dropped and counted.
type EventForwarder struct {
	publisher natsutil.Publisher
	logger    logger.Logger
	timeout   time.Duration

	events chan forwardItem
	stop   chan struct{}
	wg     sync.WaitGroup

	startOnce sync.Once
	stopOnce  sync.Once
}

// NewEventForwarder returns a stopped forwarder; call Start before use.
func NewEventForwarder(publisher natsutil.Publisher, log logger.Logger, bufferSize int) *EventForwarder {
	if bufferSize <= 0 {
		bufferSize = defaultForwardBuffer
	}

	if log == nil {
		log = logger.NewTestLogger()
	}

	return &EventForwarder{
		publisher: publisher,
		logger:    log,
		timeout:   defaultPublishTimeout,
		events:    make(chan forwardItem, bufferSize),
		stop:      make(chan struct{}),
	}
}

// Start launches the worker. It returns immediately.
func (f *EventForwarder) Start(ctx context.Context) {
	f.startOnce.Do(func() {
		f.wg.Add(1)

		go f.run(ctx)
	})
}

// Stop publishes whatever is buffered and waits for the worker to exit.
func (f *EventForwarder) Stop() {
	f.stopOnce.Do(func() {
		close(f.stop)
	})

	f.wg.Wait()
}

// ConnectionChanged queues a connection state event.
func (f *EventForwarder) ConnectionChanged(data models.ConnectionEventData) {
	f.enqueue(forwardItem{connection: &data})
}

// AlertReceived queues an alert event.
func (f *EventForwarder) AlertReceived(data models.AlertEventData) {
	f.enqueue(forwardItem{alert: &data})
}

func (f *EventForwarder) enqueue(item forwardItem) {
	select {
	case <-f.stop:
		return
	default:
	}

	select {
	case f.events <- item:
	default:
		RecordDroppedEvent(context.Background(), item.kind())
		f.logger.Warn().Str("kind", item.kind()).Msg("Forward buffer full, dropping event")
	}
}

func (f *EventForwarder) run(ctx context.Context) {
	defer f.wg.Done()

	for {
		select {
		case item := <-f.events:
			f.publish(ctx, item)
		case <-f.stop:
			f.drain(ctx)
			return
		case <-ctx.Done():
			return
		}
	}
}

func (f *EventForwarder) drain(ctx context.Context) {
	for {
		select {
		case item := <-f.events:
			f.publish(ctx, item)
		default:
			return
		}
	}
}

func (f *EventForwarder) publish(ctx context.Context, item forwardItem) {
	pubCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	var err error

	if item.alert != nil {
		err = f.publisher.PublishAlertEvent(pubCtx, *item.alert)
	} else {
		err = f.publisher.PublishConnectionEvent(pubCtx, *item.connection)
	}

	if err != nil {
		f.logger.Warn().Err(err).Str("kind", item.kind()).Msg("Failed to forward event")
	}
}
