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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/serviceradar-live/pkg/models"
	"github.com/carverauto/serviceradar-live/pkg/natsutil"
)

func TestForwarderPublishesInOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	pub := natsutil.NewMockPublisher(ctrl)

	ts := time.Date(2025, 5, 4, 10, 30, 0, 0, time.UTC)

	gomock.InOrder(
		pub.EXPECT().PublishConnectionEvent(gomock.Any(), models.ConnectionEventData{
			URL: testURL, PreviousState: models.StateConnecting, CurrentState: models.StateConnected, Timestamp: ts,
		}).Return(nil),
		pub.EXPECT().PublishAlertEvent(gomock.Any(), models.AlertEventData{
			Alert: models.AlertEvent{ID: "a1"}, ReceivedAt: ts,
		}).Return(nil),
	)

	f := NewEventForwarder(pub, nil, 8)

	f.ConnectionChanged(models.ConnectionEventData{
		URL: testURL, PreviousState: models.StateConnecting, CurrentState: models.StateConnected, Timestamp: ts,
	})
	f.AlertReceived(models.AlertEventData{Alert: models.AlertEvent{ID: "a1"}, ReceivedAt: ts})

	f.Start(context.Background())
	f.Stop()
}

func TestForwarderDropsWhenFull(t *testing.T) {
	ctrl := gomock.NewController(t)
	pub := natsutil.NewMockPublisher(ctrl)

	pub.EXPECT().PublishAlertEvent(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	f := NewEventForwarder(pub, nil, 1)

	f.AlertReceived(models.AlertEventData{Alert: models.AlertEvent{ID: "kept"}})
	f.AlertReceived(models.AlertEventData{Alert: models.AlertEvent{ID: "dropped"}})

	f.Start(context.Background())
	f.Stop()
}

func TestForwarderIgnoresEventsAfterStop(t *testing.T) {
	ctrl := gomock.NewController(t)
	pub := natsutil.NewMockPublisher(ctrl)

	f := NewEventForwarder(pub, nil, 4)
	f.Start(context.Background())
	f.Stop()
	f.Stop()

	f.ConnectionChanged(models.ConnectionEventData{URL: testURL})
	assert.Empty(t, f.events)
}

func TestForwarderLogsPublishErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	pub := natsutil.NewMockPublisher(ctrl)

	var wg sync.WaitGroup

	wg.Add(1)
	pub.EXPECT().PublishConnectionEvent(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ models.ConnectionEventData) error {
			defer wg.Done()

			_, ok := ctx.Deadline()
			assert.True(t, ok)

			return context.DeadlineExceeded
		})

	f := NewEventForwarder(pub, nil, 4)
	f.Start(context.Background())
	f.ConnectionChanged(models.ConnectionEventData{URL: testURL})

	wg.Wait()
	f.Stop()

	require.Empty(t, f.events)
}
