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

// Package natsutil publishes live-metrics events to NATS JetStream as CloudEvents.
package natsutil

//go:generate mockgen -destination=mock_natsutil.go -package=natsutil github.com/carverauto/serviceradar-live/pkg/natsutil Publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/carverauto/serviceradar-live/pkg/logger"
	"github.com/carverauto/serviceradar-live/pkg/models"
)

const (
	SubjectConnection = "events.live.connection"
	SubjectAlert      = "events.live.alert"

	EventTypeConnection = "com.carverauto.serviceradar.live.connection"
	EventTypeAlert      = "com.carverauto.serviceradar.live.alert"

	DefaultSource = "serviceradar/live"
)

// Publisher forwards live-metrics events to the message bus.
type Publisher interface {
	PublishConnectionEvent(ctx context.Context, data models.ConnectionEventData) error
	PublishAlertEvent(ctx context.Context, data models.AlertEventData) error
}

// streamPublisher is the part of jetstream.JetStream the publisher uses.
type streamPublisher interface {
	Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// EventPublisher provides methods for publishing CloudEvents to NATS JetStream.
type EventPublisher struct {
	js     streamPublisher
	stream string
	source string
	logger logger.Logger
}

var _ Publisher = (*EventPublisher)(nil)

// NewEventPublisher creates a new EventPublisher for the specified stream.
func NewEventPublisher(js jetstream.JetStream, streamName, source string, log logger.Logger) *EventPublisher {
	return newEventPublisher(js, streamName, source, log)
}

func newEventPublisher(js streamPublisher, streamName, source string, log logger.Logger) *EventPublisher {
	if source == "" {
		source = DefaultSource
	}

	if log == nil {
		log = logger.NewTestLogger()
	}

	return &EventPublisher{
		js:     js,
		stream: streamName,
		source: source,
		logger: log,
	}
}

// PublishConnectionEvent publishes a websocket state change.
func (p *EventPublisher) PublishConnectionEvent(ctx context.Context, data models.ConnectionEventData) error {
	return p.publish(ctx, EventTypeConnection, SubjectConnection, data.Timestamp, data)
}

// PublishAlertEvent publishes an alert received on the websocket.
func (p *EventPublisher) PublishAlertEvent(ctx context.Context, data models.AlertEventData) error {
	return p.publish(ctx, EventTypeAlert, SubjectAlert, data.ReceivedAt, data)
}

func (p *EventPublisher) publish(ctx context.Context, eventType, subject string, ts time.Time, data interface{}) error {
	event := models.CloudEvent{
		SpecVersion:     "1.0",
		ID:              uuid.New().String(),
		Source:          p.source,
		Type:            eventType,
		DataContentType: "application/json",
		Subject:         subject,
		Time:            &ts,
		Data:            data,
	}

	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", subject, err)
	}

	ack, err := p.js.Publish(ctx, subject, eventBytes)
	if err != nil {
		return fmt.Errorf("failed to publish %s event: %w", subject, err)
	}

	p.logger.Debug().
		Str("event_id", event.ID).
		Str("subject", subject).
		Uint64("seq", ack.Sequence).
		Msg("Published event")

	return nil
}

// CreateEventPublisher creates an EventPublisher for an existing NATS connection,
// creating the stream or adding the live subjects to it when needed.
func CreateEventPublisher(
	ctx context.Context, nc *nats.Conn, cfg *models.EventsConfig, log logger.Logger) (*EventPublisher, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	stream, err := js.Stream(ctx, cfg.StreamName)

	switch {
	case err == nil:
		streamCfg := stream.CachedInfo().Config
		subjects := ensureSubjectList(append([]string(nil), streamCfg.Subjects...), SubjectConnection)
		subjects = ensureSubjectList(subjects, SubjectAlert)

		if len(subjects) != len(streamCfg.Subjects) {
			streamCfg.Subjects = subjects

			if _, err = js.UpdateStream(ctx, streamCfg); err != nil {
				return nil, fmt.Errorf("failed to update stream %s: %w", cfg.StreamName, err)
			}
		}
	case isStreamMissingErr(err):
		_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
			Name:     cfg.StreamName,
			Subjects: []string{SubjectConnection, SubjectAlert},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create stream %s: %w", cfg.StreamName, err)
		}

		log.Info().Str("stream", cfg.StreamName).Msg("Created NATS JetStream stream")
	default:
		return nil, fmt.Errorf("failed to get stream %s: %w", cfg.StreamName, err)
	}

	return NewEventPublisher(js, cfg.StreamName, cfg.Source, log), nil
}

func isStreamMissingErr(err error) bool {
	return errors.Is(err, jetstream.ErrStreamNotFound) ||
		errors.Is(err, jetstream.ErrNoStreamResponse) ||
		errors.Is(err, nats.ErrStreamNotFound) ||
		errors.Is(err, nats.ErrNoStreamResponse) ||
		errors.Is(err, nats.ErrNoResponders)
}

// ensureSubjectList appends subject unless a pattern in subjects already covers it.
func ensureSubjectList(subjects []string, subject string) []string {
	for _, pattern := range subjects {
		if matchesSubject(pattern, subject) {
			return subjects
		}
	}

	return append(subjects, subject)
}

// matchesSubject applies NATS wildcard rules: '*' matches one token, '>' the rest.
func matchesSubject(pattern, subject string) bool {
	pt := strings.Split(pattern, ".")
	st := strings.Split(subject, ".")

	for i, tok := range pt {
		if tok == ">" {
			return len(st) > i
		}

		if i >= len(st) {
			return false
		}

		if tok != "*" && tok != st[i] {
			return false
		}
	}

	return len(pt) == len(st)
}
