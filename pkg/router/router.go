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

// Package router decodes live-metrics frames and dispatches them to typed handlers.
package router

import (
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/carverauto/serviceradar-live/pkg/logger"
	"github.com/carverauto/serviceradar-live/pkg/models"
)

var (
	errAgentIDRequired = errors.New("frame requires agentId")
	errAlertIDRequired = errors.New("alert has no id")
	errStatusRequired  = errors.New("agent_status has no status")
)

const (
	defaultDropLogRate  = rate.Limit(1)
	defaultDropLogBurst = 10
)

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Option configures a Router.
type Option func(*Router)

func WithLogger(l logger.Logger) Option {
	return func(r *Router) { r.logger = l }
}

func WithRawObserver(o RawObserver) Option {
	return func(r *Router) { r.observers = append(r.observers, o) }
}

func WithClock(c Clock) Option {
	return func(r *Router) { r.clock = c }
}

// WithDropLogLimit bounds how many dropped-frame warnings are logged per second.
// Warnings over the limit are logged at debug, counted, and the count is
// reported on the next warning.
func WithDropLogLimit(perSecond rate.Limit, burst int) Option {
	return func(r *Router) { r.dropLog = rate.NewLimiter(perSecond, burst) }
}

// Router implements stream.FrameHandler. It is not safe for concurrent use; the
// transport delivers frames one at a time.
type Router struct {
	handler   Handler
	observers []RawObserver
	logger    logger.Logger
	clock     Clock

	dropLog    *rate.Limiter
	suppressed int
}

func New(handler Handler, opts ...Option) *Router {
	r := &Router{
		handler: handler,
		logger:  logger.NewTestLogger(),
		clock:   systemClock{},
		dropLog: rate.NewLimiter(defaultDropLogRate, defaultDropLogBurst),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// HandleFrame decodes data and invokes at most one handler. Malformed frames are
// logged and dropped.
func (r *Router) HandleFrame(data []byte) {
	receivedAt := r.clock.Now()

	msg, err := models.DecodeInbound(data, receivedAt)
	if err != nil {
		r.dropWarning(receivedAt).Err(err).Int("bytes", len(data)).Msg("Dropping malformed frame")

		return
	}

	for _, o := range r.observers {
		o(msg)
	}

	if err := r.dispatch(msg, receivedAt); err != nil {
		r.dropWarning(receivedAt).
			Err(err).
			Str("type", string(msg.Type)).
			Str("agent_id", msg.AgentID).
			Msg("Dropping frame")
	}
}

func (r *Router) dispatch(msg *models.InboundMessage, receivedAt time.Time) error {
	switch msg.Type {
	case models.MessageTypeMetrics:
		if msg.HasAgent() {
			return r.agentMetrics(msg)
		}

		return r.systemMetrics(msg)
	case models.MessageTypeAgentMetrics:
		if !msg.HasAgent() {
			return errAgentIDRequired
		}

		return r.agentMetrics(msg)
	case models.MessageTypeAlert:
		return r.alert(msg)
	case models.MessageTypeAgentStatus:
		return r.agentStatus(msg)
	case models.MessageTypeSystemHealth:
		return r.systemHealth(msg)
	case models.MessageTypePong:
		r.handler.HandlePong(receivedAt)
		return nil
	case models.MessageTypeConnection:
		r.logger.Debug().RawJSON("data", rawOrNull(msg.Data)).Msg("Server greeting received")
		return nil
	case models.MessageTypeSubscribe, models.MessageTypeUnsubscribe, models.MessageTypePing:
		r.logger.Warn().Str("type", string(msg.Type)).Msg("Ignoring client-only message type from server")
		return nil
	default:
		// unknown types bypass the drop log limiter
		r.logger.Warn().Str("type", string(msg.Type)).Msg("Ignoring unknown message type")

		return nil
	}
}

// dropWarning returns a warn event, or a debug event once the drop log budget
// is spent.
func (r *Router) dropWarning(now time.Time) *zerolog.Event {
	if !r.dropLog.AllowN(now, 1) {
		r.suppressed++
		return r.logger.Debug()
	}

	ev := r.logger.Warn()
	if r.suppressed > 0 {
		ev = ev.Int("suppressed", r.suppressed)
		r.suppressed = 0
	}

	return ev
}

func (r *Router) systemMetrics(msg *models.InboundMessage) error {
	var sample models.SystemMetricsSample
	if err := msg.DecodeData(&sample); err != nil {
		return err
	}

	if sample.Timestamp.IsZero() {
		sample.Timestamp = msg.Timestamp
	}

	r.handler.HandleSystemMetrics(sample)

	return nil
}

func (r *Router) agentMetrics(msg *models.InboundMessage) error {
	var sample models.AgentMetricsSample
	if err := msg.DecodeData(&sample); err != nil {
		return err
	}

	// the frame's agentId is authoritative
	sample.AgentID = msg.AgentID

	if sample.Timestamp.IsZero() {
		sample.Timestamp = msg.Timestamp
	}

	r.handler.HandleAgentMetrics(sample)

	return nil
}

func (r *Router) alert(msg *models.InboundMessage) error {
	var alert models.AlertEvent
	if err := msg.DecodeData(&alert); err != nil {
		return err
	}

	if alert.ID == "" {
		return errAlertIDRequired
	}

	if alert.AgentID == "" {
		alert.AgentID = msg.AgentID
	}

	if alert.TriggeredAt.IsZero() {
		alert.TriggeredAt = msg.Timestamp
	}

	r.handler.HandleAlert(alert)

	return nil
}

func (r *Router) agentStatus(msg *models.InboundMessage) error {
	if !msg.HasAgent() {
		return errAgentIDRequired
	}

	var payload models.AgentStatusPayload
	if err := msg.DecodeData(&payload); err != nil {
		return err
	}

	if payload.Status == "" {
		return errStatusRequired
	}

	r.handler.HandleAgentStatus(models.AgentStatus{
		AgentID:  msg.AgentID,
		Status:   payload.Status,
		LastSeen: msg.Timestamp,
	})

	return nil
}

func (r *Router) systemHealth(msg *models.InboundMessage) error {
	var health models.SystemHealth
	if err := msg.DecodeData(&health); err != nil {
		return err
	}

	if health.Timestamp.IsZero() {
		health.Timestamp = msg.Timestamp
	}

	r.handler.HandleSystemHealth(health)

	return nil
}

func rawOrNull(b []byte) []byte {
	if len(b) == 0 {
		return []byte("null")
	}

	return b
}
