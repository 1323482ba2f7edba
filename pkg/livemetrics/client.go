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

// Package livemetrics composes the websocket transport, router, subscription
// manager and reconciler into one live-metrics session.
package livemetrics

import (
	"context"
	"sync"
	"time"

	"github.com/carverauto/serviceradar-live/pkg/logger"
	"github.com/carverauto/serviceradar-live/pkg/models"
	"github.com/carverauto/serviceradar-live/pkg/natsutil"
	"github.com/carverauto/serviceradar-live/pkg/reconciler"
	"github.com/carverauto/serviceradar-live/pkg/router"
	"github.com/carverauto/serviceradar-live/pkg/stream"
	"github.com/carverauto/serviceradar-live/pkg/subscription"
)

// StateListener observes connection state changes.
type StateListener func(prev, next models.ConnectionState)

// AlertListener observes every accepted alert frame. redelivery is true when an
// alert with the same id was already held.
type AlertListener func(alert models.AlertEvent, redelivery bool)

// ErrorListener observes connection failures.
type ErrorListener func(err error)

type options struct {
	logger        logger.Logger
	dialer        stream.Dialer
	clock         stream.Clock
	publisher     natsutil.Publisher
	forwardBuffer int
}

// Option configures a Client.
type Option func(*options)

func WithLogger(l logger.Logger) Option {
	return func(o *options) { o.logger = l }
}

func WithDialer(d stream.Dialer) Option {
	return func(o *options) { o.dialer = d }
}

func WithClock(c stream.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithPublisher forwards connection changes and alerts to p.
func WithPublisher(p natsutil.Publisher) Option {
	return func(o *options) { o.publisher = p }
}

// WithForwardBuffer sizes the forwarder queue.
func WithForwardBuffer(n int) Option {
	return func(o *options) { o.forwardBuffer = n }
}

// Client is one live-metrics session. It is created disconnected; Connect opens
// the socket and Close tears the session down.
type Client struct {
	url       string
	transport *stream.Transport
	subs      *subscription.Manager
	store     *reconciler.Store
	forwarder *EventForwarder
	logger    logger.Logger
	now       func() time.Time

	mu             sync.RWMutex
	stateListeners []StateListener
	alertListeners []AlertListener
	errorListeners []ErrorListener
}

// New builds a session for cfg. Defaults are applied to a copy of cfg.
func New(cfg *models.StreamConfig, opts ...Option) (*Client, error) {
	o := options{logger: logger.NewTestLogger()}
	for _, opt := range opts {
		opt(&o)
	}

	c := *cfg
	c.ApplyDefaults()

	client := &Client{
		url:    c.URL,
		logger: o.logger,
		now:    time.Now,
	}

	if o.clock != nil {
		client.now = o.clock.Now
	}

	client.store = reconciler.NewStore(c.History, reconciler.WithStoreLogger(o.logger))
	client.subs = subscription.NewManager(c.Subscriptions,
		subscription.WithLogger(o.logger),
		subscription.WithNow(client.now),
	)

	routerOpts := []router.Option{
		router.WithLogger(o.logger),
		router.WithRawObserver(func(msg *models.InboundMessage) {
			RecordFrame(context.Background(), msg.Type)
		}),
	}

	if o.clock != nil {
		routerOpts = append(routerOpts, router.WithClock(o.clock))
	}

	rt := router.New(&sessionHandler{client: client}, routerOpts...)

	transportOpts := []stream.Option{
		stream.WithLogger(o.logger),
		stream.WithTopicSource(client.subs),
		stream.WithStateListener(client.onStateChange),
		stream.WithErrorListener(client.onError),
	}

	if o.dialer != nil {
		transportOpts = append(transportOpts, stream.WithDialer(o.dialer))
	}

	if o.clock != nil {
		transportOpts = append(transportOpts, stream.WithClock(o.clock))
	}

	transport, err := stream.NewTransport(&c, rt, transportOpts...)
	if err != nil {
		return nil, err
	}

	client.transport = transport
	client.subs.Attach(transport)

	if o.publisher != nil {
		client.forwarder = NewEventForwarder(o.publisher, o.logger, o.forwardBuffer)
		client.forwarder.Start(context.Background())
	}

	return client, nil
}

// Connect opens the socket; see stream.Transport.Connect.
func (c *Client) Connect(ctx context.Context) error {
	return c.transport.Connect(ctx)
}

// Close disconnects with close code 1000 and flushes pending forwarded events.
func (c *Client) Close() error {
	err := c.transport.Disconnect()

	if c.forwarder != nil {
		c.forwarder.Stop()
	}

	return err
}

// Subscribe adds topics to the desired set.
func (c *Client) Subscribe(topics ...string) { c.subs.Subscribe(topics...) }

// Unsubscribe removes topics from the desired set.
func (c *Client) Unsubscribe(topics ...string) { c.subs.Unsubscribe(topics...) }

// SetTopics replaces the desired topic set.
func (c *Client) SetTopics(topics ...string) { c.subs.Set(topics...) }

// Topics returns the desired topic set.
func (c *Client) Topics() []string { return c.subs.Topics() }

// Send writes msg now or queues it until the next open.
func (c *Client) Send(msg models.OutboundMessage) bool { return c.transport.Send(msg) }

// State returns the connection state.
func (c *Client) State() models.ConnectionState { return c.transport.State() }

// Snapshot returns the current reconciled state.
func (c *Client) Snapshot() reconciler.Snapshot { return c.store.Snapshot() }

// Acknowledge marks an alert acknowledged locally. It reports false for an
// unknown id or an alert that is already acknowledged.
func (c *Client) Acknowledge(alertID string) bool { return c.store.Acknowledge(alertID, true) }

// OnSnapshot registers l for every reconciled update and returns its remover.
func (c *Client) OnSnapshot(l reconciler.Listener) func() { return c.store.Subscribe(l) }

// OnStateChange registers l for connection state changes.
func (c *Client) OnStateChange(l StateListener) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stateListeners = append(c.stateListeners, l)
}

// OnAlert registers l for accepted alerts.
func (c *Client) OnAlert(l AlertListener) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.alertListeners = append(c.alertListeners, l)
}

// OnError registers l for connection failures.
func (c *Client) OnError(l ErrorListener) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.errorListeners = append(c.errorListeners, l)
}

func (c *Client) onStateChange(prev, next models.ConnectionState) {
	RecordStateChange(context.Background(), prev, next)

	attempts := c.transport.Attempts()

	c.logger.Info().
		Str("from", string(prev)).
		Str("to", string(next)).
		Int("attempts", attempts).
		Msg("Live metrics connection state changed")

	if c.forwarder != nil {
		c.forwarder.ConnectionChanged(models.ConnectionEventData{
			URL:           c.url,
			PreviousState: prev,
			CurrentState:  next,
			Attempts:      attempts,
			Timestamp:     c.now(),
		})
	}

	c.mu.RLock()
	listeners := append([]StateListener(nil), c.stateListeners...)
	c.mu.RUnlock()

	for _, l := range listeners {
		l(prev, next)
	}
}

func (c *Client) onError(err error) {
	c.logger.Warn().Err(err).Str("url", c.url).Msg("Live metrics connection error")

	c.mu.RLock()
	listeners := append([]ErrorListener(nil), c.errorListeners...)
	c.mu.RUnlock()

	for _, l := range listeners {
		l(err)
	}
}

func (c *Client) onAlert(alert models.AlertEvent, redelivery bool) {
	RecordAlert(context.Background(), alert.Severity, redelivery)

	if c.forwarder != nil {
		c.forwarder.AlertReceived(models.AlertEventData{
			Alert:      alert,
			Redelivery: redelivery,
			ReceivedAt: c.now(),
		})
	}

	c.mu.RLock()
	listeners := append([]AlertListener(nil), c.alertListeners...)
	c.mu.RUnlock()

	for _, l := range listeners {
		l(alert, redelivery)
	}
}

// sessionHandler feeds routed frames into the store and the session's side channels.
type sessionHandler struct {
	client *Client
}

var _ router.Handler = (*sessionHandler)(nil)

func (h *sessionHandler) HandleSystemMetrics(sample models.SystemMetricsSample) {
	h.client.store.HandleSystemMetrics(sample)
}

func (h *sessionHandler) HandleAgentMetrics(sample models.AgentMetricsSample) {
	h.client.store.HandleAgentMetrics(sample)
}

func (h *sessionHandler) HandleAlert(alert models.AlertEvent) {
	_, redelivery := h.client.store.Snapshot().Alert(alert.ID)

	h.client.store.HandleAlert(alert)
	h.client.onAlert(alert, redelivery)
}

func (h *sessionHandler) HandleAgentStatus(status models.AgentStatus) {
	h.client.store.HandleAgentStatus(status)
}

func (h *sessionHandler) HandleSystemHealth(health models.SystemHealth) {
	h.client.store.HandleSystemHealth(health)
}

func (h *sessionHandler) HandlePong(receivedAt time.Time) {
	h.client.transport.MarkPong(receivedAt)
	h.client.store.HandlePong(receivedAt)
}
