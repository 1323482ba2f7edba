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

// Package stream implements the live-metrics websocket transport: a single
// auto-reconnecting connection with heartbeat and an outbound queue.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/carverauto/serviceradar-live/pkg/logger"
	"github.com/carverauto/serviceradar-live/pkg/models"
	"github.com/carverauto/serviceradar-live/pkg/version"
)

const (
	tracerName = "github.com/carverauto/serviceradar-live/pkg/stream"

	closeReasonClient = "client disconnect"
	closeReasonPong   = "pong timeout"
	closePongTimeout  = 4000
)

// FrameHandler receives every inbound text frame, one at a time, in arrival order.
type FrameHandler interface {
	HandleFrame(data []byte)
}

// FrameHandlerFunc adapts a function to FrameHandler.
type FrameHandlerFunc func(data []byte)

func (f FrameHandlerFunc) HandleFrame(data []byte) { f(data) }

// TopicSource supplies the desired topic set replayed after every successful open.
type TopicSource interface {
	Topics() []string
}

// StateListener observes state changes.
type StateListener func(prev, next models.ConnectionState)

// ErrorListener observes connection failures.
type ErrorListener func(err error)

// Option configures a Transport.
type Option func(*Transport)

func WithDialer(d Dialer) Option {
	return func(t *Transport) { t.dialer = d }
}

func WithClock(c Clock) Option {
	return func(t *Transport) { t.clock = c }
}

func WithLogger(l logger.Logger) Option {
	return func(t *Transport) { t.logger = l }
}

func WithTopicSource(s TopicSource) Option {
	return func(t *Transport) { t.topics = s }
}

func WithStateListener(l StateListener) Option {
	return func(t *Transport) { t.stateListeners = append(t.stateListeners, l) }
}

func WithErrorListener(l ErrorListener) Option {
	return func(t *Transport) { t.errorListeners = append(t.errorListeners, l) }
}

// connectAttempt is shared by every Connect caller waiting on the same dial.
// Finishing it cancels the dial context.
type connectAttempt struct {
	epoch  uint64
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
	err    error
}

// newConnectAttempt keeps parent's values but not its cancellation; only
// finish (reached from Disconnect or the dial itself) stops the dial.
func newConnectAttempt(parent context.Context, epoch uint64) *connectAttempt {
	ctx, cancel := context.WithCancel(context.WithoutCancel(parent))

	return &connectAttempt{epoch: epoch, ctx: ctx, cancel: cancel, done: make(chan struct{})}
}

func (a *connectAttempt) finish(err error) {
	a.once.Do(func() {
		a.err = err
		close(a.done)
	})

	a.cancel()
}

func (a *connectAttempt) wait(ctx context.Context) error {
	select {
	case <-a.done:
		return a.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// notification is a state change or an error queued for listeners.
type notification struct {
	prev, next models.ConnectionState
	err        error
}

// Transport owns at most one live connection to the telemetry endpoint.
type Transport struct {
	url               string
	header            http.Header
	backoff           Backoff
	maxAttempts       int
	heartbeatInterval time.Duration
	pongTimeout       time.Duration
	connectTimeout    time.Duration
	writeTimeout      time.Duration

	dialer         Dialer
	clock          Clock
	logger         logger.Logger
	topics         TopicSource
	frames         FrameHandler
	stateListeners []StateListener
	errorListeners []ErrorListener

	mu             sync.Mutex
	state          models.ConnectionState
	attempts       int
	epoch          uint64
	conn           Conn
	queue          outboundQueue
	pending        *connectAttempt
	reconnectTimer Timer
	heartbeatTimer Timer
	lastPong       time.Time

	// dispatchMu serializes frame delivery across connection epochs.
	dispatchMu sync.Mutex

	notifyMu sync.Mutex
	notifyQ  []notification
	draining bool
}

// NewTransport creates a disconnected transport. cfg defaults are applied to a copy.
func NewTransport(cfg *models.StreamConfig, frames FrameHandler, opts ...Option) (*Transport, error) {
	if frames == nil {
		return nil, ErrNilFrameHandler
	}

	c := *cfg
	c.ApplyDefaults()

	if err := c.Validate(); err != nil {
		return nil, err
	}

	header := make(http.Header, len(c.Headers)+1)
	header.Set("User-Agent", version.UserAgent())

	for k, v := range c.Headers {
		header.Set(k, v)
	}

	t := &Transport{
		url:               c.URL,
		header:            header,
		backoff:           Backoff{Base: time.Duration(c.ReconnectInterval), Cap: time.Duration(c.MaxReconnectDelay)},
		maxAttempts:       c.ReconnectBudget(),
		heartbeatInterval: time.Duration(c.HeartbeatInterval),
		pongTimeout:       time.Duration(c.PongTimeout),
		connectTimeout:    time.Duration(c.ConnectTimeout),
		writeTimeout:      time.Duration(c.WriteTimeout),
		frames:            frames,
		clock:             realClock{},
		logger:            logger.NewTestLogger(),
		state:             models.StateDisconnected,
	}

	for _, opt := range opts {
		opt(t)
	}

	if t.dialer == nil {
		d, err := NewWebsocketDialer(c.Security, t.connectTimeout)
		if err != nil {
			return nil, err
		}

		t.dialer = d
	}

	return t, nil
}

// State returns the current connection state.
func (t *Transport) State() models.ConnectionState {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.state
}

// Attempts returns the number of reconnect attempts since the last successful open.
func (t *Transport) Attempts() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.attempts
}

// QueueLen returns the number of messages waiting for a connection.
func (t *Transport) QueueLen() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.queue.len()
}

// MarkPong records that the server answered a heartbeat.
func (t *Transport) MarkPong(at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if at.After(t.lastPong) {
		t.lastPong = at
	}
}

// Connect opens the connection and blocks until it is open or the attempt fails.
// A failed attempt leaves the transport retrying in the background while budget remains.
// Concurrent callers share the in-flight attempt.
func (t *Transport) Connect(ctx context.Context) error {
	t.mu.Lock()

	switch t.state {
	case models.StateConnected:
		t.mu.Unlock()
		return nil
	case models.StateConnecting:
		attempt := t.pending
		t.mu.Unlock()

		if attempt == nil {
			return nil
		}

		return attempt.wait(ctx)
	case models.StateReconnecting:
		t.stopReconnectTimerLocked()
	case models.StateDisconnected, models.StateError:
	}

	attempt, ok := t.beginAttemptLocked(ctx)
	t.mu.Unlock()
	t.flushNotifications()

	if !ok {
		return fmt.Errorf("%w: cannot connect from %s", ErrDisconnected, t.State())
	}

	go t.dial(attempt)

	return attempt.wait(ctx)
}

// Disconnect tears the connection down with close code 1000 and stops all
// background activity. The outbound queue is kept for a later Connect.
func (t *Transport) Disconnect() error {
	defer t.flushNotifications()

	t.mu.Lock()

	t.stopReconnectTimerLocked()
	t.stopHeartbeatLocked()
	t.epoch++

	var closeErr error

	if t.conn != nil {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, closeReasonClient)
		if err := t.conn.WriteControl(websocket.CloseMessage, msg, t.clock.Now().Add(t.writeTimeout)); err != nil {
			t.logger.Debug().Err(err).Msg("Failed to write close frame")
		}

		closeErr = t.conn.Close()
		t.conn = nil
	}

	pending := t.pending
	t.pending = nil

	if t.state != models.StateDisconnected {
		t.setStateLocked(models.StateDisconnected)
	}

	t.mu.Unlock()

	if pending != nil {
		pending.finish(ErrDisconnected)
	}

	t.logger.Info().Str("url", t.url).Msg("Disconnected from live metrics stream")

	return closeErr
}

// Send writes msg immediately when connected, otherwise queues it for the next open.
// It reports whether the message was queued rather than written.
func (t *Transport) Send(msg models.OutboundMessage) bool {
	defer t.flushNotifications()

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != models.StateConnected || t.conn == nil {
		t.queue.push(msg)
		return true
	}

	if err := t.writeLocked(msg); err != nil {
		t.queue.push(msg)
		t.failLocked(fmt.Errorf("failed to send %s: %w", msg.Type, err))

		return true
	}

	return false
}

// SendIfConnected writes msg only when connected and never queues it.
func (t *Transport) SendIfConnected(msg models.OutboundMessage) bool {
	defer t.flushNotifications()

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != models.StateConnected || t.conn == nil {
		return false
	}

	if err := t.writeLocked(msg); err != nil {
		t.failLocked(fmt.Errorf("failed to send %s: %w", msg.Type, err))
		return false
	}

	return true
}

// beginAttemptLocked moves to connecting and registers a fresh attempt.
func (t *Transport) beginAttemptLocked(parent context.Context) (*connectAttempt, bool) {
	if !t.setStateLocked(models.StateConnecting) {
		return nil, false
	}

	if t.pending != nil {
		t.pending.finish(ErrDisconnected)
	}

	t.epoch++
	t.pending = newConnectAttempt(parent, t.epoch)

	return t.pending, true
}

// dial runs outside the lock; the result is discarded if the epoch moved on.
// Disconnect cancels attempt.ctx, which aborts a dial still in progress.
func (t *Transport) dial(attempt *connectAttempt) {
	ctx, span := otel.Tracer(tracerName).Start(attempt.ctx, "stream.dial")
	span.SetAttributes(attribute.String("url", t.url))

	dialCtx, cancel := context.WithTimeout(ctx, t.connectTimeout)
	conn, err := t.dialer.Dial(dialCtx, t.url, t.header.Clone())

	cancel()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "dial failed")
	}

	span.End()

	t.mu.Lock()

	if attempt.epoch != t.epoch || t.state != models.StateConnecting {
		t.mu.Unlock()

		if conn != nil {
			_ = conn.Close()
		}

		attempt.finish(ErrDisconnected)

		return
	}

	t.pending = nil

	if err != nil {
		t.logger.Warn().Err(err).Str("url", t.url).Int("attempts", t.attempts).Msg("Failed to connect to live metrics stream")
		t.failLocked(err)
		t.mu.Unlock()
		t.flushNotifications()
		attempt.finish(err)

		return
	}

	openErr := t.openLocked(conn, attempt.epoch)
	t.mu.Unlock()
	t.flushNotifications()

	attempt.finish(openErr)
}

// openLocked runs the open sequence: subscription replay, heartbeat, queue flush.
// Nothing else can write while the lock is held.
func (t *Transport) openLocked(conn Conn, epoch uint64) error {
	t.conn = conn
	t.attempts = 0
	t.lastPong = t.clock.Now()
	t.setStateLocked(models.StateConnected)

	t.logger.Info().Str("url", t.url).Msg("Connected to live metrics stream")

	go t.readLoop(conn, epoch)

	if t.topics != nil {
		if topics := t.topics.Topics(); len(topics) > 0 {
			if err := t.writeLocked(models.NewSubscribe(topics, t.clock.Now())); err != nil {
				err = fmt.Errorf("failed to replay subscriptions: %w", err)
				t.failLocked(err)

				return err
			}
		}
	}

	t.scheduleHeartbeatLocked(epoch)

	for {
		msg, ok := t.queue.peek()
		if !ok {
			break
		}

		if err := t.writeLocked(msg); err != nil {
			err = fmt.Errorf("failed to flush queued %s: %w", msg.Type, err)
			t.failLocked(err)

			return err
		}

		t.queue.pop()
	}

	return nil
}

func (t *Transport) writeLocked(msg models.OutboundMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	if err := t.conn.SetWriteDeadline(t.clock.Now().Add(t.writeTimeout)); err != nil {
		return err
	}

	return t.conn.WriteMessage(websocket.TextMessage, data)
}

// failLocked handles a non-normal close, transport error or failed dial.
func (t *Transport) failLocked(cause error) {
	t.stopHeartbeatLocked()

	if t.conn != nil {
		_ = t.conn.Close()
		t.conn = nil
	}

	t.epoch++
	t.notifyLocked(notification{err: cause})

	if t.attempts >= t.maxAttempts {
		t.logger.Error().Err(cause).Int("attempts", t.attempts).Msg("Reconnect budget exhausted")
		t.setStateLocked(models.StateError)

		return
	}

	delay := t.backoff.Delay(t.attempts)
	t.attempts++

	if !t.setStateLocked(models.StateReconnecting) {
		return
	}

	t.logger.Info().
		Dur("delay", delay).
		Int("attempt", t.attempts).
		Int("max_attempts", t.maxAttempts).
		Msg("Scheduling reconnect")

	epoch := t.epoch
	t.reconnectTimer = t.clock.AfterFunc(delay, func() { t.onReconnectTimer(epoch) })
}

func (t *Transport) onReconnectTimer(epoch uint64) {
	t.mu.Lock()

	if epoch != t.epoch || t.state != models.StateReconnecting {
		t.mu.Unlock()
		return
	}

	t.reconnectTimer = nil

	if t.attempts >= t.maxAttempts {
		t.setStateLocked(models.StateError)
		t.notifyLocked(notification{err: fmt.Errorf("%w after %d attempts", ErrReconnectExhausted, t.attempts)})
		t.mu.Unlock()
		t.flushNotifications()

		return
	}

	attempt, ok := t.beginAttemptLocked(context.Background())
	t.mu.Unlock()
	t.flushNotifications()

	if ok {
		t.dial(attempt)
	}
}

func (t *Transport) scheduleHeartbeatLocked(epoch uint64) {
	if t.heartbeatInterval <= 0 {
		return
	}

	t.heartbeatTimer = t.clock.AfterFunc(t.heartbeatInterval, func() { t.onHeartbeat(epoch) })
}

func (t *Transport) onHeartbeat(epoch uint64) {
	defer t.flushNotifications()

	t.mu.Lock()
	defer t.mu.Unlock()

	if epoch != t.epoch || t.state != models.StateConnected || t.conn == nil {
		return
	}

	now := t.clock.Now()

	if t.pongTimeout > 0 && now.Sub(t.lastPong) > t.pongTimeout {
		t.logger.Warn().Dur("since_last_pong", now.Sub(t.lastPong)).Msg("No pong received, forcing reconnect")

		msg := websocket.FormatCloseMessage(closePongTimeout, closeReasonPong)
		_ = t.conn.WriteControl(websocket.CloseMessage, msg, now.Add(t.writeTimeout))

		t.failLocked(ErrPongTimeout)

		return
	}

	if err := t.writeLocked(models.NewPing(now)); err != nil {
		t.failLocked(fmt.Errorf("heartbeat failed: %w", err))
		return
	}

	t.scheduleHeartbeatLocked(epoch)
}

func (t *Transport) readLoop(conn Conn, epoch uint64) {
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			t.onReadError(epoch, err)
			return
		}

		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			continue
		}

		t.deliver(epoch, data)
	}
}

func (t *Transport) deliver(epoch uint64, data []byte) {
	t.dispatchMu.Lock()
	defer t.dispatchMu.Unlock()

	t.mu.Lock()
	current := epoch == t.epoch
	t.mu.Unlock()

	if !current {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			t.logger.Error().Interface("panic", r).Int("bytes", len(data)).Msg("Frame handler panicked, frame dropped")
		}
	}()

	t.frames.HandleFrame(data)
}

func (t *Transport) onReadError(epoch uint64, err error) {
	defer t.flushNotifications()

	t.mu.Lock()
	defer t.mu.Unlock()

	if epoch != t.epoch {
		return
	}

	code := websocket.CloseAbnormalClosure

	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		code = closeErr.Code
	}

	if code == websocket.CloseNormalClosure {
		t.logger.Info().Str("url", t.url).Msg("Server closed the live metrics stream")
		t.stopHeartbeatLocked()

		if t.conn != nil {
			_ = t.conn.Close()
			t.conn = nil
		}

		t.epoch++
		t.setStateLocked(models.StateDisconnected)

		return
	}

	t.logger.Warn().Err(err).Int("close_code", code).Msg("Live metrics stream closed unexpectedly")
	t.failLocked(fmt.Errorf("%w (code %d): %w", ErrConnectionClosed, code, err))
}

func (t *Transport) stopReconnectTimerLocked() {
	if t.reconnectTimer != nil {
		t.reconnectTimer.Stop()
		t.reconnectTimer = nil
	}
}

func (t *Transport) stopHeartbeatLocked() {
	if t.heartbeatTimer != nil {
		t.heartbeatTimer.Stop()
		t.heartbeatTimer = nil
	}
}

// setStateLocked applies a transition from the table, refusing anything else.
func (t *Transport) setStateLocked(next models.ConnectionState) bool {
	prev := t.state
	if !CanTransition(prev, next) {
		t.logger.Error().Str("from", prev.String()).Str("to", next.String()).Msg("Refusing illegal state transition")
		return false
	}

	t.state = next
	t.notifyLocked(notification{prev: prev, next: next})

	t.logger.Debug().Str("from", prev.String()).Str("to", next.String()).Msg("Connection state changed")

	return true
}

// notifyLocked enqueues n; order matches the order of state mutations.
func (t *Transport) notifyLocked(n notification) {
	t.notifyMu.Lock()
	t.notifyQ = append(t.notifyQ, n)
	t.notifyMu.Unlock()
}

// flushNotifications delivers queued notifications outside t.mu. Only one
// goroutine drains at a time, so listeners observe changes in order and may
// call back into the transport.
func (t *Transport) flushNotifications() {
	t.notifyMu.Lock()
	if t.draining {
		t.notifyMu.Unlock()
		return
	}

	t.draining = true

	for len(t.notifyQ) > 0 {
		n := t.notifyQ[0]
		t.notifyQ = t.notifyQ[1:]
		t.notifyMu.Unlock()

		t.dispatchNotification(n)

		t.notifyMu.Lock()
	}

	t.notifyQ = nil
	t.draining = false
	t.notifyMu.Unlock()
}

func (t *Transport) dispatchNotification(n notification) {
	if n.err != nil {
		for _, l := range t.errorListeners {
			t.safeNotify(func() { l(n.err) })
		}

		return
	}

	for _, l := range t.stateListeners {
		t.safeNotify(func() { l(n.prev, n.next) })
	}
}

// safeNotify runs one listener; a panic is logged and the next listener still runs.
func (t *Transport) safeNotify(call func()) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error().Interface("panic", r).Msg("Transport listener panicked")
		}
	}()

	call()
}
