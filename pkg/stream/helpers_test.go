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

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/serviceradar-live/pkg/models"
)

var errDialRefused = errors.New("connection refused")

// fakeClock runs timer callbacks synchronously from Advance.
type fakeClock struct {
	mu        sync.Mutex
	now       time.Time
	timers    []*fakeTimer
	scheduled []time.Duration
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 5, 4, 10, 30, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	c.scheduled = append(c.scheduled, d)

	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	active := !t.stopped && !t.fired
	t.stopped = true

	return active
}

// Advance moves time forward, firing due timers in deadline order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)

	for {
		var next *fakeTimer

		for _, t := range c.timers {
			if t.stopped || t.fired || t.at.After(target) {
				continue
			}

			if next == nil || t.at.Before(next.at) {
				next = t
			}
		}

		if next == nil {
			break
		}

		next.fired = true
		c.now = next.at
		c.mu.Unlock()
		next.f()
		c.mu.Lock()
	}

	c.now = target
	c.mu.Unlock()
}

// activeTimers returns the remaining durations of timers that have not fired or been stopped.
func (c *fakeClock) activeTimers() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []time.Duration

	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			out = append(out, t.at.Sub(c.now))
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	return out
}

func (c *fakeClock) scheduledExcept(skip time.Duration) []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []time.Duration

	for _, d := range c.scheduled {
		if d != skip {
			out = append(out, d)
		}
	}

	return out
}

type readResult struct {
	data []byte
	err  error
}

type controlFrame struct {
	code   int
	reason string
}

// fakeConn is an in-memory websocket connection.
type fakeConn struct {
	mu       sync.Mutex
	writes   [][]byte
	controls []controlFrame
	closed   bool
	writeErr error

	incoming  chan readResult
	done      chan struct{}
	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		incoming: make(chan readResult, 64),
		done:     make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case r := <-c.incoming:
		if r.err != nil {
			return 0, nil, r.err
		}

		return websocket.TextMessage, r.data, nil
	case <-c.done:
		return 0, nil, &websocket.CloseError{Code: websocket.CloseAbnormalClosure, Text: "use of closed connection"}
	}
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.writeErr != nil {
		return c.writeErr
	}

	if c.closed {
		return websocket.ErrCloseSent
	}

	c.writes = append(c.writes, append([]byte(nil), data...))

	return nil
}

func (c *fakeConn) WriteControl(_ int, data []byte, _ time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	frame := controlFrame{}
	if len(data) >= 2 {
		frame.code = int(data[0])<<8 | int(data[1])
		frame.reason = string(data[2:])
	}

	c.controls = append(c.controls, frame)

	return nil
}

func (*fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (c *fakeConn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.closeOnce.Do(func() { close(c.done) })

	return nil
}

func (c *fakeConn) push(frame string) {
	c.incoming <- readResult{data: []byte(frame)}
}

func (c *fakeConn) serverClose(code int) {
	c.incoming <- readResult{err: &websocket.CloseError{Code: code}}
}

func (c *fakeConn) failWrites(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.writeErr = err
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.closed
}

func (c *fakeConn) sent(t *testing.T) []models.OutboundMessage {
	t.Helper()

	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]models.OutboundMessage, 0, len(c.writes))

	for _, w := range c.writes {
		var msg models.OutboundMessage
		require.NoError(t, json.Unmarshal(w, &msg))
		out = append(out, msg)
	}

	return out
}

func (c *fakeConn) closeFrames() []controlFrame {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]controlFrame(nil), c.controls...)
}

// fakeDialer hands out scripted results; once the script runs out every dial fails.
type fakeDialer struct {
	mu      sync.Mutex
	results []dialResult
	dials   int
	headers []http.Header
	last    *fakeConn
}

type dialResult struct {
	conn *fakeConn
	err  error
}

func (d *fakeDialer) script(results ...dialResult) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.results = append(d.results, results...)
}

func (d *fakeDialer) Dial(_ context.Context, _ string, header http.Header) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.dials++
	d.headers = append(d.headers, header)

	if len(d.results) == 0 {
		return nil, errDialRefused
	}

	r := d.results[0]
	d.results = d.results[1:]

	if r.err != nil {
		return nil, r.err
	}

	d.last = r.conn

	return r.conn, nil
}

// lastConn returns the most recently handed out connection.
func (d *fakeDialer) lastConn() *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.last
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.dials
}

// recorder collects listener callbacks.
type recorder struct {
	mu     sync.Mutex
	states []models.ConnectionState
	pairs  [][2]models.ConnectionState
	errs   []error
}

func (r *recorder) onState(prev, next models.ConnectionState) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.states = append(r.states, next)
	r.pairs = append(r.pairs, [2]models.ConnectionState{prev, next})
}

func (r *recorder) onError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.errs = append(r.errs, err)
}

func (r *recorder) stateSeq() []models.ConnectionState {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]models.ConnectionState(nil), r.states...)
}

func (r *recorder) transitions() [][2]models.ConnectionState {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([][2]models.ConnectionState(nil), r.pairs...)
}

func (r *recorder) errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]error(nil), r.errs...)
}

// frameSink records delivered frames.
type frameSink struct {
	mu     sync.Mutex
	frames []string
}

func (s *frameSink) HandleFrame(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.frames = append(s.frames, string(data))
}

func (s *frameSink) received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.frames...)
}

type staticTopics []string

func (s staticTopics) Topics() []string { return s }

type harness struct {
	transport *Transport
	clock     *fakeClock
	dialer    *fakeDialer
	rec       *recorder
	sink      *frameSink
}

func intPtr(v int) *int { return &v }

func testStreamConfig() *models.StreamConfig {
	return &models.StreamConfig{
		URL:                  "ws://live.test/ws/metrics",
		ReconnectInterval:    models.Duration(100 * time.Millisecond),
		MaxReconnectAttempts: intPtr(3),
		HeartbeatInterval:    models.Duration(time.Hour),
		Subscriptions:        []string{},
	}
}

func newHarness(t *testing.T, cfg *models.StreamConfig, opts ...Option) *harness {
	t.Helper()

	h := &harness{
		clock:  newFakeClock(),
		dialer: &fakeDialer{},
		rec:    &recorder{},
		sink:   &frameSink{},
	}

	all := append([]Option{
		WithClock(h.clock),
		WithDialer(h.dialer),
		WithStateListener(h.rec.onState),
		WithErrorListener(h.rec.onError),
	}, opts...)

	tr, err := NewTransport(cfg, h.sink, all...)
	require.NoError(t, err)

	h.transport = tr

	t.Cleanup(func() { _ = tr.Disconnect() })

	return h
}

func (h *harness) waitState(t *testing.T, want models.ConnectionState) {
	t.Helper()

	require.Eventually(t, func() bool {
		return h.transport.State() == want
	}, 2*time.Second, time.Millisecond, "state never became %s (now %s)", want, h.transport.State())
}
