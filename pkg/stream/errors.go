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

import "errors"

var (
	// ErrNilFrameHandler is returned by NewTransport when no frame handler is supplied.
	ErrNilFrameHandler = errors.New("frame handler is required")
	// ErrDialFailed wraps websocket handshake failures.
	ErrDialFailed = errors.New("websocket dial failed")
	// ErrDisconnected resolves pending Connect calls when Disconnect wins the race.
	ErrDisconnected = errors.New("transport disconnected")
	// ErrReconnectExhausted is reported when the reconnect budget runs out.
	ErrReconnectExhausted = errors.New("reconnect attempts exhausted")
	// ErrPongTimeout is reported when the watchdog closes a silent connection.
	ErrPongTimeout = errors.New("pong timeout")
	// ErrConnectionClosed is reported when the peer closes with a non-normal code.
	ErrConnectionClosed = errors.New("connection closed")
)
