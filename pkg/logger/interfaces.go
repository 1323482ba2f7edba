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

package logger

import (
	"io"

	"github.com/rs/zerolog"
)

// Logger is the structured logger passed to every component.
type Logger interface {
	Trace() *zerolog.Event
	Debug() *zerolog.Event
	Info() *zerolog.Event
	Warn() *zerolog.Event
	Error() *zerolog.Event
	Fatal() *zerolog.Event
	Panic() *zerolog.Event
	With() zerolog.Context
	WithComponent(component string) zerolog.Logger
	WithFields(fields map[string]interface{}) zerolog.Logger
	SetLevel(level zerolog.Level)
	SetDebug(debug bool)
}

// FromZerolog adapts a zerolog.Logger to Logger.
func FromZerolog(z zerolog.Logger) Logger {
	return &zerologLogger{z: z}
}

// NewTestLogger creates a no-op logger for testing that discards all output
func NewTestLogger() Logger {
	return FromZerolog(zerolog.New(io.Discard).Level(zerolog.Disabled))
}

type zerologLogger struct {
	z zerolog.Logger
}

func (l *zerologLogger) Trace() *zerolog.Event { return l.z.Trace() }
func (l *zerologLogger) Debug() *zerolog.Event { return l.z.Debug() }
func (l *zerologLogger) Info() *zerolog.Event  { return l.z.Info() }
func (l *zerologLogger) Warn() *zerolog.Event  { return l.z.Warn() }
func (l *zerologLogger) Error() *zerolog.Event { return l.z.Error() }
func (l *zerologLogger) Fatal() *zerolog.Event { return l.z.Fatal() }
func (l *zerologLogger) Panic() *zerolog.Event { return l.z.Panic() }
func (l *zerologLogger) With() zerolog.Context { return l.z.With() }

func (l *zerologLogger) WithComponent(component string) zerolog.Logger {
	return l.z.With().Str(ComponentField, component).Logger()
}

func (l *zerologLogger) WithFields(fields map[string]interface{}) zerolog.Logger {
	return l.z.With().Fields(fields).Logger()
}

func (l *zerologLogger) SetLevel(level zerolog.Level) { l.z = l.z.Level(level) }

func (l *zerologLogger) SetDebug(debug bool) {
	if debug {
		l.SetLevel(zerolog.DebugLevel)
		return
	}

	l.SetLevel(zerolog.InfoLevel)
}
