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

// Package logger provides JSON structured logging using zerolog, with optional
// OTLP export of logs, metrics and traces.
package logger

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// ComponentField names the log field that carries the emitting component.
const ComponentField = "component"

var errInvalidDuration = errors.New("invalid duration")

type Config struct {
	Level      string     `json:"level" yaml:"level"`
	Debug      bool       `json:"debug" yaml:"debug"`
	Output     string     `json:"output" yaml:"output"`
	TimeFormat string     `json:"time_format" yaml:"time_format"`
	OTel       OTelConfig `json:"otel" yaml:"otel"`
}

// ZerologLevel resolves the configured zerolog level. Debug wins over Level.
func (c *Config) ZerologLevel() (zerolog.Level, error) {
	switch {
	case c.Debug:
		return zerolog.DebugLevel, nil
	case c.Level == "":
		return zerolog.InfoLevel, nil
	default:
		return zerolog.ParseLevel(c.Level)
	}
}

// Duration accepts either a duration string or a number of nanoseconds.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		dur, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("%w: %w", errInvalidDuration, err)
		}

		*d = Duration(dur)

		return nil
	}

	var n float64
	if err := json.Unmarshal(b, &n); err != nil {
		return errInvalidDuration
	}

	*d = Duration(time.Duration(n))

	return nil
}

// Shutdown flushes and stops every OTel pipeline started by this package.
func Shutdown() error {
	return ShutdownOTEL()
}
