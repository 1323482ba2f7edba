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

// Package lifecycle wires process-level concerns such as logger construction.
package lifecycle

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/carverauto/serviceradar-live/pkg/logger"
)

// LoggerImpl is a logger.Logger built from a logger.Config without touching the
// zerolog global logger.
type LoggerImpl struct {
	logger.Logger
}

// NewLoggerImpl creates a new logger implementation
func NewLoggerImpl(ctx context.Context, config *logger.Config) (*LoggerImpl, error) {
	z, err := buildZerolog(ctx, config, nil)
	if err != nil {
		return nil, err
	}

	return &LoggerImpl{Logger: logger.FromZerolog(z)}, nil
}

// CreateComponentLogger creates a logger whose every line carries the component field.
func CreateComponentLogger(ctx context.Context, component string, config *logger.Config) (logger.Logger, error) {
	z, err := buildZerolog(ctx, config, nil)
	if err != nil {
		return nil, err
	}

	return &LoggerImpl{Logger: logger.FromZerolog(z.With().Str(logger.ComponentField, component).Logger())}, nil
}

// buildZerolog writes to out when set, otherwise to the configured stream. OTLP
// export is teed in when enabled.
func buildZerolog(ctx context.Context, config *logger.Config, out io.Writer) (zerolog.Logger, error) {
	if config == nil {
		config = logger.DefaultConfig()
	}

	level, err := config.ZerologLevel()
	if err != nil {
		return zerolog.Logger{}, err
	}

	if out == nil {
		out = os.Stdout
		if config.Output == "stderr" {
			out = os.Stderr
		}
	}

	if config.OTel.Enabled && config.OTel.Endpoint != "" {
		otelWriter, err := logger.NewOTelWriter(ctx, config.OTel)
		if err != nil {
			return zerolog.Logger{}, err
		}

		out = zerolog.MultiLevelWriter(out, otelWriter)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	if config.TimeFormat != "" {
		zerolog.TimeFieldFormat = config.TimeFormat
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger(), nil
}
