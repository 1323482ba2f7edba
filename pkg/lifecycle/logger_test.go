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

package lifecycle

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/serviceradar-live/pkg/logger"
)

func TestLoggerImpl_WritesJSONWithComponent(t *testing.T) {
	var buf bytes.Buffer

	z, err := buildZerolog(context.Background(), &logger.Config{Level: "debug"}, &buf)
	require.NoError(t, err)

	impl := &LoggerImpl{Logger: logger.FromZerolog(z)}

	l := impl.WithComponent("transport")
	l.Info().Str("state", "connected").Msg("state change")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))

	assert.Equal(t, "transport", line["component"])
	assert.Equal(t, "connected", line["state"])
	assert.Equal(t, "state change", line["message"])
	assert.Equal(t, "info", line["level"])
}

func TestLoggerImpl_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer

	z, err := buildZerolog(context.Background(), &logger.Config{Level: "warn"}, &buf)
	require.NoError(t, err)

	impl := &LoggerImpl{Logger: logger.FromZerolog(z)}

	impl.Info().Msg("dropped")
	assert.Empty(t, buf.String())

	impl.SetDebug(true)
	impl.Debug().Msg("kept")
	assert.Contains(t, buf.String(), "kept")

	impl.SetLevel(zerolog.ErrorLevel)
	buf.Reset()
	impl.Warn().Msg("dropped again")
	assert.Empty(t, buf.String())
}

func TestNewLoggerImpl_InvalidLevel(t *testing.T) {
	_, err := NewLoggerImpl(context.Background(), &logger.Config{Level: "loud"})
	assert.Error(t, err)
}

func TestCreateComponentLogger(t *testing.T) {
	l, err := CreateComponentLogger(context.Background(), "stream-client", &logger.Config{Level: "info"})
	require.NoError(t, err)
	assert.NotNil(t, l)
}
