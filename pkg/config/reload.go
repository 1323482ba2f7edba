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

package config

import (
	"context"
	"reflect"
	"strings"

	"github.com/carverauto/serviceradar-live/pkg/models"
)

// ClientOverrides are command-line values that win over the config file.
type ClientOverrides struct {
	StreamURL string
	Topics    string // comma separated
}

// LoadClientConfig reads path when set, applies o and validates the result.
func LoadClientConfig(ctx context.Context, path string, o ClientOverrides) (*models.ClientConfig, error) {
	cfg := &models.ClientConfig{Stream: &models.StreamConfig{}}

	if path != "" {
		if err := NewConfig(nil).LoadAndValidate(ctx, path, cfg); err != nil {
			return nil, err
		}
	}

	if cfg.Stream == nil {
		cfg.Stream = &models.StreamConfig{}
	}

	if o.StreamURL != "" {
		cfg.Stream.URL = o.StreamURL
	}

	if o.Topics != "" {
		cfg.Stream.Subscriptions = strings.Split(o.Topics, ",")
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Reload is the outcome of merging a re-read config into the running one.
type Reload struct {
	// Config is what the client runs with from now on.
	Config *models.ClientConfig
	// Applied lists the hot:"reload" stream fields taken from the new config.
	Applied []string
	// Deferred lists hot:"restart" stream fields that changed on disk but keep
	// their running values.
	Deferred []string
}

// Changed reports whether anything was applied.
func (r Reload) Changed() bool { return len(r.Applied) > 0 }

// MergeReload copies the changed hot:"reload" stream fields of next onto a copy
// of current. Everything else keeps its running value. With nothing to apply
// Config is current itself.
func MergeReload(current, next *models.ClientConfig) Reload {
	r := Reload{
		Config:   current,
		Applied:  Reloadable(current.Stream, next.Stream),
		Deferred: RestartRequired(current.Stream, next.Stream),
	}

	if !r.Changed() {
		return r
	}

	stream := *current.Stream
	dst := reflect.ValueOf(&stream).Elem()
	src := reflect.ValueOf(next.Stream).Elem()

	for _, name := range r.Applied {
		dst.FieldByName(name).Set(src.FieldByName(name))
	}

	updated := *current
	updated.Stream = &stream
	r.Config = &updated

	return r
}

// ReloadClientConfig re-reads path and merges it into current. When the new
// config fails to load or validate, current is kept and the error returned.
func ReloadClientConfig(
	ctx context.Context, current *models.ClientConfig, path string, o ClientOverrides) (Reload, error) {
	next, err := LoadClientConfig(ctx, path, o)
	if err != nil {
		return Reload{Config: current}, err
	}

	return MergeReload(current, next), nil
}
