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
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/carverauto/serviceradar-live/pkg/logger"
)

var (
	// ErrDstMustBeNonNilPointer indicates that the destination must be a non-nil pointer.
	ErrDstMustBeNonNilPointer = errors.New("dst must be a non-nil pointer")
	// ErrDstMustBePointerToStruct indicates that the destination must be a pointer to a struct.
	ErrDstMustBePointerToStruct = errors.New("dst must be a pointer to a struct")
)

const envJSONKey = "CONFIG_JSON"

//nolint:gochecknoglobals // reflect types compared on every leaf
var (
	durationType    = reflect.TypeOf(time.Duration(0))
	unmarshalerType = reflect.TypeOf((*json.Unmarshaler)(nil)).Elem()
)

// EnvConfigLoader loads configuration from environment variables. Field names
// come from json tags joined by underscores under an optional prefix, so with
// prefix "LIVE_" the field Stream.History.MaxAgents reads LIVE_STREAM_HISTORY_MAX_AGENTS.
// <prefix>CONFIG_JSON, when set, replaces per-field lookup entirely.
type EnvConfigLoader struct {
	logger logger.Logger
	prefix string
	lookup func(string) (string, bool)
}

// NewEnvConfigLoader creates a new environment variable config loader.
func NewEnvConfigLoader(log logger.Logger, prefix string) *EnvConfigLoader {
	if log == nil {
		log = logger.NewTestLogger()
	}

	return &EnvConfigLoader{
		logger: log,
		prefix: prefix,
		lookup: os.LookupEnv,
	}
}

// Load implements ConfigLoader.
func (e *EnvConfigLoader) Load(_ context.Context, _ string, dst interface{}) error {
	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return ErrDstMustBeNonNilPointer
	}

	if raw, ok := e.lookup(e.prefix + envJSONKey); ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), dst); err != nil {
			return fmt.Errorf("failed to unmarshal %s%s: %w", e.prefix, envJSONKey, err)
		}

		e.logger.Info().Str("env", e.prefix+envJSONKey).Msg("Loaded configuration from JSON environment variable")

		return nil
	}

	if v.Elem().Kind() != reflect.Struct {
		return ErrDstMustBePointerToStruct
	}

	applied, err := e.loadStruct(v.Elem(), e.prefix)
	if err != nil {
		return err
	}

	e.logger.Info().Int("variables", applied).Str("prefix", e.prefix).Msg("Loaded configuration from environment variables")

	return nil
}

// loadStruct fills v from the environment and returns how many variables it used.
func (e *EnvConfigLoader) loadStruct(v reflect.Value, prefix string) (int, error) {
	t := v.Type()
	applied := 0

	var errs []error

	for i := 0; i < t.NumField(); i++ {
		name, ok := envFieldName(t.Field(i))
		if !ok || !v.Field(i).CanSet() {
			continue
		}

		n, err := e.loadField(v.Field(i), prefix+name)
		applied += n

		if err != nil {
			errs = append(errs, err)
		}
	}

	return applied, errors.Join(errs...)
}

func (e *EnvConfigLoader) loadField(field reflect.Value, envName string) (int, error) {
	if isNested(field.Type()) {
		return e.loadNested(field, envName+"_")
	}

	raw, ok := e.lookup(envName)
	if !ok || raw == "" {
		return 0, nil
	}

	if field.Kind() == reflect.Ptr {
		if field.IsNil() {
			field.Set(reflect.New(field.Type().Elem()))
		}

		field = field.Elem()
	}

	if err := setLeaf(field, raw); err != nil {
		return 0, fmt.Errorf("invalid value for %s: %w", envName, err)
	}

	e.logger.Debug().Str("env", envName).Msg("Loaded value from environment variable")

	return 1, nil
}

// loadNested fills a struct or struct pointer. A nil pointer is only allocated
// when at least one variable below it is set.
func (e *EnvConfigLoader) loadNested(field reflect.Value, prefix string) (int, error) {
	if field.Kind() != reflect.Ptr {
		return e.loadStruct(field, prefix)
	}

	if !field.IsNil() {
		return e.loadStruct(field.Elem(), prefix)
	}

	fresh := reflect.New(field.Type().Elem())

	n, err := e.loadStruct(fresh.Elem(), prefix)
	if n > 0 {
		field.Set(fresh)
	}

	return n, err
}

// isNested reports whether t is walked field by field rather than set as a value.
func isNested(t reflect.Type) bool {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	return t.Kind() == reflect.Struct && !reflect.PointerTo(t).Implements(unmarshalerType) && t != reflect.TypeOf(time.Time{})
}

func envFieldName(sf reflect.StructField) (string, bool) {
	tag := sf.Tag.Get("json")
	if tag == "" || tag == "-" {
		return "", false
	}

	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return "", false
	}

	return strings.ToUpper(strings.ReplaceAll(name, ".", "_")), true
}

// setLeaf parses raw into a non-struct field.
func setLeaf(field reflect.Value, raw string) error {
	if u, ok := field.Addr().Interface().(json.Unmarshaler); ok {
		// numbers and JSON literals first, then the raw text as a JSON string
		if err := u.UnmarshalJSON([]byte(raw)); err == nil {
			return nil
		}

		quoted, _ := json.Marshal(raw)

		return u.UnmarshalJSON(quoted)
	}

	if field.Type() == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}

		field.SetInt(int64(d))

		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}

		field.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := strconv.ParseInt(raw, 10, field.Type().Bits())
		if err != nil {
			return err
		}

		field.SetInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(raw, 10, field.Type().Bits())
		if err != nil {
			return err
		}

		field.SetUint(u)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(raw, field.Type().Bits())
		if err != nil {
			return err
		}

		field.SetFloat(f)
	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(raw, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}

			field.Set(reflect.ValueOf(parts).Convert(field.Type()))

			return nil
		}

		return json.Unmarshal([]byte(raw), field.Addr().Interface())
	default:
		// maps and anything else are read as JSON
		return json.Unmarshal([]byte(raw), field.Addr().Interface())
	}

	return nil
}
