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
	"reflect"
)

const (
	// HotTag is the struct tag consulted by FieldsChangedByTag.
	HotTag = "hot"

	HotReload  = "reload"
	HotRestart = "restart"
)

// FieldsChangedByTag returns a list of struct field names whose tag matches any value in triggers
// and whose values differ between old and new. Only compares top-level exported fields.
func FieldsChangedByTag(old, new interface{}, tag string, triggers map[string]bool) []string {
	ov := reflect.Indirect(reflect.ValueOf(old))
	nv := reflect.Indirect(reflect.ValueOf(new))

	if !ov.IsValid() || !nv.IsValid() {
		return nil
	}

	if ov.Kind() != reflect.Struct || nv.Kind() != reflect.Struct || ov.Type() != nv.Type() {
		return nil
	}

	t := ov.Type()

	var changed []string

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)

		if f.PkgPath != "" { // unexported
			continue
		}

		tagVal := f.Tag.Get(tag)
		if tagVal == "" || !triggers[tagVal] {
			continue
		}

		of := ov.Field(i).Interface()
		nf := nv.Field(i).Interface()

		if !reflect.DeepEqual(of, nf) {
			changed = append(changed, f.Name)
		}
	}

	return changed
}

// RestartRequired lists fields tagged hot:"restart" that differ between old and new.
func RestartRequired(old, new interface{}) []string {
	return FieldsChangedByTag(old, new, HotTag, map[string]bool{HotRestart: true})
}

// Reloadable lists fields tagged hot:"reload" that differ between old and new.
func Reloadable(old, new interface{}) []string {
	return FieldsChangedByTag(old, new, HotTag, map[string]bool{HotReload: true})
}
