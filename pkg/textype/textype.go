// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package textype converts between textual and typed values through a
// pluggable registry of typekeys. A Typer holds an ordered list of TexType
// registrations and round-trips values by key, by Go type, or by probing the
// text against every registration in order ("auto" mode).
package textype

import "reflect"

// TexType is one registered textual type: a short key, the equivalent Go
// type, and the three behaviors a Typer dispatches to.
type TexType struct {
	// Key is the typekey, unique within a Typer.
	Key string

	// Type is the Go type produced by Load and accepted by Dump.
	Type reflect.Type

	// MatchFunc reports whether raw text belongs to this type. It must not
	// fail; a nil MatchFunc never matches.
	MatchFunc func(s string) bool

	// LoadFunc converts text into the equivalent Go value.
	LoadFunc func(s string) (any, error)

	// DumpFunc converts a Go value into its textual form.
	DumpFunc func(v any) (string, error)
}

// Match reports whether s belongs to this type.
func (t TexType) Match(s string) bool {
	return t.MatchFunc != nil && t.MatchFunc(s)
}

// Load converts s into the equivalent Go value. Failures are reported as
// *ConversionError.
func (t TexType) Load(s string) (any, error) {
	if t.LoadFunc == nil {
		return nil, &ConversionError{Key: t.Key, Op: "load", Err: ErrTypeNotSupported}
	}
	v, err := t.LoadFunc(s)
	if err != nil {
		return nil, &ConversionError{Key: t.Key, Op: "load", Err: err}
	}
	return v, nil
}

// Dump converts v into its textual form. Failures are reported as
// *ConversionError.
func (t TexType) Dump(v any) (string, error) {
	if t.DumpFunc == nil {
		return "", &ConversionError{Key: t.Key, Op: "dump", Err: ErrTypeNotSupported}
	}
	s, err := t.DumpFunc(v)
	if err != nil {
		return "", &ConversionError{Key: t.Key, Op: "dump", Err: err}
	}
	return s, nil
}
