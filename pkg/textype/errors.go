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

package textype

import (
	"errors"
	"fmt"
)

var (
	// ErrKeyNotFound reports a typekey (or flag name) with no registration.
	ErrKeyNotFound = errors.New("typekey not found")

	// ErrTypeNotSupported reports a Go type with no registered typekey.
	ErrTypeNotSupported = errors.New("type not supported")

	// ErrUnrecognizedText reports text that matched no registered type in
	// auto-detection mode.
	ErrUnrecognizedText = errors.New("text not recognized")
)

// ConversionError reports a load or dump failure inside a registered TexType.
// It carries the original cause.
type ConversionError struct {
	Key string // typekey whose converter failed
	Op  string // "load" or "dump"
	Err error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("textype %q: %s failed: %v", e.Key, e.Op, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }
