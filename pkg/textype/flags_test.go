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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKey(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		wantFlag Flags
		wantKey  string
	}{
		{"bare key", "int", 0, "int"},
		{"single flag", "[null]int", FlagNull, "int"},
		{"two flags", "[null][quote]int", FlagNull | FlagQuote, "int"},
		{"order independent", "[quote][null]int", FlagNull | FlagQuote, "int"},
		{"squote", "[squote]str", FlagSQuote, "str"},
		{"dquote", "[dquote]str", FlagDQuote, "str"},
		{"space after flag", "[null] int", FlagNull, "int"},
		{"no flags on empty", "", 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags, key, err := ParseKey(tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.wantFlag, flags)
			assert.Equal(t, tt.wantKey, key)
		})
	}
}

func TestParseKey_UnknownFlag(t *testing.T) {
	_, _, err := ParseKey("[bogus]int")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrKeyNotFound))
}

func TestParseFlag(t *testing.T) {
	f, err := ParseFlag("quote")
	require.NoError(t, err)
	assert.Equal(t, FlagSQuote|FlagDQuote, f)

	_, err = ParseFlag("nope")
	assert.Error(t, err)
}

func TestFlags_Quoting(t *testing.T) {
	// Dump: double quotes win when both styles are set.
	assert.Equal(t, `"x"`, FlagQuote.quoteDump("x"))
	assert.Equal(t, `'x'`, FlagSQuote.quoteDump("x"))
	assert.Equal(t, "x", Flags(0).quoteDump("x"))

	// Load: strip only the matching style.
	assert.Equal(t, "x", FlagQuote.unquoteLoad(`"x"`))
	assert.Equal(t, "x", FlagQuote.unquoteLoad(`'x'`))
	assert.Equal(t, `'x'`, FlagDQuote.unquoteLoad(`'x'`))
	assert.Equal(t, `"x`, FlagDQuote.unquoteLoad(`"x`))
}
