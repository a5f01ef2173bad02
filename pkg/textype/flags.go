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
	"fmt"
	"regexp"
	"strings"
)

// Flags modify how a Typer treats text on load and dump. They can be passed
// explicitly or embedded in a typekey as bracketed prefixes: "[null][quote]int".
type Flags uint8

const (
	// FlagNull makes the typer recognize the configured null aliases on load
	// and emit the default null literal on dump of a nil value.
	FlagNull Flags = 1 << iota

	// FlagSQuote wraps dumped text in single quotes and strips matching
	// single quotes on load.
	FlagSQuote

	// FlagDQuote wraps dumped text in double quotes and strips matching
	// double quotes on load.
	FlagDQuote

	// FlagQuote dumps with double quotes and accepts either quote style on load.
	FlagQuote = FlagSQuote | FlagDQuote
)

var flagNames = map[string]Flags{
	"null":   FlagNull,
	"squote": FlagSQuote,
	"dquote": FlagDQuote,
	"quote":  FlagQuote,
}

// keyFlagRe matches one bracketed flag prefix at the start of a typekey.
var keyFlagRe = regexp.MustCompile(`^\[([a-z]+)\]\s*`)

// ParseFlag resolves a single flag name ("null", "squote", "dquote", "quote").
func ParseFlag(name string) (Flags, error) {
	f, ok := flagNames[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("%w: flag %q", ErrKeyNotFound, name)
	}
	return f, nil
}

// ParseKey strips every leading "[name]" prefix from key, unioning the named
// flags, and returns the accumulated flags together with the bare typekey.
// Adjacent flag tokens may appear in any order.
func ParseKey(key string) (Flags, string, error) {
	var flags Flags
	for {
		m := keyFlagRe.FindStringSubmatch(key)
		if m == nil {
			return flags, key, nil
		}
		f, err := ParseFlag(m[1])
		if err != nil {
			return 0, "", err
		}
		flags |= f
		key = key[len(m[0]):]
	}
}

// Has reports whether all bits of f are set.
func (fl Flags) Has(f Flags) bool { return fl&f == f }

// unquoteLoad strips matching outer quotes from s when the corresponding
// quoting flag is set.
func (fl Flags) unquoteLoad(s string) string {
	if len(s) >= 2 {
		if fl.Has(FlagDQuote) && s[0] == '"' && s[len(s)-1] == '"' {
			return s[1 : len(s)-1]
		}
		if fl.Has(FlagSQuote) && s[0] == '\'' && s[len(s)-1] == '\'' {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// quoteDump wraps s according to the quoting flags. When both quote styles are
// set, double quotes win.
func (fl Flags) quoteDump(s string) string {
	if fl.Has(FlagDQuote) {
		return `"` + s + `"`
	}
	if fl.Has(FlagSQuote) {
		return `'` + s + `'`
	}
	return s
}
