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

package inject

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapMapper(t *testing.T) {
	m := MapMapper[string]{"age": "int"}

	v, ok := m.Match("age")
	assert.True(t, ok)
	assert.Equal(t, "int", v)

	_, ok = m.Match("name")
	assert.False(t, ok)
}

func TestRegexpMapper_FirstMatchWins(t *testing.T) {
	m := RegexpMapper[string]{
		{Pattern: regexp.MustCompile(`amount_.*`), Value: "decimal"},
		{Pattern: regexp.MustCompile(`.*_id`), Value: "int"},
		{Pattern: regexp.MustCompile(`amount_id`), Value: "never"},
	}

	v, ok := m.Match("amount_total")
	assert.True(t, ok)
	assert.Equal(t, "decimal", v)

	v, ok = m.Match("user_id")
	assert.True(t, ok)
	assert.Equal(t, "int", v)

	// Earlier rule shadows the later exact one.
	v, ok = m.Match("amount_id")
	assert.True(t, ok)
	assert.Equal(t, "decimal", v)

	_, ok = m.Match("name")
	assert.False(t, ok)
}

func TestRegexpMapper_WholeKeyOnly(t *testing.T) {
	m := RegexpMapper[string]{
		{Pattern: regexp.MustCompile(`id`), Value: "int"},
	}
	_, ok := m.Match("idle")
	assert.False(t, ok, "partial matches must not count")
}

func TestRenameMapper(t *testing.T) {
	m := RenameMapper{
		Exact: map[string]string{"a": "x"},
		Rules: []RegexpRule[string]{
			{Pattern: regexp.MustCompile(`raw_(.*)`), Value: "$1"},
		},
	}

	name, ok := m.Match("a")
	assert.True(t, ok)
	assert.Equal(t, "x", name)

	name, ok = m.Match("raw_price")
	assert.True(t, ok)
	assert.Equal(t, "price", name)

	_, ok = m.Match("other")
	assert.False(t, ok)
}

func TestSubFormatter(t *testing.T) {
	f := SubFormatter([]SubRule{
		{Pattern: regexp.MustCompile(`\s+`), Replace: ""},
		{Pattern: regexp.MustCompile(`,`), Replace: "."},
	})
	assert.Equal(t, "1234.5", f(" 1 234,5 "))

	empty := SubFormatter(nil)
	assert.Equal(t, "x", empty("x"))
}

func TestConstMapper(t *testing.T) {
	m := ConstMapper[string]{Value: "str"}
	v, ok := m.Match("anything")
	assert.True(t, ok)
	assert.Equal(t, "str", v)
}
