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
	"reflect"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTyper(t *testing.T, opts ...Option) *Typer {
	t.Helper()
	tp, err := New([]TexType{Int, Float, Bool, Str}, opts...)
	require.NoError(t, err)
	return tp
}

func TestNew_DuplicateKey(t *testing.T) {
	_, err := New([]TexType{Int, Int})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate typekey")
}

func TestLoad_AutoDetect(t *testing.T) {
	tp := newTestTyper(t)

	tests := []struct {
		text string
		want any
	}{
		{"42", int64(42)},
		{"1.5", 1.5},
		{"true", true},
		{"TRUE", true},
		{"hi", "hi"},
	}
	for _, tt := range tests {
		v, err := tp.Load(tt.text, Auto, 0)
		require.NoError(t, err, "load %q", tt.text)
		assert.Equal(t, tt.want, v, "load %q", tt.text)
	}
}

func TestLoad_ByKey(t *testing.T) {
	tp := newTestTyper(t)

	v, err := tp.Load("7", "int", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)

	// Explicit str keeps digits textual.
	v, err = tp.Load("7", "str", 0)
	require.NoError(t, err)
	assert.Equal(t, "7", v)
}

func TestLoad_UnknownKey(t *testing.T) {
	tp := newTestTyper(t)
	_, err := tp.Load("x", "nope", 0)
	assert.True(t, errors.Is(err, ErrKeyNotFound))
}

func TestLoad_ConversionFailure(t *testing.T) {
	tp := newTestTyper(t)
	_, err := tp.Load("notanumber", "int", 0)
	var convErr *ConversionError
	require.True(t, errors.As(err, &convErr))
	assert.Equal(t, "int", convErr.Key)
	assert.Equal(t, "load", convErr.Op)
	assert.Error(t, convErr.Unwrap())
}

func TestLoad_NullFlag(t *testing.T) {
	tp, err := DefaultCSVTyper.Derive()
	require.NoError(t, err)

	// "[null]int" with aliases ("null","NULL").
	v, err := tp.Load("NULL", "[null]int", 0)
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = tp.Load("null", "[null]int", 0)
	require.NoError(t, err)
	assert.Nil(t, v)

	// Without the flag the alias is just unrecognized int text.
	_, err = tp.Load("null", "int", 0)
	assert.Error(t, err)
}

func TestDump_NullFlag(t *testing.T) {
	out, err := DefaultCSVTyper.Dump(nil, "[null]int", 0)
	require.NoError(t, err)
	assert.Equal(t, "null", out)

	// Nil without the flag has no type to dump with.
	_, err = DefaultCSVTyper.Dump(nil, Auto, 0)
	assert.True(t, errors.Is(err, ErrTypeNotSupported))
}

func TestLoadDump_Quotes(t *testing.T) {
	tp := newTestTyper(t)

	v, err := tp.Load(`"42"`, "[quote]int", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)

	v, err = tp.Load(`'42'`, "[quote]int", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)

	out, err := tp.Dump(int64(42), "[quote]int", 0)
	require.NoError(t, err)
	assert.Equal(t, `"42"`, out)

	out, err = tp.Dump(int64(42), "[squote]int", 0)
	require.NoError(t, err)
	assert.Equal(t, `'42'`, out)
}

func TestDump_Auto(t *testing.T) {
	tp := newTestTyper(t)

	out, err := tp.Dump(int64(5), Auto, 0)
	require.NoError(t, err)
	assert.Equal(t, "5", out)

	out, err = tp.Dump(true, Auto, 0)
	require.NoError(t, err)
	assert.Equal(t, "true", out)

	out, err = tp.Dump("x", Auto, 0)
	require.NoError(t, err)
	assert.Equal(t, "x", out)
}

func TestRoundTrip(t *testing.T) {
	tp, err := New([]TexType{Int, Float, Decimal, Bool, Str})
	require.NoError(t, err)

	values := []any{int64(12), 3.25, true, false, "text"}
	for _, v := range values {
		s, err := tp.Dump(v, Auto, 0)
		require.NoError(t, err)
		back, err := tp.Load(s, Auto, 0)
		require.NoError(t, err)
		assert.Equal(t, v, back, "round trip of %v", v)
	}

	// Decimal keeps its value through the round trip; dump drops trailing
	// zeros.
	d := decimal.RequireFromString("10.250")
	s, err := tp.Dump(d, "decimal", 0)
	require.NoError(t, err)
	assert.Equal(t, "10.25", s)
	back, err := tp.Load(s, "decimal", 0)
	require.NoError(t, err)
	assert.True(t, back.(decimal.Decimal).Equal(d))
}

func TestRoundTrip_TextNormalization(t *testing.T) {
	tp := newTestTyper(t)

	// Bool dumps lowercase regardless of input case.
	v, err := tp.Load("TrUe", "bool", 0)
	require.NoError(t, err)
	s, err := tp.Dump(v, "bool", 0)
	require.NoError(t, err)
	assert.Equal(t, "true", s)
}

func TestLoad_Unrecognized(t *testing.T) {
	tp, err := New([]TexType{Int, Bool})
	require.NoError(t, err)
	_, err = tp.Load("hello", Auto, 0)
	assert.True(t, errors.Is(err, ErrUnrecognizedText))
}

func TestKeyOfText(t *testing.T) {
	tp := newTestTyper(t)

	key, err := tp.KeyOfText("42", 0)
	require.NoError(t, err)
	assert.Equal(t, "int", key)

	// Null alias resolves to the empty key under the flag.
	tp2, err := tp.Derive(WithNullAliases("null"))
	require.NoError(t, err)
	key, err = tp2.KeyOfText("null", FlagNull)
	require.NoError(t, err)
	assert.Equal(t, "", key)
}

func TestKeyOfType(t *testing.T) {
	tp := newTestTyper(t)

	key, err := tp.KeyOfType(reflect.TypeOf(int64(0)))
	require.NoError(t, err)
	assert.Equal(t, "int", key)

	_, err = tp.KeyOfType(reflect.TypeOf(uint8(0)))
	assert.True(t, errors.Is(err, ErrTypeNotSupported))
}

func TestKeyOfType_NonStrict(t *testing.T) {
	type myInt int64

	strict := newTestTyper(t)
	_, err := strict.KeyOfType(reflect.TypeOf(myInt(0)))
	assert.True(t, errors.Is(err, ErrTypeNotSupported))

	loose := newTestTyper(t, WithStrictTypeMatch(false))
	key, err := loose.KeyOfType(reflect.TypeOf(myInt(0)))
	require.NoError(t, err)
	assert.Equal(t, "int", key)
}

func TestTypeOfKey(t *testing.T) {
	tp := newTestTyper(t)

	typ, err := tp.TypeOfKey("bool")
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeOf(false), typ)

	// Flag prefixes are tolerated.
	typ, err = tp.TypeOfKey("[null]bool")
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeOf(false), typ)

	_, err = tp.TypeOfKey("nope")
	assert.True(t, errors.Is(err, ErrKeyNotFound))
}

func TestDerive_DoesNotMutateParent(t *testing.T) {
	parent := newTestTyper(t)

	child, err := parent.Derive(
		WithNullAliases("nil", "none"),
		WithStrictTypeMatch(false),
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"null"}, parent.NullAliases())
	assert.Equal(t, []string{"nil", "none"}, child.NullAliases())
	assert.Equal(t, "nil", child.NullString())

	// Parent stays strict.
	type myInt int64
	_, err = parent.KeyOfType(reflect.TypeOf(myInt(0)))
	assert.Error(t, err)
}

func TestDerive_AddAndReorder(t *testing.T) {
	parent, err := New([]TexType{Int, Str})
	require.NoError(t, err)

	// Reordering str ahead of int makes the catch-all shadow everything.
	child, err := parent.Derive(WithReorder("str", "int"))
	require.NoError(t, err)

	key, err := child.KeyOfText("42", 0)
	require.NoError(t, err)
	assert.Equal(t, "str", key, "str is the catch-all once it probes first")

	// Adding bool to the parent-derived set.
	child2, err := parent.Derive(WithTypes(Bool), WithReorder("int", "bool", "str"))
	require.NoError(t, err)
	key, err = child2.KeyOfText("true", 0)
	require.NoError(t, err)
	assert.Equal(t, "bool", key)
}

func TestDerive_AddNullAliases(t *testing.T) {
	parent, err := New([]TexType{Int}, WithNullAliases("null"))
	require.NoError(t, err)

	child, err := parent.Derive(WithAddNullAliases("NULL", "~"))
	require.NoError(t, err)
	assert.Equal(t, []string{"null", "NULL", "~"}, child.NullAliases())
	assert.Equal(t, "null", child.NullString())
}

func TestDefaultCSVTyper(t *testing.T) {
	// Registration order int, float, decimal, bool, str: integers resolve to
	// int, decimal only by explicit key.
	v, err := DefaultCSVTyper.Load("42", Auto, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)

	v, err = DefaultCSVTyper.Load("42.10", "decimal", 0)
	require.NoError(t, err)
	assert.True(t, v.(decimal.Decimal).Equal(decimal.RequireFromString("42.1")))
}
