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
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	intMatch     = regexp.MustCompile(`^\s*\d+\s*$`)
	floatMatch   = regexp.MustCompile(`^\s*\d+\.\d+\s*$`)
	decimalMatch = regexp.MustCompile(`^\s*\d+(\.\d+)?\s*$`)
	boolMatch    = regexp.MustCompile(`(?i)^(true|false)$`)
)

// Int is the textype for whole numbers, loaded as int64.
var Int = TexType{
	Key:       "int",
	Type:      reflect.TypeOf(int64(0)),
	MatchFunc: intMatch.MatchString,
	LoadFunc: func(s string) (any, error) {
		return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	},
	DumpFunc: func(v any) (string, error) {
		n, ok := v.(int64)
		if !ok {
			return "", fmt.Errorf("expected int64, got %T", v)
		}
		return strconv.FormatInt(n, 10), nil
	},
}

// Float is the textype for decimal-point numbers, loaded as float64.
var Float = TexType{
	Key:       "float",
	Type:      reflect.TypeOf(float64(0)),
	MatchFunc: floatMatch.MatchString,
	LoadFunc: func(s string) (any, error) {
		return strconv.ParseFloat(strings.TrimSpace(s), 64)
	},
	DumpFunc: func(v any) (string, error) {
		f, ok := v.(float64)
		if !ok {
			return "", fmt.Errorf("expected float64, got %T", v)
		}
		return strconv.FormatFloat(f, 'g', -1, 64), nil
	},
}

// Decimal is the textype for fixed-point arbitrary-precision numbers, loaded
// as decimal.Decimal.
var Decimal = TexType{
	Key:       "decimal",
	Type:      reflect.TypeOf(decimal.Decimal{}),
	MatchFunc: decimalMatch.MatchString,
	LoadFunc: func(s string) (any, error) {
		d, err := decimal.NewFromString(strings.TrimSpace(s))
		if err != nil {
			return nil, err
		}
		return d, nil
	},
	DumpFunc: func(v any) (string, error) {
		d, ok := v.(decimal.Decimal)
		if !ok {
			return "", fmt.Errorf("expected decimal.Decimal, got %T", v)
		}
		return d.String(), nil
	},
}

// Bool is the textype for case-insensitive true/false literals. It dumps as
// lowercase.
var Bool = TexType{
	Key:       "bool",
	Type:      reflect.TypeOf(false),
	MatchFunc: boolMatch.MatchString,
	LoadFunc: func(s string) (any, error) {
		switch strings.ToLower(s) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return nil, fmt.Errorf("%q is not a bool literal", s)
	},
	DumpFunc: func(v any) (string, error) {
		b, ok := v.(bool)
		if !ok {
			return "", fmt.Errorf("expected bool, got %T", v)
		}
		return strconv.FormatBool(b), nil
	},
}

// Str is the identity textype. It matches anything, so it must be registered
// last when used as a catch-all.
var Str = TexType{
	Key:       "str",
	Type:      reflect.TypeOf(""),
	MatchFunc: func(string) bool { return true },
	LoadFunc:  func(s string) (any, error) { return s, nil },
	DumpFunc: func(v any) (string, error) {
		s, ok := v.(string)
		if !ok {
			return "", fmt.Errorf("expected string, got %T", v)
		}
		return s, nil
	},
}

// DefaultCSVTyper is the stock typer for CSV injection: int, float, decimal,
// bool and a trailing str catch-all, with "null"/"NULL" aliases and
// non-strict type matching.
var DefaultCSVTyper = mustNew([]TexType{Int, Float, Decimal, Bool, Str},
	WithNullAliases("null", "NULL"),
	WithStrictTypeMatch(false),
)

func mustNew(types []TexType, opts ...Option) *Typer {
	tp, err := New(types, opts...)
	if err != nil {
		panic(err)
	}
	return tp
}
