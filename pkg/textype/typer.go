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
	"slices"
)

// Auto asks Load, Dump and the lookup primitives to detect the typekey
// themselves: from the value's Go type on dump, from ordered match probes on
// load.
const Auto = "auto"

// defaultNullAliases is used when a Typer is built without explicit aliases.
var defaultNullAliases = []string{"null"}

// Typer is an immutable registry of TexType entries. It converts between text
// and typed values by typekey, recognizes the typekey of arbitrary text, and
// maps Go types onto typekeys.
//
// A Typer is safe for concurrent use once built. Derive produces extended
// copies without mutating the parent.
type Typer struct {
	entries []TexType // registration order, drives auto text matching
	byKey   map[string]int

	typeOrder []reflect.Type // type match order (first-seen positions)
	byType    map[reflect.Type]string

	nullAliases []string
	strict      bool
}

// Option configures a Typer under construction by New or Derive.
type Option func(*builder)

type builder struct {
	entries     []TexType
	replace     []TexType
	reorder     []string
	nullAliases []string
	addAliases  []string
	matchOrder  []string
	strict      *bool
}

// WithTypes adds entries to the typer. Under Derive, an entry whose key is
// already present replaces the previous registration in place; under New a
// repeated key is rejected. New keys append.
func WithTypes(types ...TexType) Option {
	return func(b *builder) { b.entries = append(b.entries, types...) }
}

// WithReplaceTypes discards every inherited entry and installs the given ones.
// Only meaningful for Derive.
func WithReplaceTypes(types ...TexType) Option {
	return func(b *builder) { b.replace = types }
}

// WithReorder rebuilds the registration order to the given key sequence.
// Every key must already be registered; keys not listed are dropped.
func WithReorder(keys ...string) Option {
	return func(b *builder) { b.reorder = keys }
}

// WithNullAliases replaces the null alias list. The first alias is the default
// null literal emitted on dump.
func WithNullAliases(aliases ...string) Option {
	return func(b *builder) { b.nullAliases = aliases }
}

// WithAddNullAliases extends the inherited null alias list.
func WithAddNullAliases(aliases ...string) Option {
	return func(b *builder) { b.addAliases = append(b.addAliases, aliases...) }
}

// WithTypeMatchOrder restricts and orders the Go-type→typekey mapping to the
// given keys.
func WithTypeMatchOrder(keys ...string) Option {
	return func(b *builder) { b.matchOrder = keys }
}

// WithStrictTypeMatch toggles strict type lookup. When non-strict, a type
// with no exact registration may resolve to the nearest compatible
// registration (interface satisfaction, or a defined type sharing the
// registered kind).
func WithStrictTypeMatch(strict bool) Option {
	return func(b *builder) { b.strict = &strict }
}

// New builds a Typer from an ordered list of entries. The list order is the
// order of auto text matching, so a catch-all entry (like Str) must be last.
// Duplicate keys are rejected.
func New(types []TexType, opts ...Option) (*Typer, error) {
	b := &builder{}
	WithTypes(types...)(b)
	for _, opt := range opts {
		opt(b)
	}
	return b.build(nil)
}

// Derive builds a new Typer based on this one: entries may be added,
// replaced or reordered, null aliases replaced or extended, and strictness
// toggled. The receiver is never mutated.
func (tp *Typer) Derive(opts ...Option) (*Typer, error) {
	b := &builder{}
	for _, opt := range opts {
		opt(b)
	}
	return b.build(tp)
}

func (b *builder) build(parent *Typer) (*Typer, error) {
	t := &Typer{
		byKey:  make(map[string]int),
		byType: make(map[reflect.Type]string),
	}

	var base []TexType
	switch {
	case b.replace != nil:
		base = b.replace
	case parent != nil:
		base = parent.entries
	}
	for _, entry := range base {
		if err := t.put(entry, parent == nil); err != nil {
			return nil, err
		}
	}
	for _, entry := range b.entries {
		if err := t.put(entry, parent == nil); err != nil {
			return nil, err
		}
	}

	if b.reorder != nil {
		reordered := make([]TexType, 0, len(b.reorder))
		for _, key := range b.reorder {
			i, ok := t.byKey[key]
			if !ok {
				return nil, fmt.Errorf("reorder: %w: %q", ErrKeyNotFound, key)
			}
			reordered = append(reordered, t.entries[i])
		}
		t.entries = reordered
		t.byKey = make(map[string]int, len(reordered))
		for i, entry := range reordered {
			t.byKey[entry.Key] = i
		}
	}

	// The Go-type mapping follows an explicit match order when given,
	// otherwise the final entry order with last-registered key winning per
	// type.
	order := b.matchOrder
	if order == nil {
		for _, entry := range t.entries {
			if _, seen := t.byType[entry.Type]; !seen {
				t.typeOrder = append(t.typeOrder, entry.Type)
			}
			t.byType[entry.Type] = entry.Key
		}
	} else {
		for _, key := range order {
			i, ok := t.byKey[key]
			if !ok {
				return nil, fmt.Errorf("type match order: %w: %q", ErrKeyNotFound, key)
			}
			typ := t.entries[i].Type
			if _, seen := t.byType[typ]; !seen {
				t.typeOrder = append(t.typeOrder, typ)
			}
			t.byType[typ] = key
		}
	}

	switch {
	case b.nullAliases != nil:
		t.nullAliases = slices.Clone(b.nullAliases)
	case b.addAliases != nil && parent != nil:
		t.nullAliases = append(slices.Clone(parent.nullAliases), b.addAliases...)
	case parent != nil:
		t.nullAliases = slices.Clone(parent.nullAliases)
	default:
		t.nullAliases = slices.Clone(defaultNullAliases)
	}

	switch {
	case b.strict != nil:
		t.strict = *b.strict
	case parent != nil:
		t.strict = parent.strict
	default:
		t.strict = true
	}

	return t, nil
}

// put appends or replaces one entry. When fresh is true a duplicate key is an
// error rather than a replacement.
func (t *Typer) put(entry TexType, fresh bool) error {
	if i, ok := t.byKey[entry.Key]; ok {
		if fresh {
			return fmt.Errorf("duplicate typekey %q", entry.Key)
		}
		t.entries[i] = entry
		return nil
	}
	t.byKey[entry.Key] = len(t.entries)
	t.entries = append(t.entries, entry)
	return nil
}

// NullAliases returns the recognized null literals. The first is the default
// emitted on dump.
func (tp *Typer) NullAliases() []string { return slices.Clone(tp.nullAliases) }

// NullString returns the default null literal.
func (tp *Typer) NullString() string { return tp.nullAliases[0] }

// Types returns the registered entries in match order.
func (tp *Typer) Types() []TexType { return slices.Clone(tp.entries) }

func (tp *Typer) isNullAlias(s string) bool {
	return slices.Contains(tp.nullAliases, s)
}

// Load converts text into a typed value.
//
// key may be a bare typekey, a flag-prefixed typekey ("[null]int"), or Auto.
// Flags embedded in the key are merged with the explicit flags. With FlagNull
// set, a null alias loads as nil before any per-type decoding. In Auto mode
// the registered types are probed in registration order and the first match
// decodes the value. Quote flags strip matching outer quotes before the
// per-type load.
func (tp *Typer) Load(s string, key string, flags Flags) (any, error) {
	if key != Auto {
		keyFlags, bare, err := ParseKey(key)
		if err != nil {
			return nil, err
		}
		flags |= keyFlags
		key = bare
	}

	if flags.Has(FlagNull) && tp.isNullAlias(s) {
		return nil, nil
	}

	if key == Auto {
		var err error
		if key, err = tp.keyOfText(s); err != nil {
			return nil, err
		}
	}

	i, ok := tp.byKey[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrKeyNotFound, key)
	}
	return tp.entries[i].Load(flags.unquoteLoad(s))
}

// Dump converts a typed value into text.
//
// key may be a bare typekey, a flag-prefixed typekey, or Auto (the value's
// Go type selects the key). With FlagNull set, a nil value dumps as the
// default null literal. Quote flags wrap the dumped text.
func (tp *Typer) Dump(v any, key string, flags Flags) (string, error) {
	if key != Auto {
		keyFlags, bare, err := ParseKey(key)
		if err != nil {
			return "", err
		}
		flags |= keyFlags
		key = bare
	}

	if v == nil && flags.Has(FlagNull) {
		return tp.NullString(), nil
	}

	if key == Auto {
		var err error
		if key, err = tp.KeyOfType(reflect.TypeOf(v)); err != nil {
			return "", err
		}
	}

	i, ok := tp.byKey[key]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrKeyNotFound, key)
	}
	s, err := tp.entries[i].Dump(v)
	if err != nil {
		return "", err
	}
	return flags.quoteDump(s), nil
}

// KeyOfType returns the typekey registered for a Go type. Under non-strict
// matching, a type with no exact registration resolves to the first
// registration it satisfies: an interface it implements, or a defined type
// sharing the registered kind.
func (tp *Typer) KeyOfType(t reflect.Type) (string, error) {
	if t == nil {
		return "", fmt.Errorf("%w: <nil>", ErrTypeNotSupported)
	}
	if key, ok := tp.byType[t]; ok {
		return key, nil
	}
	if !tp.strict {
		for _, reg := range tp.typeOrder {
			if reg.Kind() == reflect.Interface {
				if t.Implements(reg) {
					return tp.byType[reg], nil
				}
				continue
			}
			if t.Kind() == reg.Kind() && t.ConvertibleTo(reg) {
				return tp.byType[reg], nil
			}
		}
	}
	return "", fmt.Errorf("%w: %s", ErrTypeNotSupported, t)
}

// TypeOfKey returns the Go type registered for a typekey. Flag prefixes are
// accepted and ignored.
func (tp *Typer) TypeOfKey(key string) (reflect.Type, error) {
	_, bare, err := ParseKey(key)
	if err != nil {
		return nil, err
	}
	i, ok := tp.byKey[bare]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrKeyNotFound, bare)
	}
	return tp.entries[i].Type, nil
}

// KeyOfText recognizes the typekey of arbitrary text by running the
// registered match probes in registration order. With FlagNull set, a null
// alias returns the empty key (the null sentinel has no typekey). Quote flags
// strip matching outer quotes before probing.
func (tp *Typer) KeyOfText(s string, flags Flags) (string, error) {
	if flags.Has(FlagNull) && tp.isNullAlias(s) {
		return "", nil
	}
	return tp.keyOfText(flags.unquoteLoad(s))
}

func (tp *Typer) keyOfText(s string) (string, error) {
	for _, entry := range tp.entries {
		if entry.Match(s) {
			return entry.Key, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnrecognizedText, s)
}
