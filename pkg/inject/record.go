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

import "slices"

// Record is one typed row: attribute name → typed value, with keys kept in
// the order they were assigned (properties first, then retained columns in
// header order).
type Record struct {
	keys []string
	vals map[string]any
}

// NewRecord returns an empty record with capacity for n attributes.
func NewRecord(n int) *Record {
	return &Record{
		keys: make([]string, 0, n),
		vals: make(map[string]any, n),
	}
}

// Set assigns an attribute. A new key is appended to the key order; an
// existing key keeps its position.
func (r *Record) Set(key string, v any) {
	if _, ok := r.vals[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.vals[key] = v
}

// Get returns an attribute value and whether it is present.
func (r *Record) Get(key string) (any, bool) {
	v, ok := r.vals[key]
	return v, ok
}

// Keys returns the attribute names in assignment order.
func (r *Record) Keys() []string { return slices.Clone(r.keys) }

// Len returns the number of attributes.
func (r *Record) Len() int { return len(r.keys) }

// Clone returns an independent copy of the record.
func (r *Record) Clone() *Record {
	c := &Record{
		keys: slices.Clone(r.keys),
		vals: make(map[string]any, len(r.vals)),
	}
	for k, v := range r.vals {
		c.vals[k] = v
	}
	return c
}

// Batch is the unit of transaction and of progress: up to AtomSize
// consecutive records pulled from one source.
type Batch struct {
	Records  []*Record
	SourceID string
}
