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
	"fmt"
	"strings"
)

// Mode is the composable flag set configuring an injection run.
type Mode uint8

const (
	// ModeCacheDisable streams batches directly from the sources, bypassing
	// any local batch cache. Currently the only supported path.
	ModeCacheDisable Mode = 1 << iota

	// ModeCacheRewrite rebuilds the local cache even when a valid one
	// exists. Reserved for the cache subsystem.
	ModeCacheRewrite

	// ModeCacheBlocked forbids producing a cache while allowing use of an
	// existing one. Reserved for the cache subsystem.
	ModeCacheBlocked

	// ModeRepoNotInit skips progress-table initialization; the operator
	// asserts the table already exists.
	ModeRepoNotInit
)

var modeNames = map[string]Mode{
	"CACHE_DISABLE": ModeCacheDisable,
	"CACHE_REWRITE": ModeCacheRewrite,
	"CACHE_BLOCKED": ModeCacheBlocked,
	"REPO_NOT_INIT": ModeRepoNotInit,
}

// ParseMode resolves a comma-separated flag list ("CACHE_DISABLE,REPO_NOT_INIT").
func ParseMode(s string) (Mode, error) {
	var mode Mode
	for _, name := range strings.Split(s, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		flag, ok := modeNames[strings.ToUpper(name)]
		if !ok {
			return 0, fmt.Errorf("unknown mode flag %q", name)
		}
		mode |= flag
	}
	return mode, nil
}

// Has reports whether all bits of f are set.
func (m Mode) Has(f Mode) bool { return m&f == f }

// String renders the set flags in declaration order.
func (m Mode) String() string {
	var names []string
	for _, name := range []string{"CACHE_DISABLE", "CACHE_REWRITE", "CACHE_BLOCKED", "REPO_NOT_INIT"} {
		if m.Has(modeNames[name]) {
			names = append(names, name)
		}
	}
	if names == nil {
		return "0"
	}
	return strings.Join(names, ",")
}
