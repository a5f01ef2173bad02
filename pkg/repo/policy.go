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

package repo

import (
	"fmt"
	"slices"
)

// Policy selects what a repository operation does when it hits a missing row
// or an id conflict. Each operation documents which policies it recognizes.
type Policy string

const (
	// PolicyDefault returns the caller-supplied default value.
	PolicyDefault Policy = "default"

	// PolicyInsert inserts the default/new row and proceeds.
	PolicyInsert Policy = "insert"

	// PolicyUpdate overwrites the conflicting row.
	PolicyUpdate Policy = "update"

	// PolicyIgnore does nothing and reports false.
	PolicyIgnore Policy = "ignore"

	// PolicyExcept fails with ErrNotFound or ErrExists.
	PolicyExcept Policy = "except"
)

func (p Policy) validate(allowed ...Policy) error {
	if slices.Contains(allowed, p) {
		return nil
	}
	return fmt.Errorf("unsupported policy %q (recognized: %v)", p, allowed)
}
