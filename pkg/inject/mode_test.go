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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	m, err := ParseMode("CACHE_DISABLE")
	require.NoError(t, err)
	assert.True(t, m.Has(ModeCacheDisable))
	assert.False(t, m.Has(ModeRepoNotInit))

	m, err = ParseMode("cache_disable, repo_not_init")
	require.NoError(t, err)
	assert.True(t, m.Has(ModeCacheDisable|ModeRepoNotInit))

	m, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, Mode(0), m)

	_, err = ParseMode("CACHE_DISABLE,WAT")
	assert.Error(t, err)
}

func TestMode_String(t *testing.T) {
	assert.Equal(t, "0", Mode(0).String())
	assert.Equal(t, "CACHE_DISABLE,REPO_NOT_INIT",
		(ModeCacheDisable | ModeRepoNotInit).String())
}
