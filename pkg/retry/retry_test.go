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

package retry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_Bounded(t *testing.T) {
	m := NewManager(Opts{Attempts: 3})
	m.AllowSleeps(false)
	ctx := context.Background()

	assert.True(t, m.HasNext())

	more, err := m.Attempt(ctx)
	require.NoError(t, err)
	assert.True(t, more)
	assert.Equal(t, 1, m.Counter())

	_, err = m.Attempt(ctx)
	require.NoError(t, err)

	more, err = m.Attempt(ctx)
	require.NoError(t, err)
	assert.False(t, more, "third attempt hits the cap")
	assert.False(t, m.HasNext())
}

func TestManager_Unbounded(t *testing.T) {
	m := NewManager(Opts{})
	m.AllowSleeps(false)
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		more, err := m.Attempt(ctx)
		require.NoError(t, err)
		assert.True(t, more)
	}
	assert.True(t, m.HasNext())
	assert.Equal(t, 100, m.Counter())
}

func TestManager_SleepSuppressed(t *testing.T) {
	m := NewManager(Opts{Interval: time.Hour})
	m.AllowSleeps(false)

	start := time.Now()
	_, err := m.Attempt(context.Background())
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestManager_CanceledDuringWait(t *testing.T) {
	m := NewManager(Opts{Interval: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Attempt(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
