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
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeSource drops a one-column CSV with n data rows into dir and returns a
// SourceEntry for it.
func writeSource(t *testing.T, dir, id string, n int) SourceEntry {
	t.Helper()
	data := "n\n"
	for i := 1; i <= n; i++ {
		data += fmt.Sprintf("%d\n", i)
	}
	path := filepath.Join(dir, id+".csv")
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return SourceEntry{
		ID: id,
		Source: Source{
			File:   SourceFile{Path: path},
			Typing: SourceTyping{ExtraType: "int"},
		},
	}
}

func twoSourceConfig(t *testing.T, atom int) Config {
	dir := t.TempDir()
	return Config{
		ID:      "test",
		Sources: []SourceEntry{writeSource(t, dir, "s1", 5), writeSource(t, dir, "s2", 3)},
		Options: Options{AtomSize: atom},
	}
}

// batchShape is (size, source) for ordering assertions.
type batchShape struct {
	size   int
	source string
}

func drainSplitter(t *testing.T, s *Splitter) []batchShape {
	t.Helper()
	shapes := []batchShape{}
	for {
		batch, err := s.Next()
		if err == io.EOF {
			return shapes
		}
		require.NoError(t, err)
		shapes = append(shapes, batchShape{len(batch.Records), batch.SourceID})
	}
}

func TestSplitter_Ordering(t *testing.T) {
	// 5 + 3 records with atom 2: (2,s1) (2,s1) (1,s1) (2,s2) (1,s2).
	s := NewSplitter(twoSourceConfig(t, 2))
	defer s.Close()

	assert.Equal(t, []batchShape{
		{2, "s1"}, {2, "s1"}, {1, "s1"}, {2, "s2"}, {1, "s2"},
	}, drainSplitter(t, s))
}

func TestSplitter_ExactMultiple(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		ID:      "test",
		Sources: []SourceEntry{writeSource(t, dir, "s1", 4)},
		Options: Options{AtomSize: 2},
	}
	s := NewSplitter(cfg)
	defer s.Close()

	assert.Equal(t, []batchShape{{2, "s1"}, {2, "s1"}}, drainSplitter(t, s))
}

func TestSplitter_EmptySourceAdvancesQueue(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		ID: "test",
		Sources: []SourceEntry{
			writeSource(t, dir, "empty", 0),
			writeSource(t, dir, "s2", 2),
		},
		Options: Options{AtomSize: 2},
	}
	s := NewSplitter(cfg)
	defer s.Close()

	assert.Equal(t, []batchShape{{2, "s2"}}, drainSplitter(t, s))
}

func TestSplitter_Skip(t *testing.T) {
	// Resume-after-crash shape: skip(3) consumes 2+2+1 rows of s1 and the
	// first emitted batch is (2, s2).
	s := NewSplitter(twoSourceConfig(t, 2))
	defer s.Close()

	n, err := s.Skip(3)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	assert.Equal(t, []batchShape{{2, "s2"}, {1, "s2"}}, drainSplitter(t, s))
}

func TestSplitter_SkipWithinSource(t *testing.T) {
	s := NewSplitter(twoSourceConfig(t, 2))
	defer s.Close()

	n, err := s.Skip(1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Equal(t, []batchShape{
		{2, "s1"}, {1, "s1"}, {2, "s2"}, {1, "s2"},
	}, drainSplitter(t, s))
}

func TestSplitter_SkipPastEnd(t *testing.T) {
	s := NewSplitter(twoSourceConfig(t, 2))
	defer s.Close()

	n, err := s.Skip(99)
	require.NoError(t, err)
	assert.Equal(t, 5, n, "total batches")

	_, err = s.Next()
	assert.Equal(t, io.EOF, err)

	n, err = s.Skip(1)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSplitter_SkipEquivalence(t *testing.T) {
	for k := 0; k <= 5; k++ {
		full := NewSplitter(twoSourceConfig(t, 2))
		all := drainSplitter(t, full)
		_ = full.Close()

		skipped := NewSplitter(twoSourceConfig(t, 2))
		n, err := skipped.Skip(k)
		require.NoError(t, err)
		require.Equal(t, k, n)
		tail := drainSplitter(t, skipped)
		_ = skipped.Close()

		assert.Equal(t, all[k:], tail, "skip(%d)", k)
	}
}

func TestSplitter_MissingFile(t *testing.T) {
	cfg := Config{
		ID: "test",
		Sources: []SourceEntry{{
			ID:     "gone",
			Source: Source{File: SourceFile{Path: "/nonexistent/file.csv"}},
		}},
		Options: Options{AtomSize: 2},
	}
	s := NewSplitter(cfg)
	defer s.Close()

	_, err := s.Next()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `source "gone"`)
}

func TestSplitter_CloseIdempotent(t *testing.T) {
	s := NewSplitter(twoSourceConfig(t, 2))
	_, err := s.Next()
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
}

func TestSplitter_DefaultAtomSize(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		ID:      "test",
		Sources: []SourceEntry{writeSource(t, dir, "s1", 3)},
	}
	s := NewSplitter(cfg)
	defer s.Close()

	batch, err := s.Next()
	require.NoError(t, err)
	assert.Len(t, batch.Records, 3, "all records fit one default-size batch")
}
