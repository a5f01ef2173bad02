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

// Package inject implements resumable bulk injection of delimited-text
// sources into a relational database: source readers with cheap raw-line
// skipping, the batch splitter, and the orchestrator that commits every batch
// atomically together with its progress increment.
package inject

import (
	"fmt"

	"github.com/kraklabs/csvinject/pkg/textype"
)

// DefaultAtomSize is the batch size used when Options does not set one.
const DefaultAtomSize = 1000

// maxIDLen mirrors the progress table's id column width.
const maxIDLen = 100

// Config is one declarative injection: a unique id, the ordered list of
// sources, and the injection-global options. It is immutable for the lifetime
// of a run.
type Config struct {
	// ID names the injection, unique per target database. 1–100 chars.
	ID string

	// Sources are streamed strictly in declaration order.
	Sources []SourceEntry

	// Options holds injection-global knobs.
	Options Options
}

// SourceEntry binds a source id (valid within this injection) to its spec.
type SourceEntry struct {
	ID     string
	Source Source
}

// Options are injection-global settings.
type Options struct {
	// AtomSize is the number of records per batch, the unit of transaction
	// and of resumption. Zero means DefaultAtomSize.
	AtomSize int
}

// atom returns the effective batch size.
func (o Options) atom() int {
	if o.AtomSize == 0 {
		return DefaultAtomSize
	}
	return o.AtomSize
}

// Source describes one delimited-text input.
type Source struct {
	File      SourceFile
	Typing    SourceTyping
	Treatment SourceTreatment

	// Properties are prepended to every record emitted from this source, in
	// order. String values pass through the value formatters and the typer;
	// anything else passes through unchanged.
	Properties []Property
}

// Property is one constant attribute attached to every record of a source.
type Property struct {
	Name  string
	Value any
}

// SourceFile locates and parameterizes the raw stream.
type SourceFile struct {
	// Path to the delimited-text file.
	Path string

	// Encoding is the IANA name of the text encoding. Empty means UTF-8.
	Encoding string

	// CSV holds the parser options passed through to the reader.
	CSV CSVOpts

	// SkipHead discards the first raw line before anything else.
	SkipHead bool
}

// CSVOpts are the per-source delimited-text parser options.
type CSVOpts struct {
	// Comma is the field delimiter. Zero means ','.
	Comma rune

	// Comment, when set, makes lines starting with it skipped by the parser.
	Comment rune

	// LazyQuotes allows bare quotes inside unquoted fields.
	LazyQuotes bool

	// TrimLeadingSpace drops whitespace directly after the delimiter.
	TrimLeadingSpace bool
}

// SourceTyping maps columns onto typekeys.
type SourceTyping struct {
	// Types resolves a projected column name to its typekey.
	Types Mapper[string]

	// ExtraType is the typekey for columns Types does not match. Empty means
	// no conversion: unmatched columns are stored as raw text.
	ExtraType string

	// Handler is the typer used for all conversions. Nil means
	// textype.DefaultCSVTyper.
	Handler *textype.Typer
}

// handler returns the effective typer.
func (t SourceTyping) handler() *textype.Typer {
	if t.Handler != nil {
		return t.Handler
	}
	return textype.DefaultCSVTyper
}

// ExtraMode selects what happens to columns the rename map does not cover.
type ExtraMode string

const (
	// ExtraKeep projects unmatched columns under their own names.
	ExtraKeep ExtraMode = "keep"

	// ExtraDrop discards unmatched columns.
	ExtraDrop ExtraMode = "drop"
)

// SourceTreatment shapes the raw columns into record attributes.
type SourceTreatment struct {
	// ColsNames declares the column names explicitly. When set, the first
	// data line is data, not a header (pair with SkipHead to discard a file
	// header). Nil means the first line is consumed as the header.
	ColsNames []string

	// ColsDrop lists columns excluded from the output.
	ColsDrop map[string]struct{}

	// ColsExtra decides the fate of columns ColsFormat does not rename.
	// Empty means ExtraKeep.
	ColsExtra ExtraMode

	// ColsFormat renames columns to their projected attribute names.
	ColsFormat Mapper[string]

	// ValsFormat resolves a projected name to its value formatter.
	ValsFormat Mapper[Formatter]
}

// Validate checks the configuration invariants that must hold before any
// transaction opens.
func (c *Config) Validate() error {
	if c.ID == "" || len(c.ID) > maxIDLen {
		return fmt.Errorf("injection id must be 1–%d chars, got %d", maxIDLen, len(c.ID))
	}
	if c.Options.AtomSize < 0 {
		return fmt.Errorf("atom size must be positive, got %d", c.Options.AtomSize)
	}
	if len(c.Sources) == 0 {
		return fmt.Errorf("injection %q: no sources", c.ID)
	}
	seen := make(map[string]struct{}, len(c.Sources))
	for _, entry := range c.Sources {
		if entry.ID == "" {
			return fmt.Errorf("injection %q: source with empty id", c.ID)
		}
		if _, dup := seen[entry.ID]; dup {
			return fmt.Errorf("injection %q: duplicate source id %q", c.ID, entry.ID)
		}
		seen[entry.ID] = struct{}{}
		if entry.Source.File.Path == "" {
			return fmt.Errorf("injection %q: source %q: empty file path", c.ID, entry.ID)
		}
	}
	return nil
}
