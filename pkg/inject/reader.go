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
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"

	"github.com/kraklabs/csvinject/pkg/textype"
)

// lineReader iterates raw lines of a stream. It is the fast path behind batch
// skipping: Skip advances whole lines without any CSV parsing or value
// materialization.
type lineReader struct {
	r *bufio.Reader
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{r: bufio.NewReader(r)}
}

// ReadLine returns the next line without its terminator, or io.EOF when the
// stream is drained. A final line without a newline is still returned.
func (lr *lineReader) ReadLine() (string, error) {
	line, err := lr.r.ReadString('\n')
	if err != nil {
		if err == io.EOF && line != "" {
			return strings.TrimSuffix(line, "\r"), nil
		}
		return "", err
	}
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r"), nil
}

// Skip advances up to n raw lines and returns how many were actually
// consumed (less than n only on exhaustion).
func (lr *lineReader) Skip(n int) (int, error) {
	for skipped := 0; skipped < n; skipped++ {
		if _, err := lr.ReadLine(); err != nil {
			if err == io.EOF {
				return skipped, nil
			}
			return skipped, err
		}
	}
	return n, nil
}

// colPlan is the projection of one raw column position: its projected
// attribute name, value formatter and typekey. Dropped positions have
// keep=false.
type colPlan struct {
	keep    bool
	name    string
	format  Formatter
	typekey string
}

// SourceReader turns one open delimited-text stream plus its Source spec into
// a lazy sequence of typed records. It never restarts; Skip(n) advances the
// raw stream n lines without parsing, which is what makes resumption cheap.
type SourceReader struct {
	src   Source
	typer *textype.Typer

	lines *lineReader
	opts  CSVOpts

	plans  []colPlan
	extras *Record

	// exhausted is set when the stream had no header and thus no records.
	exhausted bool
}

// NewSourceReader prepares a reader over r according to src: decodes the
// configured text encoding, discards the head line if asked, resolves column
// names (declared or from the header line), and precomputes the per-column
// projection and the per-source properties.
func NewSourceReader(r io.Reader, src Source) (*SourceReader, error) {
	decoded, err := decodeReader(r, src.File.Encoding)
	if err != nil {
		return nil, err
	}

	sr := &SourceReader{
		src:   src,
		typer: src.Typing.handler(),
		lines: newLineReader(decoded),
		opts:  src.File.CSV,
	}

	if src.File.SkipHead {
		if _, err := sr.lines.Skip(1); err != nil {
			return nil, fmt.Errorf("skip head: %w", err)
		}
	}

	headers := src.Treatment.ColsNames
	if headers == nil {
		headers, err = sr.readHeader()
		if err != nil {
			return nil, err
		}
		if headers == nil {
			sr.exhausted = true
			return sr, nil
		}
	}

	sr.buildPlans(headers)
	if err := sr.buildExtras(); err != nil {
		return nil, err
	}
	return sr, nil
}

// readHeader consumes the first parsable line as column names. A drained
// stream yields nil headers.
func (sr *SourceReader) readHeader() ([]string, error) {
	for {
		line, err := sr.lines.ReadLine()
		if err == io.EOF {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read header: %w", err)
		}
		fields, err := sr.parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("parse header: %w", err)
		}
		if fields != nil {
			return fields, nil
		}
	}
}

// buildPlans derives, in header order, the projected name, formatter and
// typekey of every retained column. A header in the drop set projects to
// nothing; an unrenamed header projects to itself only under ExtraKeep.
func (sr *SourceReader) buildPlans(headers []string) {
	treat := sr.src.Treatment
	sr.plans = make([]colPlan, len(headers))

	for i, col := range headers {
		if col == "" {
			continue
		}
		if _, dropped := treat.ColsDrop[col]; dropped {
			continue
		}

		name, renamed := "", false
		if treat.ColsFormat != nil {
			name, renamed = treat.ColsFormat.Match(col)
		}
		if !renamed {
			if treat.ColsExtra == ExtraDrop {
				continue
			}
			name = col
		}

		plan := colPlan{keep: true, name: name, format: identity, typekey: sr.src.Typing.ExtraType}
		if treat.ValsFormat != nil {
			if f, ok := treat.ValsFormat.Match(name); ok {
				plan.format = f
			}
		}
		if sr.src.Typing.Types != nil {
			if key, ok := sr.src.Typing.Types.Match(name); ok {
				plan.typekey = key
			}
		}
		sr.plans[i] = plan
	}
}

// buildExtras computes the per-source properties record once. String-typed
// values pass through the value formatters and the typer; anything else is
// taken as-is.
func (sr *SourceReader) buildExtras() error {
	sr.extras = NewRecord(len(sr.src.Properties))
	treat := sr.src.Treatment

	for _, prop := range sr.src.Properties {
		raw, isText := prop.Value.(string)
		if !isText {
			sr.extras.Set(prop.Name, prop.Value)
			continue
		}

		format := identity
		if treat.ValsFormat != nil {
			if f, ok := treat.ValsFormat.Match(prop.Name); ok {
				format = f
			}
		}
		typekey := sr.src.Typing.ExtraType
		if sr.src.Typing.Types != nil {
			if key, ok := sr.src.Typing.Types.Match(prop.Name); ok {
				typekey = key
			}
		}

		text := format(raw)
		if typekey == "" {
			sr.extras.Set(prop.Name, text)
			continue
		}
		v, err := sr.typer.Load(text, typekey, 0)
		if err != nil {
			return fmt.Errorf("property %q: %w", prop.Name, err)
		}
		sr.extras.Set(prop.Name, v)
	}
	return nil
}

// Next pulls one typed record: the per-source properties plus every retained
// column, formatted and decoded. io.EOF signals exhaustion. Blank and comment
// lines are passed over (they still count as raw lines for Skip).
func (sr *SourceReader) Next() (*Record, error) {
	if sr.exhausted {
		return nil, io.EOF
	}
	for {
		line, err := sr.lines.ReadLine()
		if err == io.EOF {
			return nil, io.EOF
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		fields, err := sr.parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("parse row: %w", err)
		}
		if fields == nil {
			continue
		}
		return sr.project(fields)
	}
}

// project applies the column plans to one raw row. Rows shorter than the
// header contribute only the columns they have.
func (sr *SourceReader) project(fields []string) (*Record, error) {
	rec := sr.extras.Clone()
	for i, plan := range sr.plans {
		if !plan.keep || i >= len(fields) {
			continue
		}
		text := plan.format(fields[i])
		if plan.typekey == "" {
			rec.Set(plan.name, text)
			continue
		}
		v, err := sr.typer.Load(text, plan.typekey, 0)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", plan.name, err)
		}
		rec.Set(plan.name, v)
	}
	return rec, nil
}

// Skip advances the raw stream n lines without parsing or projecting and
// returns how many lines were actually consumed.
func (sr *SourceReader) Skip(n int) (int, error) {
	if sr.exhausted {
		return 0, nil
	}
	return sr.lines.Skip(n)
}

// parseLine splits one raw line per the source's CSV options. Blank lines and
// comment lines yield nil fields.
func (sr *SourceReader) parseLine(line string) ([]string, error) {
	cr := csv.NewReader(strings.NewReader(line))
	cr.Comma = ','
	if sr.opts.Comma != 0 {
		cr.Comma = sr.opts.Comma
	}
	if sr.opts.Comment != 0 {
		cr.Comment = sr.opts.Comment
	}
	cr.LazyQuotes = sr.opts.LazyQuotes
	cr.TrimLeadingSpace = sr.opts.TrimLeadingSpace
	cr.FieldsPerRecord = -1

	fields, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return fields, nil
}

// decodeReader wraps r with a decoder for the named IANA encoding. An empty
// name, or any spelling of UTF-8, passes r through untouched.
func decodeReader(r io.Reader, name string) (io.Reader, error) {
	switch strings.ToLower(name) {
	case "", "utf-8", "utf8":
		return r, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		return nil, fmt.Errorf("unknown source encoding %q", name)
	}
	return transform.NewReader(r, enc.NewDecoder()), nil
}
