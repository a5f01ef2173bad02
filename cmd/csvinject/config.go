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

package main

import (
	"fmt"
	"os"
	"regexp"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/kraklabs/csvinject/pkg/inject"
	"github.com/kraklabs/csvinject/pkg/textype"
)

// injectionFile is the YAML shape of one declarative injection.
//
// Sources and properties are YAML mappings whose declaration order is
// significant, so they are decoded through yaml.Node instead of plain maps.
type injectionFile struct {
	ID      string      `yaml:"id"`
	Options optionsSpec `yaml:"options"`
	Sources yaml.Node   `yaml:"sources"`
}

type optionsSpec struct {
	AtomSize int `yaml:"atom_size"`
}

type sourceSpec struct {
	File       fileSpec      `yaml:"file"`
	Typing     typingSpec    `yaml:"typing"`
	Treatment  treatmentSpec `yaml:"treatment"`
	Properties yaml.Node     `yaml:"properties"`
}

type fileSpec struct {
	Path     string  `yaml:"path"`
	Encoding string  `yaml:"encoding"`
	SkipHead bool    `yaml:"skip_head"`
	CSV      csvSpec `yaml:"csv"`
}

type csvSpec struct {
	Comma            string `yaml:"comma"`
	Comment          string `yaml:"comment"`
	LazyQuotes       bool   `yaml:"lazy_quotes"`
	TrimLeadingSpace bool   `yaml:"trim_leading_space"`
}

type typingSpec struct {
	Types     []typeRule `yaml:"types"`
	ExtraType string     `yaml:"extra_type"`
	NullAlias []string   `yaml:"null_alias"`
}

// typeRule maps columns matching a pattern onto a typekey.
type typeRule struct {
	Cols string `yaml:"cols"`
	Key  string `yaml:"key"`
}

type treatmentSpec struct {
	ColsNames  []string     `yaml:"cols_names"`
	ColsDrop   []string     `yaml:"cols_drop"`
	ColsExtra  string       `yaml:"cols_extra"`
	ColsFormat []renameRule `yaml:"cols_format"`
	ValsFormat []valsRule   `yaml:"vals_format"`
}

// renameRule projects columns matching a pattern onto a replacement template
// (capture groups allowed).
type renameRule struct {
	Cols string `yaml:"cols"`
	Name string `yaml:"name"`
}

// valsRule attaches regex substitutions to attributes (projected columns and
// properties) whose name matches a pattern.
type valsRule struct {
	Props string    `yaml:"props"`
	Subs  []subRule `yaml:"subs"`
}

type subRule struct {
	Pattern string `yaml:"pattern"`
	Replace string `yaml:"replace"`
}

// LoadInjectionConfig reads and compiles a declarative injection config.
func LoadInjectionConfig(path string) (*inject.Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read injection config: %w", err)
	}

	var file injectionFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse injection config %s: %w", path, err)
	}

	cfg := &inject.Config{
		ID:      file.ID,
		Options: inject.Options{AtomSize: file.Options.AtomSize},
	}

	pairs, err := mappingPairs(&file.Sources)
	if err != nil {
		return nil, fmt.Errorf("injection config %s: sources: %w", path, err)
	}
	for _, pair := range pairs {
		var spec sourceSpec
		if err := pair.value.Decode(&spec); err != nil {
			return nil, fmt.Errorf("source %q: %w", pair.key, err)
		}
		src, err := compileSource(spec)
		if err != nil {
			return nil, fmt.Errorf("source %q: %w", pair.key, err)
		}
		cfg.Sources = append(cfg.Sources, inject.SourceEntry{ID: pair.key, Source: src})
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// compileSource turns the YAML source spec into its runtime form: compiled
// regex mappers, a derived typer, and parsed CSV options.
func compileSource(spec sourceSpec) (inject.Source, error) {
	var src inject.Source

	comma, err := oneRune(spec.File.CSV.Comma, "csv.comma")
	if err != nil {
		return src, err
	}
	comment, err := oneRune(spec.File.CSV.Comment, "csv.comment")
	if err != nil {
		return src, err
	}
	src.File = inject.SourceFile{
		Path:     spec.File.Path,
		Encoding: spec.File.Encoding,
		SkipHead: spec.File.SkipHead,
		CSV: inject.CSVOpts{
			Comma:            comma,
			Comment:          comment,
			LazyQuotes:       spec.File.CSV.LazyQuotes,
			TrimLeadingSpace: spec.File.CSV.TrimLeadingSpace,
		},
	}

	src.Typing, err = compileTyping(spec.Typing)
	if err != nil {
		return src, err
	}
	src.Treatment, err = compileTreatment(spec.Treatment)
	if err != nil {
		return src, err
	}

	pairs, err := mappingPairs(&spec.Properties)
	if err != nil {
		return src, fmt.Errorf("properties: %w", err)
	}
	for _, pair := range pairs {
		var value any
		if err := pair.value.Decode(&value); err != nil {
			return src, fmt.Errorf("property %q: %w", pair.key, err)
		}
		src.Properties = append(src.Properties, inject.Property{Name: pair.key, Value: value})
	}

	return src, nil
}

func compileTyping(spec typingSpec) (inject.SourceTyping, error) {
	typing := inject.SourceTyping{ExtraType: spec.ExtraType}

	if len(spec.Types) > 0 {
		var rules inject.RegexpMapper[string]
		for _, rule := range spec.Types {
			re, err := regexp.Compile(rule.Cols)
			if err != nil {
				return typing, fmt.Errorf("types pattern %q: %w", rule.Cols, err)
			}
			rules = append(rules, inject.RegexpRule[string]{Pattern: re, Value: rule.Key})
		}
		typing.Types = rules
	}

	if len(spec.NullAlias) > 0 {
		handler, err := textype.DefaultCSVTyper.Derive(textype.WithNullAliases(spec.NullAlias...))
		if err != nil {
			return typing, err
		}
		typing.Handler = handler
	}
	return typing, nil
}

func compileTreatment(spec treatmentSpec) (inject.SourceTreatment, error) {
	treat := inject.SourceTreatment{ColsNames: spec.ColsNames}

	switch spec.ColsExtra {
	case "":
		treat.ColsExtra = inject.ExtraKeep
	case string(inject.ExtraKeep), string(inject.ExtraDrop):
		treat.ColsExtra = inject.ExtraMode(spec.ColsExtra)
	default:
		return treat, fmt.Errorf("cols_extra must be %q or %q, got %q",
			inject.ExtraKeep, inject.ExtraDrop, spec.ColsExtra)
	}

	if len(spec.ColsDrop) > 0 {
		treat.ColsDrop = make(map[string]struct{}, len(spec.ColsDrop))
		for _, col := range spec.ColsDrop {
			treat.ColsDrop[col] = struct{}{}
		}
	}

	if len(spec.ColsFormat) > 0 {
		var rename inject.RenameMapper
		for _, rule := range spec.ColsFormat {
			re, err := regexp.Compile(rule.Cols)
			if err != nil {
				return treat, fmt.Errorf("cols_format pattern %q: %w", rule.Cols, err)
			}
			rename.Rules = append(rename.Rules, inject.RegexpRule[string]{Pattern: re, Value: rule.Name})
		}
		treat.ColsFormat = rename
	}

	if len(spec.ValsFormat) > 0 {
		var rules inject.RegexpMapper[inject.Formatter]
		for _, rule := range spec.ValsFormat {
			re, err := regexp.Compile(rule.Props)
			if err != nil {
				return treat, fmt.Errorf("vals_format pattern %q: %w", rule.Props, err)
			}
			subs := make([]inject.SubRule, 0, len(rule.Subs))
			for _, sub := range rule.Subs {
				subRe, err := regexp.Compile(sub.Pattern)
				if err != nil {
					return treat, fmt.Errorf("vals_format sub pattern %q: %w", sub.Pattern, err)
				}
				subs = append(subs, inject.SubRule{Pattern: subRe, Replace: sub.Replace})
			}
			rules = append(rules, inject.RegexpRule[inject.Formatter]{
				Pattern: re,
				Value:   inject.SubFormatter(subs),
			})
		}
		treat.ValsFormat = rules
	}

	return treat, nil
}

// mappingPair is one key/value of an order-preserving YAML mapping.
type mappingPair struct {
	key   string
	value *yaml.Node
}

// mappingPairs flattens a YAML mapping node into ordered pairs. A zero or
// null node yields no pairs.
func mappingPairs(node *yaml.Node) ([]mappingPair, error) {
	if node == nil || node.Kind == 0 || node.Tag == "!!null" {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("expected a mapping, got %s", node.Tag)
	}
	pairs := make([]mappingPair, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		pairs = append(pairs, mappingPair{
			key:   node.Content[i].Value,
			value: node.Content[i+1],
		})
	}
	return pairs, nil
}

// oneRune parses a single-rune option like the CSV delimiter. Empty means
// unset.
func oneRune(s, field string) (rune, error) {
	if s == "" {
		return 0, nil
	}
	r, size := utf8.DecodeRuneInString(s)
	if size != len(s) {
		return 0, fmt.Errorf("%s must be a single character, got %q", field, s)
	}
	return r, nil
}
