package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/csvinject/pkg/inject"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "injection.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadInjectionConfig(t *testing.T) {
	path := writeConfig(t, `
id: people
options:
  atom_size: 250
sources:
  people_main:
    file:
      path: data/people.csv
      encoding: windows-1251
      skip_head: true
      csv:
        comma: ";"
    typing:
      types:
        - cols: ".*_id"
          key: int
        - cols: "salary"
          key: decimal
      extra_type: str
      null_alias: ["null", "N/A"]
    treatment:
      cols_drop: [internal]
      cols_extra: drop
      cols_format:
        - cols: "raw_(.*)"
          name: "$1"
      vals_format:
        - props: "salary"
          subs:
            - pattern: ","
              replace: "."
    properties:
      region_id: "77"
      source: people
  people_extra:
    file:
      path: data/extra.csv
`)

	cfg, err := LoadInjectionConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "people", cfg.ID)
	assert.Equal(t, 250, cfg.Options.AtomSize)

	// Declaration order of the sources mapping is preserved.
	require.Len(t, cfg.Sources, 2)
	assert.Equal(t, "people_main", cfg.Sources[0].ID)
	assert.Equal(t, "people_extra", cfg.Sources[1].ID)

	primary := cfg.Sources[0].Source
	assert.Equal(t, "data/people.csv", primary.File.Path)
	assert.Equal(t, "windows-1251", primary.File.Encoding)
	assert.True(t, primary.File.SkipHead)
	assert.Equal(t, ';', primary.File.CSV.Comma)

	// Type rules compile into an ordered regex mapper.
	key, ok := primary.Typing.Types.Match("user_id")
	assert.True(t, ok)
	assert.Equal(t, "int", key)
	key, ok = primary.Typing.Types.Match("salary")
	assert.True(t, ok)
	assert.Equal(t, "decimal", key)
	_, ok = primary.Typing.Types.Match("name")
	assert.False(t, ok)
	assert.Equal(t, "str", primary.Typing.ExtraType)

	// Custom null aliases derive a dedicated typer.
	require.NotNil(t, primary.Typing.Handler)
	v, err := primary.Typing.Handler.Load("N/A", "[null]int", 0)
	require.NoError(t, err)
	assert.Nil(t, v)

	// Treatment: drop set, extras mode, rename templates, value subs.
	_, dropped := primary.Treatment.ColsDrop["internal"]
	assert.True(t, dropped)
	assert.Equal(t, inject.ExtraDrop, primary.Treatment.ColsExtra)

	name, ok := primary.Treatment.ColsFormat.Match("raw_age")
	assert.True(t, ok)
	assert.Equal(t, "age", name)

	format, ok := primary.Treatment.ValsFormat.Match("salary")
	require.True(t, ok)
	assert.Equal(t, "12.5", format("12,5"))

	// Properties keep declaration order; scalars keep their YAML types.
	require.Len(t, primary.Properties, 2)
	assert.Equal(t, inject.Property{Name: "region_id", Value: "77"}, primary.Properties[0])
	assert.Equal(t, inject.Property{Name: "source", Value: "people"}, primary.Properties[1])

	// Defaults for the terse second source.
	extra := cfg.Sources[1].Source
	assert.Equal(t, inject.ExtraKeep, extra.Treatment.ColsExtra)
	assert.Nil(t, extra.Typing.Handler)
}

func TestLoadInjectionConfig_Validation(t *testing.T) {
	// Duplicate source ids are rejected by Config.Validate; YAML mappings
	// cannot express them, so a missing file path stands in here.
	path := writeConfig(t, `
id: broken
sources:
  s1:
    typing: {}
`)
	_, err := LoadInjectionConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty file path")
}

func TestLoadInjectionConfig_BadPattern(t *testing.T) {
	path := writeConfig(t, `
id: broken
sources:
  s1:
    file: {path: x.csv}
    typing:
      types:
        - cols: "("
          key: int
`)
	_, err := LoadInjectionConfig(path)
	require.Error(t, err)
}

func TestLoadInjectionConfig_BadComma(t *testing.T) {
	path := writeConfig(t, `
id: broken
sources:
  s1:
    file:
      path: x.csv
      csv: {comma: "ab"}
`)
	_, err := LoadInjectionConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "single character")
}

func TestLoadInjectionConfig_MissingFile(t *testing.T) {
	_, err := LoadInjectionConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
