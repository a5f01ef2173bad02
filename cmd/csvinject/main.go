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

// Package main implements the csvinject CLI for resumable bulk injection of
// delimited-text sources into a Postgres database.
//
// Usage:
//
//	csvinject init                      Create the progress repository table
//	csvinject inject -c FILE            Run (or resume) an injection
//	csvinject status [--json]           List injection statuses
//	csvinject prune                     Delete completed injection records
//	csvinject clear --yes               Delete all injection records
//	csvinject drop --yes                Drop the progress repository table
package main

import (
	"fmt"
	"log/slog"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/csvinject/internal/ui"
)

// Version information (set via ldflags during build)
var (
	version = "dev"     // Version string
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// GlobalFlags holds the global CLI flags that apply to all commands.
type GlobalFlags struct {
	JSON    bool // Output in JSON format (for applicable commands)
	NoColor bool // Disable color output
	Verbose int  // Verbosity level: 0=normal, 1=-v (info), 2=-vv (debug)
	Quiet   bool // Suppress non-essential output (progress, info messages)
}

// setupLogger installs the process logger: warnings only by default, info at
// -v, debug at -vv.
func setupLogger(globals GlobalFlags) {
	level := slog.LevelWarn
	switch {
	case globals.Verbose >= 2:
		level = slog.LevelDebug
	case globals.Verbose == 1:
		level = slog.LevelInfo
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

func main() {
	var (
		showVersion = flag.BoolP("version", "V", false, "Show version and exit")
		jsonOutput  = flag.Bool("json", false, "Output in JSON format (for applicable commands)")
		noColor     = flag.Bool("no-color", false, "Disable color output")
		verbose     = flag.CountP("verbose", "v", "Increase verbosity (-v for info, -vv for debug)")
		quiet       = flag.BoolP("quiet", "q", false, "Suppress non-essential output (progress, info messages)")
	)

	// Stop parsing at the first non-flag argument (the command name), so
	// subcommand-specific flags pass through to the subcommand handlers.
	flag.SetInterspersed(false)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `csvinject - resumable CSV injection into Postgres

csvinject streams delimited-text sources into a target database in
fixed-size atomic batches, recording durable progress so an interrupted
run resumes at the first un-applied batch.

Usage:
  csvinject <command> [options]

Commands:
  init          Create the progress repository table
  inject        Run (or resume) an injection from a config file
  status        List injection statuses
  prune         Delete records of completed injections
  clear         Delete all injection records (destructive!)
  drop          Drop the progress repository table (destructive!)

Global Options:
  --json            Output in JSON format (for applicable commands)
  --no-color        Disable color output (respects NO_COLOR env var)
  -v, --verbose     Increase verbosity (-v for info, -vv for debug)
  -q, --quiet       Suppress non-essential output (progress, info messages)
  -V, --version     Show version and exit

Examples:
  csvinject init --dbname mydb --user me
  csvinject inject -c people.yaml --dbname mydb --user me
  csvinject status --dbname mydb --user me --json
  csvinject prune --dbname mydb --user me

Getting Started:
  1. Create the progress table:  csvinject init
  2. Write an injection config:  see docs for the YAML shape
  3. Run it:                     csvinject inject -c config.yaml
  4. Interrupted? Run it again - committed batches are never re-applied.

For detailed command help: csvinject <command> --help

`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("csvinject version %s\n", version)
		fmt.Printf("commit: %s\n", commit)
		fmt.Printf("built: %s\n", date)
		os.Exit(0)
	}

	// Check NO_COLOR environment variable
	if os.Getenv("NO_COLOR") != "" {
		*noColor = true
	}

	if *quiet && *verbose > 0 {
		fmt.Fprintf(os.Stderr, "Error: cannot use --quiet and --verbose together\n")
		os.Exit(1)
	}

	// JSON mode auto-enables quiet to prevent progress bars corrupting JSON output
	if *jsonOutput {
		*quiet = true
	}

	globals := GlobalFlags{
		JSON:    *jsonOutput,
		NoColor: *noColor,
		Verbose: *verbose,
		Quiet:   *quiet,
	}

	ui.InitColors(globals.NoColor)
	setupLogger(globals)

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "init":
		runInit(cmdArgs, globals)
	case "inject":
		runInject(cmdArgs, globals)
	case "status":
		runStatus(cmdArgs, globals)
	case "prune":
		runMaintain(cmdArgs, globals, maintainPrune)
	case "clear":
		runMaintain(cmdArgs, globals, maintainClear)
	case "drop":
		runMaintain(cmdArgs, globals, maintainDrop)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}
