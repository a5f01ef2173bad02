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
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/csvinject/internal/errors"
	"github.com/kraklabs/csvinject/internal/ui"
	"github.com/kraklabs/csvinject/pkg/dbconn"
	"github.com/kraklabs/csvinject/pkg/repo"
)

// StatusResult represents one injection's status for JSON output.
type StatusResult struct {
	ID        string `json:"id"`
	Injected  int    `json:"injected"`
	Completed bool   `json:"completed"`
}

// runStatus executes the 'status' CLI command, listing every injection
// recorded in the progress repository.
func runStatus(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	jsonOut := fs.Bool("json", globals.JSON, "Output in JSON format")
	db := addDBFlags(fs)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: csvinject status [options]

Description:
  List every injection recorded in the progress repository with its
  injected batch count and completion state.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  csvinject status
  csvinject status --json | jq '.[] | select(.completed | not)'

`)
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	globals.JSON = *jsonOut

	manager, err := db.manager(slog.Default())
	if err != nil {
		errors.FatalError(errors.NewConfigError("Invalid database parameters", "", "Check --dsn or the individual connection flags", err), globals.JSON)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	defer func() { _ = manager.Close(context.Background()) }()

	repository := db.repository()
	out, err := manager.Execute(ctx,
		func(ctx context.Context, conn dbconn.Conn) (any, error) {
			return repository.Items(ctx, conn)
		},
	)
	if err != nil {
		errors.FatalError(errors.NewDatabaseError(
			"Cannot read progress repository",
			"The progress table may not exist yet",
			"Run 'csvinject init' first",
			err,
		), globals.JSON)
	}
	items := out.([]repo.Item)

	if globals.JSON {
		results := make([]StatusResult, 0, len(items))
		for _, it := range items {
			results = append(results, StatusResult{
				ID:        it.ID,
				Injected:  it.Status.Injected,
				Completed: it.Status.Completed,
			})
		}
		_ = json.NewEncoder(os.Stdout).Encode(results)
		return
	}

	ui.Header(fmt.Sprintf("Injections in %q", repository.Table()))
	if len(items) == 0 {
		ui.Info("  (none)")
		return
	}
	for _, it := range items {
		state := "in progress"
		if it.Status.Completed {
			state = "completed"
		}
		ui.Label(it.ID, fmt.Sprintf("%s batches injected, %s",
			ui.CountText(it.Status.Injected), state))
	}
}
