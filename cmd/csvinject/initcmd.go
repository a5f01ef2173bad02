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
	"fmt"
	"log/slog"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/csvinject/internal/errors"
	"github.com/kraklabs/csvinject/internal/ui"
	"github.com/kraklabs/csvinject/pkg/dbconn"
)

// runInit executes the 'init' CLI command, creating the progress repository
// table on the target database. The operation is idempotent.
func runInit(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	db := addDBFlags(fs)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: csvinject init [options]

Description:
  Create the progress repository table on the target database if it
  does not exist. Safe to run repeatedly.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	manager, err := db.manager(slog.Default())
	if err != nil {
		errors.FatalError(errors.NewConfigError("Invalid database parameters", "", "Check --dsn or the individual connection flags", err), globals.JSON)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	defer func() { _ = manager.Close(context.Background()) }()

	repository := db.repository()
	_, err = manager.Execute(ctx, dbconn.CommitAfter(
		func(ctx context.Context, conn dbconn.Conn) (any, error) {
			return nil, repository.Init(ctx, conn)
		},
	))
	if err != nil {
		errors.FatalError(errors.NewDatabaseError(
			"Cannot initialize progress repository",
			"The target database refused the CREATE TABLE",
			"Check connectivity and table-creation privileges",
			err,
		), globals.JSON)
	}

	if !globals.Quiet {
		ui.Successf("Progress repository %q is ready.", repository.Table())
	}
}
