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
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/csvinject/internal/errors"
	"github.com/kraklabs/csvinject/internal/ui"
	"github.com/kraklabs/csvinject/pkg/dbconn"
	"github.com/kraklabs/csvinject/pkg/repo"
)

// maintainAction is one of the repository maintenance subcommands.
type maintainAction struct {
	name        string
	description string
	destructive bool
	run         func(ctx context.Context, r repo.Repository, conn dbconn.Conn) error
	done        string
}

var (
	maintainPrune = maintainAction{
		name:        "prune",
		description: "Delete the records of completed injections from the progress repository.",
		run: func(ctx context.Context, r repo.Repository, conn dbconn.Conn) error {
			return r.Prune(ctx, conn)
		},
		done: "Completed injection records pruned from %q.",
	}

	maintainClear = maintainAction{
		name:        "clear",
		description: "Delete ALL injection records from the progress repository.",
		destructive: true,
		run: func(ctx context.Context, r repo.Repository, conn dbconn.Conn) error {
			return r.Clear(ctx, conn)
		},
		done: "All injection records cleared from %q.",
	}

	maintainDrop = maintainAction{
		name:        "drop",
		description: "Drop the progress repository table.",
		destructive: true,
		run: func(ctx context.Context, r repo.Repository, conn dbconn.Conn) error {
			return r.Drop(ctx, conn)
		},
		done: "Progress repository %q dropped.",
	}
)

// runMaintain executes one of the repository maintenance commands. The
// destructive ones require --yes or an interactive confirmation.
func runMaintain(args []string, globals GlobalFlags, action maintainAction) {
	fs := flag.NewFlagSet(action.name, flag.ExitOnError)
	yes := fs.BoolP("yes", "y", false, "Skip the confirmation prompt")
	db := addDBFlags(fs)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: csvinject %s [options]

Description:
  %s

Options:
`, action.name, action.description)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	repository := db.repository()

	if action.destructive && !*yes {
		if !confirm(fmt.Sprintf("This will irreversibly modify %q. Continue?", repository.Table())) {
			ui.Info("Aborted.")
			return
		}
	}

	manager, err := db.manager(slog.Default())
	if err != nil {
		errors.FatalError(errors.NewConfigError("Invalid database parameters", "", "Check --dsn or the individual connection flags", err), globals.JSON)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	defer func() { _ = manager.Close(context.Background()) }()

	_, err = manager.Execute(ctx, dbconn.CommitAfter(
		func(ctx context.Context, conn dbconn.Conn) (any, error) {
			return nil, action.run(ctx, repository, conn)
		},
	))
	if err != nil {
		errors.FatalError(errors.NewDatabaseError(
			fmt.Sprintf("Cannot %s progress repository", action.name),
			"",
			"Check connectivity and privileges on the progress table",
			err,
		), globals.JSON)
	}

	if !globals.Quiet {
		ui.Successf(action.done, repository.Table())
	}
}

// confirm asks a yes/no question on the terminal.
func confirm(question string) bool {
	fmt.Fprintf(os.Stderr, "%s [y/N] ", question)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
