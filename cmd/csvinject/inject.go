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
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/schollz/progressbar/v3"
	flag "github.com/spf13/pflag"

	"github.com/kraklabs/csvinject/internal/errors"
	"github.com/kraklabs/csvinject/internal/ui"
	"github.com/kraklabs/csvinject/pkg/dbconn"
	"github.com/kraklabs/csvinject/pkg/inject"
	"github.com/kraklabs/csvinject/pkg/repo"
)

// runInject executes the 'inject' CLI command: load the declarative config,
// connect to the target database, and run (or resume) the injection.
//
// Flags:
//   - -c, --config: Path to the injection YAML (required)
//   - --mode: Injection mode flags, comma-separated (default CACHE_DISABLE)
//   - --target-table: Insert every batch into this table instead of the
//     table named after each batch's source id
//   - --metrics-addr: HTTP address for Prometheus metrics (default: disabled)
//   - shared database and retry flags (see dbflags.go)
func runInject(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("inject", flag.ExitOnError)

	configPath := fs.StringP("config", "c", "", "Path to the injection YAML config (required)")
	modeFlag := fs.String("mode", "CACHE_DISABLE", "Injection mode flags, comma-separated")
	targetTable := fs.String("target-table", "", "Target table for all batches (default: one table per source id)")
	metricsAddr := fs.String("metrics-addr", "", "HTTP address to expose Prometheus metrics (e.g. :9090)")
	db := addDBFlags(fs)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: csvinject inject -c FILE [options]

Description:
  Stream the configured sources into the target database in atomic
  batches. Progress is recorded per batch inside the same transaction
  as the batch's DML, so re-running after an interruption resumes at
  the first un-applied batch without re-injecting committed rows.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # Run an injection
  csvinject inject -c people.yaml --dbname mydb --user me

  # Resume it after a crash - same invocation
  csvinject inject -c people.yaml --dbname mydb --user me

  # Progress table already exists, skip initialization
  csvinject inject -c people.yaml --mode CACHE_DISABLE,REPO_NOT_INIT

`)
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if *configPath == "" {
		errors.FatalError(errors.NewInputError(
			"No injection config given",
			"The inject command needs the declarative YAML config describing the sources",
			"Pass it with -c FILE",
			nil,
		), globals.JSON)
	}

	cfg, err := LoadInjectionConfig(*configPath)
	if err != nil {
		errors.FatalError(errors.NewConfigError(
			"Cannot load injection config",
			"The config file is missing, unreadable, or malformed",
			"Check the path and the YAML structure",
			err,
		), globals.JSON)
	}

	mode, err := inject.ParseMode(*modeFlag)
	if err != nil {
		errors.FatalError(errors.NewInputError("Invalid --mode value", "", "Recognized flags: CACHE_DISABLE, CACHE_REWRITE, CACHE_BLOCKED, REPO_NOT_INIT", err), globals.JSON)
	}

	logger := slog.Default()
	manager, err := db.manager(logger)
	if err != nil {
		errors.FatalError(errors.NewConfigError("Invalid database parameters", "", "Check --dsn or the individual connection flags", err), globals.JSON)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = manager.Close(ctx)
	}()

	var opts []inject.OperatorOption
	opts = append(opts, inject.WithLogger(logger))

	if *metricsAddr != "" {
		reg := prometheus.NewRegistry()
		opts = append(opts, inject.WithMetrics(inject.NewMetrics(reg)))
		go serveMetrics(*metricsAddr, reg, logger)
	}

	var bar *progressbar.ProgressBar
	if !globals.Quiet {
		bar = progressbar.NewOptions(-1,
			progressbar.OptionSetDescription(fmt.Sprintf("injecting %q", cfg.ID)),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("batch"),
		)
		opts = append(opts, inject.WithBatchObserver(func(st repo.Status, sourceID string) {
			_ = bar.Add(1)
		}))
	}

	err = inject.Inject(ctx, *cfg, tableInjector(*targetTable), manager, db.repository(), mode, opts...)
	if bar != nil {
		_ = bar.Finish()
		fmt.Fprintln(os.Stderr)
	}
	if err != nil {
		if ctx.Err() != nil {
			ui.Warningf("Injection %q interrupted; progress up to the last committed batch is durable.", cfg.ID)
			os.Exit(130)
		}
		errors.FatalError(errors.NewDatabaseError(
			fmt.Sprintf("Injection %q failed", cfg.ID),
			"Progress up to the last committed batch is durable",
			"Fix the cause and re-run the same command to resume",
			err,
		), globals.JSON)
	}

	if !globals.Quiet {
		ui.Successf("Injection %q completed.", cfg.ID)
	}
}

// tableInjector returns the built-in injector: every record becomes one
// INSERT into the override table, or into the table named after the batch's
// source id when override is empty. Statements of one batch ride a single
// pgx pipeline round trip.
func tableInjector(override string) inject.Injector {
	return func(ctx context.Context, conn dbconn.Conn, batch inject.Batch) error {
		table := override
		if table == "" {
			table = batch.SourceID
		}
		ident := pgx.Identifier{table}.Sanitize()

		var pending pgx.Batch
		for _, rec := range batch.Records {
			keys := rec.Keys()
			cols := make([]string, len(keys))
			marks := make([]string, len(keys))
			args := make([]any, len(keys))
			for i, key := range keys {
				cols[i] = pgx.Identifier{key}.Sanitize()
				marks[i] = fmt.Sprintf("$%d", i+1)
				args[i], _ = rec.Get(key)
			}
			sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
				ident, strings.Join(cols, ", "), strings.Join(marks, ", "))
			pending.Queue(sql, args...)
		}

		results := conn.SendBatch(ctx, &pending)
		for range batch.Records {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()
				return fmt.Errorf("insert into %s: %w", table, err)
			}
		}
		return results.Close()
	}
}

// serveMetrics exposes the Prometheus registry over HTTP for the lifetime of
// the process.
func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	logger.Info("serving metrics", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server failed", "error", err)
	}
}
