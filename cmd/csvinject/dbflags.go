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
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	flag "github.com/spf13/pflag"

	"github.com/kraklabs/csvinject/pkg/dbconn"
	"github.com/kraklabs/csvinject/pkg/repo"
	"github.com/kraklabs/csvinject/pkg/retry"
)

// dbFlags are the target-database and retry knobs shared by every subcommand
// that touches the database.
type dbFlags struct {
	dsn      string
	host     string
	port     uint16
	dbname   string
	user     string
	password string

	injectTable string

	reConnInterval time.Duration
	reConnAttempts int
	reExecInterval time.Duration
	reExecAttempts int
}

// addDBFlags registers the shared database flags on fs.
func addDBFlags(fs *flag.FlagSet) *dbFlags {
	f := &dbFlags{}

	fs.StringVar(&f.dsn, "dsn", "", "Target database DSN or URL (overrides the individual connection flags)")
	fs.StringVar(&f.host, "host", "localhost", "Database host")
	fs.Uint16Var(&f.port, "port", 5432, "Database port")
	fs.StringVarP(&f.dbname, "dbname", "d", "", "Database name")
	fs.StringVarP(&f.user, "user", "U", "", "Database user")
	fs.StringVar(&f.password, "password", "", "Database password (prefer PGPASSWORD)")

	fs.StringVar(&f.injectTable, "inject-table", repo.DefaultTable, "Name of the progress repository table")

	fs.DurationVar(&f.reConnInterval, "re-conn-interval", time.Second, "Delay between reconnect attempts")
	fs.IntVar(&f.reConnAttempts, "re-conn-attempts", 0, "Reconnect attempt cap (0 = unbounded)")
	fs.DurationVar(&f.reExecInterval, "re-exec-interval", 0, "Delay between operation retry attempts")
	fs.IntVar(&f.reExecAttempts, "re-exec-attempts", 0, "Operation retry attempt cap (0 = unbounded)")

	return f
}

// connConfig resolves the connection flags into a pgx configuration.
func (f *dbFlags) connConfig() (*pgx.ConnConfig, error) {
	dsn := f.dsn
	if dsn == "" {
		parts := []string{fmt.Sprintf("host=%s port=%d", f.host, f.port)}
		if f.dbname != "" {
			parts = append(parts, "dbname="+f.dbname)
		}
		if f.user != "" {
			parts = append(parts, "user="+f.user)
		}
		if f.password != "" {
			parts = append(parts, "password="+f.password)
		}
		dsn = strings.Join(parts, " ")
	}
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse connection parameters: %w", err)
	}
	return cfg, nil
}

// manager builds the connection manager configured by the flags.
func (f *dbFlags) manager(logger *slog.Logger) (*dbconn.Manager, error) {
	cfg, err := f.connConfig()
	if err != nil {
		return nil, err
	}
	return dbconn.NewManager(cfg,
		dbconn.WithLogger(logger),
		dbconn.WithReconnectOpts(retry.Opts{Interval: f.reConnInterval, Attempts: f.reConnAttempts}),
		dbconn.WithReexecOpts(retry.Opts{Interval: f.reExecInterval, Attempts: f.reExecAttempts}),
	), nil
}

// repository builds the progress repository named by the flags.
func (f *dbFlags) repository() repo.Repository {
	return repo.New(f.injectTable)
}
