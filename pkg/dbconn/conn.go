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

// Package dbconn owns a single pgx connection to the target database and
// executes operation callables over it with reconnect-and-retry recovery for
// transient failures.
package dbconn

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Conn is the database surface handed to operation callables. Both *pgx.Conn
// and pgx.Tx satisfy it, so an operation composed with Transactional sees the
// same interface inside the transaction.
type Conn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Client is a closeable Conn, the thing a Dialer produces and a Manager owns.
type Client interface {
	Conn
	Close(ctx context.Context) error
}

// Dialer opens a fresh connection to the target database.
type Dialer func(ctx context.Context) (Client, error)

// Op is one database operation. It receives the managed connection and must
// not retain it past the call.
type Op func(ctx context.Context, conn Conn) (any, error)

// runOps invokes ops in order on the same connection and returns the value of
// the final op.
func runOps(ctx context.Context, conn Conn, ops []Op) (any, error) {
	var out any
	for _, op := range ops {
		var err error
		if out, err = op(ctx, conn); err != nil {
			return nil, err
		}
	}
	return out, nil
}
