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

package dbconn

import (
	"context"
	"fmt"
)

// IsoLevel names a Postgres transaction isolation level.
type IsoLevel string

const (
	IsoReadUncommitted IsoLevel = "read uncommitted"
	IsoReadCommitted   IsoLevel = "read committed"
	IsoRepeatableRead  IsoLevel = "repeatable read"
	IsoSerializable    IsoLevel = "serializable"
)

// SessionOpts are the session defaults applied to a connection: transaction
// isolation, read-only and deferrable modes. Zero-valued fields are left
// untouched, so a partial SessionOpts adjusts only what it names.
//
// Postgres has no session autocommit switch: statements outside an explicit
// transaction always autocommit. Operations opt out of that through the
// Transactional and CommitAfter composers.
type SessionOpts struct {
	Isolation  IsoLevel
	ReadOnly   *bool
	Deferrable *bool
}

// Bool is a convenience for building *bool option fields.
func Bool(v bool) *bool { return &v }

// Apply sets the named session defaults on conn.
func (o SessionOpts) Apply(ctx context.Context, conn Conn) error {
	if o.Isolation != "" {
		if _, err := conn.Exec(ctx,
			fmt.Sprintf("SET default_transaction_isolation = '%s'", o.Isolation)); err != nil {
			return fmt.Errorf("set isolation: %w", err)
		}
	}
	if o.ReadOnly != nil {
		if _, err := conn.Exec(ctx,
			fmt.Sprintf("SET default_transaction_read_only = %s", onOff(*o.ReadOnly))); err != nil {
			return fmt.Errorf("set read only: %w", err)
		}
	}
	if o.Deferrable != nil {
		if _, err := conn.Exec(ctx,
			fmt.Sprintf("SET default_transaction_deferrable = %s", onOff(*o.Deferrable))); err != nil {
			return fmt.Errorf("set deferrable: %w", err)
		}
	}
	return nil
}

// CaptureSessionOpts reads the connection's current session defaults, so they
// can be restored after a scoped change.
func CaptureSessionOpts(ctx context.Context, conn Conn) (SessionOpts, error) {
	var opts SessionOpts

	var iso string
	if err := conn.QueryRow(ctx, "SHOW default_transaction_isolation").Scan(&iso); err != nil {
		return opts, fmt.Errorf("show isolation: %w", err)
	}
	opts.Isolation = IsoLevel(iso)

	var readOnly, deferrable string
	if err := conn.QueryRow(ctx, "SHOW default_transaction_read_only").Scan(&readOnly); err != nil {
		return opts, fmt.Errorf("show read only: %w", err)
	}
	opts.ReadOnly = Bool(readOnly == "on")

	if err := conn.QueryRow(ctx, "SHOW default_transaction_deferrable").Scan(&deferrable); err != nil {
		return opts, fmt.Errorf("show deferrable: %w", err)
	}
	opts.Deferrable = Bool(deferrable == "on")

	return opts, nil
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
