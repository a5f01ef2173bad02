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

// Transactional composes op into an operation that begins a transaction, runs
// op against it, and commits on normal return or rolls back on error. The op
// sees the transaction through the same Conn interface.
func Transactional(op Op) Op {
	return CommitAfter(op)
}

// CommitAfter composes ops into one operation that runs them in order inside
// a single transaction and commits afterwards. Any error rolls the whole
// sequence back.
func CommitAfter(ops ...Op) Op {
	return func(ctx context.Context, conn Conn) (any, error) {
		tx, err := conn.Begin(ctx)
		if err != nil {
			return nil, fmt.Errorf("begin: %w", err)
		}
		out, err := runOps(ctx, tx, ops)
		if err != nil {
			_ = tx.Rollback(ctx)
			return nil, err
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("commit: %w", err)
		}
		return out, nil
	}
}

// WithSession composes ops into one operation that applies the given session
// options for its scope and restores the previous options on every exit path.
func WithSession(opts SessionOpts, ops ...Op) Op {
	return func(ctx context.Context, conn Conn) (any, error) {
		prev, err := CaptureSessionOpts(ctx, conn)
		if err != nil {
			return nil, err
		}
		if err := opts.Apply(ctx, conn); err != nil {
			return nil, err
		}
		out, opErr := runOps(ctx, conn, ops)
		if err := prev.Apply(ctx, conn); err != nil {
			if opErr != nil {
				return nil, fmt.Errorf("restore session options: %w (after: %w)", err, opErr)
			}
			return nil, fmt.Errorf("restore session options: %w", err)
		}
		return out, opErr
	}
}
