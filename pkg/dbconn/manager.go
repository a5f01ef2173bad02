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
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/kraklabs/csvinject/pkg/retry"
)

// Default retry behavior mirrors the historical defaults: reconnects pace at
// one second forever, re-executions retry immediately and forever.
var (
	DefaultReconnectOpts = retry.Opts{Interval: time.Second}
	DefaultReexecOpts    = retry.Opts{}
)

// Manager owns exactly one database connection. It connects with bounded
// retry, applies session options, and serializes operation callables under a
// reconnect-and-retry loop.
//
// A Manager is not safe for concurrent use. For parallelism, instantiate one
// Manager (one connection) per worker.
type Manager struct {
	dial    Dialer
	session SessionOpts
	reConn  retry.Opts
	reExec  retry.Opts

	logger      *slog.Logger
	allowSleeps bool

	conn Client
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithSessionOpts sets the session defaults applied after every (re)connect.
func WithSessionOpts(opts SessionOpts) ManagerOption {
	return func(m *Manager) { m.session = opts }
}

// WithReconnectOpts sets the connect retry policy.
func WithReconnectOpts(opts retry.Opts) ManagerOption {
	return func(m *Manager) { m.reConn = opts }
}

// WithReexecOpts sets the operation retry policy.
func WithReexecOpts(opts retry.Opts) ManagerOption {
	return func(m *Manager) { m.reExec = opts }
}

// WithLogger sets the manager's logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) { m.logger = logger }
}

// WithDialer replaces how connections are opened. Used by tests and by
// callers with exotic connection setups.
func WithDialer(dial Dialer) ManagerOption {
	return func(m *Manager) { m.dial = dial }
}

// WithSleeps toggles retry delays. Disable in tests.
func WithSleeps(allow bool) ManagerOption {
	return func(m *Manager) { m.allowSleeps = allow }
}

// NewManager builds a Manager that dials with the given pgx configuration.
func NewManager(cfg *pgx.ConnConfig, opts ...ManagerOption) *Manager {
	m := &Manager{
		dial: func(ctx context.Context) (Client, error) {
			return pgx.ConnectConfig(ctx, cfg)
		},
		reConn:      DefaultReconnectOpts,
		reExec:      DefaultReexecOpts,
		allowSleeps: true,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	return m
}

// Conn returns the live connection, or nil before Connect. Callers normally
// touch the connection only inside an Op.
func (m *Manager) Conn() Conn {
	if m.conn == nil {
		return nil
	}
	return m.conn
}

// Connect establishes the connection, retrying transient failures per the
// reconnect policy and applying the session options on success. Non-transient
// dial errors fail immediately.
func (m *Manager) Connect(ctx context.Context) error {
	retrier := retry.NewManager(m.reConn)
	retrier.AllowSleeps(m.allowSleeps)

	for {
		m.logger.Debug("dbconn: connecting")
		conn, err := m.dial(ctx)
		if err == nil {
			if err := m.session.Apply(ctx, conn); err != nil {
				_ = conn.Close(ctx)
				return err
			}
			m.conn = conn
			m.logger.Debug("dbconn: connected", "attempts", retrier.Counter()+1)
			return nil
		}

		if !IsTransient(err) {
			return fmt.Errorf("connect: %w", err)
		}
		if !retrier.HasNext() {
			return fmt.Errorf("connect: giving up after %d attempts: %w", retrier.Counter(), err)
		}
		m.logger.Info("dbconn: connection failed, retrying",
			"interval", m.reConn.Interval, "error", err)
		if _, err := retrier.Attempt(ctx); err != nil {
			return err
		}
	}
}

// Close releases the connection. Safe to call when not connected.
func (m *Manager) Close(ctx context.Context) error {
	if m.conn == nil {
		return nil
	}
	err := m.conn.Close(ctx)
	m.conn = nil
	return err
}

// Execute runs ops in order on the managed connection and returns the value
// of the final op. On a transient failure it drops the connection,
// reconnects, and re-invokes the whole op sequence from the start, bounded by
// the re-execution policy. Any other failure propagates immediately.
//
// Connects lazily if Connect was not called yet.
func (m *Manager) Execute(ctx context.Context, ops ...Op) (any, error) {
	if m.conn == nil {
		if err := m.Connect(ctx); err != nil {
			return nil, err
		}
	}

	retrier := retry.NewManager(m.reExec)
	retrier.AllowSleeps(m.allowSleeps)

	for {
		out, err := runOps(ctx, m.conn, ops)
		if err == nil {
			return out, nil
		}
		if !IsTransient(err) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !retrier.HasNext() {
			return nil, fmt.Errorf("execute: giving up after %d attempts: %w", retrier.Counter(), err)
		}

		m.logger.Info("dbconn: operation failed, reconnecting and retrying",
			"interval", m.reExec.Interval, "error", err)
		if _, err := retrier.Attempt(ctx); err != nil {
			return nil, err
		}
		_ = m.Close(ctx)
		if err := m.Connect(ctx); err != nil {
			return nil, err
		}
	}
}
