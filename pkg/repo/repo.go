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

// Package repo persists per-injection progress on the target database: one
// row per injection id in a single configurable-name table, plus the atomic
// increment the orchestrator commits alongside every batch.
package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kraklabs/csvinject/pkg/dbconn"
)

// DefaultTable is the progress table name used when none is configured.
const DefaultTable = "injections"

// MaxIDLen is the widest injection id the schema accepts.
const MaxIDLen = 100

var (
	// ErrNotFound reports a missing status row under an "except" policy.
	ErrNotFound = errors.New("injection status not found")

	// ErrExists reports an id conflict under an "except" policy.
	ErrExists = errors.New("injection status already exists")
)

// Status is the durable progress of one injection.
type Status struct {
	// Injected counts batches committed so far. It never decreases; the only
	// event that moves it is a successful batch commit.
	Injected int

	// Completed marks that every batch from every source has been applied.
	Completed bool
}

// Item is one repository row.
type Item struct {
	ID     string
	Status Status
}

// Repository addresses the progress table. The zero value is not usable; use
// New.
type Repository struct {
	table string
}

// New builds a Repository over the named table, or DefaultTable when name is
// empty.
func New(table string) Repository {
	if table == "" {
		table = DefaultTable
	}
	return Repository{table: table}
}

// Table returns the progress table name.
func (r Repository) Table() string { return r.table }

// ident returns the table name quoted for safe interpolation into SQL.
func (r Repository) ident() string {
	return pgx.Identifier{r.table}.Sanitize()
}

// Init creates the progress table if it does not exist.
func (r Repository) Init(ctx context.Context, conn dbconn.Conn) error {
	_, err := conn.Exec(ctx, fmt.Sprintf(sqlTableInit, r.ident()))
	if err != nil {
		return fmt.Errorf("init repository %s: %w", r.table, err)
	}
	return nil
}

// Drop drops the progress table if it exists.
func (r Repository) Drop(ctx context.Context, conn dbconn.Conn) error {
	_, err := conn.Exec(ctx, fmt.Sprintf(sqlTableDrop, r.ident()))
	if err != nil {
		return fmt.Errorf("drop repository %s: %w", r.table, err)
	}
	return nil
}

// Clear deletes every status row.
func (r Repository) Clear(ctx context.Context, conn dbconn.Conn) error {
	_, err := conn.Exec(ctx, fmt.Sprintf(sqlTableClear, r.ident()))
	if err != nil {
		return fmt.Errorf("clear repository %s: %w", r.table, err)
	}
	return nil
}

// Prune deletes the rows of completed injections.
func (r Repository) Prune(ctx context.Context, conn dbconn.Conn) error {
	_, err := conn.Exec(ctx, fmt.Sprintf(sqlTablePrune, r.ident()))
	if err != nil {
		return fmt.Errorf("prune repository %s: %w", r.table, err)
	}
	return nil
}

// Count returns the number of status rows.
func (r Repository) Count(ctx context.Context, conn dbconn.Conn) (int, error) {
	var n int
	if err := conn.QueryRow(ctx, fmt.Sprintf(sqlRowsCount, r.ident())).Scan(&n); err != nil {
		return 0, fmt.Errorf("count repository %s: %w", r.table, err)
	}
	return n, nil
}

// Items returns every row as (id, status) pairs.
func (r Repository) Items(ctx context.Context, conn dbconn.Conn) ([]Item, error) {
	rows, err := conn.Query(ctx, fmt.Sprintf(sqlRowsItems, r.ident()))
	if err != nil {
		return nil, fmt.Errorf("list repository %s: %w", r.table, err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.Status.Injected, &it.Status.Completed); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// Keys returns every stored injection id.
func (r Repository) Keys(ctx context.Context, conn dbconn.Conn) ([]string, error) {
	rows, err := conn.Query(ctx, fmt.Sprintf(sqlRowsKeys, r.ident()))
	if err != nil {
		return nil, fmt.Errorf("list repository %s keys: %w", r.table, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		keys = append(keys, id)
	}
	return keys, rows.Err()
}

// Values returns every stored status.
func (r Repository) Values(ctx context.Context, conn dbconn.Conn) ([]Status, error) {
	rows, err := conn.Query(ctx, fmt.Sprintf(sqlRowsValues, r.ident()))
	if err != nil {
		return nil, fmt.Errorf("list repository %s values: %w", r.table, err)
	}
	defer rows.Close()

	var values []Status
	for rows.Next() {
		var st Status
		if err := rows.Scan(&st.Injected, &st.Completed); err != nil {
			return nil, err
		}
		values = append(values, st)
	}
	return values, rows.Err()
}

// Select reads the status for id. When the row is missing the policy decides:
// PolicyDefault returns def, PolicyInsert inserts def and returns it,
// PolicyExcept fails with ErrNotFound.
func (r Repository) Select(ctx context.Context, conn dbconn.Conn, id string,
	onMissing Policy, def Status) (Status, error) {

	if err := onMissing.validate(PolicyDefault, PolicyInsert, PolicyExcept); err != nil {
		return Status{}, err
	}

	var st Status
	err := conn.QueryRow(ctx, fmt.Sprintf(sqlRowSelect, r.ident()), id).
		Scan(&st.Injected, &st.Completed)
	if err == nil {
		return st, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Status{}, fmt.Errorf("select status %q: %w", id, err)
	}

	switch onMissing {
	case PolicyDefault:
		return def, nil
	case PolicyInsert:
		if _, err := r.Insert(ctx, conn, id, def, PolicyExcept); err != nil {
			return Status{}, err
		}
		return def, nil
	default:
		return Status{}, fmt.Errorf("%w: id %q", ErrNotFound, id)
	}
}

// Insert places a new status row. When the id already exists the policy
// decides: PolicyIgnore returns false, PolicyUpdate overwrites the existing
// row, PolicyExcept fails with ErrExists.
func (r Repository) Insert(ctx context.Context, conn dbconn.Conn, id string,
	st Status, onExist Policy) (bool, error) {

	if err := onExist.validate(PolicyIgnore, PolicyUpdate, PolicyExcept); err != nil {
		return false, err
	}

	var inserted bool
	err := conn.QueryRow(ctx, fmt.Sprintf(sqlRowInsert, r.ident()),
		id, st.Injected, st.Completed).Scan(&inserted)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return false, fmt.Errorf("insert status %q: %w", id, err)
	}

	switch onExist {
	case PolicyIgnore:
		return false, nil
	case PolicyUpdate:
		return r.Update(ctx, conn, id, st, PolicyExcept)
	default:
		return false, fmt.Errorf("%w: id %q", ErrExists, id)
	}
}

// Update overwrites the status row for id. When the row is missing the policy
// decides: PolicyIgnore returns false, PolicyInsert inserts the row,
// PolicyExcept fails with ErrNotFound.
func (r Repository) Update(ctx context.Context, conn dbconn.Conn, id string,
	st Status, onMissing Policy) (bool, error) {

	if err := onMissing.validate(PolicyIgnore, PolicyInsert, PolicyExcept); err != nil {
		return false, err
	}

	var updated bool
	err := conn.QueryRow(ctx, fmt.Sprintf(sqlRowUpdate, r.ident()),
		id, st.Injected, st.Completed).Scan(&updated)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return false, fmt.Errorf("update status %q: %w", id, err)
	}

	switch onMissing {
	case PolicyIgnore:
		return false, nil
	case PolicyInsert:
		return r.Insert(ctx, conn, id, st, PolicyExcept)
	default:
		return false, fmt.Errorf("%w: id %q", ErrNotFound, id)
	}
}

// Delete removes the status row for id and returns the deleted status. When
// the row is missing the policy decides: PolicyDefault returns def,
// PolicyExcept fails with ErrNotFound.
func (r Repository) Delete(ctx context.Context, conn dbconn.Conn, id string,
	onMissing Policy, def Status) (Status, error) {

	if err := onMissing.validate(PolicyDefault, PolicyExcept); err != nil {
		return Status{}, err
	}

	var st Status
	err := conn.QueryRow(ctx, fmt.Sprintf(sqlRowDelete, r.ident()), id).
		Scan(&st.Injected, &st.Completed)
	if err == nil {
		return st, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Status{}, fmt.Errorf("delete status %q: %w", id, err)
	}

	if onMissing == PolicyDefault {
		return def, nil
	}
	return Status{}, fmt.Errorf("%w: id %q", ErrNotFound, id)
}

// Increment atomically advances the injected counter for id and returns the
// resulting status. With mustExist, a missing row fails with ErrNotFound;
// otherwise the zero status and ok=false are returned.
func (r Repository) Increment(ctx context.Context, conn dbconn.Conn, id string,
	mustExist bool) (Status, bool, error) {

	var st Status
	err := conn.QueryRow(ctx, fmt.Sprintf(sqlRowIncrement, r.ident()), id).
		Scan(&st.Injected, &st.Completed)
	if err == nil {
		return st, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Status{}, false, fmt.Errorf("increment status %q: %w", id, err)
	}
	if mustExist {
		return Status{}, false, fmt.Errorf("%w: id %q", ErrNotFound, id)
	}
	return Status{}, false, nil
}
