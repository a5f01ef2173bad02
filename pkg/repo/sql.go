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

package repo

// Statement templates for the progress table. The single %s placeholder takes
// the sanitized table identifier; row parameters bind positionally.
const (
	sqlTableInit = `CREATE TABLE IF NOT EXISTS %s (
	id        VARCHAR(100) NOT NULL PRIMARY KEY,
	injected  INTEGER      NOT NULL DEFAULT 0,
	completed BOOLEAN      NOT NULL DEFAULT FALSE
)`

	sqlTableDrop  = `DROP TABLE IF EXISTS %s`
	sqlTableClear = `DELETE FROM %s`
	sqlTablePrune = `DELETE FROM %s WHERE completed`

	sqlRowsCount  = `SELECT count(*) FROM %s`
	sqlRowsItems  = `SELECT id, injected, completed FROM %s`
	sqlRowsKeys   = `SELECT id FROM %s`
	sqlRowsValues = `SELECT injected, completed FROM %s`

	sqlRowSelect = `SELECT injected, completed FROM %s WHERE id = $1`

	sqlRowInsert = `INSERT INTO %s (id, injected, completed)
VALUES ($1, $2, $3)
ON CONFLICT DO NOTHING
RETURNING TRUE`

	sqlRowUpdate = `UPDATE %s
SET injected = $2, completed = $3
WHERE id = $1
RETURNING TRUE`

	sqlRowDelete = `DELETE FROM %s
WHERE id = $1
RETURNING injected, completed`

	sqlRowIncrement = `UPDATE %s
SET injected = injected + 1
WHERE id = $1
RETURNING injected, completed`
)
