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

package inject

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/kraklabs/csvinject/pkg/dbconn"
	"github.com/kraklabs/csvinject/pkg/repo"
)

// ErrCacheUnsupported reports a mode that requires the local batch cache,
// which is not implemented. Runs must set ModeCacheDisable.
var ErrCacheUnsupported = errors.New("batch cache is not implemented; set CACHE_DISABLE")

// Injector translates one batch into DML against the target database. It is
// opaque to the core and runs inside the batch's transaction, on the same
// connection that commits the progress increment.
type Injector func(ctx context.Context, conn dbconn.Conn, batch Batch) error

// Executor runs operation sequences on the managed database connection.
// *dbconn.Manager is the production implementation.
type Executor interface {
	Execute(ctx context.Context, ops ...dbconn.Op) (any, error)
}

// Operator owns one resumable injection run end to end: durable status,
// batch-level transaction boundaries, and completion.
type Operator struct {
	cfg      Config
	injector Injector
	db       Executor
	repo     repo.Repository
	mode     Mode

	logger  *slog.Logger
	metrics *Metrics

	// onBatch, when set, observes every committed batch. Used by the CLI for
	// progress display.
	onBatch func(st repo.Status, sourceID string)

	status repo.Status
}

// OperatorOption configures an Operator.
type OperatorOption func(*Operator)

// WithLogger sets the operator's logger.
func WithLogger(logger *slog.Logger) OperatorOption {
	return func(o *Operator) { o.logger = logger }
}

// WithMetrics attaches the optional metrics collaborator.
func WithMetrics(m *Metrics) OperatorOption {
	return func(o *Operator) { o.metrics = m }
}

// WithBatchObserver registers a callback invoked after every committed batch.
func WithBatchObserver(fn func(st repo.Status, sourceID string)) OperatorOption {
	return func(o *Operator) { o.onBatch = fn }
}

// NewOperator builds an Operator for one injection.
func NewOperator(cfg Config, injector Injector, db Executor, r repo.Repository,
	mode Mode, opts ...OperatorOption) *Operator {

	o := &Operator{
		cfg:      cfg,
		injector: injector,
		db:       db,
		repo:     r,
		mode:     mode,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// Inject runs one injection to completion. It is the convenience entry point
// over NewOperator().Run().
func Inject(ctx context.Context, cfg Config, injector Injector, db Executor,
	r repo.Repository, mode Mode, opts ...OperatorOption) error {

	return NewOperator(cfg, injector, db, r, mode, opts...).Run(ctx)
}

// Run executes the resumable-run protocol:
//
//  1. Ensure the progress table exists (unless ModeRepoNotInit).
//  2. Read the durable status, inserting {0,false} if missing.
//  3. Return immediately when the injection is already completed.
//  4. Skip the already-injected batches through the splitter's fast path.
//  5. Per batch: one transaction holding the injector's DML and the progress
//     increment, committed together.
//  6. Mark the status completed.
//
// Cancellation is cooperative: the context is checked between batches, and an
// in-flight batch either commits whole or rolls back whole.
func (o *Operator) Run(ctx context.Context) error {
	if err := o.cfg.Validate(); err != nil {
		return err
	}
	if !o.mode.Has(ModeCacheDisable) {
		return ErrCacheUnsupported
	}

	log := o.logger.With("injection", o.cfg.ID)

	if !o.mode.Has(ModeRepoNotInit) {
		log.Info("ensuring progress repository")
		if _, err := o.db.Execute(ctx, dbconn.CommitAfter(o.opInit())); err != nil {
			return fmt.Errorf("ensure repository: %w", err)
		}
	}

	log.Debug("obtaining status from progress repository")
	out, err := o.db.Execute(ctx, dbconn.CommitAfter(o.opSelectStatus()))
	if err != nil {
		return fmt.Errorf("obtain status: %w", err)
	}
	o.status = out.(repo.Status)

	if o.status.Completed {
		log.Info("injection already completed")
		return nil
	}

	splitter := NewSplitter(o.cfg)
	defer func() { _ = splitter.Close() }()

	if o.status.Injected > 0 {
		log.Info("resuming", "injected", o.status.Injected)
		skipped, err := splitter.Skip(o.status.Injected)
		if err != nil {
			return err
		}
		if skipped < o.status.Injected {
			return fmt.Errorf("injection %q: status says %d batches injected but sources hold only %d",
				o.cfg.ID, o.status.Injected, skipped)
		}
	}

	log.Info("injection starting", "atom_size", o.cfg.Options.atom())
	if err := o.pushBatches(ctx, splitter, log); err != nil {
		return err
	}

	o.status.Completed = true
	if _, err := o.db.Execute(ctx, dbconn.CommitAfter(o.opUpdateStatus(o.status))); err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	log.Info("injection completed", "injected", o.status.Injected)
	return nil
}

// Status returns the last status synchronized with the repository.
func (o *Operator) Status() repo.Status { return o.status }

// pushBatches drains the splitter, committing one transaction per batch.
func (o *Operator) pushBatches(ctx context.Context, splitter *Splitter, log *slog.Logger) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		batch, err := splitter.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		log.Debug("injecting batch",
			"batch", o.status.Injected+1, "source", batch.SourceID, "records", len(batch.Records))

		timer := o.metrics.batchTimer(o.cfg.ID)
		out, err := o.db.Execute(ctx, dbconn.Transactional(o.opInjectBatch(batch)))
		timer()
		if err != nil {
			return fmt.Errorf("batch %d (source %q): %w", o.status.Injected+1, batch.SourceID, err)
		}

		o.status = out.(repo.Status)
		o.metrics.observeBatch(o.cfg.ID, batch.SourceID, len(batch.Records))
		if o.onBatch != nil {
			o.onBatch(o.status, batch.SourceID)
		}
		log.Debug("batch injected", "batch", o.status.Injected, "source", batch.SourceID)
	}
}

// opInit creates the progress table if missing.
func (o *Operator) opInit() dbconn.Op {
	return func(ctx context.Context, conn dbconn.Conn) (any, error) {
		return nil, o.repo.Init(ctx, conn)
	}
}

// opSelectStatus reads this injection's status, inserting the zero status on
// first run.
func (o *Operator) opSelectStatus() dbconn.Op {
	return func(ctx context.Context, conn dbconn.Conn) (any, error) {
		return o.repo.Select(ctx, conn, o.cfg.ID, repo.PolicyInsert, repo.Status{})
	}
}

// opUpdateStatus overwrites this injection's status row.
func (o *Operator) opUpdateStatus(st repo.Status) dbconn.Op {
	return func(ctx context.Context, conn dbconn.Conn) (any, error) {
		return o.repo.Update(ctx, conn, o.cfg.ID, st, repo.PolicyExcept)
	}
}

// opInjectBatch runs the injector's DML and the progress increment. Composed
// with Transactional, the two commit or roll back together: recovery never
// double-applies a committed batch and never loses an applied one.
func (o *Operator) opInjectBatch(batch Batch) dbconn.Op {
	return func(ctx context.Context, conn dbconn.Conn) (any, error) {
		if err := o.injector(ctx, conn, batch); err != nil {
			return nil, err
		}
		st, _, err := o.repo.Increment(ctx, conn, o.cfg.ID, true)
		return st, err
	}
}
