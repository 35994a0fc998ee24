// Package migrate upserts transformed payloads into the target system and
// records every outcome in a run ledger.
package migrate

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/catalog-migrate/internal/model"
	"github.com/sells-group/catalog-migrate/internal/resilience"
)

// UpsertResult is what the target reports for one upsert.
type UpsertResult struct {
	TargetID string
	// Existed is true when the target matched an existing record.
	Existed bool
	Message string
}

// Upserter creates or updates one record in the target system.
type Upserter interface {
	Upsert(ctx context.Context, payload model.TargetPayload) (UpsertResult, error)
}

// Options controls one engine run.
type Options struct {
	// Limit truncates the payload sequence when > 0.
	Limit int
	// DryRun records intent without calling the target.
	DryRun bool
	// Concurrency bounds in-flight upserts. Values below 2 run sequentially.
	Concurrency int
	// Kind labels the ledger (e.g. "customers", "authors").
	Kind string
}

// Engine drives upserts and builds the ledger.
type Engine struct {
	target  Upserter
	breaker resilience.CircuitBreakerConfig
	now     func() time.Time
	log     *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithCircuitBreaker overrides the transport failure breaker.
func WithCircuitBreaker(cfg resilience.CircuitBreakerConfig) EngineOption {
	return func(e *Engine) { e.breaker = cfg }
}

// WithClock injects the clock used for ledger timestamps.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// NewEngine returns an engine writing to target.
func NewEngine(target Upserter, opts ...EngineOption) *Engine {
	e := &Engine{
		target:  target,
		breaker: resilience.DefaultCircuitBreakerConfig(),
		now:     time.Now,
		log:     zap.L().With(zap.String("component", "migrate")),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Migrate upserts payloads and returns one ledger record per attempted
// payload, in input order. A failed record never stops the run. An auth
// error, a tripped circuit breaker or a cancelled context does; the ledger
// built so far is returned together with that error.
func (e *Engine) Migrate(ctx context.Context, payloads []model.TargetPayload, opts Options) (*model.RunLedger, error) {
	if opts.Limit > 0 && len(payloads) > opts.Limit {
		payloads = payloads[:opts.Limit]
	}

	ledger := &model.RunLedger{
		RunID:     uuid.NewString(),
		Kind:      opts.Kind,
		DryRun:    opts.DryRun,
		StartedAt: e.now().UTC(),
	}
	log := e.log.With(zap.String("run_id", ledger.RunID), zap.String("kind", opts.Kind))
	log.Info("migration started",
		zap.Int("payloads", len(payloads)),
		zap.Bool("dry_run", opts.DryRun),
		zap.Int("concurrency", opts.Concurrency),
	)

	slots := make([]*model.MigrationRecord, len(payloads))
	var err error
	switch {
	case opts.DryRun:
		for i, p := range payloads {
			slots[i] = e.record(p, model.OutcomeDryRun, "", "")
		}
	case opts.Concurrency > 1:
		err = e.runConcurrent(ctx, payloads, slots, opts.Concurrency)
	default:
		err = e.runSequential(ctx, payloads, slots)
	}

	for _, rec := range slots {
		if rec != nil {
			ledger.Append(*rec)
		}
	}
	ledger.FinishedAt = e.now().UTC()

	if err != nil {
		ledger.Aborted = err.Error()
		log.Error("migration aborted",
			zap.Error(err),
			zap.Int("processed", len(ledger.Records)),
			zap.Int("remaining", len(payloads)-len(ledger.Records)),
		)
		return ledger, eris.Wrap(err, "migrate: run aborted")
	}

	log.Info("migration finished",
		zap.Int("created", ledger.Counts.Created),
		zap.Int("updated", ledger.Counts.Updated),
		zap.Int("failed", ledger.Counts.Failed),
		zap.Int("dry_run", ledger.Counts.DryRun),
	)
	return ledger, nil
}

func (e *Engine) runSequential(ctx context.Context, payloads []model.TargetPayload, slots []*model.MigrationRecord) error {
	cb := resilience.NewCircuitBreaker(e.breaker)
	for i, p := range payloads {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec, err := e.upsert(ctx, cb, p)
		if err != nil {
			return err
		}
		slots[i] = rec
	}
	return nil
}

// runConcurrent runs each upsert as its own task. Tasks write into their
// input slot, so ledger order does not depend on completion order.
func (e *Engine) runConcurrent(ctx context.Context, payloads []model.TargetPayload, slots []*model.MigrationRecord, limit int) error {
	cb := resilience.NewCircuitBreaker(e.breaker)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, p := range payloads {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rec, err := e.upsert(gctx, cb, p)
			if err != nil {
				return err
			}
			slots[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// upsert runs one payload. A non-nil error is fatal to the run; per-record
// failures come back as FAILED records.
func (e *Engine) upsert(ctx context.Context, cb *resilience.CircuitBreaker, p model.TargetPayload) (*model.MigrationRecord, error) {
	res, err := resilience.ExecuteVal(ctx, cb, func(ctx context.Context) (UpsertResult, error) {
		return e.target.Upsert(ctx, p)
	})

	var rec *model.MigrationRecord
	switch {
	case err != nil && isFatal(ctx, err):
		return nil, err
	case err != nil:
		rec = e.record(p, model.OutcomeFailed, "", err.Error())
	case res.TargetID == "":
		msg := strings.TrimSpace(res.Message)
		if msg == "" {
			msg = "Unknown error"
		}
		rec = e.record(p, model.OutcomeFailed, "", msg)
	case res.Existed:
		rec = e.record(p, model.OutcomeUpdated, res.TargetID, "")
	default:
		rec = e.record(p, model.OutcomeCreated, res.TargetID, "")
	}

	fields := []zap.Field{
		zap.String("source_id", p.SourceID),
		zap.String("key", p.KeyValue()),
		zap.String("outcome", string(rec.Outcome)),
	}
	if rec.Outcome == model.OutcomeFailed {
		e.log.Warn("upsert failed", append(fields, zap.String("error", rec.Error))...)
	} else {
		e.log.Debug("upserted", append(fields, zap.String("target_id", rec.TargetID))...)
	}
	return rec, nil
}

func (e *Engine) record(p model.TargetPayload, outcome model.Outcome, targetID, msg string) *model.MigrationRecord {
	return &model.MigrationRecord{
		SourceID:    p.SourceID,
		SourceEmail: p.SourceEmail,
		Payload:     p,
		Outcome:     outcome,
		TargetID:    targetID,
		Error:       msg,
		ProcessedAt: e.now().UTC(),
	}
}

func isFatal(ctx context.Context, err error) bool {
	return resilience.IsAuth(err) ||
		errors.Is(err, resilience.ErrCircuitOpen) ||
		ctx.Err() != nil
}
