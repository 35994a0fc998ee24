// Package pipeline orchestrates the customer migration, the author
// reconciliation and ledger replays.
package pipeline

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/catalog-migrate/internal/migrate"
	"github.com/sells-group/catalog-migrate/internal/model"
	"github.com/sells-group/catalog-migrate/internal/refsource"
	"github.com/sells-group/catalog-migrate/internal/report"
	"github.com/sells-group/catalog-migrate/internal/snapshot"
	"github.com/sells-group/catalog-migrate/internal/transform"
	"github.com/sells-group/catalog-migrate/pkg/woocommerce"
)

// DefaultSources is the reference priority used when none is configured.
var DefaultSources = []model.Origin{model.OriginWPUsers, model.OriginClientList}

// Pipeline wires the source store, the snapshot cache, the transformer and
// the migration engine together.
type Pipeline struct {
	store       woocommerce.Client
	cache       *snapshot.Cache
	transformer *transform.Transformer
	engine      *migrate.Engine
	sources     map[model.Origin]snapshot.Fetcher
	uncached    map[model.Origin]bool

	ledgerDir string
	reportDir string
	ttl       time.Duration
	out       io.Writer
	now       func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithSource registers the fetcher for a reference origin. wp_users and
// wc_products are registered from the store by default.
func WithSource(origin model.Origin, fetch snapshot.Fetcher) Option {
	return func(p *Pipeline) { p.sources[origin] = fetch }
}

// WithUncachedSource registers a fetcher whose snapshot is built in memory
// on every load and never written to the cache. It is used for origins that
// are not configured, so their empty result does not outlive the config.
func WithUncachedSource(origin model.Origin, fetch snapshot.Fetcher) Option {
	return func(p *Pipeline) {
		p.sources[origin] = fetch
		p.uncached[origin] = true
	}
}

// WithLedgerDir sets where run ledgers are written.
func WithLedgerDir(dir string) Option {
	return func(p *Pipeline) { p.ledgerDir = dir }
}

// WithReportDir sets where author reports are written.
func WithReportDir(dir string) Option {
	return func(p *Pipeline) { p.reportDir = dir }
}

// WithTTL sets how long cached snapshots are reused.
func WithTTL(ttl time.Duration) Option {
	return func(p *Pipeline) { p.ttl = ttl }
}

// WithOutput sets the writer run summaries are printed to.
func WithOutput(w io.Writer) Option {
	return func(p *Pipeline) { p.out = w }
}

// WithClock overrides the clock used to date reports.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New creates a Pipeline.
func New(store woocommerce.Client, cache *snapshot.Cache, tr *transform.Transformer, engine *migrate.Engine, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:       store,
		cache:       cache,
		transformer: tr,
		engine:      engine,
		sources: map[model.Origin]snapshot.Fetcher{
			model.OriginWPUsers:    refsource.WPUsers(store),
			model.OriginWCProducts: refsource.Products(store),
		},
		uncached:  map[model.Origin]bool{},
		ledgerDir: "ledgers",
		reportDir: "reports",
		ttl:       snapshot.DefaultTTL,
		out:       os.Stdout,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RunResult is the outcome of one engine run.
type RunResult struct {
	Ledger     *model.RunLedger
	LedgerPath string
}

// EngineOptions are the engine knobs shared by every command.
type EngineOptions struct {
	Limit       int
	DryRun      bool
	Concurrency int
}

// run drives the engine, folds skips into the ledger, persists it and
// prints the summary. A fatal engine error is returned after the ledger
// and summary are written.
func (p *Pipeline) run(ctx context.Context, kind string, payloads []model.TargetPayload, skipped []model.SkippedRecord, opts EngineOptions) (*RunResult, error) {
	log := zap.L().With(zap.String("component", "pipeline"), zap.String("kind", kind))

	ledger, runErr := p.engine.Migrate(ctx, payloads, migrate.Options{
		Limit:       opts.Limit,
		DryRun:      opts.DryRun,
		Concurrency: opts.Concurrency,
		Kind:        kind,
	})
	if ledger == nil {
		return nil, runErr
	}
	for _, s := range skipped {
		ledger.Skip(s.SourceID, s.Reason)
	}

	res := &RunResult{Ledger: ledger}
	path, err := migrate.WriteLedger(p.ledgerDir, ledger)
	if err != nil {
		if runErr != nil {
			log.Error("pipeline: failed to write ledger", zap.Error(err))
		} else {
			runErr = err
		}
	}
	res.LedgerPath = path

	if err := report.WriteRunSummary(p.out, ledger, path); err != nil {
		log.Warn("pipeline: failed to print summary", zap.Error(err))
	}
	return res, runErr
}

// loadSnapshots loads every origin through the cache concurrently. The
// result keeps the order of origins.
func (p *Pipeline) loadSnapshots(ctx context.Context, origins []model.Origin, ttl time.Duration) ([]*model.Snapshot, error) {
	for _, origin := range origins {
		if _, ok := p.sources[origin]; !ok {
			return nil, eris.Errorf("pipeline: no fetcher configured for source %q", origin)
		}
	}

	snaps := make([]*model.Snapshot, len(origins))
	g, gctx := errgroup.WithContext(ctx)
	for i, origin := range origins {
		fetch := p.sources[origin]
		g.Go(func() error {
			if p.uncached[origin] {
				records, err := fetch(gctx)
				if err != nil {
					return &snapshot.FetchError{Origin: origin, Err: err}
				}
				snaps[i] = &model.Snapshot{Origin: origin, FetchedAt: p.now(), Records: records}
				return nil
			}
			snap, err := p.cache.Get(gctx, origin, fetch, ttl)
			if err != nil {
				return err
			}
			snaps[i] = snap
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snaps, nil
}
