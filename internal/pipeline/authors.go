package pipeline

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/catalog-migrate/internal/model"
	"github.com/sells-group/catalog-migrate/internal/report"
	"github.com/sells-group/catalog-migrate/internal/resolve"
	"github.com/sells-group/catalog-migrate/internal/transform"
)

// KindAuthors labels author migration ledgers.
const KindAuthors = "authors"

// ReconcileOptions controls an author reconciliation.
type ReconcileOptions struct {
	// Sources is the reference priority; the first is the primary source.
	Sources []model.Origin
	// Refresh ignores cached snapshots.
	Refresh bool
	// Migrate upserts authors resolved through a secondary source.
	Migrate bool
	EngineOptions
}

// ReconcileResult is the outcome of ReconcileAuthors.
type ReconcileResult struct {
	Report     *report.AuthorReport
	ReportPath string
	// Run is nil unless Migrate was set.
	Run *RunResult
}

// ReconcileAuthors resolves every author credited on a product against the
// reference sources, writes the orphan report and optionally migrates the
// authors that only a secondary source knows about.
func (p *Pipeline) ReconcileAuthors(ctx context.Context, opts ReconcileOptions) (*ReconcileResult, error) {
	log := zap.L().With(zap.String("component", "pipeline"), zap.String("kind", KindAuthors))

	sources := opts.Sources
	if len(sources) == 0 {
		sources = DefaultSources
	}
	ttl := p.ttl
	if opts.Refresh {
		ttl = 0
	}

	snaps, err := p.loadSnapshots(ctx, append([]model.Origin{model.OriginWCProducts}, sources...), ttl)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load snapshots")
	}
	products, refs := snaps[0], snaps[1:]

	entities := resolve.ExtractAuthors(products.Records)
	log.Info("pipeline: extracted authors",
		zap.Int("products", len(products.Records)),
		zap.Int("authors", len(entities)),
	)

	resolutions := resolve.NewResolver(refs...).ResolveAll(entities)
	rep := report.BuildAuthorReport(resolutions, sources, p.now())
	path, err := report.WriteAuthorReport(p.reportDir, rep)
	if err != nil {
		return nil, err
	}
	if err := report.WriteAuthorSummary(p.out, rep, path); err != nil {
		log.Warn("pipeline: failed to print summary", zap.Error(err))
	}

	res := &ReconcileResult{Report: rep, ReportPath: path}
	if !opts.Migrate {
		return res, nil
	}

	var payloads []model.TargetPayload
	var skipped []model.SkippedRecord
	for _, r := range resolutions {
		if r.Classification != model.MatchedSecondary {
			continue
		}
		payload, err := p.transformer.TransformAuthor(r.Entity, r)
		if err != nil {
			var mf *transform.MissingFieldError
			if errors.As(err, &mf) {
				skipped = append(skipped, model.SkippedRecord{SourceID: mf.SourceID, Reason: "missing " + mf.Field})
				continue
			}
			return res, err
		}
		payloads = append(payloads, *payload)
	}

	run, err := p.run(ctx, KindAuthors, payloads, skipped, opts.EngineOptions)
	res.Run = run
	return res, err
}
