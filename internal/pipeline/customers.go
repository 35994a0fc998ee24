package pipeline

import (
	"context"
	"errors"
	"net/url"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/catalog-migrate/internal/model"
	"github.com/sells-group/catalog-migrate/internal/transform"
	"github.com/sells-group/catalog-migrate/pkg/woocommerce"
)

// KindCustomers labels customer migration ledgers.
const KindCustomers = "customers"

// MigrateCustomers fetches every store customer, transforms them and
// upserts them into the target. Customers carry their own account identity,
// so they are not name-resolved.
func (p *Pipeline) MigrateCustomers(ctx context.Context, opts EngineOptions) (*RunResult, error) {
	log := zap.L().With(zap.String("component", "pipeline"), zap.String("kind", KindCustomers))

	customers, err := p.store.ListCustomers(ctx, woocommerce.ListOptions{
		Limit:  opts.Limit,
		Params: url.Values{"role": {"all"}},
	})
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: fetch customers")
	}
	log.Info("pipeline: fetched customers", zap.Int("count", len(customers)))

	payloads := make([]model.TargetPayload, 0, len(customers))
	var skipped []model.SkippedRecord
	for _, c := range customers {
		payload, err := p.transformer.Transform(c, nil)
		if err != nil {
			var mf *transform.MissingFieldError
			if errors.As(err, &mf) {
				log.Warn("pipeline: skipping customer", zap.String("source_id", mf.SourceID), zap.String("field", mf.Field))
				skipped = append(skipped, model.SkippedRecord{SourceID: mf.SourceID, Reason: "missing " + mf.Field})
				continue
			}
			return nil, err
		}
		payloads = append(payloads, *payload)
	}

	return p.run(ctx, KindCustomers, payloads, skipped, opts)
}
