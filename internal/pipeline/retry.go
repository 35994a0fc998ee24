package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sells-group/catalog-migrate/internal/migrate"
)

// Retry replays the FAILED records of a previous ledger. The upsert is
// idempotent on its key, so replaying is safe. It returns nil when the
// ledger has nothing to retry.
func (p *Pipeline) Retry(ctx context.Context, ledgerPath string, opts EngineOptions) (*RunResult, error) {
	prev, err := migrate.ReadLedger(ledgerPath)
	if err != nil {
		return nil, err
	}

	failed := prev.FailedPayloads()
	zap.L().Info("pipeline: retrying failed records",
		zap.String("component", "pipeline"),
		zap.String("ledger", ledgerPath),
		zap.String("previous_run", prev.RunID),
		zap.Int("failed", len(failed)),
	)
	if len(failed) == 0 {
		fmt.Fprintf(p.out, "No failed records in %s\n", ledgerPath) //nolint:errcheck
		return nil, nil
	}

	kind := prev.Kind + "-retry"
	return p.run(ctx, kind, failed, nil, opts)
}
