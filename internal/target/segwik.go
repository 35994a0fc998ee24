// Package target adapts target-system clients to the migration engine's
// Upserter port.
package target

import (
	"context"

	"github.com/sells-group/catalog-migrate/internal/migrate"
	"github.com/sells-group/catalog-migrate/internal/model"
	"github.com/sells-group/catalog-migrate/pkg/segwik"
)

// Segwik upserts through /customer/add, which matches existing customers on
// the payload's contact arrays.
type Segwik struct {
	client segwik.Client
}

// NewSegwik wraps a Segwik client.
func NewSegwik(c segwik.Client) *Segwik {
	return &Segwik{client: c}
}

// Upsert sends the payload's customer fields.
func (s *Segwik) Upsert(ctx context.Context, p model.TargetPayload) (migrate.UpsertResult, error) {
	res, err := s.client.AddCustomer(ctx, p.Fields)
	if err != nil {
		return migrate.UpsertResult{}, err
	}
	return migrate.UpsertResult{
		TargetID: string(res.CustomerID),
		Existed:  res.IsExist,
		Message:  res.Message,
	}, nil
}
