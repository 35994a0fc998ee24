package refsource

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/catalog-migrate/internal/model"
	"github.com/sells-group/catalog-migrate/internal/snapshot"
	"github.com/sells-group/catalog-migrate/pkg/notion"
)

// NotionOptions maps a Notion client database onto reference records.
type NotionOptions struct {
	DatabaseID    string
	NameProperty  string
	EmailProperty string
	// AliasProperty is optional, e.g. a pen name column.
	AliasProperty string
}

// NotionClients reads the Notion client database. Pages with no name are
// skipped.
func NotionClients(c notion.Client, opts NotionOptions) snapshot.Fetcher {
	return func(ctx context.Context) ([]model.ReferenceRecord, error) {
		if opts.DatabaseID == "" {
			return nil, eris.New("refsource: notion database id is required")
		}
		pages, err := notion.QueryAll(ctx, c, opts.DatabaseID, nil)
		if err != nil {
			return nil, eris.Wrap(err, "refsource: notion clients")
		}

		out := make([]model.ReferenceRecord, 0, len(pages))
		for _, p := range pages {
			name := notion.PlainText(p, opts.NameProperty)
			if name == "" {
				continue
			}
			rec := model.ReferenceRecord{
				ID:     strings.ReplaceAll(string(p.ID), "-", ""),
				Name:   name,
				Email:  notion.PlainText(p, opts.EmailProperty),
				Origin: model.OriginNotionClients,
			}
			if opts.AliasProperty != "" {
				if alias := notion.PlainText(p, opts.AliasProperty); alias != "" {
					rec.Aliases = []string{alias}
				}
			}
			out = append(out, rec)
		}
		zap.L().Info("fetched reference source",
			zap.String("origin", string(model.OriginNotionClients)),
			zap.Int("pages", len(pages)),
			zap.Int("records", len(out)),
		)
		return out, nil
	}
}
