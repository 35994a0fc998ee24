// Package refsource turns external identity sources into reference records
// the snapshot cache can store and the resolver can match against.
package refsource

import (
	"context"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/catalog-migrate/internal/model"
	"github.com/sells-group/catalog-migrate/internal/resolve"
	"github.com/sells-group/catalog-migrate/internal/snapshot"
	"github.com/sells-group/catalog-migrate/pkg/woocommerce"
)

// WPUsers fetches every WordPress user. Users are matched on display name,
// "first last" and slug.
func WPUsers(c woocommerce.Client) snapshot.Fetcher {
	return func(ctx context.Context) ([]model.ReferenceRecord, error) {
		users, err := c.ListUsers(ctx, woocommerce.ListOptions{})
		if err != nil {
			return nil, eris.Wrap(err, "refsource: wp users")
		}
		out := make([]model.ReferenceRecord, 0, len(users))
		for _, u := range users {
			out = append(out, userRecord(u))
		}
		zap.L().Info("fetched reference source",
			zap.String("origin", string(model.OriginWPUsers)),
			zap.Int("records", len(out)),
		)
		return out, nil
	}
}

func userRecord(u woocommerce.User) model.ReferenceRecord {
	rec := model.ReferenceRecord{
		ID:        strconv.FormatInt(u.ID, 10),
		Name:      strings.TrimSpace(u.Name),
		FirstName: strings.TrimSpace(u.FirstName),
		LastName:  strings.TrimSpace(u.LastName),
		Slug:      u.Slug,
		Email:     strings.TrimSpace(u.Email),
		Origin:    model.OriginWPUsers,
	}
	if len(u.Roles) > 0 {
		rec.Attributes = map[string]string{AttrRoles: strings.Join(u.Roles, ",")}
	}
	return rec
}

// AttrRoles holds a WordPress user's roles, comma-joined.
const AttrRoles = "roles"

// Products fetches every product (any status) and keeps the author credit
// line as the author_full_name attribute.
func Products(c woocommerce.Client) snapshot.Fetcher {
	return func(ctx context.Context) ([]model.ReferenceRecord, error) {
		products, err := c.ListProducts(ctx, woocommerce.ListOptions{
			Params: map[string][]string{"status": {"any"}},
		})
		if err != nil {
			return nil, eris.Wrap(err, "refsource: products")
		}
		out := make([]model.ReferenceRecord, 0, len(products))
		for _, p := range products {
			rec := model.ReferenceRecord{
				ID:     strconv.FormatInt(p.ID, 10),
				Name:   strings.TrimSpace(p.Name),
				Slug:   p.Slug,
				Origin: model.OriginWCProducts,
			}
			if author := p.AuthorFullName(); author != "" {
				rec.Attributes = map[string]string{resolve.AttrAuthorFullName: author}
			}
			out = append(out, rec)
		}
		zap.L().Info("fetched products",
			zap.Int("products", len(out)),
		)
		return out, nil
	}
}
