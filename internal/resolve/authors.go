package resolve

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/sells-group/catalog-migrate/internal/model"
)

// AttrAuthorFullName is the product attribute holding the author credit line.
const AttrAuthorFullName = "author_full_name"

var authorSplitRe = regexp.MustCompile(`,\s*`)

// SplitAuthors splits a comma-separated author credit into trimmed names.
// Ampersands are kept, so "Breakfield & Burkey" stays one name.
func SplitAuthors(field string) []string {
	if strings.TrimSpace(field) == "" {
		return nil
	}
	var names []string
	for _, part := range authorSplitRe.Split(field, -1) {
		if p := strings.TrimSpace(part); p != "" {
			names = append(names, p)
		}
	}
	return names
}

// ExtractAuthors collects the unique author names credited on products, in
// first-seen order, each carrying the products that credit it.
func ExtractAuthors(products []model.ReferenceRecord) []model.Entity {
	var order []string
	byName := make(map[string]*model.Entity)

	for _, p := range products {
		id, _ := strconv.ParseInt(p.ID, 10, 64)
		for _, name := range SplitAuthors(p.Attributes[AttrAuthorFullName]) {
			e, ok := byName[name]
			if !ok {
				e = &model.Entity{Name: name}
				byName[name] = e
				order = append(order, name)
			}
			e.Sources = append(e.Sources, model.SourceRef{Kind: "product", ID: id, Label: p.Name})
		}
	}

	out := make([]model.Entity, 0, len(order))
	for _, name := range order {
		out = append(out, *byName[name])
	}
	return out
}
