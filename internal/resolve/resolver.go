package resolve

import (
	"github.com/sells-group/catalog-migrate/internal/model"
)

// Resolver matches entities against reference sources in priority order.
// The first source is authoritative; later sources only corroborate.
type Resolver struct {
	sources []*Index
}

// NewResolver indexes the given snapshots. Their order is the priority order.
// A nil snapshot keeps its rank and matches nothing.
func NewResolver(snapshots ...*model.Snapshot) *Resolver {
	r := &Resolver{sources: make([]*Index, 0, len(snapshots))}
	for _, s := range snapshots {
		if s == nil {
			r.sources = append(r.sources, NewIndex("", nil))
			continue
		}
		r.sources = append(r.sources, NewIndex(s.Origin, s.Records))
	}
	return r
}

// Resolve stops at the first source producing EXACT or CONTAINED. A hit on
// the first source is MATCHED_PRIMARY, a hit on any later one
// MATCHED_SECONDARY, and no hit at all is ORPHAN.
func (r *Resolver) Resolve(e model.Entity) model.Resolution {
	res := model.Resolution{
		Entity:         e,
		Classification: model.Orphan,
		Rank:           -1,
		Match:          model.MatchResult{Entity: e.Name, Strength: model.MatchNone},
	}

	for rank, idx := range r.sources {
		m := idx.Match(e.Name)
		res.Attempts = append(res.Attempts, m)
		if !m.Matched() {
			continue
		}

		res.Match = m
		res.Rank = rank
		if rank == 0 {
			res.Classification = model.MatchedPrimary
		} else {
			res.Classification = model.MatchedSecondary
		}
		return res
	}

	return res
}

// ResolveAll resolves entities in input order.
func (r *Resolver) ResolveAll(entities []model.Entity) []model.Resolution {
	out := make([]model.Resolution, len(entities))
	for i, e := range entities {
		out[i] = r.Resolve(e)
	}
	return out
}

// Resolve is a one-shot helper for resolving a single name.
func Resolve(name string, sources []*model.Snapshot) model.Resolution {
	return NewResolver(sources...).Resolve(model.Entity{Name: name})
}
