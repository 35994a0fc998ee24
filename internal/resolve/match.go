package resolve

import (
	"strings"

	"github.com/sells-group/catalog-migrate/internal/model"
)

// MinContainedLength is the length a normalized name must exceed before it can
// take part in a substring match. Short fragments such as "lee" would
// otherwise match almost every record.
const MinContainedLength = 5

// indexedRecord holds the precomputed normalized forms of one record.
type indexedRecord struct {
	record *model.ReferenceRecord
	exact  []string // display name, "first last", slug, aliases
	names  []string // display name, aliases
}

// Index is a reusable matcher over a fixed record set. Records keep their
// iteration order, which decides ties.
type Index struct {
	origin  model.Origin
	records []indexedRecord
}

// NewIndex normalizes every record once so repeated lookups stay cheap.
func NewIndex(origin model.Origin, records []model.ReferenceRecord) *Index {
	idx := &Index{origin: origin, records: make([]indexedRecord, 0, len(records))}
	for i := range records {
		rec := &records[i]
		ir := indexedRecord{record: rec}

		name := NormalizeName(rec.Name)
		ir.exact = appendNonEmpty(ir.exact, name)
		ir.names = appendNonEmpty(ir.names, name)

		if rec.FirstName != "" || rec.LastName != "" {
			ir.exact = appendNonEmpty(ir.exact, NormalizeName(rec.FirstName+" "+rec.LastName))
		}
		ir.exact = appendNonEmpty(ir.exact, NormalizeName(rec.Slug))

		for _, alias := range rec.Aliases {
			a := NormalizeName(alias)
			ir.exact = appendNonEmpty(ir.exact, a)
			ir.names = appendNonEmpty(ir.names, a)
		}

		idx.records = append(idx.records, ir)
	}
	return idx
}

// Len returns the number of indexed records.
func (idx *Index) Len() int { return len(idx.records) }

// Match runs the two-pass match for candidate. An exact match anywhere in the
// set beats a substring match on an earlier record. Among substring matches
// the first qualifying record wins; there is no ranking.
func (idx *Index) Match(candidate string) model.MatchResult {
	res := model.MatchResult{Entity: candidate, Strength: model.MatchNone, Origin: idx.origin}

	norm := NormalizeName(candidate)
	if norm == "" {
		return res
	}

	for _, ir := range idx.records {
		for _, form := range ir.exact {
			if form == norm {
				return hit(res, ir.record, model.MatchExact)
			}
		}
	}

	for _, ir := range idx.records {
		for _, name := range ir.names {
			if contained(norm, name) {
				return hit(res, ir.record, model.MatchContained)
			}
		}
	}

	return res
}

// Match matches candidate against records without keeping an index around.
func Match(candidate string, records []model.ReferenceRecord) model.MatchResult {
	var origin model.Origin
	if len(records) > 0 {
		origin = records[0].Origin
	}
	return NewIndex(origin, records).Match(candidate)
}

// contained reports a substring match in either direction, where the
// contained side must be longer than MinContainedLength.
func contained(candidate, name string) bool {
	if len(name) > MinContainedLength && strings.Contains(candidate, name) {
		return true
	}
	return len(candidate) > MinContainedLength && strings.Contains(name, candidate)
}

func hit(res model.MatchResult, rec *model.ReferenceRecord, strength model.MatchStrength) model.MatchResult {
	matched := *rec
	res.Record = &matched
	res.Strength = strength
	if rec.Origin != "" {
		res.Origin = rec.Origin
	}
	return res
}

func appendNonEmpty(dst []string, s string) []string {
	if s == "" {
		return dst
	}
	return append(dst, s)
}
