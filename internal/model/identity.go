package model

import "time"

// SourceRef points back at the source-system record an entity was extracted from.
type SourceRef struct {
	Kind  string `json:"kind"` // "product", "customer", "order"
	ID    int64  `json:"id"`
	Label string `json:"label,omitempty"`
}

// Entity is an unresolved person or organization name with its provenance.
// It has no identifier of its own until a resolver links it to a reference record.
type Entity struct {
	Name    string      `json:"name"`
	Sources []SourceRef `json:"sources,omitempty"`
}

// Origin identifies a reference source (and its cache key).
type Origin string

const (
	OriginWPUsers       Origin = "wp_users"
	OriginClientList    Origin = "client_list"
	OriginNotionClients Origin = "notion_clients"
	OriginWCProducts    Origin = "wc_products"
)

// ReferenceRecord is one identity from a reference source. Records are
// immutable once loaded into a Snapshot.
type ReferenceRecord struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	FirstName string   `json:"first_name,omitempty"`
	LastName  string   `json:"last_name,omitempty"`
	Slug      string   `json:"slug,omitempty"`
	Email     string   `json:"email,omitempty"`
	Aliases   []string `json:"aliases,omitempty"`
	Origin    Origin   `json:"origin"`

	// Attributes carries origin-specific metadata (e.g. a product's author field).
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Snapshot is an ordered set of reference records fetched from one origin.
type Snapshot struct {
	Origin    Origin            `json:"origin"`
	FetchedAt time.Time         `json:"fetched_at"`
	Records   []ReferenceRecord `json:"records"`
}

// Fresh reports whether the snapshot is still inside its TTL window at now.
// A zero or negative ttl means the snapshot is never fresh.
func (s *Snapshot) Fresh(now time.Time, ttl time.Duration) bool {
	if s == nil || ttl <= 0 {
		return false
	}
	return now.Sub(s.FetchedAt) < ttl
}

// MatchStrength grades how a candidate name matched a reference record.
type MatchStrength string

const (
	MatchExact     MatchStrength = "EXACT"
	MatchContained MatchStrength = "CONTAINED"
	MatchNone      MatchStrength = "NONE"
)

// MatchResult is the outcome of matching one entity against one reference source.
type MatchResult struct {
	Entity   string           `json:"entity"`
	Record   *ReferenceRecord `json:"record,omitempty"`
	Strength MatchStrength    `json:"strength"`
	Origin   Origin           `json:"origin"`
}

// Matched reports whether the result links the entity to a record.
func (m MatchResult) Matched() bool {
	return m.Strength == MatchExact || m.Strength == MatchContained
}

// BestEffort is true for substring matches. The first qualifying record wins
// without any ranking, so these results should be reviewed by a human.
func (m MatchResult) BestEffort() bool {
	return m.Strength == MatchContained
}

// Classification is the resolver's verdict for an entity.
type Classification string

const (
	MatchedPrimary   Classification = "MATCHED_PRIMARY"
	MatchedSecondary Classification = "MATCHED_SECONDARY"
	Orphan           Classification = "ORPHAN"
)

// Resolution is the result of resolving one entity across ranked sources.
type Resolution struct {
	Entity         Entity         `json:"entity"`
	Classification Classification `json:"classification"`
	Match          MatchResult    `json:"match"`
	// Rank is the index of the source that produced Match, or -1 for orphans.
	Rank     int           `json:"rank"`
	Attempts []MatchResult `json:"attempts"`
}
