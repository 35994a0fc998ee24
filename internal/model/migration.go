package model

import "time"

// EmailEntry is one typed email contact method in the target schema.
type EmailEntry struct {
	Email     string `json:"email"`
	IsPrimary bool   `json:"is_primary"`
	Type      string `json:"type"`
}

// PhoneEntry is one typed phone contact method in the target schema.
type PhoneEntry struct {
	Phone     string `json:"phone"`
	IsPrimary bool   `json:"is_primary"`
	Type      string `json:"type"`
}

// AddressEntry is one typed postal address in the target schema.
type AddressEntry struct {
	Address1  string `json:"address1"`
	Address2  string `json:"address2"`
	City      string `json:"city"`
	State     string `json:"state"`
	Zip       string `json:"zip"`
	Country   string `json:"country"`
	IsPrimary bool   `json:"is_primary"`
	Type      string `json:"type"`
}

// CustomerFields is the target-system customer record as sent on the wire.
type CustomerFields struct {
	Email           string         `json:"email,omitempty"`
	Emails          []EmailEntry   `json:"email_json,omitempty"`
	Phones          []PhoneEntry   `json:"phone_json,omitempty"`
	Addresses       []AddressEntry `json:"address_json,omitempty"`
	FirstName       string         `json:"firstname"`
	LastName        string         `json:"lastname"`
	Persona         int            `json:"custbase_id"`
	CustType        int            `json:"cust_type"`
	CreationMethod  string         `json:"creation_method"`
	LeadFrom        string         `json:"lead_from"`
	Source          string         `json:"source,omitempty"`
	WordPressUserID int64          `json:"wordpress_user_id,omitempty"`
}

// Upsert key fields understood by the target system.
const (
	UpsertKeyEmail = "email_json"
	UpsertKeyPhone = "phone_json"
)

// TargetPayload is a transformed record ready for the migration engine.
type TargetPayload struct {
	SourceID    string         `json:"source_id"`
	SourceEmail string         `json:"source_email,omitempty"`
	UpsertKey   string         `json:"upsert_key"`
	Fields      CustomerFields `json:"fields"`
}

// KeyValue returns the value of the identifying field the upsert is keyed on.
func (p TargetPayload) KeyValue() string {
	switch p.UpsertKey {
	case UpsertKeyPhone:
		if len(p.Fields.Phones) > 0 {
			return p.Fields.Phones[0].Phone
		}
	default:
		if len(p.Fields.Emails) > 0 {
			return p.Fields.Emails[0].Email
		}
	}
	return ""
}

// Outcome is the per-record result of a migration attempt.
type Outcome string

const (
	OutcomeCreated Outcome = "CREATED"
	OutcomeUpdated Outcome = "UPDATED"
	OutcomeFailed  Outcome = "FAILED"
	OutcomeDryRun  Outcome = "DRY_RUN"
)

// MigrationRecord is the ledger entry for one payload.
type MigrationRecord struct {
	SourceID    string        `json:"source_id"`
	SourceEmail string        `json:"source_email,omitempty"`
	Payload     TargetPayload `json:"payload"`
	Outcome     Outcome       `json:"outcome"`
	TargetID    string        `json:"target_id,omitempty"`
	Error       string        `json:"error,omitempty"`
	ProcessedAt time.Time     `json:"processed_at"`
}

// SkippedRecord is a source record excluded before migration.
type SkippedRecord struct {
	SourceID string `json:"source_id"`
	Reason   string `json:"reason"`
}

// LedgerCounts aggregates outcomes for a run.
type LedgerCounts struct {
	Attempted int `json:"attempted"`
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Failed    int `json:"failed"`
	DryRun    int `json:"dry_run"`
	Skipped   int `json:"skipped"`
}

// RunLedger collects every MigrationRecord produced by one run.
type RunLedger struct {
	RunID      string            `json:"run_id"`
	Kind       string            `json:"kind"`
	DryRun     bool              `json:"dry_run"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at,omitempty"`
	Records    []MigrationRecord `json:"records"`
	Skipped    []SkippedRecord   `json:"skipped,omitempty"`
	Counts     LedgerCounts      `json:"counts"`
	// Aborted carries the fatal run-level error, if the run stopped early.
	Aborted string `json:"aborted,omitempty"`
}

// Append adds a record and updates the counts.
func (l *RunLedger) Append(rec MigrationRecord) {
	l.Records = append(l.Records, rec)
	l.count(rec.Outcome)
}

// Skip records a source record that never reached the engine.
func (l *RunLedger) Skip(sourceID, reason string) {
	l.Skipped = append(l.Skipped, SkippedRecord{SourceID: sourceID, Reason: reason})
	l.Counts.Skipped++
}

// Recount rebuilds Counts from Records and Skipped.
func (l *RunLedger) Recount() {
	l.Counts = LedgerCounts{Skipped: len(l.Skipped)}
	for _, r := range l.Records {
		l.count(r.Outcome)
	}
}

func (l *RunLedger) count(o Outcome) {
	l.Counts.Attempted++
	switch o {
	case OutcomeCreated:
		l.Counts.Created++
	case OutcomeUpdated:
		l.Counts.Updated++
	case OutcomeFailed:
		l.Counts.Failed++
	case OutcomeDryRun:
		l.Counts.DryRun++
	}
}

// FailedPayloads returns the payloads of FAILED records, in ledger order.
func (l *RunLedger) FailedPayloads() []TargetPayload {
	var out []TargetPayload
	for _, r := range l.Records {
		if r.Outcome == OutcomeFailed {
			out = append(out, r.Payload)
		}
	}
	return out
}
