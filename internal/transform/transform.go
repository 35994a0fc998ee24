// Package transform maps source records into target customer payloads.
// It performs no I/O.
package transform

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sells-group/catalog-migrate/internal/model"
	"github.com/sells-group/catalog-migrate/pkg/segwik"
	"github.com/sells-group/catalog-migrate/pkg/woocommerce"
)

// Fixed provenance values the target requires on synced customers.
const (
	CustType       = 84
	CreationMethod = "synced_via_wordpress"
	LeadFrom       = "zapier"
)

// Contact method types.
const (
	emailType   = "business"
	phoneType   = "Mobile"
	addressType = "business"
)

// MissingFieldError means a record has no usable contact identifier. The
// record is skipped, never defaulted.
type MissingFieldError struct {
	SourceID string
	Field    string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("transform: record %s: missing required field %s", e.SourceID, e.Field)
}

// Options configures a Transformer.
type Options struct {
	Personas PersonaTable
	// Source labels the run in the payload's provenance fields.
	Source string
}

// Transformer builds target payloads.
type Transformer struct {
	personas PersonaTable
	source   string
}

// New returns a Transformer. A zero persona table falls back to the default.
func New(opts Options) *Transformer {
	personas := opts.Personas
	if personas.Default == 0 && len(personas.Roles) == 0 {
		personas = DefaultPersonaTable()
	}
	return &Transformer{personas: personas, source: opts.Source}
}

// Transform maps a store customer. res is optional; when it links the
// customer to an author identity the persona is forced to author, and its
// record's email is used when the customer has none.
func (t *Transformer) Transform(c woocommerce.Customer, res *model.Resolution) (*model.TargetPayload, error) {
	sourceID := strconv.FormatInt(c.ID, 10)

	emails := emailEntries(c.Billing.Email, c.Email)
	if len(emails) == 0 && res != nil && res.Match.Record != nil {
		emails = emailEntries(res.Match.Record.Email)
	}
	phones := phoneEntries(c.Billing.Phone, c.Shipping.Phone)

	fields := model.CustomerFields{
		FirstName:       firstNonEmpty(c.Billing.FirstName, c.FirstName),
		LastName:        firstNonEmpty(c.Billing.LastName, c.LastName),
		Persona:         t.personas.Lookup(c.Role),
		WordPressUserID: c.ID,
	}
	if res != nil && res.Match.Matched() {
		fields.Persona = segwik.PersonaAuthor
	}
	if c.Billing.Address1 != "" {
		fields.Addresses = []model.AddressEntry{{
			Address1:  strings.TrimSpace(c.Billing.Address1),
			Address2:  strings.TrimSpace(c.Billing.Address2),
			City:      strings.TrimSpace(c.Billing.City),
			State:     strings.TrimSpace(c.Billing.State),
			Zip:       strings.TrimSpace(c.Billing.Postcode),
			Country:   strings.TrimSpace(c.Billing.Country),
			IsPrimary: true,
			Type:      addressType,
		}}
	}

	return t.finish(sourceID, c.Email, emails, phones, fields)
}

// TransformAuthor builds an author payload for a credited name that has no
// store account. Contact details come from the matched reference record.
func (t *Transformer) TransformAuthor(e model.Entity, res model.Resolution) (*model.TargetPayload, error) {
	sourceID := "author:" + e.Name

	rec := res.Match.Record
	if rec == nil || !res.Match.Matched() {
		return nil, &MissingFieldError{SourceID: sourceID, Field: "email"}
	}

	first, last := SplitName(e.Name)
	fields := model.CustomerFields{
		FirstName: first,
		LastName:  last,
		Persona:   segwik.PersonaAuthor,
	}
	if rec.Origin == model.OriginWPUsers {
		if id, err := strconv.ParseInt(rec.ID, 10, 64); err == nil {
			fields.WordPressUserID = id
		}
	}

	return t.finish(sourceID, rec.Email, emailEntries(rec.Email), nil, fields)
}

func (t *Transformer) finish(sourceID, sourceEmail string, emails []model.EmailEntry, phones []model.PhoneEntry, fields model.CustomerFields) (*model.TargetPayload, error) {
	if len(emails) == 0 && len(phones) == 0 {
		return nil, &MissingFieldError{SourceID: sourceID, Field: "email"}
	}

	fields.Emails = emails
	fields.Phones = phones
	fields.CustType = CustType
	fields.CreationMethod = CreationMethod
	fields.LeadFrom = LeadFrom
	fields.Source = t.source

	key := model.UpsertKeyEmail
	if len(emails) > 0 {
		fields.Email = emails[0].Email
	} else {
		key = model.UpsertKeyPhone
	}

	return &model.TargetPayload{
		SourceID:    sourceID,
		SourceEmail: strings.TrimSpace(sourceEmail),
		UpsertKey:   key,
		Fields:      fields,
	}, nil
}

// emailEntries returns one entry per distinct address, compared
// case-insensitively. Values without an '@' are dropped.
func emailEntries(candidates ...string) []model.EmailEntry {
	var out []model.EmailEntry
	seen := map[string]bool{}
	for _, c := range candidates {
		email := strings.TrimSpace(c)
		if email == "" || !strings.Contains(email, "@") {
			continue
		}
		k := strings.ToLower(email)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, model.EmailEntry{Email: email, IsPrimary: true, Type: emailType})
	}
	return out
}

func phoneEntries(candidates ...string) []model.PhoneEntry {
	var out []model.PhoneEntry
	seen := map[string]bool{}
	for _, c := range candidates {
		phone := strings.TrimSpace(c)
		k := digits(phone)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, model.PhoneEntry{Phone: phone, IsPrimary: true, Type: phoneType})
	}
	return out
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SplitName splits a display name on its last space into first and last
// names. A single word becomes the first name.
func SplitName(name string) (first, last string) {
	name = strings.Join(strings.Fields(name), " ")
	i := strings.LastIndex(name, " ")
	if i < 0 {
		return name, ""
	}
	return name[:i], name[i+1:]
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
