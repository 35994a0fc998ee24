package target

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/catalog-migrate/internal/migrate"
	"github.com/sells-group/catalog-migrate/internal/model"
	"github.com/sells-group/catalog-migrate/pkg/salesforce"
)

// Salesforce upserts payloads as Contacts keyed by email.
type Salesforce struct {
	client salesforce.Client
}

// NewSalesforce wraps a Salesforce client.
func NewSalesforce(c salesforce.Client) *Salesforce {
	return &Salesforce{client: c}
}

// Upsert writes the payload as a Contact. Payloads keyed by phone cannot be
// matched in Salesforce and fail.
func (s *Salesforce) Upsert(ctx context.Context, p model.TargetPayload) (migrate.UpsertResult, error) {
	email := p.Fields.Email
	if email == "" && p.UpsertKey == model.UpsertKeyEmail {
		email = p.KeyValue()
	}
	if email == "" {
		return migrate.UpsertResult{}, eris.Errorf("target: salesforce contact %s has no email", p.SourceID)
	}

	res, err := salesforce.UpsertContactByEmail(ctx, s.client, email, ContactFields(p.Fields))
	if err != nil {
		return migrate.UpsertResult{}, err
	}
	return migrate.UpsertResult{TargetID: res.ID, Existed: res.Existed}, nil
}

// ContactFields maps customer fields onto Contact fields. Empty values are
// left out so an update never blanks existing data.
func ContactFields(f model.CustomerFields) map[string]any {
	out := map[string]any{}
	set := func(k, v string) {
		if v = strings.TrimSpace(v); v != "" {
			out[k] = v
		}
	}
	set("FirstName", f.FirstName)
	set("LastName", f.LastName)
	set("LeadSource", f.Source)
	if len(f.Phones) > 0 {
		set("Phone", f.Phones[0].Phone)
	}
	if len(f.Addresses) > 0 {
		a := f.Addresses[0]
		street := a.Address1
		if a.Address2 != "" {
			street += "\n" + a.Address2
		}
		set("MailingStreet", street)
		set("MailingCity", a.City)
		set("MailingState", a.State)
		set("MailingPostalCode", a.Zip)
		set("MailingCountry", a.Country)
	}
	return out
}
