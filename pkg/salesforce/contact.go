package salesforce

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Contact is the subset of a Salesforce Contact the migration reads back.
type Contact struct {
	ID        string `json:"Id" salesforce:"Id"`
	FirstName string `json:"FirstName" salesforce:"FirstName"`
	LastName  string `json:"LastName" salesforce:"LastName"`
	Email     string `json:"Email" salesforce:"Email"`
	Phone     string `json:"Phone" salesforce:"Phone"`
}

// UpsertResult reports what UpsertContactByEmail did.
type UpsertResult struct {
	ID      string
	Existed bool
}

// FindContactByEmail returns the first Contact with the given email, or nil.
func FindContactByEmail(ctx context.Context, c Client, email string) (*Contact, error) {
	soql := fmt.Sprintf(
		"SELECT Id, FirstName, LastName, Email, Phone FROM Contact WHERE Email = '%s' LIMIT 1",
		escapeSoql(email),
	)
	var contacts []Contact
	if err := c.Query(ctx, soql, &contacts); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("sf: find contact by email %s", email))
	}
	if len(contacts) == 0 {
		return nil, nil
	}
	return &contacts[0], nil
}

// UpsertContactByEmail updates the Contact holding email, or inserts one.
// Salesforce has no native upsert on a non-external-id field, so this is a
// lookup followed by UpdateOne or InsertOne.
func UpsertContactByEmail(ctx context.Context, c Client, email string, fields map[string]any) (*UpsertResult, error) {
	if strings.TrimSpace(email) == "" {
		return nil, eris.New("sf: contact email is required")
	}
	existing, err := FindContactByEmail(ctx, c, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if err := c.UpdateOne(ctx, "Contact", existing.ID, fields); err != nil {
			return nil, eris.Wrap(err, fmt.Sprintf("sf: update contact %s", existing.ID))
		}
		return &UpsertResult{ID: existing.ID, Existed: true}, nil
	}

	record := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		record[k] = v
	}
	record["Email"] = email
	if record["LastName"] == nil || record["LastName"] == "" {
		// LastName is required on Contact.
		record["LastName"] = email
	}
	id, err := c.InsertOne(ctx, "Contact", record)
	if err != nil {
		return nil, eris.Wrap(err, "sf: create contact")
	}
	return &UpsertResult{ID: id}, nil
}

// escapeSoql escapes backslashes and single quotes in SOQL string literals.
func escapeSoql(s string) string {
	return strings.NewReplacer(`\`, `\\`, "'", `\'`).Replace(s)
}
