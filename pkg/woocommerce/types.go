package woocommerce

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Address is a WooCommerce billing or shipping address.
type Address struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Company   string `json:"company"`
	Address1  string `json:"address_1"`
	Address2  string `json:"address_2"`
	City      string `json:"city"`
	State     string `json:"state"`
	Postcode  string `json:"postcode"`
	Country   string `json:"country"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// Customer is a WooCommerce customer (a WordPress user with store data).
type Customer struct {
	ID          int64   `json:"id"`
	Email       string  `json:"email"`
	FirstName   string  `json:"first_name"`
	LastName    string  `json:"last_name"`
	Role        string  `json:"role"`
	Username    string  `json:"username"`
	DateCreated string  `json:"date_created"`
	Billing     Address `json:"billing"`
	Shipping    Address `json:"shipping"`
}

// MetaData is one product meta entry. Values can be any JSON type.
type MetaData struct {
	ID    int64           `json:"id"`
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// Product is a WooCommerce product. Author credits live in the ACF
// "author_full_name" field or, on older products, in meta_data.
type Product struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Slug     string          `json:"slug"`
	Status   string          `json:"status"`
	SKU      string          `json:"sku"`
	ACF      json.RawMessage `json:"acf,omitempty"`
	MetaData []MetaData      `json:"meta_data"`
}

// AuthorFieldKey is the ACF/meta key holding the author credit line.
const AuthorFieldKey = "author_full_name"

// AuthorFullName returns the product's author credit line, or "".
func (p Product) AuthorFullName() string {
	// WordPress sends `"acf": []` when no fields are set, so only decode objects.
	if trimmed := bytes.TrimSpace(p.ACF); len(trimmed) > 0 && trimmed[0] == '{' {
		var acf map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &acf); err == nil {
			if s := rawString(acf[AuthorFieldKey]); s != "" {
				return s
			}
		}
	}
	for _, m := range p.MetaData {
		if m.Key == AuthorFieldKey {
			if s := rawString(m.Value); s != "" {
				return s
			}
		}
	}
	return ""
}

func rawString(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

// LineItem is one product line on an order.
type LineItem struct {
	ID        int64  `json:"id"`
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Total     string `json:"total"`
}

// Order is a WooCommerce order.
type Order struct {
	ID         int64      `json:"id"`
	CustomerID int64      `json:"customer_id"`
	Status     string     `json:"status"`
	Total      string     `json:"total"`
	Billing    Address    `json:"billing"`
	LineItems  []LineItem `json:"line_items"`
}

// User is a WordPress user as returned by /wp/v2/users?context=edit.
type User struct {
	ID        int64    `json:"id"`
	Username  string   `json:"username"`
	Name      string   `json:"name"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Email     string   `json:"email"`
	Slug      string   `json:"slug"`
	Roles     []string `json:"roles"`
}
