// Package segwik is a client for the Segwik CRM v2 REST API.
package segwik

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/catalog-migrate/internal/resilience"
)

// DefaultBaseURL is the production API root.
const DefaultBaseURL = "https://api.segwik.com/api/v2"

// Persona ids (custbase_id) decide which dashboard a customer sees.
const (
	PersonaAuthor       = 1120
	PersonaPublisher    = 1121
	PersonaListener     = 1122
	PersonaNarrator     = 1154
	PersonaSubpubAuthor = 1158
)

// Client talks to the customer endpoints.
type Client interface {
	// AddCustomer creates or updates a customer. The API matches existing
	// customers on the contact arrays. It is sent once: a resent add reports
	// is_exist for a customer the first attempt created.
	AddCustomer(ctx context.Context, customer any) (*AddResult, error)
	// LookupByPhone finds a customer created with a phone_json entry.
	LookupByPhone(ctx context.Context, phone string) (*LookupResult, error)
	// ListCustomers lists customers. Only the customer_id filter is honored.
	ListCustomers(ctx context.Context, filters map[string]any) (*ListResult, error)
}

// ID is a customer id. The API sends it as a number or a string depending
// on the endpoint, so both are accepted.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" {
		s = ""
	}
	*id = ID(s)
	return nil
}

// AddResult is the /customer/add response.
type AddResult struct {
	Success             bool   `json:"success"`
	CustomerID          ID     `json:"customer_id"`
	EncryptedCustomerID string `json:"encrypted_customer_id"`
	IsExist             bool   `json:"is_exist"`
	Message             string `json:"message"`
}

// LookupResult is the /customer/lookup response.
type LookupResult struct {
	IsCustomerExist bool   `json:"is_customer_exist"`
	CustomerID      ID     `json:"customer_id"`
	FirstName       string `json:"firstname"`
	LastName        string `json:"lastname"`
	Email           string `json:"email"`
}

// Customer is one row of /customer/list.
type Customer struct {
	CustomerID ID     `json:"customer_id"`
	FirstName  string `json:"firstname"`
	LastName   string `json:"lastname"`
	Email      string `json:"email"`
	CustbaseID int    `json:"custbase_id"`
}

// ListResult is the /customer/list response.
type ListResult struct {
	Success  bool       `json:"success"`
	Data     []Customer `json:"data"`
	MetaData struct {
		Count int `json:"count"`
	} `json:"meta_data"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

// WithRateLimit overrides the default 5 req/s throttle. Zero disables it.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			c.limiter = nil
		}
	}
}

// WithRetry overrides the retry policy.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) { c.retry = cfg }
}

type httpClient struct {
	token   string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

// NewClient creates a Segwik client authenticated with an API token.
func NewClient(token string, opts ...Option) Client {
	c := &httpClient{
		token:   token,
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(5, 5),
		retry:   resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) AddCustomer(ctx context.Context, customer any) (*AddResult, error) {
	body, err := c.withToken(customer)
	if err != nil {
		return nil, err
	}
	once := c.retry
	once.MaxAttempts = 1
	var out AddResult
	if err := c.do(ctx, once, http.MethodPost, "/customer/add", body, &out); err != nil {
		return nil, eris.Wrap(err, "segwik: add customer")
	}
	return &out, nil
}

func (c *httpClient) LookupByPhone(ctx context.Context, phone string) (*LookupResult, error) {
	path := fmt.Sprintf("/customer/lookup/%s/%s", url.PathEscape(c.token), url.PathEscape(phone))
	var out LookupResult
	if err := c.do(ctx, c.retry, http.MethodGet, path, nil, &out); err != nil {
		return nil, eris.Wrap(err, "segwik: lookup customer")
	}
	return &out, nil
}

func (c *httpClient) ListCustomers(ctx context.Context, filters map[string]any) (*ListResult, error) {
	body, err := c.withToken(filters)
	if err != nil {
		return nil, err
	}
	var out ListResult
	if err := c.do(ctx, c.retry, http.MethodPost, "/customer/list", body, &out); err != nil {
		return nil, eris.Wrap(err, "segwik: list customers")
	}
	return &out, nil
}

// withToken flattens v into a JSON object and adds the API token, which
// Segwik expects in the body of every POST.
func (c *httpClient) withToken(v any) ([]byte, error) {
	fields := map[string]any{}
	if v != nil {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, eris.Wrap(err, "segwik: encode body")
		}
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, eris.Wrap(err, "segwik: body must be a JSON object")
		}
	}
	fields["token"] = c.token
	out, err := json.Marshal(fields)
	return out, eris.Wrap(err, "segwik: encode body")
}

func (c *httpClient) do(ctx context.Context, retry resilience.RetryConfig, method, path string, body []byte, out any) error {
	return resilience.Do(ctx, retry, func(ctx context.Context) error {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return eris.Wrap(err, "segwik: rate limit")
			}
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return eris.Wrap(err, "segwik: create request")
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return resilience.NewTransientError(eris.Wrap(err, "segwik: send request"), 0)
		}
		defer resp.Body.Close() //nolint:errcheck

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return resilience.NewTransientError(eris.Wrap(err, "segwik: read response body"), resp.StatusCode)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return resilience.ClassifyStatus("segwik", resp.StatusCode, string(respBody))
		}
		if err := json.Unmarshal(respBody, out); err != nil {
			return eris.Wrapf(err, "segwik: decode response (status %d)", resp.StatusCode)
		}
		return nil
	})
}
