// Package woocommerce is a client for the WooCommerce and WordPress REST APIs
// of the source store.
package woocommerce

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/catalog-migrate/internal/resilience"
)

// MaxPerPage is the largest page size WooCommerce accepts.
const MaxPerPage = 100

// Client reads customers, products, orders and WordPress users.
type Client interface {
	ListCustomers(ctx context.Context, opts ListOptions) ([]Customer, error)
	ListProducts(ctx context.Context, opts ListOptions) ([]Product, error)
	ListOrders(ctx context.Context, opts ListOptions) ([]Order, error)
	ListUsers(ctx context.Context, opts ListOptions) ([]User, error)
}

// ListOptions narrows a paginated listing.
type ListOptions struct {
	// Limit caps the number of items returned. Zero means all.
	Limit int
	// Params are extra query parameters such as role=all or status=any.
	Params url.Values
}

// Credentials authenticate against the store.
type Credentials struct {
	ConsumerKey    string
	ConsumerSecret string
	// WordPress application password, needed for /wp/v2/users?context=edit.
	WPUsername string
	WPPassword string
}

// Option configures the client.
type Option func(*httpClient)

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

// WithPerPage overrides the page size (mainly for tests).
func WithPerPage(n int) Option {
	return func(c *httpClient) {
		if n > 0 && n <= MaxPerPage {
			c.perPage = n
		}
	}
}

type httpClient struct {
	baseURL string
	creds   Credentials
	http    *http.Client
	limiter *rate.Limiter
	retry   resilience.RetryConfig
	perPage int
	log     *zap.Logger
}

// NewClient creates a client for the store at baseURL (the WordPress site root).
func NewClient(baseURL string, creds Credentials, opts ...Option) Client {
	c := &httpClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		http:    &http.Client{Timeout: 60 * time.Second},
		limiter: rate.NewLimiter(5, 5),
		retry:   resilience.DefaultRetryConfig(),
		perPage: MaxPerPage,
		log:     zap.L().With(zap.String("component", "woocommerce")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) ListCustomers(ctx context.Context, opts ListOptions) ([]Customer, error) {
	return fetchAll[Customer](ctx, c, "/wp-json/wc/v3/customers", opts, c.storeAuth)
}

func (c *httpClient) ListProducts(ctx context.Context, opts ListOptions) ([]Product, error) {
	return fetchAll[Product](ctx, c, "/wp-json/wc/v3/products", opts, c.storeAuth)
}

func (c *httpClient) ListOrders(ctx context.Context, opts ListOptions) ([]Order, error) {
	return fetchAll[Order](ctx, c, "/wp-json/wc/v3/orders", opts, c.storeAuth)
}

func (c *httpClient) ListUsers(ctx context.Context, opts ListOptions) ([]User, error) {
	params := cloneParams(opts.Params)
	params.Set("context", "edit")
	opts.Params = params
	return fetchAll[User](ctx, c, "/wp-json/wp/v2/users", opts, c.wpAuth)
}

func (c *httpClient) storeAuth(req *http.Request) {
	req.SetBasicAuth(c.creds.ConsumerKey, c.creds.ConsumerSecret)
}

func (c *httpClient) wpAuth(req *http.Request) {
	req.SetBasicAuth(c.creds.WPUsername, c.creds.WPPassword)
}

// fetchAll walks page=1..N. It stops when page >= X-WP-TotalPages, when a
// page comes back empty, or when opts.Limit items have been collected.
func fetchAll[T any](ctx context.Context, c *httpClient, path string, opts ListOptions, auth func(*http.Request)) ([]T, error) {
	var all []T
	for page := 1; ; page++ {
		params := cloneParams(opts.Params)
		params.Set("per_page", strconv.Itoa(c.perPage))
		params.Set("page", strconv.Itoa(page))

		body, totalPages, err := c.get(ctx, path, params, auth)
		if err != nil {
			return nil, eris.Wrapf(err, "woocommerce: list %s page %d", path, page)
		}

		var items []T
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, eris.Wrapf(err, "woocommerce: decode %s page %d", path, page)
		}
		all = append(all, items...)

		c.log.Debug("fetched page",
			zap.String("path", path),
			zap.Int("page", page),
			zap.Int("total_pages", totalPages),
			zap.Int("items", len(items)),
		)

		if opts.Limit > 0 && len(all) >= opts.Limit {
			return all[:opts.Limit], nil
		}
		if page >= totalPages || len(items) == 0 {
			return all, nil
		}
	}
}

func (c *httpClient) get(ctx context.Context, path string, params url.Values, auth func(*http.Request)) ([]byte, int, error) {
	type result struct {
		body       []byte
		totalPages int
	}

	res, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) (result, error) {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return result{}, eris.Wrap(err, "woocommerce: rate limit")
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
		if err != nil {
			return result{}, eris.Wrap(err, "woocommerce: create request")
		}
		req.Header.Set("Accept", "application/json")
		auth(req)

		resp, err := c.http.Do(req)
		if err != nil {
			return result{}, resilience.NewTransientError(eris.Wrap(err, "woocommerce: send request"), 0)
		}
		defer resp.Body.Close() //nolint:errcheck

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return result{}, eris.Wrap(err, "woocommerce: read response body")
		}
		if resp.StatusCode != http.StatusOK {
			return result{}, resilience.ClassifyStatus("woocommerce", resp.StatusCode, string(body))
		}

		total, err := strconv.Atoi(resp.Header.Get("X-WP-TotalPages"))
		if err != nil || total < 1 {
			total = 1
		}
		return result{body: body, totalPages: total}, nil
	})
	if err != nil {
		return nil, 0, err
	}
	return res.body, res.totalPages, nil
}

func cloneParams(p url.Values) url.Values {
	out := url.Values{}
	for k, v := range p {
		out[k] = append([]string(nil), v...)
	}
	return out
}
