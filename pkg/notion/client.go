// Package notion reads the client directory database that serves as a
// reference source for author reconciliation.
package notion

import (
	"context"
	"errors"
	"fmt"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/catalog-migrate/internal/resilience"
)

// Client queries Notion databases.
type Client interface {
	QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
}

// ClientOption configures the Notion client.
type ClientOption func(*notionClient)

// WithRateLimit overrides the default 3 req/s throttle. Zero disables it.
func WithRateLimit(rps float64) ClientOption {
	return func(c *notionClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			c.limiter = nil
		}
	}
}

// WithRetry overrides the retry policy for database queries.
func WithRetry(cfg resilience.RetryConfig) ClientOption {
	return func(c *notionClient) { c.retry = cfg }
}

type queryFunc func(ctx context.Context, id notionapi.DatabaseID, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)

type notionClient struct {
	query   queryFunc
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

// NewClient creates a client authenticated with an integration token.
func NewClient(token string, opts ...ClientOption) Client {
	inner := notionapi.NewClient(notionapi.Token(token))
	c := &notionClient{
		query:   inner.Database.Query,
		limiter: rate.NewLimiter(3, 1),
		retry:   resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *notionClient) QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*notionapi.DatabaseQueryResponse, error) {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, eris.Wrap(err, "notion: rate limit")
			}
		}
		resp, err := c.query(ctx, notionapi.DatabaseID(dbID), req)
		if err != nil {
			return nil, classify(err, dbID)
		}
		return resp, nil
	})
}

// classify maps API errors onto the resilience error types. Errors without
// an API status are network failures and count as transient.
func classify(err error, dbID string) error {
	var apiErr *notionapi.Error
	if !errors.As(err, &apiErr) {
		return resilience.NewTransientError(eris.Wrap(err, fmt.Sprintf("notion: query database %s", dbID)), 0)
	}
	return resilience.ClassifyStatus("notion", apiErr.Status, fmt.Sprintf("%s: %s", apiErr.Code, apiErr.Message))
}
