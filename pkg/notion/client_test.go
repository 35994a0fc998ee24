package notion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/catalog-migrate/internal/resilience"
)

// MockClient implements Client for testing.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	args := m.Called(ctx, dbID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notionapi.DatabaseQueryResponse), args.Error(1)
}

func TestMockClientSatisfiesInterface(t *testing.T) {
	t.Parallel()
	var _ Client = (*MockClient)(nil)
}

func TestQueryDatabase(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	expected := &notionapi.DatabaseQueryResponse{
		Results: []notionapi.Page{{ID: "page-1"}},
		HasMore: false,
	}

	mc.On("QueryDatabase", ctx, "db-123", mock.AnythingOfType("*notionapi.DatabaseQueryRequest")).
		Return(expected, nil)

	resp, err := mc.QueryDatabase(ctx, "db-123", &notionapi.DatabaseQueryRequest{})
	assert.NoError(t, err)
	assert.Len(t, resp.Results, 1)
	assert.Equal(t, notionapi.ObjectID("page-1"), resp.Results[0].ID)
	mc.AssertExpectations(t)
}

func TestNewClientReturnsClient(t *testing.T) {
	c := NewClient("test-token")
	assert.NotNil(t, c)
	var _ Client = c //nolint:staticcheck // interface compliance check
}

func TestQueryDatabaseError(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "db-err", mock.AnythingOfType("*notionapi.DatabaseQueryRequest")).
		Return(nil, assert.AnError)

	resp, err := mc.QueryDatabase(ctx, "db-err", &notionapi.DatabaseQueryRequest{})
	assert.Error(t, err)
	assert.Nil(t, resp)
	mc.AssertExpectations(t)
}

func TestWithRateLimit_ZeroDisables(t *testing.T) {
	c := NewClient("tok", WithRateLimit(0)).(*notionClient)
	assert.Nil(t, c.limiter)
}

func fastClient(query queryFunc) *notionClient {
	return &notionClient{
		query: query,
		retry: resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond},
	}
}

func TestQueryDatabase_RetriesRateLimited(t *testing.T) {
	var calls int
	c := fastClient(func(_ context.Context, id notionapi.DatabaseID, _ *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
		calls++
		assert.Equal(t, notionapi.DatabaseID("db-clients"), id)
		if calls == 1 {
			return nil, &notionapi.Error{Status: 429, Code: "rate_limited", Message: "slow down"}
		}
		return &notionapi.DatabaseQueryResponse{Results: []notionapi.Page{{ID: "p1"}}}, nil
	})

	resp, err := c.QueryDatabase(context.Background(), "db-clients", &notionapi.DatabaseQueryRequest{})
	require.NoError(t, err)
	assert.Len(t, resp.Results, 1)
	assert.Equal(t, 2, calls)
}

func TestQueryDatabase_AuthErrorNotRetried(t *testing.T) {
	var calls int
	c := fastClient(func(context.Context, notionapi.DatabaseID, *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
		calls++
		return nil, &notionapi.Error{Status: 401, Code: "unauthorized", Message: "API token is invalid."}
	})

	_, err := c.QueryDatabase(context.Background(), "db-clients", &notionapi.DatabaseQueryRequest{})
	var ae *resilience.AuthError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, 1, calls)
}

func TestClassify(t *testing.T) {
	assert.True(t, resilience.IsTransient(classify(errors.New("connection reset"), "db")))
	assert.True(t, resilience.IsTransient(classify(&notionapi.Error{Status: 502}, "db")))
	assert.False(t, resilience.IsTransient(classify(&notionapi.Error{Status: 400, Code: "validation_error"}, "db")))
	assert.True(t, resilience.IsAuth(classify(&notionapi.Error{Status: 403}, "db")))
}
