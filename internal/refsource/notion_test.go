package refsource

import (
	"context"
	"testing"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/catalog-migrate/internal/model"
)

// mockNotion implements notion.Client for testing.
type mockNotion struct {
	mock.Mock
}

func (m *mockNotion) QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	args := m.Called(ctx, dbID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notionapi.DatabaseQueryResponse), args.Error(1)
}

func clientPage(id, name, email, pen string) notionapi.Page {
	props := notionapi.Properties{
		"Client": &notionapi.TitleProperty{Title: []notionapi.RichText{{PlainText: name}}},
		"Email":  &notionapi.EmailProperty{Email: email},
	}
	if pen != "" {
		props["Pen Name"] = &notionapi.RichTextProperty{RichText: []notionapi.RichText{{PlainText: pen}}}
	}
	return notionapi.Page{ID: notionapi.ObjectID(id), Properties: props}
}

func TestNotionClients(t *testing.T) {
	mn := new(mockNotion)
	mn.On("QueryDatabase", mock.Anything, "db-clients", mock.Anything).Return(&notionapi.DatabaseQueryResponse{
		Results: []notionapi.Page{
			clientPage("aaaa-bbbb", "Terrel Lefferts", "terreld@example.com", "Once Upon a Dance"),
			clientPage("cccc", "", "blank@example.com", ""),
			clientPage("dddd", "Donna Griffit", "", ""),
		},
	}, nil).Once()

	recs, err := NotionClients(mn, NotionOptions{
		DatabaseID:    "db-clients",
		NameProperty:  "Client",
		EmailProperty: "Email",
		AliasProperty: "Pen Name",
	})(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, model.ReferenceRecord{
		ID: "aaaabbbb", Name: "Terrel Lefferts", Email: "terreld@example.com",
		Aliases: []string{"Once Upon a Dance"}, Origin: model.OriginNotionClients,
	}, recs[0])
	assert.Equal(t, "Donna Griffit", recs[1].Name)
	assert.Nil(t, recs[1].Aliases)
	mn.AssertExpectations(t)
}

func TestNotionClients_RequiresDatabase(t *testing.T) {
	_, err := NotionClients(new(mockNotion), NotionOptions{})(context.Background())
	assert.ErrorContains(t, err, "database id is required")
}

func TestNotionClients_Error(t *testing.T) {
	mn := new(mockNotion)
	mn.On("QueryDatabase", mock.Anything, "db", mock.Anything).Return(nil, assert.AnError).Once()

	_, err := NotionClients(mn, NotionOptions{DatabaseID: "db", NameProperty: "Client"})(context.Background())
	assert.ErrorContains(t, err, "refsource: notion clients")
}
