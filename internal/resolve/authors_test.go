package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/catalog-migrate/internal/model"
)

func TestSplitAuthors(t *testing.T) {
	assert.Nil(t, SplitAuthors(""))
	assert.Nil(t, SplitAuthors("   "))
	assert.Equal(t, []string{"Dee Knight"}, SplitAuthors("Dee Knight"))
	assert.Equal(t, []string{"Dee Knight", "Jacqui Burnett"}, SplitAuthors("Dee Knight,Jacqui Burnett"))
	assert.Equal(t, []string{"A Person", "B Person"}, SplitAuthors(" A Person ,  B Person, "))
	assert.Equal(t, []string{"Breakfield & Burkey"}, SplitAuthors("Breakfield & Burkey"))
}

func product(id, title, authors string) model.ReferenceRecord {
	rec := model.ReferenceRecord{ID: id, Name: title, Origin: model.OriginWCProducts}
	if authors != "" {
		rec.Attributes = map[string]string{AttrAuthorFullName: authors}
	}
	return rec
}

func TestExtractAuthors(t *testing.T) {
	products := []model.ReferenceRecord{
		product("10", "Book One", "Dee Knight, Dan Flanigan"),
		product("11", "Book Two", ""),
		product("12", "Book Three", "Dan Flanigan"),
	}

	got := ExtractAuthors(products)
	require.Len(t, got, 2)

	assert.Equal(t, "Dee Knight", got[0].Name)
	assert.Equal(t, []model.SourceRef{{Kind: "product", ID: 10, Label: "Book One"}}, got[0].Sources)

	assert.Equal(t, "Dan Flanigan", got[1].Name)
	require.Len(t, got[1].Sources, 2)
	assert.Equal(t, int64(10), got[1].Sources[0].ID)
	assert.Equal(t, int64(12), got[1].Sources[1].ID)
}

func TestExtractAuthors_Empty(t *testing.T) {
	assert.Empty(t, ExtractAuthors(nil))
}
