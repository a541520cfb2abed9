package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/curator/pkg/document"
	"github.com/Mindburn-Labs/curator/pkg/query"
)

func newFixtureStore(t *testing.T, docs ...document.Document) *MemoryStore {
	t.Helper()
	s := NewMemoryStore(&SequenceGenerator{})
	for _, doc := range docs {
		_, err := s.Insert(context.Background(), doc)
		require.NoError(t, err)
	}
	return s
}

// statusFixture is nine documents, three of which carry status=hot.
func statusFixture() []document.Document {
	docs := make([]document.Document, 0, 9)
	statuses := []string{"hot", "cold", "warm"}
	for i := 0; i < 9; i++ {
		docs = append(docs, document.Document{
			"name":   "asset",
			"status": statuses[i%3],
		})
	}
	return docs
}

// terrainFixture is the 3x3 weather/ground grid.
func terrainFixture() []document.Document {
	var docs []document.Document
	for _, weather := range []string{"hot", "cold", "warm"} {
		for _, ground := range []string{"flat", "hilly", "mountainous"} {
			docs = append(docs, document.Document{
				"weather": weather,
				"ground":  ground,
			})
		}
	}
	return docs
}

func ids(docs []document.Document) []string {
	out := make([]string, len(docs))
	for i, doc := range docs {
		out[i] = doc.GetString(IDField)
	}
	return out
}

func TestMemoryStoreCRUD(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(nil)

	stored, err := s.Insert(ctx, document.Document{"name": "widget"})
	require.NoError(t, err)
	id := stored.GetString(IDField)
	require.NotEmpty(t, id)

	t.Run("find one", func(t *testing.T) {
		got, err := s.FindOne(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "widget", got.GetString("name"))
	})

	t.Run("replace", func(t *testing.T) {
		got, err := s.Replace(ctx, id, document.Document{"name": "gadget"})
		require.NoError(t, err)
		assert.Equal(t, "gadget", got.GetString("name"))
		assert.Equal(t, id, got.GetString(IDField))
	})

	t.Run("replace unknown id", func(t *testing.T) {
		_, err := s.Replace(ctx, "nope", document.Document{})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, s.Delete(ctx, id))
		_, err := s.FindOne(ctx, id)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, s.Delete(ctx, id), ErrNotFound)
	})
}

func TestMemoryStoreInsertDoesNotMutateInput(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(nil)

	input := document.Document{"name": "widget"}
	_, err := s.Insert(ctx, input)
	require.NoError(t, err)
	assert.False(t, input.Has(IDField))
}

func TestMemoryStoreMatchAll(t *testing.T) {
	ctx := context.Background()
	s := newFixtureStore(t, statusFixture()...)

	docs, err := s.Find(ctx, query.MatchAll{}, query.Sort{}, nil, nil)
	require.NoError(t, err)
	assert.Len(t, docs, 9)

	n, err := s.Count(ctx, query.MatchAll{})
	require.NoError(t, err)
	assert.Equal(t, 9, n)
}

func TestMemoryStoreStatusFilter(t *testing.T) {
	ctx := context.Background()
	s := newFixtureStore(t, statusFixture()...)
	hot := query.Compare{Field: "status", Op: query.Equals, Value: "hot"}

	docs, err := s.Find(ctx, hot, query.Sort{}, nil, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"1", "4", "7"}, ids(docs))

	t.Run("pagination covering the full range changes nothing", func(t *testing.T) {
		paged, err := s.Find(ctx, hot, query.Sort{}, nil, &query.Pagination{Offset: 0, Limit: 100})
		require.NoError(t, err)
		assert.Equal(t, []string{"1", "4", "7"}, ids(paged))
	})

	t.Run("count equals unpaginated find length", func(t *testing.T) {
		n, err := s.Count(ctx, hot)
		require.NoError(t, err)
		assert.Equal(t, len(docs), n)
	})
}

func TestMemoryStoreTerrainGrid(t *testing.T) {
	ctx := context.Background()
	s := newFixtureStore(t, terrainFixture()...)

	expr := query.And{Exprs: []query.Expr{
		query.Or{Exprs: []query.Expr{
			query.Compare{Field: "weather", Op: query.Equals, Value: "hot"},
			query.Compare{Field: "weather", Op: query.Equals, Value: "warm"},
		}},
		query.Compare{Field: "ground", Op: query.NotEquals, Value: "mountainous"},
	}}

	docs, err := s.Find(ctx, expr, query.Sort{}, nil, nil)
	require.NoError(t, err)
	require.Len(t, docs, 4)
	for _, doc := range docs {
		assert.Contains(t, []string{"hot", "warm"}, doc.GetString("weather"))
		assert.NotEqual(t, "mountainous", doc.GetString("ground"))
	}

	n, err := s.Count(ctx, expr)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestMemoryStoreSortAndPage(t *testing.T) {
	ctx := context.Background()
	s := newFixtureStore(t,
		document.Document{"name": "charlie"},
		document.Document{"name": "alpha"},
		document.Document{"name": "bravo"},
	)

	docs, err := s.Find(ctx, query.MatchAll{},
		query.Sort{Kind: query.SortByField, Field: "name"}, nil,
		&query.Pagination{Offset: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	// Sort applies before pagination: the window lands on "bravo".
	assert.Equal(t, "bravo", docs[0].GetString("name"))
}

func TestMemoryStoreSearchRelevance(t *testing.T) {
	ctx := context.Background()
	s := newFixtureStore(t,
		document.Document{"name": "plain"},
		document.Document{"name": "wibble", "description": "wibble wibble"},
		document.Document{"name": "wibble"},
	)

	docs, err := s.Find(ctx, query.TextSearch{Term: "wibble"},
		query.Sort{Kind: query.SortByRelevance}, nil, nil)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "2", docs[0].GetString(IDField))
	assert.Equal(t, "3", docs[1].GetString(IDField))
}

func TestMemoryStoreProjection(t *testing.T) {
	ctx := context.Background()
	s := newFixtureStore(t, document.Document{"name": "widget", "status": "hot", "extra": "x"})

	docs, err := s.Find(ctx, query.MatchAll{}, query.Sort{}, []string{"name"}, nil)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "widget", docs[0].GetString("name"))
	assert.True(t, docs[0].Has(IDField))
	assert.False(t, docs[0].Has("status"))
}

func TestMemoryStoreDistinct(t *testing.T) {
	ctx := context.Background()
	s := newFixtureStore(t,
		document.Document{"type": "feature", "tags": []any{"a", "b"}},
		document.Document{"type": "sample", "tags": []any{"b", "c"}},
		document.Document{"type": "feature"},
	)

	types, err := s.Distinct(ctx, "type", query.MatchAll{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []any{"feature", "sample"}, types)

	t.Run("array fields contribute deduplicated elements", func(t *testing.T) {
		tags, err := s.Distinct(ctx, "tags", query.MatchAll{})
		require.NoError(t, err)
		assert.ElementsMatch(t, []any{"a", "b", "c"}, tags)
	})

	t.Run("distinct respects the filter", func(t *testing.T) {
		tags, err := s.Distinct(ctx, "tags",
			query.Compare{Field: "type", Op: query.Equals, Value: "sample"})
		require.NoError(t, err)
		assert.ElementsMatch(t, []any{"b", "c"}, tags)
	})
}
