package store

import (
	"context"
	"database/sql/driver"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/curator/pkg/document"
	"github.com/Mindburn-Labs/curator/pkg/query"
)

func TestCompileSQL(t *testing.T) {
	equalityClause := "COALESCE(doc #>> $1::text[] = $2 OR doc #> $1::text[] @> $3::jsonb, FALSE)"

	t.Run("match all", func(t *testing.T) {
		where, args := compileSQL(query.MatchAll{})
		assert.Equal(t, "TRUE", where)
		assert.Empty(t, args)
	})

	t.Run("equality", func(t *testing.T) {
		where, args := compileSQL(query.Compare{Field: "status", Op: query.Equals, Value: "hot"})
		assert.Equal(t, equalityClause, where)
		require.Len(t, args, 3)
		assert.Equal(t, "hot", args[1])
		assert.Equal(t, `"hot"`, args[2])
	})

	t.Run("negation keeps absent fields matching", func(t *testing.T) {
		where, _ := compileSQL(query.Compare{Field: "status", Op: query.NotEquals, Value: "hot"})
		assert.Equal(t, "NOT "+equalityClause, where)
	})

	t.Run("boolean composition", func(t *testing.T) {
		where, args := compileSQL(query.And{Exprs: []query.Expr{
			query.Or{Exprs: []query.Expr{
				query.Compare{Field: "a", Op: query.Equals, Value: "1"},
				query.Compare{Field: "a", Op: query.Equals, Value: "2"},
			}},
			query.Compare{Field: "b", Op: query.Equals, Value: "3"},
		}})
		assert.Equal(t,
			"((COALESCE(doc #>> $1::text[] = $2 OR doc #> $1::text[] @> $3::jsonb, FALSE)"+
				" OR COALESCE(doc #>> $4::text[] = $5 OR doc #> $4::text[] @> $6::jsonb, FALSE))"+
				" AND COALESCE(doc #>> $7::text[] = $8 OR doc #> $7::text[] @> $9::jsonb, FALSE))",
			where)
		assert.Len(t, args, 9)
	})

	t.Run("text search escapes LIKE metacharacters", func(t *testing.T) {
		where, args := compileSQL(query.TextSearch{Term: "50%_off"})
		assert.Equal(t, "doc::text ILIKE $1", where)
		require.Len(t, args, 1)
		assert.Equal(t, `%50\%\_off%`, args[0])
	})

	t.Run("nested field paths split on dots", func(t *testing.T) {
		_, args := compileSQL(query.Compare{Field: "info.version", Op: query.Equals, Value: "1.0"})
		require.Len(t, args, 3)
		path, err := args[0].(driver.Valuer).Value()
		require.NoError(t, err)
		assert.Equal(t, `{"info","version"}`, path)
	})
}

func TestOrderClause(t *testing.T) {
	t.Run("natural", func(t *testing.T) {
		var args []any
		assert.Equal(t, "id ASC", orderClause(query.Sort{}, &args))
		assert.Empty(t, args)
	})

	t.Run("field ascending with id tiebreak", func(t *testing.T) {
		var args []any
		clause := orderClause(query.Sort{Kind: query.SortByField, Field: "name"}, &args)
		assert.Equal(t, "doc #>> $1::text[] ASC, id ASC", clause)
		assert.Len(t, args, 1)
	})

	t.Run("field descending", func(t *testing.T) {
		var args []any
		clause := orderClause(query.Sort{Kind: query.SortByField, Field: "name", Descending: true}, &args)
		assert.Equal(t, "doc #>> $1::text[] DESC, id ASC", clause)
	})
}

func newMockPostgres(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresStore(db, "assets", &SequenceGenerator{}), mock
}

func TestPostgresStoreCount(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectQuery(`SELECT COUNT(*) FROM assets WHERE COALESCE(doc #>> $1::text[] = $2 OR doc #> $1::text[] @> $3::jsonb, FALSE)`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	n, err := s.Count(context.Background(),
		query.Compare{Field: "status", Op: query.Equals, Value: "hot"})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreFindPushesDownSortAndPage(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectQuery(`SELECT doc FROM assets WHERE TRUE ORDER BY doc #>> $1::text[] ASC, id ASC LIMIT $2 OFFSET $3`).
		WillReturnRows(sqlmock.NewRows([]string{"doc"}).
			AddRow([]byte(`{"id":"1","name":"alpha"}`)).
			AddRow([]byte(`{"id":"2","name":"bravo"}`)))

	docs, err := s.Find(context.Background(), query.MatchAll{},
		query.Sort{Kind: query.SortByField, Field: "name"}, nil,
		&query.Pagination{Offset: 0, Limit: 2})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "alpha", docs[0].GetString("name"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreFindRelevanceSortsLocally(t *testing.T) {
	s, mock := newMockPostgres(t)

	// No ORDER BY or LIMIT pushdown: scoring happens on the documents.
	mock.ExpectQuery(`SELECT doc FROM assets WHERE doc::text ILIKE $1`).
		WillReturnRows(sqlmock.NewRows([]string{"doc"}).
			AddRow([]byte(`{"id":"1","name":"wibble"}`)).
			AddRow([]byte(`{"id":"2","name":"wibble","description":"wibble wibble"}`)))

	docs, err := s.Find(context.Background(), query.TextSearch{Term: "wibble"},
		query.Sort{Kind: query.SortByRelevance}, nil, nil)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "2", docs[0].GetString(IDField))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreReplaceNotFound(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectExec(`UPDATE assets SET doc = $1 WHERE id = $2`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := s.Replace(context.Background(), "missing", document.Document{"name": "x"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreDelete(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectExec(`DELETE FROM assets WHERE id = $1`).
		WithArgs("1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM assets WHERE id = $1`).
		WithArgs("1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.Delete(context.Background(), "1"))
	assert.ErrorIs(t, s.Delete(context.Background(), "1"), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
