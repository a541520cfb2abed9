package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/Mindburn-Labs/curator/pkg/document"
	"github.com/Mindburn-Labs/curator/pkg/query"
)

// PostgresStore persists documents as JSONB rows and pushes compiled queries
// down into SQL. Equality clauses become JSONB path comparisons (matching
// array elements via containment), negations stay satisfied by absent fields,
// and field sorts plus pagination run server-side. Relevance ordering is the
// one thing evaluated in Go, since scoring is defined on the document, not
// the row.
type PostgresStore struct {
	db    *sql.DB
	table string
	ids   IDGenerator
}

// NewPostgresStore wraps an open connection. Call Init before first use.
func NewPostgresStore(db *sql.DB, table string, ids IDGenerator) *PostgresStore {
	if ids == nil {
		ids = UUIDGenerator{}
	}
	return &PostgresStore{db: db, table: table, ids: ids}
}

// Init creates the document table if needed.
func (s *PostgresStore) Init(ctx context.Context) error {
	stmt := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s (
		id  TEXT PRIMARY KEY,
		doc JSONB NOT NULL
	);`, s.table)
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to init table %s: %w", s.table, err)
	}
	return nil
}

func (s *PostgresStore) Find(ctx context.Context, q query.Expr, ordering query.Sort, projection []string, page *query.Pagination) ([]document.Document, error) {
	where, args := compileSQL(q)

	if ordering.Kind == query.SortByRelevance {
		// Score in Go: fetch all matches, order + paginate locally.
		docs, err := s.fetch(ctx, fmt.Sprintf(`SELECT doc FROM %s WHERE %s`, s.table, where), args)
		if err != nil {
			return nil, err
		}
		query.SortDocuments(docs, ordering, termOf(q), IDField)
		docs = query.ApplyPage(docs, page)
		return projectAll(docs, projection), nil
	}

	stmt := fmt.Sprintf(`SELECT doc FROM %s WHERE %s ORDER BY %s`,
		s.table, where, orderClause(ordering, &args))
	if page != nil {
		args = append(args, page.Limit, page.Offset)
		stmt += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	}

	docs, err := s.fetch(ctx, stmt, args)
	if err != nil {
		return nil, err
	}
	return projectAll(docs, projection), nil
}

func (s *PostgresStore) Count(ctx context.Context, q query.Expr) (int, error) {
	where, args := compileSQL(q)
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s`, s.table, where), args...)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count query failed: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) Distinct(ctx context.Context, field string, q query.Expr) ([]any, error) {
	where, args := compileSQL(q)
	docs, err := s.fetch(ctx, fmt.Sprintf(`SELECT doc FROM %s WHERE %s`, s.table, where), args)
	if err != nil {
		return nil, err
	}
	return distinctValues(docs, field), nil
}

func (s *PostgresStore) Insert(ctx context.Context, doc document.Document) (document.Document, error) {
	stored := doc.Clone()
	stored.Set(IDField, s.ids.NewID())

	data, err := stored.ToJSON()
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (id, doc) VALUES ($1, $2)`, s.table),
		stored.GetString(IDField), string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to insert document: %w", err)
	}
	return stored, nil
}

func (s *PostgresStore) Replace(ctx context.Context, id string, doc document.Document) (document.Document, error) {
	stored := doc.Clone()
	stored.Set(IDField, id)

	data, err := stored.ToJSON()
	if err != nil {
		return nil, err
	}
	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET doc = $1 WHERE id = $2`, s.table),
		string(data), id)
	if err != nil {
		return nil, fmt.Errorf("failed to replace document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read replace result: %w", err)
	}
	if affected == 0 {
		return nil, ErrNotFound
	}
	return stored, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, s.table), id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindOne(ctx context.Context, id string) (document.Document, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT doc FROM %s WHERE id = $1`, s.table), id)

	var raw []byte
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load document: %w", err)
	}
	return document.FromJSON(raw)
}

func (s *PostgresStore) fetch(ctx context.Context, stmt string, args []any) ([]document.Document, error) {
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("find query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var docs []document.Document
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan document row: %w", err)
		}
		doc, err := document.FromJSON(raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find scan failed: %w", err)
	}
	return docs, nil
}

func projectAll(docs []document.Document, projection []string) []document.Document {
	out := make([]document.Document, len(docs))
	for i, doc := range docs {
		out[i] = query.Project(doc, projection, IDField)
	}
	return out
}

// compileSQL renders a query tree as a WHERE clause over the JSONB doc
// column. Field paths travel as text[] parameters, values as parameters, so
// nothing user-controlled is ever spliced into the statement.
func compileSQL(q query.Expr) (string, []any) {
	b := &sqlBuilder{}
	clause := b.expr(q)
	return clause, b.args
}

type sqlBuilder struct {
	args []any
}

func (b *sqlBuilder) bind(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

func (b *sqlBuilder) expr(e query.Expr) string {
	switch node := e.(type) {
	case query.MatchAll:
		return "TRUE"
	case query.And:
		parts := make([]string, len(node.Exprs))
		for i, sub := range node.Exprs {
			parts[i] = b.expr(sub)
		}
		return "(" + strings.Join(parts, " AND ") + ")"
	case query.Or:
		parts := make([]string, len(node.Exprs))
		for i, sub := range node.Exprs {
			parts[i] = b.expr(sub)
		}
		return "(" + strings.Join(parts, " OR ") + ")"
	case query.Compare:
		return b.compare(node)
	case query.TextSearch:
		// ILIKE over the rendered JSON also matches key names and numeric
		// renderings, so this backend can select a superset of what the Go
		// evaluator matches (which only scans string values).
		// TODO: push scoring-compatible matching down via jsonb_path_query_array
		// over string values.
		pattern := "%" + escapeLike(node.Term) + "%"
		return fmt.Sprintf("doc::text ILIKE %s", b.bind(pattern))
	default:
		return "FALSE"
	}
}

// compare emits the equality test: scalar match on the extracted text, or
// containment for array-valued fields. COALESCE turns the NULL produced by an
// absent path into FALSE, which is what makes NOT_EQUALS match documents
// missing the field.
func (b *sqlBuilder) compare(c query.Compare) string {
	path := pq.Array(strings.Split(c.Field, "."))
	jsonValue, _ := json.Marshal(c.Value)

	pathParam := b.bind(path)
	scalarParam := b.bind(c.Value)
	containsParam := b.bind(string(jsonValue))

	clause := fmt.Sprintf(
		"COALESCE(doc #>> %s::text[] = %s OR doc #> %s::text[] @> %s::jsonb, FALSE)",
		pathParam, scalarParam, pathParam, containsParam)

	if c.Op == query.NotEquals {
		return "NOT " + clause
	}
	return clause
}

func orderClause(ordering query.Sort, args *[]any) string {
	switch ordering.Kind {
	case query.SortByField:
		*args = append(*args, pq.Array(strings.Split(ordering.Field, ".")))
		direction := "ASC"
		if ordering.Descending {
			direction = "DESC"
		}
		return fmt.Sprintf("doc #>> $%d::text[] %s, id ASC", len(*args), direction)
	default:
		return "id ASC"
	}
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
