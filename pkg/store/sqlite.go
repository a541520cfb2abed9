package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/Mindburn-Labs/curator/pkg/document"
	"github.com/Mindburn-Labs/curator/pkg/query"
)

// SQLiteStore persists documents as JSON rows in an embedded SQLite database.
// Query evaluation happens in Go against the decoded documents: the abstract
// query tree stays the single source of filter semantics across backends, and
// SQLite is the durability layer, not the query engine.
type SQLiteStore struct {
	db    *sql.DB
	table string
	ids   IDGenerator
}

// NewSQLiteStore creates (and migrates) a document table. A nil generator
// defaults to UUIDs.
func NewSQLiteStore(db *sql.DB, table string, ids IDGenerator) (*SQLiteStore, error) {
	if ids == nil {
		ids = UUIDGenerator{}
	}
	s := &SQLiteStore{db: db, table: table, ids: ids}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmt := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s (
		id  TEXT PRIMARY KEY,
		doc TEXT NOT NULL
	);`, s.table)
	if _, err := s.db.ExecContext(context.Background(), stmt); err != nil {
		return fmt.Errorf("failed to migrate table %s: %w", s.table, err)
	}
	return nil
}

func (s *SQLiteStore) Find(ctx context.Context, q query.Expr, ordering query.Sort, projection []string, page *query.Pagination) ([]document.Document, error) {
	matched, err := s.scan(ctx, q)
	if err != nil {
		return nil, err
	}

	query.SortDocuments(matched, ordering, termOf(q), IDField)
	matched = query.ApplyPage(matched, page)

	out := make([]document.Document, len(matched))
	for i, doc := range matched {
		out[i] = query.Project(doc, projection, IDField)
	}
	return out, nil
}

func (s *SQLiteStore) Count(ctx context.Context, q query.Expr) (int, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT doc FROM %s`, s.table))
	if err != nil {
		return 0, fmt.Errorf("count query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	n := 0
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return 0, err
		}
		if query.Matches(doc, q) {
			n++
		}
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("count scan failed: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) Distinct(ctx context.Context, field string, q query.Expr) ([]any, error) {
	matched, err := s.scan(ctx, q)
	if err != nil {
		return nil, err
	}
	return distinctValues(matched, field), nil
}

func (s *SQLiteStore) Insert(ctx context.Context, doc document.Document) (document.Document, error) {
	stored := doc.Clone()
	stored.Set(IDField, s.ids.NewID())

	data, err := stored.ToJSON()
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (id, doc) VALUES (?, ?)`, s.table),
		stored.GetString(IDField), string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to insert document: %w", err)
	}
	return stored, nil
}

func (s *SQLiteStore) Replace(ctx context.Context, id string, doc document.Document) (document.Document, error) {
	stored := doc.Clone()
	stored.Set(IDField, id)

	data, err := stored.ToJSON()
	if err != nil {
		return nil, err
	}
	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET doc = ? WHERE id = ?`, s.table),
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

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, s.table), id)
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

func (s *SQLiteStore) FindOne(ctx context.Context, id string) (document.Document, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT doc FROM %s WHERE id = ?`, s.table), id)

	var raw string
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load document: %w", err)
	}
	return document.FromJSON([]byte(raw))
}

func (s *SQLiteStore) scan(ctx context.Context, q query.Expr) ([]document.Document, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT doc FROM %s`, s.table))
	if err != nil {
		return nil, fmt.Errorf("find query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var matched []document.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		if query.Matches(doc, q) {
			matched = append(matched, doc)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find scan failed: %w", err)
	}
	return matched, nil
}

func scanDocument(rows *sql.Rows) (document.Document, error) {
	var raw string
	if err := rows.Scan(&raw); err != nil {
		return nil, fmt.Errorf("failed to scan document row: %w", err)
	}
	return document.FromJSON([]byte(raw))
}
