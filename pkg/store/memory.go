package store

import (
	"context"
	"sync"

	"github.com/Mindburn-Labs/curator/pkg/document"
	"github.com/Mindburn-Labs/curator/pkg/query"
)

// MemoryStore is a thread-safe in-memory Store. It backs tests and small
// single-node deployments.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]document.Document
	ids  IDGenerator
}

// NewMemoryStore creates an empty in-memory collection. A nil generator
// defaults to UUIDs.
func NewMemoryStore(ids IDGenerator) *MemoryStore {
	if ids == nil {
		ids = UUIDGenerator{}
	}
	return &MemoryStore{
		docs: make(map[string]document.Document),
		ids:  ids,
	}
}

func (s *MemoryStore) Find(ctx context.Context, q query.Expr, ordering query.Sort, projection []string, page *query.Pagination) ([]document.Document, error) {
	s.mu.RLock()
	matched := s.matchLocked(q)
	s.mu.RUnlock()

	searchTerm := termOf(q)
	query.SortDocuments(matched, ordering, searchTerm, IDField)
	matched = query.ApplyPage(matched, page)

	out := make([]document.Document, len(matched))
	for i, doc := range matched {
		out[i] = query.Project(doc, projection, IDField)
	}
	return out, nil
}

func (s *MemoryStore) Count(ctx context.Context, q query.Expr) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, doc := range s.docs {
		if query.Matches(doc, q) {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Distinct(ctx context.Context, field string, q query.Expr) ([]any, error) {
	s.mu.RLock()
	matched := s.matchLocked(q)
	s.mu.RUnlock()

	return distinctValues(matched, field), nil
}

func (s *MemoryStore) Insert(ctx context.Context, doc document.Document) (document.Document, error) {
	stored := doc.Clone()
	stored.Set(IDField, s.ids.NewID())

	s.mu.Lock()
	s.docs[stored.GetString(IDField)] = stored
	s.mu.Unlock()

	return stored.Clone(), nil
}

func (s *MemoryStore) Replace(ctx context.Context, id string, doc document.Document) (document.Document, error) {
	stored := doc.Clone()
	stored.Set(IDField, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return nil, ErrNotFound
	}
	s.docs[id] = stored
	return stored.Clone(), nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return ErrNotFound
	}
	delete(s.docs, id)
	return nil
}

func (s *MemoryStore) FindOne(ctx context.Context, id string) (document.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return doc.Clone(), nil
}

// matchLocked snapshots every matching document. Callers hold at least a read
// lock.
func (s *MemoryStore) matchLocked(q query.Expr) []document.Document {
	var matched []document.Document
	for _, doc := range s.docs {
		if query.Matches(doc, q) {
			matched = append(matched, doc.Clone())
		}
	}
	return matched
}

// termOf extracts the search term from a compiled query, if any, so that
// relevance ordering can re-score documents.
func termOf(q query.Expr) string {
	switch node := q.(type) {
	case query.TextSearch:
		return node.Term
	case query.And:
		for _, sub := range node.Exprs {
			if t := termOf(sub); t != "" {
				return t
			}
		}
	}
	return ""
}

// distinctValues deduplicates the scalar values of one field across documents.
// Array-valued fields contribute their elements; nested objects are not
// expanded. Order follows first observation.
func distinctValues(docs []document.Document, field string) []any {
	seen := map[any]bool{}
	var out []any
	for _, doc := range docs {
		for _, v := range doc.LookupAll(field) {
			for _, scalar := range document.Scalars(v) {
				if !seen[scalar] {
					seen[scalar] = true
					out = append(out, scalar)
				}
			}
		}
	}
	return out
}
