// Package store defines the abstract document collection the service runs
// against, plus its in-memory, SQLite and Postgres implementations. The
// service layer depends on the Store interface only; which backend executes a
// compiled query is a deployment decision.
package store

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"

	"github.com/Mindburn-Labs/curator/pkg/document"
	"github.com/Mindburn-Labs/curator/pkg/query"
)

// IDField is the document field carrying the store-assigned identifier.
const IDField = "id"

// ErrNotFound is returned when no document carries the requested id.
var ErrNotFound = errors.New("document not found")

// Store is an abstract queryable document collection.
//
// Find applies sort before pagination, always. Count must not materialize
// matching documents. Insert assigns a fresh id and returns the stored copy;
// Replace requires the id to exist. Delete of an unknown id returns
// ErrNotFound; idempotency at the service boundary is the caller's concern.
//
// Concurrent read-modify-write of one document (retrieve, mutate, Replace) is
// only as safe as the backend's single-document atomicity. This layer takes
// no locks: a lost update between two concurrent writers is possible and
// accepted.
type Store interface {
	Find(ctx context.Context, q query.Expr, ordering query.Sort, projection []string, page *query.Pagination) ([]document.Document, error)
	Count(ctx context.Context, q query.Expr) (int, error)
	Distinct(ctx context.Context, field string, q query.Expr) ([]any, error)
	Insert(ctx context.Context, doc document.Document) (document.Document, error)
	Replace(ctx context.Context, id string, doc document.Document) (document.Document, error)
	Delete(ctx context.Context, id string) error
	FindOne(ctx context.Context, id string) (document.Document, error)
}

// IDGenerator mints identifiers for inserted documents. Identifiers are
// opaque strings; nothing in this module depends on their shape.
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator is the production generator.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}

// SequenceGenerator mints "1", "2", "3", ... and exists for deterministic
// fixtures in tests. Not safe for concurrent use.
type SequenceGenerator struct {
	next int
}

func (g *SequenceGenerator) NewID() string {
	g.next++
	return strconv.Itoa(g.next)
}
