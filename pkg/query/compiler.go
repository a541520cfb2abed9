package query

import (
	"fmt"
	"sort"
	"strings"
)

// Expr is a node in the abstract boolean query tree handed to a ResourceStore.
// Stores interpret the tree natively (SQL pushdown, in-memory evaluation);
// the compiler never assumes a particular backend.
type Expr interface {
	// String renders a canonical form of the expression. Two semantically
	// identical compilations render identically, which makes the form usable
	// as a cache key.
	String() string
}

// MatchAll is the store's full-scan predicate.
type MatchAll struct{}

// And is the conjunction of its operands.
type And struct {
	Exprs []Expr
}

// Or is the disjunction of its operands.
type Or struct {
	Exprs []Expr
}

// Compare tests one field against one value.
type Compare struct {
	Field string
	Op    Operation
	Value string
}

// TextSearch is the free-text relevance predicate.
type TextSearch struct {
	Term string
}

func (MatchAll) String() string { return "*" }

func (a And) String() string {
	parts := make([]string, len(a.Exprs))
	for i, e := range a.Exprs {
		parts[i] = e.String()
	}
	return "and(" + strings.Join(parts, ",") + ")"
}

func (o Or) String() string {
	parts := make([]string, len(o.Exprs))
	for i, e := range o.Exprs {
		parts[i] = e.String()
	}
	return "or(" + strings.Join(parts, ",") + ")"
}

func (c Compare) String() string {
	op := "=="
	if c.Op == NotEquals {
		op = "!="
	}
	return fmt.Sprintf("%s%s%q", c.Field, op, c.Value)
}

func (t TextSearch) String() string { return fmt.Sprintf("text(%q)", t.Term) }

// SortKind distinguishes the three possible orderings of a result set.
type SortKind int

const (
	// SortNatural leaves ordering to the store's stable default.
	SortNatural SortKind = iota
	// SortByField orders by one field, ascending or descending.
	SortByField
	// SortByRelevance orders by descending text-search score.
	SortByRelevance
)

// Sort is the ordering directive produced alongside a compiled query.
type Sort struct {
	Kind       SortKind
	Field      string
	Descending bool
}

// Compile translates a FilterSpec plus optional search term into a query tree
// and its ordering.
//
// Each filtered field contributes one AND clause: a single condition compiles
// to a bare comparison, several conditions to an OR across them. A non-empty
// search term ANDs a text predicate into the tree and switches the ordering
// to descending relevance, unless the caller supplied an explicit sort, which
// always wins. Fields are emitted in lexical order so the compiled form is
// deterministic.
func Compile(filters FilterSpec, searchTerm string, explicit *SortOptions) (Expr, Sort) {
	ordering := Sort{Kind: SortNatural}
	if explicit != nil {
		ordering = Sort{Kind: SortByField, Field: explicit.Field, Descending: explicit.Descending}
	}

	var clauses []Expr

	fields := make([]string, 0, len(filters))
	for field := range filters {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		conditions := filters[field]
		if len(conditions) == 0 {
			continue
		}
		if len(conditions) == 1 {
			clauses = append(clauses, compareFor(field, conditions[0]))
			continue
		}
		ors := make([]Expr, len(conditions))
		for i, c := range conditions {
			ors[i] = compareFor(field, c)
		}
		clauses = append(clauses, Or{Exprs: ors})
	}

	if searchTerm != "" {
		clauses = append(clauses, TextSearch{Term: searchTerm})
		if explicit == nil {
			ordering = Sort{Kind: SortByRelevance}
		}
	}

	switch len(clauses) {
	case 0:
		return MatchAll{}, ordering
	case 1:
		return clauses[0], ordering
	default:
		return And{Exprs: clauses}, ordering
	}
}

func compareFor(field string, c Condition) Expr {
	return Compare{Field: field, Op: c.Op, Value: c.Value}
}
