package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Mindburn-Labs/curator/pkg/document"
)

// Matches evaluates a compiled expression against a single document.
//
// EQUALS is satisfied when any value reachable via the field path equals the
// filter value (array fields match on their elements). NOT_EQUALS is the
// negation of that, so a document where the field is absent satisfies
// NOT_EQUALS. This mirrors document-store null handling and is deliberate.
func Matches(doc document.Document, e Expr) bool {
	switch node := e.(type) {
	case MatchAll:
		return true
	case And:
		for _, sub := range node.Exprs {
			if !Matches(doc, sub) {
				return false
			}
		}
		return true
	case Or:
		for _, sub := range node.Exprs {
			if Matches(doc, sub) {
				return true
			}
		}
		return false
	case Compare:
		return matchesCompare(doc, node)
	case TextSearch:
		return Score(doc, node.Term) > 0
	default:
		return false
	}
}

func matchesCompare(doc document.Document, c Compare) bool {
	equal := false
	for _, v := range doc.LookupAll(c.Field) {
		if document.ValueEquals(v, c.Value) {
			equal = true
			break
		}
	}
	if c.Op == NotEquals {
		return !equal
	}
	return equal
}

// Score computes the relevance of a document for a search term: the number of
// case-insensitive occurrences of the term across the document's string
// values, at any nesting depth. Zero means no match.
func Score(doc document.Document, term string) int {
	if term == "" {
		return 0
	}
	return scoreValue(map[string]any(doc), strings.ToLower(term))
}

func scoreValue(v any, lowerTerm string) int {
	switch val := v.(type) {
	case string:
		return strings.Count(strings.ToLower(val), lowerTerm)
	case map[string]any:
		total := 0
		for _, e := range val {
			total += scoreValue(e, lowerTerm)
		}
		return total
	case []any:
		total := 0
		for _, e := range val {
			total += scoreValue(e, lowerTerm)
		}
		return total
	default:
		return 0
	}
}

// SortDocuments orders docs in place according to the directive. idField
// supplies the deterministic tiebreak: equal sort keys fall back to ascending
// id, so repeated identical queries return identical orderings.
func SortDocuments(docs []document.Document, ordering Sort, searchTerm, idField string) {
	less := func(a, b document.Document) bool {
		return a.GetString(idField) < b.GetString(idField)
	}

	switch ordering.Kind {
	case SortNatural:
		// Stable default: id order.
	case SortByRelevance:
		less = func(a, b document.Document) bool {
			sa, sb := Score(a, searchTerm), Score(b, searchTerm)
			if sa != sb {
				return sa > sb
			}
			return a.GetString(idField) < b.GetString(idField)
		}
	case SortByField:
		field, desc := ordering.Field, ordering.Descending
		less = func(a, b document.Document) bool {
			ka, kb := sortKey(a, field), sortKey(b, field)
			if ka != kb {
				if desc {
					return ka > kb
				}
				return ka < kb
			}
			return a.GetString(idField) < b.GetString(idField)
		}
	}

	sort.SliceStable(docs, func(i, j int) bool { return less(docs[i], docs[j]) })
}

// sortKey renders a field value as a comparable string. Absent values sort
// first on ascending order.
func sortKey(doc document.Document, field string) string {
	v, ok := doc.Lookup(field)
	if !ok {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}

// ApplyPage slices docs to the pagination window. A nil page returns docs
// unchanged; a window past the end returns an empty slice.
func ApplyPage(docs []document.Document, page *Pagination) []document.Document {
	if page == nil {
		return docs
	}
	if page.Offset >= len(docs) {
		return nil
	}
	docs = docs[page.Offset:]
	if page.Limit < len(docs) {
		docs = docs[:page.Limit]
	}
	return docs
}

// Project reduces a document to the requested fields plus the id field.
// An empty projection returns the document as is.
func Project(doc document.Document, fields []string, idField string) document.Document {
	if len(fields) == 0 {
		return doc
	}
	out := document.Document{}
	if id, ok := doc.Lookup(idField); ok {
		out.Set(idField, id)
	}
	for _, f := range fields {
		if v, ok := doc.Lookup(f); ok {
			out.Set(f, v)
		}
	}
	return out
}
