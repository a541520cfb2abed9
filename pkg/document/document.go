// Package document implements the schema-less document model shared by assets
// and attachments. A Document is a JSON-shaped mapping; field access goes
// through dotted paths so that filter semantics match nested structure.
package document

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Document is a dynamically-typed JSON object. Values are the types produced
// by encoding/json: string, float64, bool, nil, []any and map[string]any.
type Document map[string]any

// FromJSON decodes a JSON object into a Document.
func FromJSON(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return doc, nil
}

// ToJSON encodes the document as JSON.
func (d Document) ToJSON() ([]byte, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return data, nil
}

// Clone returns a deep copy. Mutating the copy never affects the original.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = cloneValue(e)
		}
		return out
	case Document:
		return map[string]any(val.Clone())
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// Lookup resolves a dotted field path against the document. It returns the
// first value found and whether the path resolved at all.
func (d Document) Lookup(path string) (any, bool) {
	values := d.LookupAll(path)
	if len(values) == 0 {
		return nil, false
	}
	return values[0], true
}

// LookupAll resolves a dotted field path, descending into arrays of objects
// at intermediate segments. The result is every value reachable via the path.
func (d Document) LookupAll(path string) []any {
	segments := strings.Split(path, ".")
	current := []any{map[string]any(d)}
	for _, seg := range segments {
		var next []any
		for _, v := range current {
			switch node := v.(type) {
			case map[string]any:
				if child, ok := node[seg]; ok {
					next = append(next, child)
				}
			case []any:
				for _, elem := range node {
					if m, ok := elem.(map[string]any); ok {
						if child, ok := m[seg]; ok {
							next = append(next, child)
						}
					}
				}
			}
		}
		if len(next) == 0 {
			return nil
		}
		current = next
	}
	return current
}

// Set assigns a top-level field. Dotted paths are not interpreted here: the
// service layer only ever writes top-level bookkeeping fields.
func (d Document) Set(field string, value any) {
	d[field] = value
}

// Delete removes a top-level field.
func (d Document) Delete(field string) {
	delete(d, field)
}

// GetString returns the field as a string, or "" when absent or not a string.
func (d Document) GetString(field string) string {
	v, ok := d.Lookup(field)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Has reports whether a top-level field is present.
func (d Document) Has(field string) bool {
	_, ok := d[field]
	return ok
}

// ValueEquals compares a document value against a filter value. Filter values
// arrive as strings; numbers and booleans are compared by parsed value so that
// "42" matches the JSON number 42. Array values match when any element does.
func ValueEquals(docValue any, filterValue string) bool {
	switch v := docValue.(type) {
	case string:
		return v == filterValue
	case float64:
		f, err := strconv.ParseFloat(filterValue, 64)
		return err == nil && f == v
	case json.Number:
		return v.String() == filterValue
	case bool:
		b, err := strconv.ParseBool(filterValue)
		return err == nil && b == v
	case []any:
		for _, elem := range v {
			if ValueEquals(elem, filterValue) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Scalars flattens a resolved value into its scalar elements: scalars pass
// through, arrays contribute their scalar elements, objects contribute
// nothing. Used by distinct-value summaries.
func Scalars(v any) []any {
	switch val := v.(type) {
	case []any:
		var out []any
		for _, elem := range val {
			switch elem.(type) {
			case string, float64, bool, json.Number, nil:
				out = append(out, elem)
			}
		}
		return out
	case map[string]any:
		return nil
	default:
		return []any{val}
	}
}
