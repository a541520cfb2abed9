// Package query implements the filter micro-grammar, the parameter parser and
// the compiler that turns parsed filters into an abstract boolean query tree.
package query

// Operation is the comparison applied by a single filter condition.
type Operation string

const (
	Equals    Operation = "EQUALS"
	NotEquals Operation = "NOT_EQUALS"
)

// Condition is an immutable (operation, value) pair. Two conditions are equal
// iff operation and value match, which the struct comparison gives us for free.
type Condition struct {
	Op    Operation
	Value string
}

// FilterSpec maps a dotted field path to the ordered conditions filtering it.
// Conditions within one field are OR'd; fields are AND'd against each other.
type FilterSpec map[string][]Condition

// IsEmpty reports whether no field carries any condition.
func (f FilterSpec) IsEmpty() bool {
	return len(f) == 0
}

// Add appends a condition for a field, preserving order.
func (f FilterSpec) Add(field string, c Condition) {
	f[field] = append(f[field], c)
}
