package flowrec

import "fmt"

// Role classifies how one field in a FieldSet participates in a query
// (spec §3, "FieldSet").
type Role int

const (
	RoleKey Role = iota
	RoleSum
	RoleMin
	RoleMax
	RoleSort
)

func (r Role) String() string {
	switch r {
	case RoleKey:
		return "key"
	case RoleSum:
		return "sum"
	case RoleMin:
		return "min"
	case RoleMax:
		return "max"
	case RoleSort:
		return "sort"
	default:
		return "unknown"
	}
}

// Column is one (field, role) pair in a FieldSet.
type Column struct {
	Field FieldID `json:"field"`
	Role  Role    `json:"role"`
}

// FieldSet is an ordered sequence of (field-id, role) pairs. Exactly one
// column may have RoleSort; any number may be RoleKey; at least one numeric
// field must be an aggregate (RoleSum/RoleMin/RoleMax). The invariant that
// the sort field, if present, is also aggregated and non-negative is
// enforced by Validate.
type FieldSet struct {
	Columns []Column `json:"columns"`
}

// Keys returns the FieldIDs with RoleKey, in declaration order.
func (fs FieldSet) Keys() []FieldID {
	var out []FieldID
	for _, c := range fs.Columns {
		if c.Role == RoleKey {
			out = append(out, c.Field)
		}
	}
	return out
}

// Aggregates returns the FieldIDs with an aggregate role, in declaration
// order, paired with their role.
func (fs FieldSet) Aggregates() []Column {
	var out []Column
	for _, c := range fs.Columns {
		if c.Role == RoleSum || c.Role == RoleMin || c.Role == RoleMax {
			out = append(out, c)
		}
	}
	return out
}

// SortField returns the sort column and true, or the zero Column and false
// if the FieldSet has none.
func (fs FieldSet) SortField() (Column, bool) {
	for _, c := range fs.Columns {
		if c.Role == RoleSort {
			return c, true
		}
	}
	return Column{}, false
}

// Validate checks the invariants spec.md §3 imposes on a FieldSet.
func (fs FieldSet) Validate() error {
	if len(fs.Columns) == 0 {
		return fmt.Errorf("field set must declare at least one column")
	}
	var sortCount int
	var sortField FieldID
	aggregated := map[FieldID]bool{}
	for _, c := range fs.Columns {
		if !Valid(c.Field) {
			return fmt.Errorf("unknown field id %d", c.Field)
		}
		switch c.Role {
		case RoleSort:
			sortCount++
			sortField = c.Field
		case RoleSum, RoleMin, RoleMax:
			aggregated[c.Field] = true
		case RoleKey:
		default:
			return fmt.Errorf("field %s: unknown role %d", c.Field, c.Role)
		}
	}
	if sortCount > 1 {
		return fmt.Errorf("at most one column may have role sort, got %d", sortCount)
	}
	if len(fs.Aggregates()) == 0 {
		return fmt.Errorf("field set must declare at least one aggregate column")
	}
	if sortCount == 1 && !aggregated[sortField] {
		return fmt.Errorf("sort field %s must also be an aggregate column", sortField)
	}
	return nil
}

// KeyWidth returns the total byte width of the key-tuple concatenation,
// i.e. the width of an aggtable.Table key built from this FieldSet.
func (fs FieldSet) KeyWidth() int {
	w := 0
	for _, k := range fs.Keys() {
		w += Width(k)
	}
	return w
}
