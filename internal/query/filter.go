package query

import "strings"

// AllLabel is the label shown for an unconstrained filter. It is only
// recognized when parsing user input; it never matches data.
const AllLabel = "All"

// Criterion is an optional equality constraint on one event field.
// The zero value matches everything.
type Criterion struct {
	value string
	set   bool
}

// Any returns a Criterion with no constraint.
func Any() Criterion { return Criterion{} }

// Only returns a Criterion that matches exactly v.
func Only(v string) Criterion { return Criterion{value: v, set: true} }

// ParseCriterion converts user input (URL query, CLI flag) into a
// Criterion. Empty input and "All" (any case) mean no constraint.
func ParseCriterion(s string) Criterion {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, AllLabel) {
		return Any()
	}
	return Only(s)
}

// IsSet reports whether the criterion constrains anything.
func (c Criterion) IsSet() bool { return c.set }

// Value returns the constrained value and whether one is set.
func (c Criterion) Value() (string, bool) { return c.value, c.set }

// Matches reports whether v satisfies the criterion.
func (c Criterion) Matches(v string) bool {
	return !c.set || c.value == v
}

// String returns the constrained value, or AllLabel when unset.
func (c Criterion) String() string {
	if !c.set {
		return AllLabel
	}
	return c.value
}

// Filter is the conjunction of a semester and a type constraint.
type Filter struct {
	Semester Criterion
	Type     Criterion
}

// IsZero reports whether neither criterion is set.
func (f Filter) IsZero() bool {
	return !f.Semester.IsSet() && !f.Type.IsSet()
}
