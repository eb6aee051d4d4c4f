package query

import "strings"

// Op is a predicate operator.
type Op int

const (
	// OpEquals compares a column to a value.
	OpEquals Op = iota
	// OpContains is a case-insensitive substring match.
	OpContains
)

// Predicate is one conjunct of a filter.
type Predicate struct {
	Column string
	Op     Op
	Value  any
}

// Equals builds an equality predicate.
func Equals(column string, value any) Predicate {
	return Predicate{Column: column, Op: OpEquals, Value: value}
}

// Contains builds a substring predicate. LIKE metacharacters in s match
// literally.
func Contains(column, s string) Predicate {
	return Predicate{Column: column, Op: OpContains, Value: "%" + escapeLike(s) + "%"}
}

// Filter is the transient descriptor of a list request. A Skip or Take that
// is zero or negative is treated as absent.
type Filter struct {
	Predicates []Predicate
	Skip       int
	Take       int
}

// Where appends predicates to f and returns it.
func (f Filter) Where(preds ...Predicate) Filter {
	f.Predicates = append(append([]Predicate(nil), f.Predicates...), preds...)
	return f
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
