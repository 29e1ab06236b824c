package hierarchy

import (
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// ArgList collects query arguments while a predicate renders itself,
// producing sequential positional placeholders. The offset accounts for
// arguments the surrounding query has already bound.
type ArgList struct {
	values []interface{}
	offset int
}

// NewArgList creates an argument collector whose first placeholder is
// $offset+1.
func NewArgList(offset int) *ArgList {
	return &ArgList{offset: offset}
}

// Add appends a value and returns its placeholder.
func (a *ArgList) Add(value interface{}) string {
	a.values = append(a.values, value)
	return fmt.Sprintf("$%d", a.offset+len(a.values))
}

// Values returns the collected arguments in placeholder order.
func (a *ArgList) Values() []interface{} {
	return a.values
}

// Predicate is a composable filter over org units. It evaluates in memory
// against a unit's denormalized ancestor references and renders to a SQL
// fragment against the same columns, so stores and pure logic share one
// definition of scope.
type Predicate interface {
	// Match reports whether the unit falls inside the predicate's scope.
	Match(unit *OrgUnit) bool

	// SQL renders the predicate as a WHERE fragment over the org-unit row
	// aliased by alias, binding values through args.
	SQL(alias string, args *ArgList) string
}

// All returns a predicate matching every unit.
func All() Predicate { return allPredicate{} }

// None returns a predicate matching no unit. Gates that cannot establish a
// visibility boundary fall back to it.
func None() Predicate { return nonePredicate{} }

// Descendants returns a predicate matching the boundary unit itself and any
// unit whose fixed-depth ancestor chain includes it. The taxonomy is four
// levels deep below the association, so the scope is an OR over the direct
// id and the three denormalized ancestor columns, never a recursive query.
func Descendants(boundaryID int64) Predicate {
	return descendantsPredicate{ids: []int64{boundaryID}}
}

// DescendantsOfAny is Descendants over a set of boundary ids, used by the
// explicit stamm/ring/bund query-parameter filters.
func DescendantsOfAny(ids ...int64) Predicate {
	if len(ids) == 0 {
		return nonePredicate{}
	}
	return descendantsPredicate{ids: ids}
}

// And returns the conjunction of the given predicates.
func And(preds ...Predicate) Predicate {
	switch len(preds) {
	case 0:
		return allPredicate{}
	case 1:
		return preds[0]
	}
	return andPredicate(preds)
}

type allPredicate struct{}

func (allPredicate) Match(*OrgUnit) bool         { return true }
func (allPredicate) SQL(string, *ArgList) string { return "TRUE" }

type nonePredicate struct{}

func (nonePredicate) Match(*OrgUnit) bool         { return false }
func (nonePredicate) SQL(string, *ArgList) string { return "FALSE" }

type descendantsPredicate struct {
	ids []int64
}

func (p descendantsPredicate) Match(unit *OrgUnit) bool {
	if unit == nil {
		return false
	}
	for _, id := range p.ids {
		if unit.ID == id {
			return true
		}
		for _, ancestor := range unit.AncestorIDs() {
			if ancestor == id {
				return true
			}
		}
	}
	return false
}

func (p descendantsPredicate) SQL(alias string, args *ArgList) string {
	columns := []string{"id", "parent_id", "grandparent_id", "great_grandparent_id"}

	if len(p.ids) == 1 {
		placeholder := args.Add(p.ids[0])
		branches := make([]string, len(columns))
		for i, col := range columns {
			branches[i] = fmt.Sprintf("%s.%s = %s", alias, col, placeholder)
		}
		return "(" + strings.Join(branches, " OR ") + ")"
	}

	placeholder := args.Add(pq.Array(p.ids))
	branches := make([]string, len(columns))
	for i, col := range columns {
		branches[i] = fmt.Sprintf("%s.%s = ANY(%s)", alias, col, placeholder)
	}
	return "(" + strings.Join(branches, " OR ") + ")"
}

type andPredicate []Predicate

func (p andPredicate) Match(unit *OrgUnit) bool {
	for _, sub := range p {
		if !sub.Match(unit) {
			return false
		}
	}
	return true
}

func (p andPredicate) SQL(alias string, args *ArgList) string {
	branches := make([]string, len(p))
	for i, sub := range p {
		branches[i] = sub.SQL(alias, args)
	}
	return "(" + strings.Join(branches, " AND ") + ")"
}
