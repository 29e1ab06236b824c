// Package hierarchy models the scouting organizational tree and the scope
// predicates built from it.
//
// # Overview
//
// Units form a self-referencing tree with a fixed level taxonomy:
//
//	Association (2) → Bund (3) → Ring (4) → Stamm (5) → Gruppe (6)
//
// Each unit carries denormalized references to its parent, grandparent, and
// great-grandparent. Because the taxonomy depth is a fixed constant of the
// domain, descendant scoping is implemented as a union of equality checks
// over those references instead of a recursive query; see Descendants.
//
// # Traversal
//
// FindAncestorAtLevel walks the parent chain upward through a Store. The
// walk is bounded by MaxWalkDepth and fails with ErrMalformedHierarchy on
// self-referencing or over-deep chains rather than looping.
//
// # Predicates
//
// A Predicate both evaluates in memory (Match) and renders to SQL over the
// denormalized ancestor columns (SQL), so the permission core and the
// postgres stores share one definition of visibility scope:
//
//	pred := hierarchy.Descendants(ring.ID)
//	args := hierarchy.NewArgList(0)
//	clause := pred.SQL("o", args)
//	// (o.id = $1 OR o.parent_id = $1 OR o.grandparent_id = $1 OR o.great_grandparent_id = $1)
package hierarchy
