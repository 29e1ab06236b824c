// Package registrations persists registrations and their nested records:
// participants, per-event custom attribute values, and booked payments.
//
// Every list query accepts a hierarchy.Predicate and renders it against the
// registration's org-unit row, so visibility scoping is decided once by the
// scope package and applied uniformly here.
package registrations
