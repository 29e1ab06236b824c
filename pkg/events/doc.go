// Package events holds the Event entity and its postgres store.
//
// An event's authority wiring lives on the entity itself: the view and admin
// directory groups, the invited groups with their organizational tags, and
// the explicit responsible-person override list. The permission core reads
// these; this package only persists them.
package events
