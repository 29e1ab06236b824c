// Package api exposes the HTTP surface: event CRUD, registrations and their
// nested resources, and the per-unit summary endpoint. Every handler runs
// behind bearer-token authentication; read endpoints additionally pass
// through permission gates and hierarchy-scoped filtering.
package api
