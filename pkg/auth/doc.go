// Package auth holds the local user profile and the per-request
// authentication context.
//
// Accounts live in the identity directory; this package only persists the
// local profile (home org unit, superuser flag) keyed by the directory
// account id. AuthContext carries the authenticated user and the raw bearer
// token through a request so group membership can be resolved on demand.
package auth
