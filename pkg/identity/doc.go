// Package identity integrates the external identity directory (Keycloak)
// that owns group membership for the whole organization.
//
// GroupResolver answers the one question the permission core asks: which
// groups does this user transitively belong to? Directory answers a second,
// rarer one: does a well-known leadership group exist, and what is its id?
//
// KeycloakResolver implements both against the realm admin REST API, with
// the caller's bearer token verified through OIDC discovery. Two cache
// layers sit in front of it: RequestScopedResolver (one directory round trip
// per request) and RedisGroupCache (short-TTL cross-request cache).
// CachedDirectory memoizes well-known group lookups in an expiring LRU.
//
// Error contract: ErrNotAuthorized means the token was rejected or the
// directory failed hard; gates deny on it. ErrGroupNotFound means a named
// group is absent, which leadership resolution treats as a soft failure.
package identity
