package auth

import "time"

// User is a local profile backed by an account in the identity directory.
// Group membership is never persisted here; it is resolved per request
// through the directory.
type User struct {
	ID         int64  `json:"id"`
	ExternalID string `json:"external_id"`
	Username   string `json:"username"`
	Email      string `json:"email,omitempty"`
	FullName   string `json:"full_name,omitempty"`

	// ScoutOrganisationID is the user's home org unit, typically at stamm or
	// gruppe level. Leadership scoping derives its boundary from it.
	ScoutOrganisationID *int64 `json:"scout_organisation_id,omitempty"`

	// IsSuperuser bypasses all permission and scope checks.
	IsSuperuser bool `json:"is_superuser"`

	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// AuthContext holds the authenticated caller for the duration of a request:
// the local profile and the raw bearer token forwarded to the identity
// directory for group resolution.
type AuthContext struct {
	User  *User
	Token string
}
