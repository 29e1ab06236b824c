package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/scouttools/basecamp/pkg/auth"
	"github.com/scouttools/basecamp/pkg/contextkeys"
	"github.com/scouttools/basecamp/pkg/httputil"
	"github.com/scouttools/basecamp/pkg/identity"
	"github.com/scouttools/basecamp/pkg/observability"
)

// Authenticator verifies bearer tokens and attaches the caller's profile to
// the request context. Profiles are provisioned from token claims on first
// login; the directory stays the source of truth for group membership.
type Authenticator struct {
	verifier identity.TokenVerifier
	users    auth.Store
	groups   identity.GroupResolver
	logger   *observability.Logger
}

// NewAuthenticator creates the authentication middleware.
func NewAuthenticator(verifier identity.TokenVerifier, users auth.Store, groups identity.GroupResolver, logger *observability.Logger) *Authenticator {
	return &Authenticator{
		verifier: verifier,
		users:    users,
		groups:   groups,
		logger:   logger,
	}
}

// Handler wraps next with bearer-token authentication. Requests without a
// valid token are rejected with 401 before reaching the handler.
func (m *Authenticator) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			httputil.WriteUnauthorized(w, "missing or malformed authorization header")
			return
		}

		claims, err := m.verifier.VerifyToken(r.Context(), token)
		if err != nil {
			httputil.WriteUnauthorized(w, "invalid or expired token")
			return
		}

		user, err := m.lookupOrProvision(r.Context(), claims)
		if err != nil {
			if m.logger != nil {
				m.logger.WithError(err).WithField("subject", claims.Subject).Error("failed to load user profile")
			}
			httputil.WriteInternalError(w, errors.New("failed to load user profile"))
			return
		}

		ctx := contextkeys.WithAuth(r.Context(), &auth.AuthContext{User: user, Token: token})
		ctx = contextkeys.WithUserID(ctx, user.ExternalID)
		// One memo per request: every role and scope resolution below this
		// point reuses a single directory round trip.
		ctx = withGroupResolver(ctx, identity.NewRequestScopedResolver(m.groups))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// lookupOrProvision returns the local profile for the verified subject,
// creating it from token claims on first login.
func (m *Authenticator) lookupOrProvision(ctx context.Context, claims *identity.Claims) (*auth.User, error) {
	user, err := m.users.GetByExternalID(ctx, claims.Subject)
	if err == nil {
		if touchErr := m.users.TouchLogin(ctx, user.ID); touchErr != nil && m.logger != nil {
			m.logger.WithError(touchErr).WithField("user", user.ID).Warn("failed to record login time")
		}
		return user, nil
	}
	if !errors.Is(err, auth.ErrUserNotFound) {
		return nil, err
	}

	user = &auth.User{
		ExternalID: claims.Subject,
		Username:   claims.Username,
		Email:      claims.Email,
		FullName:   claims.Name,
		IsActive:   true,
	}
	if err := m.users.Upsert(ctx, user); err != nil {
		return nil, err
	}
	if m.logger != nil {
		m.logger.WithField("subject", claims.Subject).Info("provisioned user profile on first login")
	}
	return user, nil
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// GetAuthContext extracts auth context from request
func GetAuthContext(r *http.Request) *auth.AuthContext {
	val := r.Context().Value(contextkeys.AuthKey)
	if val == nil {
		return nil
	}
	authCtx, ok := val.(*auth.AuthContext)
	if !ok {
		return nil
	}
	return authCtx
}

type groupResolverKey struct{}

func withGroupResolver(ctx context.Context, resolver identity.GroupResolver) context.Context {
	return context.WithValue(ctx, groupResolverKey{}, resolver)
}

// ContextGroupResolver routes group lookups through the request-scoped memo
// placed in the context by the Authenticator, falling back to the shared
// resolver for calls outside a request.
type ContextGroupResolver struct {
	fallback identity.GroupResolver
}

// NewContextGroupResolver creates a resolver backed by the request context.
func NewContextGroupResolver(fallback identity.GroupResolver) *ContextGroupResolver {
	return &ContextGroupResolver{fallback: fallback}
}

// GroupsOf delegates to the request-scoped resolver when present.
func (c *ContextGroupResolver) GroupsOf(ctx context.Context, token string, userID string) (identity.GroupSet, error) {
	if resolver, ok := ctx.Value(groupResolverKey{}).(identity.GroupResolver); ok {
		return resolver.GroupsOf(ctx, token, userID)
	}
	return c.fallback.GroupsOf(ctx, token, userID)
}
