package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/scouttools/basecamp/pkg/observability"
)

// KeycloakConfig holds the identity-provider connection settings.
type KeycloakConfig struct {
	// IssuerURL is the realm issuer, e.g.
	// https://sso.example.org/realms/scouts
	IssuerURL string

	// AdminBaseURL is the admin REST base for the realm, e.g.
	// https://sso.example.org/admin/realms/scouts
	AdminBaseURL string

	// ClientID and ClientSecret identify the service account used for
	// directory queries.
	ClientID     string
	ClientSecret string

	// RequestTimeout bounds each directory round trip.
	RequestTimeout time.Duration
}

// KeycloakResolver resolves group membership against a Keycloak realm. It
// verifies the caller's bearer token against the realm issuer and queries the
// admin REST API with a client-credentials service account.
type KeycloakResolver struct {
	verifier  *oidc.IDTokenVerifier
	client    *http.Client
	adminBase string
	logger    *observability.Logger
	metrics   *observability.Metrics
}

// NewKeycloakResolver discovers the realm and prepares the service-account
// client. The context governs discovery and token refresh.
func NewKeycloakResolver(ctx context.Context, cfg KeycloakConfig, logger *observability.Logger, metrics *observability.Metrics) (*KeycloakResolver, error) {
	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to discover identity provider: %w", err)
	}

	// Access tokens carry the requesting client's audience, not ours.
	verifier := provider.Verifier(&oidc.Config{SkipClientIDCheck: true})

	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     provider.Endpoint().TokenURL,
	}
	client := cc.Client(ctx)
	if cfg.RequestTimeout > 0 {
		client.Timeout = cfg.RequestTimeout
	}

	return &KeycloakResolver{
		verifier:  verifier,
		client:    client,
		adminBase: cfg.AdminBaseURL,
		logger:    logger,
		metrics:   metrics,
	}, nil
}

// GroupsOf returns the flat set of group ids the user belongs to. The
// caller's token must verify against the realm; any rejection or directory
// failure maps to ErrNotAuthorized.
func (r *KeycloakResolver) GroupsOf(ctx context.Context, token string, userID string) (GroupSet, error) {
	start := time.Now()

	if _, err := r.verifier.Verify(ctx, token); err != nil {
		r.observe("groups_of", start, err)
		return nil, fmt.Errorf("%w: token verification failed: %v", ErrNotAuthorized, err)
	}

	endpoint := fmt.Sprintf("%s/users/%s/groups", r.adminBase, url.PathEscape(userID))
	var groups []Group
	if err := r.getJSON(ctx, endpoint, &groups); err != nil {
		r.observe("groups_of", start, err)
		return nil, fmt.Errorf("%w: group lookup for user %s failed: %v", ErrNotAuthorized, userID, err)
	}
	r.observe("groups_of", start, nil)

	set := make(GroupSet, len(groups))
	for _, g := range groups {
		set[g.ID] = struct{}{}
	}
	return set, nil
}

// VerifyToken checks the bearer token against the realm's keys and returns
// its profile claims.
func (r *KeycloakResolver) VerifyToken(ctx context.Context, token string) (*Claims, error) {
	idToken, err := r.verifier.Verify(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: token verification failed: %v", ErrNotAuthorized, err)
	}

	var raw struct {
		PreferredUsername string `json:"preferred_username"`
		Email             string `json:"email"`
		Name              string `json:"name"`
	}
	if err := idToken.Claims(&raw); err != nil {
		return nil, fmt.Errorf("%w: malformed token claims: %v", ErrNotAuthorized, err)
	}

	return &Claims{
		Subject:  idToken.Subject,
		Username: raw.PreferredUsername,
		Email:    raw.Email,
		Name:     raw.Name,
	}, nil
}

// GroupByName finds a directory group by exact name. Absence maps to
// ErrGroupNotFound; transport failures propagate as-is so callers can tell an
// outage from an intentionally missing group.
func (r *KeycloakResolver) GroupByName(ctx context.Context, name string) (*Group, error) {
	start := time.Now()

	endpoint := fmt.Sprintf("%s/groups?exact=true&search=%s", r.adminBase, url.QueryEscape(name))
	var groups []Group
	if err := r.getJSON(ctx, endpoint, &groups); err != nil {
		r.observe("group_by_name", start, err)
		return nil, fmt.Errorf("directory lookup for group %q failed: %w", name, err)
	}
	r.observe("group_by_name", start, nil)

	for _, g := range groups {
		if g.Name == name {
			found := g
			return &found, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrGroupNotFound, name)
}

func (r *KeycloakResolver) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("directory returned %d: %s", resp.StatusCode, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func (r *KeycloakResolver) observe(operation string, start time.Time, err error) {
	if r.metrics != nil {
		r.metrics.ObserveDirectoryLookup(operation, start, err)
	}
}
