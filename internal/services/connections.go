package services

import (
	"context"
	"fmt"
	"net/url"

	"github.com/nodrake/ndh/internal/api"
	"github.com/nodrake/ndh/internal/shared"
)

// ConnectionService implements [ConnectionAPI] for linking streaming
// accounts through the backend's OAuth endpoints. The backend talks to the
// providers; this client only shuttles the authorization code and state
// nonce between the browser redirect and the link-callback endpoint.
type ConnectionService struct {
	client api.Doer
}

var _ ConnectionAPI = (*ConnectionService)(nil)

// NewConnectionService creates a connection service speaking through client.
func NewConnectionService(client api.Doer) *ConnectionService {
	return &ConnectionService{client: client}
}

// List fetches all streaming connections and their health.
func (s *ConnectionService) List(ctx context.Context) ([]Connection, error) {
	var payload struct {
		Connections []Connection `json:"connections"`
	}
	if err := s.client.Get(ctx, "/api/v1/connections", &payload); err != nil {
		return nil, err
	}
	return payload.Connections, nil
}

// Initiate starts a link flow. The backend answers with the provider's
// authorization URL and the CSRF state nonce the callback must echo; a
// session without a nonce is unusable and rejected here.
func (s *ConnectionService) Initiate(ctx context.Context, provider, redirectURI string) (*LinkSession, error) {
	if provider == "" {
		return nil, fmt.Errorf("%w: provider", shared.ErrMissingArgument)
	}

	body := map[string]string{"redirect_uri": redirectURI}

	var session LinkSession
	endpoint := oauthEndpoint(provider, "initiate")
	if err := s.client.Post(ctx, endpoint, body, &session); err != nil {
		return nil, err
	}

	if session.AuthorizationURL == "" {
		return nil, fmt.Errorf("%w: initiate response carried no authorization url", shared.ErrAPIRequest)
	}
	if session.State == "" {
		return nil, fmt.Errorf("%w: initiate response carried no state nonce", shared.ErrAPIRequest)
	}

	return &session, nil
}

// CompleteLink exchanges the callback's authorization code for a
// connection. The state nonce must already have been validated against the
// pending value; it is forwarded so the backend can verify it too.
func (s *ConnectionService) CompleteLink(ctx context.Context, provider, code, state, redirectURI string) (*Connection, error) {
	if provider == "" {
		return nil, fmt.Errorf("%w: provider", shared.ErrMissingArgument)
	}
	if code == "" {
		return nil, fmt.Errorf("%w: authorization code", shared.ErrMissingArgument)
	}
	if state == "" {
		return nil, fmt.Errorf("%w: state nonce", shared.ErrMissingArgument)
	}

	body := map[string]string{
		"code":         code,
		"state":        state,
		"redirect_uri": redirectURI,
	}

	var connection Connection
	endpoint := oauthEndpoint(provider, "link-callback")
	if err := s.client.Post(ctx, endpoint, body, &connection); err != nil {
		return nil, err
	}
	return &connection, nil
}

// Unlink disconnects a provider and revokes its tokens server-side.
func (s *ConnectionService) Unlink(ctx context.Context, provider string) error {
	if provider == "" {
		return fmt.Errorf("%w: provider", shared.ErrMissingArgument)
	}
	return s.client.Post(ctx, oauthEndpoint(provider, "unlink"), nil, nil)
}

// Accounts lists the external identities attached to the user.
func (s *ConnectionService) Accounts(ctx context.Context) ([]LinkedAccount, error) {
	var payload struct {
		Accounts []LinkedAccount `json:"accounts"`
	}
	if err := s.client.Get(ctx, "/api/v1/auth/oauth/accounts", &payload); err != nil {
		return nil, err
	}
	return payload.Accounts, nil
}

func oauthEndpoint(provider, action string) string {
	return "/api/v1/auth/oauth/" + url.PathEscape(provider) + "/" + action
}
