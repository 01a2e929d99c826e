package services

import (
	"context"
	"fmt"
	"net/url"

	"github.com/nodrake/ndh/internal/api"
	"github.com/nodrake/ndh/internal/shared"
)

// CommunityService implements [CommunityAPI] for browsing and subscribing
// to shared blocklists.
type CommunityService struct {
	client api.Doer
}

var _ CommunityAPI = (*CommunityService)(nil)

// NewCommunityService creates a community service speaking through client.
func NewCommunityService(client api.Doer) *CommunityService {
	return &CommunityService{client: client}
}

// Browse fetches one page of community lists, optionally filtered by a
// search query.
func (s *CommunityService) Browse(ctx context.Context, query string, page, perPage int) (*CommunityPage, error) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 20
	}
	if perPage > 50 {
		perPage = 50
	}

	params := url.Values{}
	params.Set("page", fmt.Sprintf("%d", page))
	params.Set("per_page", fmt.Sprintf("%d", perPage))
	if query != "" {
		params.Set("q", query)
	}

	var result CommunityPage
	if err := s.client.Get(ctx, "/api/v1/community/lists?"+params.Encode(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Get fetches a single list with its entries.
func (s *CommunityService) Get(ctx context.Context, listID string) (*CommunityList, error) {
	if listID == "" {
		return nil, fmt.Errorf("%w: list id", shared.ErrMissingArgument)
	}

	var list CommunityList
	endpoint := "/api/v1/community/lists/" + url.PathEscape(listID)
	if err := s.client.Get(ctx, endpoint, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// Subscribe adds the list's artists to the user's effective blocklist.
// With autoUpdate the subscription tracks future list revisions.
func (s *CommunityService) Subscribe(ctx context.Context, listID string, autoUpdate bool) error {
	if listID == "" {
		return fmt.Errorf("%w: list id", shared.ErrMissingArgument)
	}

	body := map[string]bool{"auto_update": autoUpdate}
	endpoint := "/api/v1/community/lists/" + url.PathEscape(listID) + "/subscribe"
	return s.client.Post(ctx, endpoint, body, nil)
}

// Unsubscribe removes the subscription.
func (s *CommunityService) Unsubscribe(ctx context.Context, listID string) error {
	if listID == "" {
		return fmt.Errorf("%w: list id", shared.ErrMissingArgument)
	}

	endpoint := "/api/v1/community/lists/" + url.PathEscape(listID) + "/subscribe"
	return s.client.Delete(ctx, endpoint, nil)
}

// Subscriptions lists the user's community list subscriptions.
func (s *CommunityService) Subscriptions(ctx context.Context) ([]Subscription, error) {
	var payload struct {
		Subscriptions []Subscription `json:"subscriptions"`
	}
	if err := s.client.Get(ctx, "/api/v1/community/subscriptions", &payload); err != nil {
		return nil, err
	}
	return payload.Subscriptions, nil
}
