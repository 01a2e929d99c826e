package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/nodrake/ndh/internal/api"
	"github.com/nodrake/ndh/internal/shared"
)

// DNPService implements [DNPAPI]. Search results are mirrored into the
// local artist cache when one is attached.
type DNPService struct {
	client api.Doer
	cache  ArtistCacher
}

var _ DNPAPI = (*DNPService)(nil)

// NewDNPService creates a DNP service. cache may be nil to disable local
// artist caching.
func NewDNPService(client api.Doer, cache ArtistCacher) *DNPService {
	return &DNPService{client: client, cache: cache}
}

// List fetches the personal blocklist.
func (s *DNPService) List(ctx context.Context) ([]DNPEntry, error) {
	var payload struct {
		Entries []DNPEntry `json:"entries"`
	}
	if err := s.client.Get(ctx, "/api/v1/dnp/list", &payload); err != nil {
		return nil, err
	}
	return payload.Entries, nil
}

// Add puts an artist on the blocklist.
func (s *DNPService) Add(ctx context.Context, artistID string, tags []string, note string) (*DNPEntry, error) {
	if artistID == "" {
		return nil, fmt.Errorf("%w: artist id", shared.ErrMissingArgument)
	}

	body := map[string]any{"artist_id": artistID}
	if len(tags) > 0 {
		body["tags"] = tags
	}
	if note != "" {
		body["note"] = note
	}

	var entry DNPEntry
	if err := s.client.Post(ctx, "/api/v1/dnp/list", body, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Update replaces the tags and note on an existing entry.
func (s *DNPService) Update(ctx context.Context, artistID string, tags []string, note string) (*DNPEntry, error) {
	if artistID == "" {
		return nil, fmt.Errorf("%w: artist id", shared.ErrMissingArgument)
	}

	body := map[string]any{"tags": tags, "note": note}

	var entry DNPEntry
	endpoint := "/api/v1/dnp/list/" + url.PathEscape(artistID)
	if err := s.client.Put(ctx, endpoint, body, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Remove takes an artist off the blocklist.
func (s *DNPService) Remove(ctx context.Context, artistID string) error {
	if artistID == "" {
		return fmt.Errorf("%w: artist id", shared.ErrMissingArgument)
	}

	endpoint := "/api/v1/dnp/list/" + url.PathEscape(artistID)
	if err := s.client.Delete(ctx, endpoint, nil); err != nil {
		var apiErr *api.Error
		if errors.As(err, &apiErr) && apiErr.Status == 404 {
			return fmt.Errorf("%w: %s", shared.ErrArtistNotFound, artistID)
		}
		return err
	}
	return nil
}

// SearchArtists looks up artists across the backend's provider catalogs.
// Results are cached locally, silently: a cache failure never fails the
// search.
func (s *DNPService) SearchArtists(ctx context.Context, query string, limit int) ([]Artist, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: search query", shared.ErrMissingArgument)
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}

	endpoint := fmt.Sprintf("/api/v1/dnp/search?q=%s&limit=%d", url.QueryEscape(query), limit)

	var payload struct {
		Artists []Artist `json:"artists"`
	}
	if err := s.client.Get(ctx, endpoint, &payload); err != nil {
		return nil, err
	}

	if s.cache != nil {
		for _, artist := range payload.Artists {
			if artist.Provider == "" || artist.ProviderArtistID == "" {
				continue
			}
			_ = s.cache.CacheArtist(artist.Provider, artist.ProviderArtistID, artist.Name, artist.ImageURL)
		}
	}

	return payload.Artists, nil
}

// Export fetches the blocklist in portable form for the export writers.
func (s *DNPService) Export(ctx context.Context) (*DNPExport, error) {
	var export DNPExport
	if err := s.client.Get(ctx, "/api/v1/dnp/export", &export); err != nil {
		return nil, err
	}
	return &export, nil
}
