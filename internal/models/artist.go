package models

import (
	"fmt"
	"time"
)

// CachedArtist is a locally cached artist identity, keyed by provider plus
// the provider's artist ID. The cache lets repeat DNP lookups resolve names
// without a round trip.
type CachedArtist struct {
	id               string
	sequence         int
	provider         string
	providerArtistID string
	name             string
	imageURL         string
	createdAt        time.Time
	updatedAt        time.Time
	deletedAt        *time.Time
}

// NewCachedArtist creates a cache entry for a provider artist.
func NewCachedArtist(sequence int, provider, providerArtistID, name string) *CachedArtist {
	now := time.Now()
	return &CachedArtist{
		sequence:         sequence,
		provider:         provider,
		providerArtistID: providerArtistID,
		name:             name,
		createdAt:        now,
		updatedAt:        now,
	}
}

func (a *CachedArtist) ID() string               { return a.id }
func (a *CachedArtist) Sequence() int            { return a.sequence }
func (a *CachedArtist) Provider() string         { return a.provider }
func (a *CachedArtist) ProviderArtistID() string { return a.providerArtistID }
func (a *CachedArtist) Name() string             { return a.name }
func (a *CachedArtist) ImageURL() string         { return a.imageURL }
func (a *CachedArtist) CreatedAt() time.Time     { return a.createdAt }
func (a *CachedArtist) UpdatedAt() time.Time     { return a.updatedAt }
func (a *CachedArtist) DeletedAt() *time.Time    { return a.deletedAt }

func (a *CachedArtist) SetID(id string)           { a.id = id }
func (a *CachedArtist) SetName(name string)       { a.name = name }
func (a *CachedArtist) SetImageURL(url string)    { a.imageURL = url }
func (a *CachedArtist) SetCreatedAt(t time.Time)  { a.createdAt = t }
func (a *CachedArtist) SetUpdatedAt(t time.Time)  { a.updatedAt = t }
func (a *CachedArtist) SetDeletedAt(t *time.Time) { a.deletedAt = t }

// Validate checks that the entry carries a provider identity and a name.
func (a *CachedArtist) Validate() error {
	if a.provider == "" {
		return fmt.Errorf("cached artist requires a provider")
	}
	if a.providerArtistID == "" {
		return fmt.Errorf("cached artist requires a provider artist id")
	}
	if a.name == "" {
		return fmt.Errorf("cached artist requires a name")
	}
	return nil
}
