package repositories

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/nodrake/ndh/internal/models"
	"github.com/nodrake/ndh/internal/shared"
)

const artistColumns = `
	id, sequence, provider, provider_artist_id, name, image_url,
	created_at, updated_at, deleted_at
`

// ArtistRepository implements models.Repository[*models.CachedArtist] for
// the artist cache.
type ArtistRepository struct {
	db *sql.DB
}

// NewArtistRepository creates a new ArtistRepository with the given database connection
func NewArtistRepository(db *sql.DB) *ArtistRepository {
	return &ArtistRepository{db: db}
}

// Create inserts a new cached artist with a generated ID and sequence
func (r *ArtistRepository) Create(artist *models.CachedArtist) error {
	if err := artist.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "artists")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	artist.SetID(shared.GenerateID())

	query := `
		INSERT INTO artists (` + artistColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		artist.ID(),
		sequence,
		artist.Provider(),
		artist.ProviderArtistID(),
		artist.Name(),
		nullable(artist.ImageURL()),
		artist.CreatedAt(),
		artist.UpdatedAt(),
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to insert artist: %w", err)
	}

	return nil
}

// Get retrieves a cached artist by local ID, excluding soft-deleted entries
func (r *ArtistRepository) Get(id string) (*models.CachedArtist, error) {
	query := `SELECT ` + artistColumns + ` FROM artists WHERE id = ? AND deleted_at IS NULL`
	artist, err := scanArtist(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", shared.ErrArtistNotFound, id)
	}
	return artist, err
}

// GetByProviderID retrieves a cached artist by its provider identity
func (r *ArtistRepository) GetByProviderID(provider, providerArtistID string) (*models.CachedArtist, error) {
	query := `
		SELECT ` + artistColumns + ` FROM artists
		WHERE provider = ? AND provider_artist_id = ? AND deleted_at IS NULL
	`
	artist, err := scanArtist(r.db.QueryRow(query, provider, providerArtistID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s/%s", shared.ErrArtistNotFound, provider, providerArtistID)
	}
	return artist, err
}

// Update modifies an existing cached artist
func (r *ArtistRepository) Update(artist *models.CachedArtist) error {
	if err := artist.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	artist.SetUpdatedAt(now)

	query := `
		UPDATE artists
		SET name = ?, image_url = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		artist.Name(),
		nullable(artist.ImageURL()),
		now,
		artist.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update artist: %w", err)
	}

	return requireRows(result, shared.ErrArtistNotFound, artist.ID())
}

// Delete soft-deletes a cached artist by local ID
func (r *ArtistRepository) Delete(id string) error {
	query := `
		UPDATE artists
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete artist: %w", err)
	}

	return requireRows(result, shared.ErrArtistNotFound, id)
}

// List retrieves cached artists matching the given criteria.
// Supported criteria: provider (string), name (string, substring match),
// limit (int).
func (r *ArtistRepository) List(criteria map[string]any) ([]*models.CachedArtist, error) {
	query := `SELECT ` + artistColumns + ` FROM artists WHERE deleted_at IS NULL`
	args := []any{}

	if provider, ok := criteria["provider"].(string); ok && provider != "" {
		query += " AND provider = ?"
		args = append(args, provider)
	}

	if name, ok := criteria["name"].(string); ok && name != "" {
		query += " AND name LIKE ?"
		args = append(args, "%"+name+"%")
	}

	query += " ORDER BY name COLLATE NOCASE ASC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query artists: %w", err)
	}
	defer rows.Close()

	var artists []*models.CachedArtist
	for rows.Next() {
		artist, err := scanArtist(rows)
		if err != nil {
			return nil, err
		}
		artists = append(artists, artist)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return artists, nil
}

// scanArtist reads one artist row from a [sql.Row] or [sql.Rows].
func scanArtist(row rowScanner) (*models.CachedArtist, error) {
	var (
		id               string
		sequence         int
		provider         string
		providerArtistID string
		name             string
		imageURL         sql.NullString
		createdAt        time.Time
		updatedAt        time.Time
		deletedAt        sql.NullTime
	)

	err := row.Scan(
		&id, &sequence, &provider, &providerArtistID, &name, &imageURL,
		&createdAt, &updatedAt, &deletedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan artist: %w", err)
	}

	artist := models.NewCachedArtist(sequence, provider, providerArtistID, name)
	artist.SetID(id)
	artist.SetCreatedAt(createdAt)
	artist.SetUpdatedAt(updatedAt)

	if imageURL.Valid {
		artist.SetImageURL(imageURL.String)
	}
	if deletedAt.Valid {
		artist.SetDeletedAt(&deletedAt.Time)
	}

	return artist, nil
}

// ArtistCacheAdapter provides insert-or-refresh caching over
// [ArtistRepository].
//
// Duplicate provider identities are updated in place rather than duplicated;
// racing inserts that trip the UNIQUE constraint are treated as already
// cached.
type ArtistCacheAdapter struct {
	repo *ArtistRepository
}

// NewArtistCacheAdapter creates a new ArtistCacheAdapter with the given repository
func NewArtistCacheAdapter(repo *ArtistRepository) *ArtistCacheAdapter {
	return &ArtistCacheAdapter{repo: repo}
}

// CacheArtist stores an artist identity seen in API responses. Existing
// entries have their name and image refreshed.
func (a *ArtistCacheAdapter) CacheArtist(provider, providerArtistID, name, imageURL string) error {
	existing, err := a.repo.GetByProviderID(provider, providerArtistID)
	if err == nil && existing != nil {
		if existing.Name() == name && existing.ImageURL() == imageURL {
			return nil
		}
		existing.SetName(name)
		existing.SetImageURL(imageURL)
		return a.repo.Update(existing)
	}

	artist := models.NewCachedArtist(0, provider, providerArtistID, name)
	artist.SetImageURL(imageURL)

	if err := a.repo.Create(artist); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return nil
		}
		return fmt.Errorf("failed to cache artist: %w", err)
	}

	return nil
}
