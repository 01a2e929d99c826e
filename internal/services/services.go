package services

import (
	"context"
	"fmt"
	"time"

	"github.com/nodrake/ndh/internal/api"
	"github.com/nodrake/ndh/internal/shared"
)

// Aggressiveness levels accepted by the enforcement planner.
const (
	AggressivenessConservative = "conservative"
	AggressivenessModerate     = "moderate"
	AggressivenessAggressive   = "aggressive"
)

// Connection statuses reported by the backend.
const (
	ConnectionActive  = "active"
	ConnectionExpired = "expired"
	ConnectionError   = "error"
)

// AuthAPI is the account and session surface of the backend.
type AuthAPI interface {
	Register(ctx context.Context, email, password string) (*AuthResult, error)
	Login(ctx context.Context, email, password, totpCode string) (*AuthResult, error)
	Logout(ctx context.Context) error
	VerifyEmail(ctx context.Context, code string) (*User, error)
	Profile(ctx context.Context) (*User, error)
	UpdateProfile(ctx context.Context, email string) (*User, error)
	ChangePassword(ctx context.Context, currentPassword, newPassword string) error
}

// DNPAPI manages the personal do-not-play list.
type DNPAPI interface {
	List(ctx context.Context) ([]DNPEntry, error)
	Add(ctx context.Context, artistID string, tags []string, note string) (*DNPEntry, error)
	Update(ctx context.Context, artistID string, tags []string, note string) (*DNPEntry, error)
	Remove(ctx context.Context, artistID string) error
	SearchArtists(ctx context.Context, query string, limit int) ([]Artist, error)
	Export(ctx context.Context) (*DNPExport, error)
}

// ConnectionAPI manages streaming-service links.
type ConnectionAPI interface {
	List(ctx context.Context) ([]Connection, error)
	Initiate(ctx context.Context, provider, redirectURI string) (*LinkSession, error)
	CompleteLink(ctx context.Context, provider, code, state, redirectURI string) (*Connection, error)
	Unlink(ctx context.Context, provider string) error
	Accounts(ctx context.Context) ([]LinkedAccount, error)
}

// CommunityAPI browses and subscribes to shared blocklists.
type CommunityAPI interface {
	Browse(ctx context.Context, query string, page, perPage int) (*CommunityPage, error)
	Get(ctx context.Context, listID string) (*CommunityList, error)
	Subscribe(ctx context.Context, listID string, autoUpdate bool) error
	Unsubscribe(ctx context.Context, listID string) error
	Subscriptions(ctx context.Context) ([]Subscription, error)
}

// EnforcementAPI drives the backend's enforcement workflow. The enforcement
// engine in the tasks package consumes it.
type EnforcementAPI interface {
	CreatePlan(ctx context.Context, providers []string, dryRun bool, opts EnforcementOptions) (*EnforcementPlan, error)
	Execute(ctx context.Context, planID, idempotencyKey string) (*EnforcementBatch, error)
	Progress(ctx context.Context, batchID string) (*EnforcementBatch, error)
	Rollback(ctx context.Context, batchID string) (*EnforcementBatch, error)
}

// ArtistCacher persists artists seen in search results for offline lookup.
// Implemented by repositories.ArtistCacheAdapter; caching is best-effort and
// never fails a search.
type ArtistCacher interface {
	CacheArtist(provider, providerArtistID, name, imageURL string) error
}

// Artist is a blockable artist known to the backend, optionally carrying
// the provider catalog identity it was resolved from.
type Artist struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	ImageURL         string            `json:"image_url,omitempty"`
	Provider         string            `json:"provider,omitempty"`
	ProviderArtistID string            `json:"provider_artist_id,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

// DNPEntry is one artist on the personal blocklist.
type DNPEntry struct {
	Artist    Artist    `json:"artist"`
	Tags      []string  `json:"tags,omitempty"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// DNPExport is the full blocklist in portable form.
type DNPExport struct {
	Entries    []DNPEntry `json:"entries"`
	Total      int        `json:"total"`
	ExportedAt time.Time  `json:"exported_at"`
}

// Connection is a linked streaming account and its health.
type Connection struct {
	Provider    string     `json:"provider"`
	Status      string     `json:"status"`
	ConnectedAt time.Time  `json:"connected_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	Scopes      []string   `json:"scopes,omitempty"`
}

// LinkSession is the backend's answer to an OAuth initiate request. The
// state nonce is generated server-side and must round-trip through the
// provider callback unchanged.
type LinkSession struct {
	AuthorizationURL string `json:"authorization_url"`
	State            string `json:"state"`
}

// LinkedAccount is an external identity attached to the user.
type LinkedAccount struct {
	Provider    string    `json:"provider"`
	AccountID   string    `json:"account_id"`
	DisplayName string    `json:"display_name,omitempty"`
	LinkedAt    time.Time `json:"linked_at"`
}

// CommunityList is a shared blocklist. Entries are present only when a
// single list is fetched.
type CommunityList struct {
	ID              string               `json:"id"`
	Name            string               `json:"name"`
	Description     string               `json:"description,omitempty"`
	Criteria        string               `json:"criteria,omitempty"`
	UpdateCadence   string               `json:"update_cadence,omitempty"`
	TotalArtists    int                  `json:"total_artists"`
	SubscriberCount int                  `json:"subscriber_count"`
	CreatedAt       time.Time            `json:"created_at"`
	Entries         []CommunityListEntry `json:"entries,omitempty"`
}

// CommunityListEntry is one artist on a community list.
type CommunityListEntry struct {
	Artist    Artist `json:"artist"`
	Rationale string `json:"rationale,omitempty"`
	Position  int    `json:"position"`
}

// CommunityPage is one page of community list search results.
type CommunityPage struct {
	Lists   []CommunityList `json:"lists"`
	Total   int             `json:"total"`
	Page    int             `json:"page"`
	PerPage int             `json:"per_page"`
}

// Subscription ties the user to a community list.
type Subscription struct {
	List         CommunityList `json:"list"`
	AutoUpdate   bool          `json:"auto_update"`
	SubscribedAt time.Time     `json:"subscribed_at"`
}

// User is the account profile.
type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"email_verified"`
	TOTPEnabled   bool      `json:"totp_enabled"`
	CreatedAt     time.Time `json:"created_at"`
}

// AuthResult is the outcome of a login or registration attempt. When the
// account has two-factor enabled and no code was supplied, Requires2FA is
// set and no tokens are issued.
type AuthResult struct {
	User        *User
	Tokens      api.TokenPair
	Requires2FA bool
}

// PlanImpact is the per-provider estimate of what enforcement would touch.
type PlanImpact struct {
	LikedSongs int `json:"liked_songs"`
	Playlists  int `json:"playlists"`
	Following  int `json:"following"`
	RadioSeeds int `json:"radio_seeds"`
}

// EnforcementPlan is a server-computed preview of an enforcement run.
// Read-only once returned.
type EnforcementPlan struct {
	PlanID                   string                       `json:"plan_id"`
	Providers                []string                     `json:"providers"`
	DryRun                   bool                         `json:"dry_run"`
	Resumable                bool                         `json:"resumable"`
	EstimatedDurationSeconds int                          `json:"estimated_duration_seconds"`
	Impact                   map[string]PlanImpact        `json:"impact"`
	Capabilities             map[string]map[string]string `json:"capabilities,omitempty"`
	Options                  EnforcementOptions           `json:"options"`
	CreatedAt                time.Time                    `json:"created_at"`
}

// BatchSummary counts a batch's items by outcome.
type BatchSummary struct {
	TotalItems     int `json:"total_items"`
	CompletedItems int `json:"completed_items"`
	FailedItems    int `json:"failed_items"`
	SkippedItems   int `json:"skipped_items"`
}

// BatchItem is one library mutation within a batch.
type BatchItem struct {
	Action       string `json:"action"`
	EntityType   string `json:"entity_type"`
	EntityID     string `json:"entity_id"`
	EntityName   string `json:"entity_name,omitempty"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// EnforcementBatch is one execution run of a plan. The server owns all
// mutation; clients observe it through progress polling.
type EnforcementBatch struct {
	ID           string             `json:"id"`
	Status       string             `json:"status"`
	DryRun       bool               `json:"dry_run"`
	Providers    []string           `json:"providers,omitempty"`
	Summary      BatchSummary       `json:"summary"`
	Items        []BatchItem        `json:"items,omitempty"`
	Options      EnforcementOptions `json:"options"`
	ErrorMessage string             `json:"error_message,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	CompletedAt  *time.Time         `json:"completed_at,omitempty"`
}

// EnforcementOptions shape what the planner considers blockable.
type EnforcementOptions struct {
	Aggressiveness      string `json:"aggressiveness"`
	BlockCollabs        bool   `json:"block_collabs"`
	BlockFeaturing      bool   `json:"block_featuring"`
	BlockSongwriterOnly bool   `json:"block_songwriter_only"`
}

// Validate checks the aggressiveness level.
func (o EnforcementOptions) Validate() error {
	switch o.Aggressiveness {
	case AggressivenessConservative, AggressivenessModerate, AggressivenessAggressive:
		return nil
	default:
		return fmt.Errorf("%w: unknown aggressiveness %q", shared.ErrInvalidInput, o.Aggressiveness)
	}
}

// OptionsFromConfig builds enforcement options from the [enforcement]
// config section, defaulting to moderate.
func OptionsFromConfig(cfg shared.EnforcementConfig) EnforcementOptions {
	opts := EnforcementOptions{
		Aggressiveness:      cfg.Aggressiveness,
		BlockCollabs:        cfg.BlockCollabs,
		BlockFeaturing:      cfg.BlockFeaturing,
		BlockSongwriterOnly: cfg.BlockSongwriterOnly,
	}
	if opts.Aggressiveness == "" {
		opts.Aggressiveness = AggressivenessModerate
	}
	return opts
}
