package main

import (
	"context"
	"fmt"
	"time"

	"github.com/nodrake/ndh/internal/shared"
	"github.com/urfave/cli/v3"
)

// CacheList shows artists in the local cache. The cache fills as a side
// effect of searches and imports; this is a debugging aid for checking
// what the CLI has seen.
func (r *Runner) CacheList(ctx context.Context, cmd *cli.Command) error {
	if r.artists == nil {
		return fmt.Errorf("%w: cache needs the database, run 'ndh setup database'", shared.ErrServiceUnavailable)
	}

	criteria := map[string]any{"limit": cmd.Int("limit")}
	if provider := cmd.String("provider"); provider != "" {
		criteria["provider"] = provider
	}

	artists, err := r.artists.List(criteria)
	if err != nil {
		return err
	}

	if len(artists) == 0 {
		return r.writePlain("Artist cache is empty.\n")
	}

	r.writePlain("Cached artists (%d):\n\n", len(artists))
	for i, artist := range artists {
		r.writePlain("%d. %s (%s)\n", i+1, artist.Name(), artist.Provider())
		r.writePlain("   Cached: %s\n", artist.UpdatedAt().Format(time.RFC1123))
	}
	return nil
}

// CacheClear deletes every cached artist.
func (r *Runner) CacheClear(ctx context.Context, cmd *cli.Command) error {
	if r.artists == nil {
		return fmt.Errorf("%w: cache needs the database, run 'ndh setup database'", shared.ErrServiceUnavailable)
	}

	artists, err := r.artists.List(map[string]any{})
	if err != nil {
		return err
	}

	for _, artist := range artists {
		if err := r.artists.Delete(artist.ID()); err != nil {
			return err
		}
	}

	r.logger.Info("artist cache cleared", "deleted", len(artists))
	return r.writePlain("✓ Cleared %d cached artists\n", len(artists))
}
