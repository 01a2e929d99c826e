package tasks

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/nodrake/ndh/internal/services"
	"github.com/nodrake/ndh/internal/shared"
)

// Overview is a snapshot of everything the status command reports: who is
// signed in, which streaming services are linked, the do-not-play list, and
// community subscriptions.
type Overview struct {
	User          *services.User
	Connections   []services.Connection
	Entries       []services.DNPEntry
	Subscriptions []services.Subscription
}

// GatherOverview fetches all four sections concurrently. The first failure
// cancels the remaining fetches and is returned; an expired session fails
// here once instead of four times.
func GatherOverview(
	ctx context.Context,
	auth services.AuthAPI,
	connections services.ConnectionAPI,
	dnp services.DNPAPI,
	community services.CommunityAPI,
) (*Overview, error) {
	if auth == nil || connections == nil || dnp == nil || community == nil {
		return nil, fmt.Errorf("%w: service not initialized", shared.ErrServiceUnavailable)
	}

	var overview Overview

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		user, err := auth.Profile(ctx)
		if err != nil {
			return fmt.Errorf("profile: %w", err)
		}
		overview.User = user
		return nil
	})
	g.Go(func() error {
		conns, err := connections.List(ctx)
		if err != nil {
			return fmt.Errorf("connections: %w", err)
		}
		overview.Connections = conns
		return nil
	})
	g.Go(func() error {
		entries, err := dnp.List(ctx)
		if err != nil {
			return fmt.Errorf("list: %w", err)
		}
		overview.Entries = entries
		return nil
	})
	g.Go(func() error {
		subs, err := community.Subscriptions(ctx)
		if err != nil {
			return fmt.Errorf("subscriptions: %w", err)
		}
		overview.Subscriptions = subs
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &overview, nil
}
