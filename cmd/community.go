package main

import (
	"context"
	"fmt"
	"time"

	"github.com/nodrake/ndh/internal/shared"
	"github.com/urfave/cli/v3"
)

// CommunityLists browses the community list directory.
func (r *Runner) CommunityLists(ctx context.Context, cmd *cli.Command) error {
	query := cmd.String("query")
	page := cmd.Int("page")
	perPage := cmd.Int("per-page")
	useJSON := cmd.Bool("json")

	result, err := r.community.Browse(ctx, query, page, perPage)
	if err != nil {
		return err
	}

	if useJSON {
		return r.writeJSON(result, true)
	}

	if len(result.Lists) == 0 {
		if query != "" {
			return r.writePlain("No community lists match %q.\n", query)
		}
		return r.writePlain("No community lists published yet.\n")
	}

	r.writePlain("Community lists (page %d, %d total):\n\n", result.Page, result.Total)
	for i, list := range result.Lists {
		r.writePlain("%d. %s\n", i+1, list.Name)
		r.writePlain("   ID: %s\n", list.ID)
		if list.Description != "" {
			r.writePlain("   %s\n", list.Description)
		}
		r.writePlain("   Artists: %d, Subscribers: %d\n", list.TotalArtists, list.SubscriberCount)
	}
	return nil
}

// CommunityShow fetches one list with its artists.
func (r *Runner) CommunityShow(ctx context.Context, cmd *cli.Command) error {
	listID := cmd.StringArg("list-id")
	if listID == "" {
		return fmt.Errorf("%w: list-id argument is required", shared.ErrMissingArgument)
	}
	useJSON := cmd.Bool("json")

	list, err := r.community.Get(ctx, listID)
	if err != nil {
		return err
	}

	if useJSON {
		return r.writeJSON(list, true)
	}

	r.writePlainHeader(list.Name)
	if list.Description != "" {
		r.writePlain("%s\n", list.Description)
	}
	if list.Criteria != "" {
		r.writePlain("Criteria: %s\n", list.Criteria)
	}
	if list.UpdateCadence != "" {
		r.writePlain("Updates: %s\n", list.UpdateCadence)
	}
	r.writePlain("Artists: %d, Subscribers: %d\n", list.TotalArtists, list.SubscriberCount)

	if len(list.Entries) > 0 {
		r.writePlain("\n")
		for _, entry := range list.Entries {
			r.writePlain("%d. %s\n", entry.Position, entry.Artist.Name)
			if entry.Rationale != "" {
				r.writePlain("   %s\n", entry.Rationale)
			}
		}
	}
	return nil
}

// CommunitySubscribe adds the list's artists to the user's blocklist.
func (r *Runner) CommunitySubscribe(ctx context.Context, cmd *cli.Command) error {
	listID := cmd.StringArg("list-id")
	if listID == "" {
		return fmt.Errorf("%w: list-id argument is required", shared.ErrMissingArgument)
	}
	autoUpdate := cmd.Bool("auto-update")

	r.logger.Info("subscribing to list", "list_id", listID, "auto_update", autoUpdate)

	if err := r.community.Subscribe(ctx, listID, autoUpdate); err != nil {
		return err
	}

	r.writePlain("✓ Subscribed\n")
	if autoUpdate {
		r.writePlain("List changes will be picked up automatically.\n")
	}
	return nil
}

// CommunityUnsubscribe drops a subscription.
func (r *Runner) CommunityUnsubscribe(ctx context.Context, cmd *cli.Command) error {
	listID := cmd.StringArg("list-id")
	if listID == "" {
		return fmt.Errorf("%w: list-id argument is required", shared.ErrMissingArgument)
	}

	if err := r.community.Unsubscribe(ctx, listID); err != nil {
		return err
	}

	return r.writePlain("✓ Unsubscribed\n")
}

// CommunitySubscriptions shows the user's subscriptions.
func (r *Runner) CommunitySubscriptions(ctx context.Context, cmd *cli.Command) error {
	useJSON := cmd.Bool("json")

	subs, err := r.community.Subscriptions(ctx)
	if err != nil {
		return err
	}

	if useJSON {
		return r.writeJSON(subs, true)
	}

	if len(subs) == 0 {
		return r.writePlain("No subscriptions. Browse lists with 'ndh community lists'.\n")
	}

	r.writePlain("Subscriptions (%d):\n\n", len(subs))
	for i, sub := range subs {
		r.writePlain("%d. %s (%d artists)\n", i+1, sub.List.Name, sub.List.TotalArtists)
		r.writePlain("   ID: %s\n", sub.List.ID)
		r.writePlain("   Since: %s\n", sub.SubscribedAt.Format(time.RFC1123))
		if sub.AutoUpdate {
			r.writePlain("   Auto-update: on\n")
		}
	}
	return nil
}
