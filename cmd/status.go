package main

import (
	"context"

	"github.com/nodrake/ndh/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Status shows the whole account at a glance: profile, blocklist size,
// subscriptions, and connection health, fetched concurrently.
func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	useJSON := cmd.Bool("json")

	if r.session == nil || !r.session.IsAuthenticated() {
		return r.writePlain("✗ Not logged in. Run 'ndh auth login <email>'.\n")
	}

	overview, err := tasks.GatherOverview(ctx, r.auth, r.connections, r.dnp, r.community)
	if err != nil {
		return err
	}

	if useJSON {
		return r.writeJSON(overview, true)
	}

	r.writePlainHeader("No Drake in the House")
	r.writePlain("Account: %s", overview.User.Email)
	if !overview.User.EmailVerified {
		r.writePlain(" (unverified)")
	}
	r.writePlain("\n\n")

	r.writePlain("Blocked artists: %d\n", len(overview.Entries))
	r.writePlain("Community subscriptions: %d\n\n", len(overview.Subscriptions))

	if len(overview.Connections) == 0 {
		r.writePlain("No streaming services linked. Run 'ndh connections link <provider>'.\n")
		return nil
	}

	r.writePlain("Connections:\n")
	for _, conn := range overview.Connections {
		r.writePlain("  %s %s (%s)\n", statusMarker(conn.Status), conn.Provider, conn.Status)
	}
	return nil
}
