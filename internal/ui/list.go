package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/nodrake/ndh/internal/services"
)

var (
	_ list.Item = allProvidersItem{}
	_ list.Item = providerItem{}
	_ list.Item = impactItem{}
)

// allProvidersItem selects every active connection at once.
type allProvidersItem struct {
	count int
}

func (i allProvidersItem) FilterValue() string { return "all" }
func (i allProvidersItem) Title() string       { return "All providers" }
func (i allProvidersItem) Description() string {
	return fmt.Sprintf("enforce on all %d connected services", i.count)
}

// providerItem wraps [services.Connection] to implement [list.Item].
type providerItem struct {
	connection services.Connection
}

func (i providerItem) FilterValue() string { return i.connection.Provider }
func (i providerItem) Title() string       { return i.connection.Provider }
func (i providerItem) Description() string {
	desc := i.connection.Status
	if len(i.connection.Scopes) > 0 {
		desc = fmt.Sprintf("%s • %d scopes", desc, len(i.connection.Scopes))
	}
	return desc
}

// impactItem is one provider row of an [services.EnforcementPlan] impact map.
type impactItem struct {
	provider string
	impact   services.PlanImpact
}

func (i impactItem) FilterValue() string { return i.provider }
func (i impactItem) Title() string       { return i.provider }
func (i impactItem) Description() string {
	return fmt.Sprintf("%d liked songs • %d playlists • %d following • %d radio seeds",
		i.impact.LikedSongs, i.impact.Playlists, i.impact.Following, i.impact.RadioSeeds)
}
