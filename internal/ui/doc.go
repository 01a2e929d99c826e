// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a multi-view workflow for blocklist enforcement:
//  1. [ProviderListView] : Pick which connected streaming services to enforce on
//  2. [PlanView] : Preview the planned impact for each provider
//  3. [ConfirmView] : Confirm execution (press d on the provider list first for a dry run)
//  4. [EnforceView] : Monitor real-time progress updates
//  5. [ResultView] : Display the batch outcome and any failed items
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Progress updates flow through a channel from the EnforcementEngine, providing non-blocking status reporting during runs.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
