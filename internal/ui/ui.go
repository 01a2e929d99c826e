package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/nodrake/ndh/internal/services"
	"github.com/nodrake/ndh/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ProviderListView ViewState = iota
	PlanView
	ConfirmView
	EnforceView
	ResultView
)

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	connections  services.ConnectionAPI
	engine       *tasks.EnforcementEngine
	opts         services.EnforcementOptions
	width        int
	height       int
	providerList list.Model
	conns        []services.Connection
	impactList   list.Model
	providers    []string
	dryRun       bool
	plan         *services.EnforcementPlan
	progressChan chan tasks.ProgressUpdate
	progress     tasks.ProgressUpdate
	result       *tasks.RunResult
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, connections services.ConnectionAPI, engine *tasks.EnforcementEngine, opts services.EnforcementOptions) *Model {
	return &Model{
		ctx:         ctx,
		view:        ProviderListView,
		connections: connections,
		engine:      engine,
		opts:        opts,
		help:        help.New(),
		keys:        newKeyMap(),
	}
}

// Init loads the user's connected streaming services.
func (m *Model) Init() tea.Cmd {
	return m.fetchConnections()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.providerList.Width() == 0 {
			m.providerList.SetSize(msg.Width-4, msg.Height-8)
		}
		if m.impactList.Width() == 0 {
			m.impactList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case ProviderListView:
			return m.handleProviderListKeys(msg)
		case PlanView:
			return m.handlePlanKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateLists(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view != ResultView {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case ProviderListView:
		return m.renderProviderList()
	case PlanView:
		return m.renderPlan()
	case ConfirmView:
		return m.renderConfirm()
	case EnforceView:
		return m.renderEnforce()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgConnectionsFetched:
		payload := msg.data.(connectionsPayload)
		if payload.err != nil {
			m.err = payload.err
			return m, tea.Quit
		}
		m.conns = activeConnections(payload.connections)
		if len(m.conns) == 0 {
			m.err = fmt.Errorf("no active streaming connections; link one with 'ndh connections link'")
			return m, tea.Quit
		}
		items := make([]list.Item, 0, len(m.conns)+1)
		items = append(items, allProvidersItem{count: len(m.conns)})
		for _, conn := range m.conns {
			items = append(items, providerItem{connection: conn})
		}
		m.providerList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.providerList.Title = "Connected Providers"
		m.providerList.SetSize(m.width-4, m.height-8)
		return m, nil

	case MsgPlanReady:
		payload := msg.data.(planPayload)
		if payload.err != nil {
			m.err = payload.err
			m.view = ProviderListView
			return m, nil
		}
		m.plan = payload.plan
		items := make([]list.Item, 0, len(payload.plan.Providers))
		for _, provider := range payload.plan.Providers {
			items = append(items, impactItem{provider: provider, impact: payload.plan.Impact[provider]})
		}
		m.impactList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.impactList.Title = "Planned Impact"
		m.impactList.SetSize(m.width-4, m.height-8)
		m.view = PlanView
		return m, nil

	case MsgProgressUpdate:
		m.progress = msg.data.(tasks.ProgressUpdate)
		return m, m.waitForProgress()

	case MsgRunComplete:
		payload := msg.data.(runPayload)
		m.result = payload.result
		m.err = payload.err
		m.view = ResultView
		m.progressChan = nil
		return m, nil
	}

	return m, nil
}

func (m *Model) handleProviderListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "d":
		m.dryRun = !m.dryRun
		return m, nil
	case "enter":
		selected := m.providerList.SelectedItem()
		if selected != nil {
			switch item := selected.(type) {
			case allProvidersItem:
				m.providers = providerNames(m.conns)
			case providerItem:
				m.providers = []string{item.connection.Provider}
			}
			return m, m.createPlan()
		}
	}

	var cmd tea.Cmd
	m.providerList, cmd = m.providerList.Update(msg)
	return m, cmd
}

func (m *Model) handlePlanKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.view = ProviderListView
		return m, nil
	case "enter":
		m.view = ConfirmView
		return m, nil
	}

	var cmd tea.Cmd
	m.impactList, cmd = m.impactList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "n":
		m.view = PlanView
		return m, nil
	case "y":
		m.view = EnforceView
		return m, m.startRun()
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "r":
		m.view = ProviderListView
		m.providers = nil
		m.plan = nil
		m.progress = tasks.ProgressUpdate{}
		m.result = nil
		m.err = nil
		return m, nil
	}
	return m, nil
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case ProviderListView:
		m.providerList, cmd = m.providerList.Update(msg)
	case PlanView:
		m.impactList, cmd = m.impactList.Update(msg)
	}
	return m, cmd
}

func (m *Model) fetchConnections() tea.Cmd {
	return func() tea.Msg {
		connections, err := m.connections.List(m.ctx)
		return connectionsFetchedMsg(connections, err)
	}
}

func (m *Model) createPlan() tea.Cmd {
	providers := m.providers
	dryRun := m.dryRun
	return func() tea.Msg {
		plan, err := m.engine.CreatePlan(m.ctx, providers, dryRun, m.opts)
		return planReadyMsg(plan, err)
	}
}

func (m *Model) startRun() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 50)
	progressChan := m.progressChan

	go func() {
		batch, err := m.engine.Execute(m.ctx)
		if err != nil {
			m.err = err
			close(progressChan)
			return
		}
		final, err := m.engine.Watch(m.ctx, batch.ID, progressChan)
		m.result = &tasks.RunResult{Plan: m.plan, Batch: final}
		m.err = err
		close(progressChan)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	return func() tea.Msg {
		if m.progressChan == nil {
			return runCompleteMsg(m.result, m.err)
		}

		update, ok := <-m.progressChan
		if !ok {
			return runCompleteMsg(m.result, m.err)
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderProviderList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.dryRun, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	mode := ""
	if m.dryRun {
		mode = styles.warn.Render("Dry run: no library changes will be made") + "\n\n"
	}
	return fmt.Sprintf("%s\n\n%s%s", m.providerList.View(), mode, helpView)
}

func (m *Model) renderPlan() string {
	continueKey := key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "continue"),
	)
	helpKeys := []key.Binding{continueKey, m.keys.back, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.impactList.View(), helpView)
}

func (m *Model) renderConfirm() string {
	action := "Enforce"
	if m.plan.DryRun {
		action = "Preview"
	}
	title := styles.title.Render(fmt.Sprintf("%s blocklist on %s?", action, strings.Join(m.plan.Providers, ", ")))

	total := 0
	for _, impact := range m.plan.Impact {
		total += impact.LikedSongs + impact.Playlists + impact.Following + impact.RadioSeeds
	}
	info := fmt.Sprintf(
		"\nProviders: %s\nItems: %d\nEstimated time: %ds\n",
		strings.Join(m.plan.Providers, ", "), total, m.plan.EstimatedDurationSeconds,
	)

	helpKeys := []key.Binding{m.keys.yes, m.keys.no, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}

func (m *Model) renderEnforce() string {
	title := styles.title.Render("Enforcing Blocklist")

	var phase string
	switch m.progress.Phase {
	case tasks.Executing:
		phase = "Submitting batch..."
	case tasks.Polling:
		phase = fmt.Sprintf("Applying changes (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.Archiving:
		phase = "Recording history..."
	default:
		phase = "Working..."
	}

	return fmt.Sprintf("%s\n\n%s\n%s", title, phase, m.progress.Message)
}

func (m *Model) renderResult() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Enforcement failed: %v\n\nPress r to restart, q to quit", m.err))
	}

	if m.result == nil || m.result.Batch == nil {
		return styles.err.Render("No result available\n\nPress r to restart, q to quit")
	}

	batch := m.result.Batch
	title := styles.ok.Render("✓ Enforcement Complete!")
	if batch.DryRun {
		title = styles.ok.Render("✓ Dry Run Complete (no changes made)")
	}
	info := fmt.Sprintf(
		"\nBatch: %s\nStatus: %s\nCompleted: %d/%d\nSkipped: %d",
		batch.ID,
		batch.Status,
		batch.Summary.CompletedItems,
		batch.Summary.TotalItems,
		batch.Summary.SkippedItems,
	)

	var failed string
	if batch.Summary.FailedItems > 0 {
		failed = fmt.Sprintf("\n\n%s", styles.warn.Render(fmt.Sprintf("Failed to apply %d items:", batch.Summary.FailedItems)))
		for _, item := range batch.Items {
			if item.Status == "failed" {
				failed += fmt.Sprintf("\n  • %s %s: %s", item.Action, item.EntityName, item.ErrorMessage)
			}
		}
	}

	helpKeys := []key.Binding{m.keys.restart, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s%s\n\n%s", title, info, failed, helpView)
}

func activeConnections(connections []services.Connection) []services.Connection {
	active := make([]services.Connection, 0, len(connections))
	for _, conn := range connections {
		if conn.Status == services.ConnectionActive {
			active = append(active, conn)
		}
	}
	return active
}

func providerNames(connections []services.Connection) []string {
	names := make([]string, len(connections))
	for i, conn := range connections {
		names[i] = conn.Provider
	}
	return names
}
