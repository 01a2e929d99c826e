package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/nodrake/ndh/internal/services"
	"github.com/nodrake/ndh/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgConnectionsFetched MsgKind = iota
	MsgPlanReady
	MsgProgressUpdate
	MsgRunComplete
)

type connectionsPayload struct {
	connections []services.Connection
	err         error
}

type planPayload struct {
	plan *services.EnforcementPlan
	err  error
}

type runPayload struct {
	result *tasks.RunResult
	err    error
}

// connectionsFetchedMsg is the constructor for [MsgConnectionsFetched]
func connectionsFetchedMsg(connections []services.Connection, err error) Msg {
	return Msg{kind: MsgConnectionsFetched, data: connectionsPayload{connections, err}}
}

// planReadyMsg is the constructor for [MsgPlanReady]
func planReadyMsg(plan *services.EnforcementPlan, err error) Msg {
	return Msg{kind: MsgPlanReady, data: planPayload{plan, err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// runCompleteMsg is the constructor for [MsgRunComplete]
func runCompleteMsg(result *tasks.RunResult, err error) Msg {
	return Msg{kind: MsgRunComplete, data: runPayload{result, err}}
}
