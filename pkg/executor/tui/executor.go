// Package tui is the interactive chat front end for the agent: a Bubble Tea
// program that classifies each input as a direct function call, a compound
// request, a clarification, or a full planning task, and renders engine
// events as the loop runs.
//
// The code is split across files in the usual Bubble Tea shape:
//   - executor.go: program lifecycle and event forwarding
//   - model.go: model state and internal messages
//   - update.go: input handling and the submit order contract
//   - model_actions.go: background engine calls and intent dispatch
//   - events.go: engine event rendering
//   - view.go: layout and rendering
//   - slash_commands.go: the /command registry
//   - helpers.go, styles.go: formatting and colors
package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/craftd/anvil/pkg/agent"
	"github.com/craftd/anvil/pkg/types"
)

// Executor runs the chat interface over a constructed agent. The events
// channel must be the one the agent was built with; the executor drains it
// into the program for the lifetime of the run.
type Executor struct {
	agent   *agent.CodingAgent
	events  chan *types.AgentEvent
	program *tea.Program
}

// NewExecutor creates a TUI executor around an agent and its event channel.
func NewExecutor(codingAgent *agent.CodingAgent, events chan *types.AgentEvent) *Executor {
	return &Executor{
		agent:  codingAgent,
		events: events,
	}
}

// Run starts the program and blocks until the user exits. The context only
// scopes the forwarding goroutine; quitting the program ends the run.
func (e *Executor) Run(ctx context.Context) error {
	m := newModel(e.agent, e.events)

	e.program = tea.NewProgram(
		&m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-e.events:
				if !ok {
					return
				}
				e.program.Send(agentEventMsg{event: event})
			}
		}
	}()

	if _, err := e.program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI program: %w", err)
	}
	return nil
}
