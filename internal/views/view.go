package views

import (
	"fmt"
	"time"

	"github.com/sphildreth/blackboard/internal/ansi"
	"github.com/sphildreth/blackboard/internal/app"
	"github.com/sphildreth/blackboard/internal/config"
	"github.com/sphildreth/blackboard/internal/modules"
	"github.com/sphildreth/blackboard/internal/nodes"
)

// Manager walks the board's view graph: which screen the caller is on, the
// navigation stack behind them, and how their input moves them around.
type Manager struct {
	config   map[string]config.View
	registry *modules.Registry
	stack    []string
	current  string
}

func NewManager(viewConfig map[string]config.View, registry *modules.Registry, initialView string) *Manager {
	return &Manager{
		config:   viewConfig,
		registry: registry,
		current:  initialView,
	}
}

func (m *Manager) Current() string {
	return m.current
}

func (m *Manager) Push(viewID string) {
	app.Logger.Debug("View push", "view", viewID, "prev", m.current)
	if m.current != "" {
		m.stack = append(m.stack, m.current)
	}
	m.current = viewID
}

func (m *Manager) Pop() string {
	if len(m.stack) == 0 {
		return ""
	}
	prev := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	app.Logger.Debug("View pop", "view", prev, "from", m.current)
	m.current = prev
	return prev
}

// RenderCurrent draws the current view on the node's connection. A view
// with a delayed auto-next advances after the delay; the session loop owns
// the connection, so the wait is synchronous.
func (m *Manager) RenderCurrent(node *nodes.Node) error {
	viewConfig, ok := m.config[m.current]
	if !ok {
		return fmt.Errorf("view not found: %s", m.current)
	}

	if viewConfig.Art != "" {
		content, err := ansi.LoadArt(viewConfig.Art)
		if err != nil {
			return err
		}
		if err := node.Conn.SendAnsi(ansi.NormalizeLineEndings(content) + ansi.ResetSeq); err != nil {
			return err
		}
	}

	if next := viewConfig.Next; next != nil && next.Delay > 0 {
		time.Sleep(time.Duration(next.Delay) * time.Millisecond)
		m.navigate(next.View)
		return m.RenderCurrent(node)
	}

	return nil
}

// HandleInput processes one line of input for the current view, returning
// whether it was consumed.
func (m *Manager) HandleInput(input string, node *nodes.Node) (bool, error) {
	viewConfig, ok := m.config[m.current]
	if !ok {
		return false, fmt.Errorf("view not found: %s", m.current)
	}

	// A module bound to the view gets first refusal.
	if viewConfig.Module != "" {
		if mod := m.registry.Get(viewConfig.Module); mod != nil {
			if cmdHandler, ok := mod.(modules.CommandHandler); ok {
				cmd, args := splitCommand(input)
				handled, err := cmdHandler.HandleCommand(node, cmd, args)
				if err != nil || handled {
					return handled, err
				}
			}
		} else {
			app.Logger.Warn("View references unknown module", "view", m.current, "module", viewConfig.Module)
		}
	}

	if nextView, ok := viewConfig.Actions[input]; ok {
		m.navigate(nextView)
		return true, nil
	}

	// A next view with no delay is "press any key".
	if viewConfig.Next != nil && viewConfig.Next.Delay == 0 {
		m.navigate(viewConfig.Next.View)
		return true, nil
	}

	return false, nil
}

// navigate moves to a view; the reserved target "back" pops instead.
func (m *Manager) navigate(target string) {
	if target == "back" {
		m.Pop()
		return
	}
	m.Push(target)
}

func splitCommand(input string) (cmd, args string) {
	for i := 0; i < len(input); i++ {
		if input[i] == ' ' {
			return input[:i], input[i+1:]
		}
	}
	return input, ""
}
