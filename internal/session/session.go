package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sphildreth/blackboard/internal/app"
	"github.com/sphildreth/blackboard/internal/modules"
	"github.com/sphildreth/blackboard/internal/network/telnet"
	"github.com/sphildreth/blackboard/internal/nodes"
	"github.com/sphildreth/blackboard/internal/store"
	"github.com/sphildreth/blackboard/internal/views"
)

const maxLoginAttempts = 3

// Run drives one caller's visit from login to logoff. The connection is
// already initialized; capabilities are settled before the first byte of
// session output.
func Run(conn *telnet.Connection, node *nodes.Node, initialView string) {
	logger := app.Logger.With("node", node.ID, "addr", conn.RemoteAddress())

	if err := login(conn, node); err != nil {
		logger.Debug("Login abandoned", "err", err)
		return
	}
	logger.Info("Caller logged in", "user", node.Username(), "terminal", conn.TerminalType())

	registry := modules.NewRegistry()
	registry.Register(modules.NewSysopModule())

	if initialView == "" {
		initialView = "main"
	}
	vm := views.NewManager(app.Config.Views, registry, initialView)

	if err := vm.RenderCurrent(node); err != nil {
		logger.Error("Failed to render view", "view", vm.Current(), "err", err)
	}

	for conn.IsConnected() {
		if err := conn.Send(fmt.Sprintf("[%s] > ", vm.Current())); err != nil {
			return
		}

		line, ok := conn.ReadLine()
		if !ok {
			logger.Info("Caller dropped", "user", node.Username())
			return
		}
		input := strings.ToLower(strings.TrimSpace(line))

		switch input {
		case "exit", "quit", "logoff", "g":
			conn.SendLine("Thanks for calling. NO CARRIER")
			logger.Info("Caller logged off", "user", node.Username())
			return
		}

		before := vm.Current()
		handled, err := vm.HandleInput(input, node)
		if err != nil {
			logger.Error("Input handling failed", "view", before, "input", input, "err", err)
			conn.SendLine("Something went wrong; try again.")
			continue
		}
		if !handled {
			conn.SendLine(fmt.Sprintf("Unknown command: %s", input))
			continue
		}

		if vm.Current() != before {
			if err := vm.RenderCurrent(node); err != nil {
				logger.Error("Failed to render view", "view", vm.Current(), "err", err)
			}
		}
	}
}

// login authenticates the caller, creating the node's user record. Empty
// name or "guest" browses anonymously; "new" registers an account.
func login(conn *telnet.Connection, node *nodes.Node) error {
	for attempt := 0; attempt < maxLoginAttempts; attempt++ {
		if err := conn.Send("\r\nlogin (or 'new', 'guest'): "); err != nil {
			return err
		}
		name, ok := conn.ReadLine()
		if !ok {
			return errors.New("disconnected during login")
		}
		name = strings.TrimSpace(name)

		switch strings.ToLower(name) {
		case "", "guest":
			conn.SendLine("Browsing as guest.")
			return nil
		case "new":
			if err := register(conn, node); err != nil {
				conn.SendLine(fmt.Sprintf("Registration failed: %s", err))
				continue
			}
			return nil
		}

		password, ok := readPassword(conn, "password: ")
		if !ok {
			return errors.New("disconnected during login")
		}

		user, err := app.Store.Authenticate(name, password)
		if err != nil {
			if errors.Is(err, store.ErrUserNotFound) || errors.Is(err, store.ErrInvalidPassword) {
				conn.SendLine("Login incorrect.")
				continue
			}
			return err
		}

		if err := app.Store.RecordCall(user.Username); err != nil {
			app.Logger.Error("Failed to record call", "user", user.Username, "err", err)
		}
		node.User = user
		conn.SendLine(fmt.Sprintf("Welcome back, %s. Call #%d.", user.Username, user.CallCount+1))
		return nil
	}

	conn.SendLine("Too many attempts.")
	return errors.New("too many login attempts")
}

func register(conn *telnet.Connection, node *nodes.Node) error {
	if err := conn.Send("new username: "); err != nil {
		return err
	}
	name, ok := conn.ReadLine()
	if !ok {
		return errors.New("disconnected")
	}
	name = strings.TrimSpace(name)

	if _, err := app.Store.FindUserByUsername(name); err == nil {
		return fmt.Errorf("username %q is taken", name)
	}

	password, ok := readPassword(conn, "new password: ")
	if !ok {
		return errors.New("disconnected")
	}
	if len(password) < 4 {
		return errors.New("password too short")
	}

	if err := app.Store.CreateUser(name, password); err != nil {
		return err
	}

	user, err := app.Store.FindUserByUsername(name)
	if err != nil {
		return err
	}
	node.User = user
	conn.SendLine(fmt.Sprintf("Account created. Welcome, %s.", name))
	return nil
}

// readPassword reads a line with echo suppressed.
func readPassword(conn *telnet.Connection, prompt string) (string, bool) {
	if err := conn.Send(prompt); err != nil {
		return "", false
	}
	conn.SetEcho(false)
	defer conn.SetEcho(true)

	password, ok := conn.ReadLine()
	if ok {
		conn.SendRaw([]byte("\r\n"))
	}
	return password, ok
}
