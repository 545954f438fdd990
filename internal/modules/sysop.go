package modules

import (
	"fmt"
	"io"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sphildreth/blackboard/internal/ansi"
	"github.com/sphildreth/blackboard/internal/app"
	"github.com/sphildreth/blackboard/internal/nodes"
)

// SysopModule implements the board utility commands available from any view
// that binds it: who's online, board info, cross-node yelling, and a
// full-screen node browser for terminals that can handle one.
type SysopModule struct{}

func NewSysopModule() *SysopModule {
	return &SysopModule{}
}

func (m *SysopModule) Name() string {
	return "sysop"
}

func (m *SysopModule) Description() string {
	return "Board utilities: who, info, yell, nodes"
}

func (m *SysopModule) HandleCommand(node *nodes.Node, cmd, args string) (bool, error) {
	switch cmd {
	case "who":
		return true, m.who(node)
	case "info":
		return true, m.info(node)
	case "yell":
		return true, m.yell(node, args)
	case "nodes":
		return true, m.browse(node)
	}
	return false, nil
}

// boxStyle returns a bordered lipgloss style matching the terminal: rounded
// borders for modern terminals, plain ASCII for everything else.
func boxStyle(node *nodes.Node) lipgloss.Style {
	border := lipgloss.RoundedBorder()
	if !node.Conn.IsModernTerminal() {
		border = lipgloss.Border{
			Top: "-", Bottom: "-", Left: "|", Right: "|",
			TopLeft: "+", TopRight: "+", BottomLeft: "+", BottomRight: "+",
		}
	}
	return lipgloss.NewStyle().Border(border).Padding(0, 1)
}

func (m *SysopModule) who(node *nodes.Node) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%-5s %-16s %-10s %s\n", "Node", "User", "On For", "Terminal")
	for _, n := range app.Nodes.Active() {
		onFor := time.Since(n.JoinedAt).Round(time.Second)
		fmt.Fprintf(&b, "%-5d %-16s %-10s %s\n", n.ID, n.Username(), onFor, n.Conn.TerminalType())
	}

	return sendBox(node, b.String())
}

func (m *SysopModule) info(node *nodes.Node) error {
	general := app.Config.General
	width, height := node.Conn.WindowSize()

	var b strings.Builder
	fmt.Fprintf(&b, "%s v%s\n", general.BoardName, app.Version)
	if general.Description != "" {
		fmt.Fprintf(&b, "%s\n", general.Description)
	}
	fmt.Fprintf(&b, "\nNodes:    %d online\n", len(app.Nodes.Active()))
	fmt.Fprintf(&b, "Terminal: %s (%dx%d)\n", node.Conn.TerminalType(), width, height)
	if client := node.Conn.ClientSoftware(); client != "" {
		fmt.Fprintf(&b, "Client:   %s\n", client)
	}

	return sendBox(node, b.String())
}

// sendBox frames content for the caller's terminal. Lipgloss emits bare LF
// line endings, which raw terminal modes stairstep without normalization.
func sendBox(node *nodes.Node, content string) error {
	rendered := boxStyle(node).Render(strings.TrimRight(content, "\n"))
	return node.Conn.SendAnsi(ansi.NormalizeLineEndings(rendered) + "\r\n")
}

// yell broadcasts a message to every other caller on the board.
func (m *SysopModule) yell(node *nodes.Node, message string) error {
	if message == "" {
		return node.Conn.SendLine("Yell what? Try: yell <message>")
	}

	app.Nodes.BroadcastExcept(fmt.Sprintf("\r\n*** %s yells: %s\r\n", node.Username(), message), node.ID)
	app.Logger.Info("Yell", "node", node.ID, "user", node.Username())
	return node.Conn.SendLine("Your yell echoes across the board.")
}

// browse runs the full-screen node browser. It needs a bidirectional byte
// stream, so it only works on connections that expose one, and it degrades
// to the plain who listing everywhere else.
func (m *SysopModule) browse(node *nodes.Node) error {
	rw, ok := node.Conn.(io.ReadWriter)
	if !ok || !node.Conn.IsModernTerminal() {
		return m.who(node)
	}

	model := newNodeBrowser(node)
	program := tea.NewProgram(model,
		tea.WithInput(rw),
		tea.WithOutput(rw),
	)
	if _, err := program.Run(); err != nil {
		app.Logger.Error("Node browser failed", "node", node.ID, "err", err)
		return err
	}
	return nil
}

type nodeBrowser struct {
	self   *nodes.Node
	active []*nodes.Node
	cursor int
}

func newNodeBrowser(self *nodes.Node) nodeBrowser {
	return nodeBrowser{
		self:   self,
		active: app.Nodes.Active(),
	}
}

func (b nodeBrowser) Init() tea.Cmd {
	return nil
}

func (b nodeBrowser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return b, tea.Quit
		case "up", "k":
			if b.cursor > 0 {
				b.cursor--
			}
		case "down", "j":
			if b.cursor < len(b.active)-1 {
				b.cursor++
			}
		case "r":
			b.active = app.Nodes.Active()
			if b.cursor >= len(b.active) {
				b.cursor = len(b.active) - 1
			}
		}
	}
	return b, nil
}

var (
	browserTitleStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	browserCursorStyle = lipgloss.NewStyle().Reverse(true)
	browserHelpStyle   = lipgloss.NewStyle().Faint(true)
)

func (b nodeBrowser) View() string {
	var s strings.Builder
	s.WriteString(browserTitleStyle.Render("Online Nodes"))
	s.WriteString("\n\n")

	for i, n := range b.active {
		marker := " "
		if n.ID == b.self.ID {
			marker = "*"
		}
		line := fmt.Sprintf("%s Node %-3d %-16s %s", marker, n.ID, n.Username(), n.Conn.RemoteAddress())
		if i == b.cursor {
			line = browserCursorStyle.Render(line)
		}
		s.WriteString(line + "\n")
	}

	s.WriteString("\n")
	s.WriteString(browserHelpStyle.Render("j/k move · r refresh · q quit"))
	return s.String()
}
