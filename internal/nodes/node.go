package nodes

import (
	"fmt"
	"time"

	"github.com/sphildreth/blackboard/internal/store"
)

// Connection is the slice of the telnet connection surface that node-aware
// code (broadcasts, who's-online listings, modules) consumes. Defined here
// so the transport package never has to import this one.
type Connection interface {
	Send(text string) error
	SendLine(text string) error
	SendAnsi(content string) error
	RemoteAddress() string
	ConnectedAt() time.Time
	SupportsAnsi() bool
	SupportsCP437() bool
	IsModernTerminal() bool
	TerminalType() string
	ClientSoftware() string
	WindowSize() (width, height int)
}

// Node is one occupied line on the board. A node exists from accept to
// disconnect and carries the connection plus whoever authenticated on it.
type Node struct {
	ID       int
	Conn     Connection
	User     *store.User
	JoinedAt time.Time
}

func (n *Node) String() string {
	if n.Conn == nil {
		return fmt.Sprintf("Node %d (disconnected)", n.ID)
	}
	return fmt.Sprintf("Node %d (%s)", n.ID, n.Conn.RemoteAddress())
}

// Username returns the authenticated user's name, or "guest".
func (n *Node) Username() string {
	if n.User != nil {
		return n.User.Username
	}
	return "guest"
}
