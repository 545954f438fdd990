package telnet

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/sphildreth/blackboard/internal/config"
	"github.com/sphildreth/blackboard/internal/nodes"
)

// Handler runs the session on an initialized connection. It is supplied by
// the caller; the transport layer knows nothing about menus or logins.
type Handler func(conn *Connection, node *nodes.Node)

// Server accepts TCP connections, enforces the node ceiling, and runs one
// goroutine per client: negotiate, probe, then hand off to the session
// handler.
type Server struct {
	config  config.TelnetConfig
	nodes   *nodes.Manager
	handler Handler
	logger  *slog.Logger

	mu sync.Mutex
	ln net.Listener
}

func NewServer(cfg config.TelnetConfig, nm *nodes.Manager, logger *slog.Logger, handler Handler) (*Server, error) {
	if handler == nil {
		return nil, errors.New("session handler is required")
	}
	return &Server{
		config:  cfg,
		nodes:   nm,
		handler: handler,
		logger:  logger,
	}, nil
}

// ListenAndServe blocks, accepting connections until Stop. Accept errors
// are logged and the loop continues; only a closed listener ends it.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	defer ln.Close()

	s.logger.Info("Telnet server listening", "addr", ln.Addr().String())

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Error("Telnet accept error", "err", err)
			continue
		}
		go s.handleConnection(conn)
	}
}

// Addr returns the bound listen address, or nil before ListenAndServe.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		return s.ln.Close()
	}
	return nil
}

func (s *Server) handleConnection(raw net.Conn) {
	// Claim a node slot before touching the wire: a client over the limit
	// is closed without a single negotiation byte.
	node, err := s.nodes.Acquire()
	if err != nil {
		s.logger.Warn("Connection rejected: system full", "addr", raw.RemoteAddr())
		raw.Close()
		return
	}
	defer s.nodes.Release(node.ID)

	logger := s.logger.With("node", node.ID)
	logger.Debug("Telnet connection from", "addr", raw.RemoteAddr())

	conn := NewConnection(raw, logger, Options{
		IdleTimeout: s.config.IdleTimeout.Std(),
	})
	defer conn.Disconnect()
	defer logger.Info("Telnet connection closed", "addr", conn.RemoteAddress())

	if err := conn.Initialize(); err != nil {
		logger.Debug("Negotiation failed", "err", err)
		return
	}

	node.Conn = conn

	// Blocks until the caller's session logic is done with the line.
	s.handler(conn, node)
}
