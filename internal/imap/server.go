// Package imap implements the IMAP4rev1 subset spec.md §4.I describes: a
// tagged line protocol over TCP, backed entirely by the same Store and
// Access Control components the HTTP facade uses. There is no IMAP-native
// state beyond the current connection — mailbox contents are always
// re-read from the store.
package imap

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"

	"github.com/welldanyogia/webrana-infinimail-backend/internal/access"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/repository"
)

// Server listens on IMAP_PORT and spawns one connection per accepted
// socket.
type Server struct {
	store  repository.Store
	access *access.Controller
	domain string
	logger *slog.Logger
}

// Config holds the dependencies a Server is built from.
type Config struct {
	Store  repository.Store
	Access *access.Controller
	Domain string
	Logger *slog.Logger
}

// NewServer creates a new Server.
func NewServer(cfg Config) *Server {
	return &Server{store: cfg.Store, access: cfg.Access, domain: cfg.Domain, logger: cfg.Logger}
}

// ListenAndServe accepts connections on port until ctx is canceled. It
// blocks until the listener is closed, which happens automatically when
// ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	ln, err := net.Listen("tcp", fmt.Sprintf("0.0.0.0:%d", port))
	if err != nil {
		return fmt.Errorf("failed to listen on IMAP port %d: %w", port, err)
	}

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	s.logger.Info("IMAP server listening", "port", port)

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				s.logger.Error("IMAP accept failed", "error", err)
				return err
			}
		}
		go s.serve(ctx, conn)
	}
}

func (s *Server) serve(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("IMAP connection panicked", "panic", r, "remote_addr", conn.RemoteAddr().String())
		}
	}()

	c := &connection{
		server: s,
		conn:   conn,
		reader: bufio.NewReader(conn),
		writer: bufio.NewWriter(conn),
		state:  stateNotAuthenticated,
	}
	c.run(ctx)
}
