// Package rpcconn implements the Unix domain socket transport for the
// daemon's JSON-RPC control surface: the accept loop, per-connection
// framing, and peer-credential based access resolution.
//
// Grounded on firestige-Otus's internal/command/uds_server.go, generalized
// from bufio.Scanner line-framing to an incremental json.Decoder so a
// request spanning multiple writes (or a client pipelining several requests
// back to back) is handled without relying on newline-delimited framing.
package rpcconn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/msgctl/netaidkit-nakd/internal/auditlog"
	"github.com/msgctl/netaidkit-nakd/internal/jsonrpc"
	"github.com/msgctl/netaidkit-nakd/internal/metrics"
)

// Server accepts connections on a Unix domain socket and dispatches each
// decoded JSON-RPC request to router.
type Server struct {
	socketPath string
	maxConns   int
	router     *jsonrpc.Router

	listener net.Listener
	sem      chan struct{}
	group    *errgroup.Group
	ctx      context.Context
	cancel   context.CancelFunc

	connIDMu sync.Mutex
	nextConn uint64
}

// New creates a server bound to socketPath once Start is called.
func New(socketPath string, maxConns int, router *jsonrpc.Router) *Server {
	if maxConns <= 0 {
		maxConns = 32
	}
	return &Server{
		socketPath: socketPath,
		maxConns:   maxConns,
		router:     router,
		sem:        make(chan struct{}, maxConns),
	}
}

// Start removes any stale socket file, listens, and begins accepting.
func (s *Server) Start(ctx context.Context) error {
	if err := os.RemoveAll(s.socketPath); err != nil {
		return fmt.Errorf("remove stale socket: %w", err)
	}

	l, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.socketPath, err)
	}
	// World-writable: access control is SO_PEERCRED-based inside resolveAccess,
	// not filesystem DAC bits, so any local user must be able to connect.
	if err := os.Chmod(s.socketPath, 0777); err != nil {
		l.Close()
		return fmt.Errorf("chmod socket: %w", err)
	}
	s.listener = l

	s.ctx, s.cancel = context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(s.ctx)
	s.group = g

	g.Go(func() error { return s.acceptLoop(gctx) })

	slog.Info("rpc server listening", "socket", s.socketPath)
	return nil
}

func (s *Server) acceptLoop(ctx context.Context) error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			slog.Error("accept failed", "error", err)
			continue
		}

		select {
		case s.sem <- struct{}{}:
		default:
			auditlog.Get().Reject("unknown", "max_conns exceeded")
			conn.Close()
			continue
		}

		unixConn, ok := conn.(*net.UnixConn)
		if !ok {
			<-s.sem
			conn.Close()
			continue
		}

		s.group.Go(func() error {
			defer func() { <-s.sem }()
			s.handleConnection(ctx, unixConn)
			return nil
		})
	}
}

func (s *Server) handleConnection(ctx context.Context, conn *net.UnixConn) {
	defer conn.Close()

	connID := s.newConnID()
	access, err := resolveAccess(conn)
	if err != nil {
		slog.Warn("failed to resolve peer access level", "conn", connID, "error", err)
		auditlog.Get().Reject(connID, "peer credential lookup failed")
		return
	}

	metrics.RPCConnectionsActive.Inc()
	defer metrics.RPCConnectionsActive.Dec()

	serveConn(ctx, conn, s.router, connID, access)
}

func (s *Server) newConnID() string {
	s.connIDMu.Lock()
	defer s.connIDMu.Unlock()
	s.nextConn++
	return fmt.Sprintf("c%d", s.nextConn)
}

// Stop closes the listener and waits for in-flight connections to drain,
// up to the given deadline.
func (s *Server) Stop(ctx context.Context) error {
	if s.cancel == nil {
		return nil
	}
	s.cancel()
	if s.listener != nil {
		s.listener.Close()
	}

	done := make(chan error, 1)
	go func() { done <- s.group.Wait() }()

	select {
	case err := <-done:
		os.RemoveAll(s.socketPath)
		return err
	case <-ctx.Done():
		os.RemoveAll(s.socketPath)
		return ctx.Err()
	}
}
