package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"sync"

	"github.com/google/uuid"
	"github.com/rgill02/crust/internal/audit"
	"github.com/rgill02/crust/internal/bridge"
	"github.com/rgill02/crust/internal/crust"
	"github.com/spf13/afero"
)

// BusyMessage is sent to a connection refused because of the session limit
const BusyMessage = "server busy\n"

// Config holds the acceptor settings. Session fields follow crust.Config.
type Config struct {
	Addr        string
	Dir         string
	Home        string
	Root        string
	Prompt      string
	ChunkSize   int
	MaxSessions int // 0 = unlimited
	Verbose     bool
}

// Option configures a Server
type Option func(*Server)

// WithFs sets the filesystem every session operates on
func WithFs(fs afero.Fs) Option {
	return func(s *Server) {
		s.fs = fs
	}
}

// WithAudit sets the audit trail shared by all sessions
func WithAudit(logger audit.Logger) Option {
	return func(s *Server) {
		s.audit = logger
	}
}

// Server accepts connections and runs one shell session per connection
type Server struct {
	config Config
	fs     afero.Fs
	audit  audit.Logger

	mutex    sync.Mutex
	listener net.Listener
	conns    map[net.Conn]string
	closed   bool
	wg       sync.WaitGroup
}

// New creates a server
func New(config Config, opts ...Option) *Server {
	s := &Server{
		config: config,
		fs:     afero.NewOsFs(),
		audit:  audit.NopLogger{},
		conns:  make(map[net.Conn]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListenAndServe listens on the configured TCP address and serves until
// ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections from ln until ctx is cancelled or the server
// is shut down. The listener is closed on return.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mutex.Lock()
	if s.closed {
		s.mutex.Unlock()
		ln.Close()
		return nil
	}
	s.listener = ln
	s.mutex.Unlock()

	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()
	defer ln.Close()

	log.Printf("Server: Listening on %s", ln.Addr())
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				log.Printf("Server: Stopped accepting on %s", ln.Addr())
				return nil
			}
			return fmt.Errorf("accept failed: %w", err)
		}

		id, ok := s.admit(conn)
		if !ok {
			continue
		}

		go func() {
			defer s.wg.Done()
			s.handle(ctx, conn, id)
		}()
	}
}

// Shutdown stops accepting, closes every live connection and waits for
// their sessions to end or ctx to expire
func (s *Server) Shutdown(ctx context.Context) error {
	s.mutex.Lock()
	s.closed = true
	if s.listener != nil {
		s.listener.Close()
	}
	for conn := range s.conns {
		conn.Close()
	}
	s.mutex.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ActiveSessions returns the number of connections being served
func (s *Server) ActiveSessions() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.conns)
}

// admit registers conn, or refuses it when the server is full or closing.
// An admitted connection is counted in wg until handle returns.
func (s *Server) admit(conn net.Conn) (string, bool) {
	s.mutex.Lock()
	active := len(s.conns)
	full := s.config.MaxSessions > 0 && active >= s.config.MaxSessions
	if s.closed || full {
		s.mutex.Unlock()
		log.Printf("Server: Refused connection from %s (%d active)", conn.RemoteAddr(), active)
		if _, err := io.WriteString(conn, BusyMessage); err != nil {
			log.Printf("Server: Error writing to %s: %v", conn.RemoteAddr(), err)
		}
		conn.Close()
		return "", false
	}
	id := uuid.NewString()
	s.conns[conn] = id
	s.wg.Add(1)
	s.mutex.Unlock()
	return id, true
}

func (s *Server) release(conn net.Conn) {
	s.mutex.Lock()
	delete(s.conns, conn)
	s.mutex.Unlock()
}

// handle runs one session over conn and tears the streams down in order:
// session output, outbound pump, connection, session input, inbound pump
func (s *Server) handle(ctx context.Context, conn net.Conn, id string) {
	defer s.release(conn)
	remote := conn.RemoteAddr().String()
	log.Printf("Server: Connection from %s accepted (session %s)", remote, id)

	inR, inW := io.Pipe()
	outR, outW := io.Pipe()

	sess, err := crust.NewSession(crust.NewStreamReader(inR), outW, outW, &crust.Config{
		Fs:        s.fs,
		Dir:       s.config.Dir,
		Home:      s.config.Home,
		Root:      s.config.Root,
		Prompt:    s.config.Prompt,
		SessionID: id,
		Remote:    remote,
		Audit:     s.audit,
		Verbose:   s.config.Verbose,
	})
	if err != nil {
		log.Printf("Server: Failed to create session for %s: %v", remote, err)
		conn.Close()
		return
	}

	b := bridge.New(conn, inW, outR,
		bridge.WithChunkSize(s.config.ChunkSize),
		bridge.WithName("Session "+id),
		bridge.WithVerbose(s.config.Verbose),
	)
	b.Start()

	runErr := sess.Run(ctx)

	outW.Close()
	<-b.OutboundDone()
	conn.Close()
	inR.Close()
	pumpErr := b.Wait()

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Printf("Server: Session %s ended with error: %v", id, runErr)
	}
	if pumpErr != nil {
		log.Printf("Server: Session %s transport error: %v", id, pumpErr)
	}
	log.Printf("Server: Connection from %s closed (session %s)", remote, id)
}
