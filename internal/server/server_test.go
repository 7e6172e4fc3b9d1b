package server

import (
	"context"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/rgill02/crust/internal/audit"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPrompt = "(crust) user>"

type recordingLogger struct {
	mu     sync.Mutex
	events []audit.Event
}

func (r *recordingLogger) LogEvent(event audit.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingLogger) Close() error { return nil }

func (r *recordingLogger) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var types []string
	for _, event := range r.events {
		types = append(types, event.EventType)
	}
	return types
}

// startServer serves on a loopback listener and returns its address
func startServer(t *testing.T, config Config, opts ...Option) (*Server, string, context.CancelFunc, <-chan error) {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/home/user", 0755))
	config.Dir = "/home/user"
	config.Home = "/home/user"

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := New(config, append([]Option{WithFs(fs)}, opts...)...)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	t.Cleanup(func() {
		cancel()
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		_ = srv.Shutdown(shutdownCtx)
	})
	return srv, ln.Addr().String(), cancel, done
}

func dial(t *testing.T, addr string) net.Conn {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	require.NoError(t, err)
	require.NoError(t, conn.SetDeadline(time.Now().Add(10*time.Second)))
	return conn
}

func readPrompt(t *testing.T, conn net.Conn) {
	t.Helper()
	buf := make([]byte, len(testPrompt))
	_, err := io.ReadFull(conn, buf)
	require.NoError(t, err)
	require.Equal(t, testPrompt, string(buf))
}

func TestServeSession(t *testing.T) {
	logger := &recordingLogger{}
	_, addr, _, _ := startServer(t, Config{}, WithAudit(logger))

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "exit ends the session",
			input: "mkdir foo; cd foo; pwd\nexit\n",
			want:  "(crust) user>/home/user/foo\n(crust) foo>",
		},
		{
			name:  "errors share the connection",
			input: "nope\nexit\n",
			want:  "(crust) user>nope: command not found\n(crust) user>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := dial(t, addr)
			defer conn.Close()

			_, err := io.WriteString(conn, tt.input)
			require.NoError(t, err)
			received, err := io.ReadAll(conn)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(received))
		})
	}

	assert.Eventually(t, func() bool {
		return len(logger.types()) >= 6
	}, 5*time.Second, 10*time.Millisecond)
	types := logger.types()
	assert.Equal(t, audit.EventTypeSessionOpen, types[0])
	assert.Contains(t, types, audit.EventTypeSessionClose)
}

func TestSessionsAreIndependent(t *testing.T) {
	_, addr, _, _ := startServer(t, Config{})

	first := dial(t, addr)
	defer first.Close()
	second := dial(t, addr)
	defer second.Close()
	readPrompt(t, first)
	readPrompt(t, second)

	_, err := io.WriteString(first, "mkdir /tmp; cd /tmp\n")
	require.NoError(t, err)
	buf := make([]byte, len("(crust) tmp>"))
	_, err = io.ReadFull(first, buf)
	require.NoError(t, err)
	assert.Equal(t, "(crust) tmp>", string(buf))

	_, err = io.WriteString(second, "pwd\nexit\n")
	require.NoError(t, err)
	received, err := io.ReadAll(second)
	require.NoError(t, err)
	assert.Equal(t, "/home/user\n"+testPrompt, string(received))
}

func TestMaxSessions(t *testing.T) {
	srv, addr, _, _ := startServer(t, Config{MaxSessions: 1})

	first := dial(t, addr)
	defer first.Close()
	readPrompt(t, first)
	assert.Equal(t, 1, srv.ActiveSessions())

	second := dial(t, addr)
	defer second.Close()
	received, err := io.ReadAll(second)
	require.NoError(t, err)
	assert.Equal(t, BusyMessage, string(received))

	_, err = io.WriteString(first, "exit\n")
	require.NoError(t, err)
	_, err = io.ReadAll(first)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return srv.ActiveSessions() == 0
	}, 5*time.Second, 10*time.Millisecond)

	third := dial(t, addr)
	defer third.Close()
	readPrompt(t, third)
}

func TestShutdown(t *testing.T) {
	srv, addr, _, done := startServer(t, Config{})

	conn := dial(t, addr)
	defer conn.Close()
	readPrompt(t, conn)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	assert.Equal(t, 0, srv.ActiveSessions())

	_, _ = io.ReadAll(conn)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return")
	}
}

func TestCancelStopsAccepting(t *testing.T) {
	_, _, cancel, done := startServer(t, Config{})
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return")
	}
}

func TestListenAndServeBadAddress(t *testing.T) {
	srv := New(Config{Addr: "256.0.0.1:bad"})
	err := srv.ListenAndServe(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to listen")
}
