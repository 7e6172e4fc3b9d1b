// Package bridge couples a network connection to a session's input and
// output streams with two blocking pumps.
//
// The inbound pump copies bytes read from the connection into the session
// input. The outbound pump copies whatever the session writes to its output
// back to the connection. The pumps share nothing but the streams.
package bridge

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"sync"
)

// DefaultChunkSize is the largest single read performed by either pump
const DefaultChunkSize = 1024

// Option configures a Bridge
type Option func(*Bridge)

// WithChunkSize sets the pump buffer size; values below 1 are ignored
func WithChunkSize(size int) Option {
	return func(b *Bridge) {
		if size > 0 {
			b.chunkSize = size
		}
	}
}

// WithName labels the bridge in log output
func WithName(name string) Option {
	return func(b *Bridge) {
		b.name = name
	}
}

// WithVerbose logs every chunk moved by the pumps
func WithVerbose(verbose bool) Option {
	return func(b *Bridge) {
		b.verbose = verbose
	}
}

// Bridge moves bytes between one connection and one session
type Bridge struct {
	conn io.ReadWriter
	in   io.Writer
	out  io.Reader

	chunkSize int
	name      string
	verbose   bool

	startOnce    sync.Once
	inboundDone  chan struct{}
	outboundDone chan struct{}
	inboundErr   error
	outboundErr  error
}

// New creates a bridge between conn and the session streams in (session
// input) and out (session output)
func New(conn io.ReadWriter, in io.Writer, out io.Reader, opts ...Option) *Bridge {
	b := &Bridge{
		conn:         conn,
		in:           in,
		out:          out,
		chunkSize:    DefaultChunkSize,
		name:         "bridge",
		inboundDone:  make(chan struct{}),
		outboundDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Start launches both pumps. Calling it again has no effect.
func (b *Bridge) Start() {
	b.startOnce.Do(func() {
		go b.inbound()
		go b.outbound()
	})
}

// InboundDone is closed when the inbound pump has ended
func (b *Bridge) InboundDone() <-chan struct{} {
	return b.inboundDone
}

// OutboundDone is closed when the outbound pump has ended
func (b *Bridge) OutboundDone() <-chan struct{} {
	return b.outboundDone
}

// Wait blocks until both pumps have ended and returns their failures.
// Orderly ends (end of stream, closed pipe or connection) are not failures.
func (b *Bridge) Wait() error {
	<-b.inboundDone
	<-b.outboundDone
	return errors.Join(b.inboundErr, b.outboundErr)
}

// inbound copies connection bytes into the session input until the
// connection ends, then closes the session input
func (b *Bridge) inbound() {
	defer close(b.inboundDone)
	defer func() {
		if c, ok := b.in.(io.Closer); ok {
			if err := c.Close(); err != nil {
				log.Printf("%s: Error closing session input: %v", b.name, err)
			}
		}
	}()

	buf := make([]byte, b.chunkSize)
	for {
		n, err := b.conn.Read(buf)
		if n > 0 {
			if b.verbose {
				log.Printf("%s: received %d bytes", b.name, n)
			}
			if _, werr := b.in.Write(buf[:n]); werr != nil {
				b.inboundErr = failure("write session input", werr)
				return
			}
			if f, ok := b.in.(interface{ Flush() error }); ok {
				if ferr := f.Flush(); ferr != nil {
					b.inboundErr = failure("flush session input", ferr)
					return
				}
			}
		}
		if err != nil {
			b.inboundErr = failure("read connection", err)
			return
		}
	}
}

// outbound copies session output to the connection until the output
// stream is closed or the connection refuses a write, then closes the
// session output so that further writes fail instead of blocking
func (b *Bridge) outbound() {
	defer close(b.outboundDone)
	defer func() {
		if c, ok := b.out.(io.Closer); ok {
			if err := c.Close(); err != nil {
				log.Printf("%s: Error closing session output: %v", b.name, err)
			}
		}
	}()

	buf := make([]byte, b.chunkSize)
	for {
		n, err := b.out.Read(buf)
		if n > 0 {
			if b.verbose {
				log.Printf("%s: sending %d bytes", b.name, n)
			}
			if _, werr := b.conn.Write(buf[:n]); werr != nil {
				b.outboundErr = failure("write connection", werr)
				return
			}
		}
		if err != nil {
			b.outboundErr = failure("read session output", err)
			return
		}
	}
}

// failure wraps err unless it marks an orderly end of a stream
func failure(op string, err error) error {
	if isClosed(err) {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isClosed(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, net.ErrClosed)
}
