package crust

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rgill02/crust/internal/audit"
	"github.com/rgill02/crust/internal/crust/commands"
	"github.com/rgill02/crust/internal/crust/parser"
	"github.com/rgill02/crust/internal/tracing"
	"github.com/spf13/afero"
)

// Version information
var (
	Version     = "1.0.0"   // Will be overridden by build-time ldflags
	BuildCommit = "unknown" // Will be overridden by build-time ldflags
	Name        = "crust"
	Description = "Minimal file-management shell"
)

// DefaultPrompt is rendered before each line; {dir} is replaced with the
// base name of the working directory
const DefaultPrompt = "(crust) {dir}>"

// ExitCommand ends the session and discards the rest of the line
const ExitCommand = "exit"

// State is the lifecycle state of a Session
type State int32

const (
	StateRunning State = iota
	StateTerminated
)

func (s State) String() string {
	if s == StateRunning {
		return "RUNNING"
	}
	return "TERMINATED"
}

// Config holds session configuration. Zero values select defaults.
type Config struct {
	// Filesystem the built-ins operate on (default: the OS filesystem)
	Fs afero.Fs

	// Initial working directory (default: the process working directory)
	Dir string

	// Target of a bare cd (default: the user's home directory)
	Home string

	// Directory locate walks from (default: the volume root)
	Root string

	// Prompt template, see DefaultPrompt
	Prompt string

	// Session identifier (default: a random UUID)
	SessionID string

	// Peer description used in audit records, e.g. a remote address
	Remote string

	// Audit trail (default: discard)
	Audit audit.Logger

	// Debug logging of every dispatched command
	Verbose bool
}

// Session is one interactive shell: a line reader, an output and an error
// sink, and a private working directory
type Session struct {
	id     string
	config *Config
	reader LineReader
	env    *commands.Env
	state  atomic.Int32
}

// NewSession creates a session reading from reader and writing to out and
// errOut
func NewSession(reader LineReader, out, errOut io.Writer, config *Config) (*Session, error) {
	if reader == nil {
		return nil, fmt.Errorf("line reader is required")
	}
	cfg := Config{}
	if config != nil {
		cfg = *config
	}

	if cfg.Fs == nil {
		cfg.Fs = afero.NewOsFs()
	}
	if cfg.Dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		cfg.Dir = wd
	}
	if !filepath.IsAbs(cfg.Dir) {
		abs, err := filepath.Abs(cfg.Dir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve working directory: %w", err)
		}
		cfg.Dir = abs
	}
	if cfg.Home == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.Home = home
		}
	}
	if cfg.Prompt == "" {
		cfg.Prompt = DefaultPrompt
	}
	if cfg.SessionID == "" {
		cfg.SessionID = uuid.NewString()
	}
	if cfg.Audit == nil {
		cfg.Audit = audit.NopLogger{}
	}

	env := commands.NewEnv(cfg.Fs, cfg.Dir, out, errOut)
	env.Home = cfg.Home
	env.Root = cfg.Root

	return &Session{
		id:     cfg.SessionID,
		config: &cfg,
		reader: reader,
		env:    env,
	}, nil
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

// State returns the current lifecycle state
func (s *Session) State() State {
	return State(s.state.Load())
}

// Dir returns the session working directory
func (s *Session) Dir() string {
	return s.env.Cwd
}

// Run prompts, reads and executes lines until exit, end of input or ctx
// cancellation. It returns nil on exit and end of input.
func (s *Session) Run(ctx context.Context) (err error) {
	ctx, span := tracing.StartSession(ctx, s.id, s.config.Remote)
	s.audit(audit.NewEvent(audit.EventTypeSessionOpen, s.config.Remote, audit.ActionOpen, s.env.Cwd, true, s.id))
	defer func() {
		s.state.Store(int32(StateTerminated))
		s.audit(audit.NewEvent(audit.EventTypeSessionClose, s.config.Remote, audit.ActionClose, s.env.Cwd, err == nil, s.id))
		span.End(err)
	}()

	for s.State() == StateRunning {
		if err = ctx.Err(); err != nil {
			return err
		}
		if err = s.prompt(); err != nil {
			return err
		}

		line, readErr := s.reader.ReadLine()
		if readErr != nil {
			if errors.Is(readErr, io.EOF) || errors.Is(readErr, io.ErrClosedPipe) {
				return nil
			}
			err = fmt.Errorf("failed to read input: %w", readErr)
			return err
		}

		if err = s.Execute(ctx, line); err != nil {
			return err
		}
	}
	return nil
}

// Execute runs every command of one line in order. exit terminates the
// session and skips the remaining commands. Only a failure of the output
// or error stream is returned.
func (s *Session) Execute(ctx context.Context, line string) error {
	for _, cmd := range parser.Parse(line) {
		if cmd.IsEmpty() {
			continue
		}
		if cmd.Name() == ExitCommand {
			s.state.Store(int32(StateTerminated))
			return nil
		}
		if err := s.dispatch(ctx, cmd); err != nil {
			return err
		}
	}
	return nil
}

// Entries lists the names in the working directory for completion.
// Directories carry a trailing separator.
func (s *Session) Entries(line string) []string {
	infos, err := afero.ReadDir(s.env.Fs, s.env.Cwd)
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		name := info.Name()
		if info.IsDir() {
			name += string(filepath.Separator)
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Session) prompt() error {
	text := strings.ReplaceAll(s.config.Prompt, "{dir}", filepath.Base(s.env.Cwd))
	if p, ok := s.reader.(Prompter); ok {
		p.SetPrompt(text)
		return nil
	}
	return commands.WriteString(s.env.Stdout, text)
}

// dispatch runs one command and renders its failure on the error stream
func (s *Session) dispatch(ctx context.Context, cmd parser.Command) error {
	name := cmd.Name()
	span := tracing.StartCommand(ctx, s.id, name, cmd.String())

	if s.config.Verbose {
		log.Printf("[DEBUG] session %s: %s", s.id, cmd.String())
	}

	var result error
	fn, ok := commands.Lookup(name)
	if !ok {
		result = &commands.Error{Kind: commands.KindNotFound, Message: name + ": command not found"}
	} else {
		result = invoke(fn, s.env, cmd.Args())
	}

	s.audit(audit.NewEvent(audit.EventTypeCommand, name, audit.ActionExecute, cmd.String(), result == nil, s.id))
	span.End(result)

	if result == nil {
		return nil
	}
	if errors.Is(result, commands.ErrOutput) {
		return result
	}
	return commands.WriteString(s.env.Stderr, describe(result))
}

func (s *Session) audit(event audit.Event) {
	if err := s.config.Audit.LogEvent(event); err != nil && s.config.Verbose {
		log.Printf("[WARN] session %s: audit: %v", s.id, err)
	}
}

// panicError carries a value recovered from a built-in
type panicError struct {
	value interface{}
}

func (p *panicError) Error() string {
	return fmt.Sprint(p.value)
}

// invoke runs fn, converting a panic into an error
func invoke(fn commands.CommandFunc, env *commands.Env, args []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r}
		}
	}()
	return fn(env, args)
}

// describe renders an error the way it is shown to the user
func describe(err error) string {
	var cmdErr *commands.Error
	if errors.As(err, &cmdErr) {
		return cmdErr.Error() + "\n"
	}
	var p *panicError
	if errors.As(err, &p) {
		return fmt.Sprintf("Unknown error occurred: %T\n%v\n", p.value, p.value)
	}
	return fmt.Sprintf("Unknown error occurred: %T\n%s\n", err, err.Error())
}
