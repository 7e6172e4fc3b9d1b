package crust

import (
	"bufio"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/rgill02/crust/internal/crust/commands"
)

// LineReader yields one input line per call, without the line terminator.
// io.EOF ends the session.
type LineReader interface {
	ReadLine() (string, error)
}

// Prompter is implemented by line readers that draw the prompt themselves
type Prompter interface {
	SetPrompt(prompt string)
}

// StreamReader reads lines from any byte stream
type StreamReader struct {
	reader *bufio.Reader
}

// NewStreamReader creates a line reader over r
func NewStreamReader(r io.Reader) *StreamReader {
	return &StreamReader{reader: bufio.NewReader(r)}
}

// ReadLine returns the next line. A final line without a terminator is
// returned as a normal line; the following call reports io.EOF.
func (s *StreamReader) ReadLine() (string, error) {
	line, err := s.reader.ReadString('\n')
	if err != nil {
		if err == io.EOF && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// TerminalReader reads lines from an interactive terminal with history
// and tab completion
type TerminalReader struct {
	rl *readline.Instance
}

// NewTerminalReader creates a readline-backed reader. entries, when not
// nil, supplies path candidates for completion after a command name.
func NewTerminalReader(historyFile string, entries func(line string) []string) (*TerminalReader, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "",
		HistoryFile:     historyFile,
		HistoryLimit:    1000,
		AutoComplete:    NewCompleter(entries),
		InterruptPrompt: "", // Don't show ^C message
		EOFPrompt:       "", // Don't show exit message
	})
	if err != nil {
		return nil, err
	}
	return &TerminalReader{rl: rl}, nil
}

// ReadLine reads one line. Ctrl+C discards the current line.
func (t *TerminalReader) ReadLine() (string, error) {
	line, err := t.rl.Readline()
	if err == readline.ErrInterrupt {
		return "", nil
	}
	return line, err
}

// SetPrompt sets the prompt drawn before the next line
func (t *TerminalReader) SetPrompt(prompt string) {
	t.rl.SetPrompt(prompt)
}

// Stdout returns a writer that does not clobber the prompt line
func (t *TerminalReader) Stdout() io.Writer {
	return t.rl.Stdout()
}

// Stderr is the error stream counterpart of Stdout
func (t *TerminalReader) Stderr() io.Writer {
	return t.rl.Stderr()
}

// Close restores the terminal
func (t *TerminalReader) Close() error {
	return t.rl.Close()
}

// NewCompleter completes built-in names, and paths after a built-in when
// entries is provided
func NewCompleter(entries func(line string) []string) *readline.PrefixCompleter {
	names := append(commands.Names(), "exit")
	items := make([]readline.PrefixCompleterInterface, len(names))
	for i, name := range names {
		if entries != nil && name != "exit" && name != "help" && name != "pwd" {
			items[i] = readline.PcItem(name, readline.PcItemDynamic(entries))
			continue
		}
		items[i] = readline.PcItem(name)
	}
	return readline.NewPrefixCompleter(items...)
}
