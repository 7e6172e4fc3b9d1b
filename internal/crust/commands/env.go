package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// ErrOutput marks a failure of the output or error stream itself. Commands
// never report it to the user; the session loop stops on it.
var ErrOutput = errors.New("output stream failure")

// Flusher is implemented by buffered sinks
type Flusher interface {
	Flush() error
}

// Env is the execution context shared by all built-ins of one session.
// Cwd is owned by the session: commands resolve every relative path
// against it and only cd changes it.
type Env struct {
	Fs     afero.Fs
	Cwd    string
	Home   string
	Root   string // locate starts here; empty means the volume root of Cwd
	Stdout io.Writer
	Stderr io.Writer
}

// NewEnv creates an environment over fs rooted at the absolute directory cwd
func NewEnv(fs afero.Fs, cwd string, stdout, stderr io.Writer) *Env {
	return &Env{
		Fs:     fs,
		Cwd:    filepath.Clean(cwd),
		Stdout: stdout,
		Stderr: stderr,
	}
}

// Resolve returns the absolute, cleaned form of path relative to Cwd
func (e *Env) Resolve(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(e.Cwd, path)
}

// Print writes s to the output stream and flushes it
func (e *Env) Print(s string) error {
	return WriteString(e.Stdout, s)
}

// Report writes the message of err as one line on the error stream
func (e *Env) Report(err error) error {
	if err == nil {
		return nil
	}
	return WriteString(e.Stderr, err.Error()+"\n")
}

// Stat returns file info for path, following symbolic links
func (e *Env) Stat(path string) (os.FileInfo, error) {
	return e.Fs.Stat(e.Resolve(path))
}

// IsDir reports whether path names an existing directory
func (e *Env) IsDir(path string) bool {
	info, err := e.Stat(path)
	return err == nil && info.IsDir()
}

// IsFile reports whether path names an existing regular file
func (e *Env) IsFile(path string) bool {
	info, err := e.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// locateRoot returns the directory locate walks from
func (e *Env) locateRoot() string {
	if e.Root != "" {
		return e.Resolve(e.Root)
	}
	return filepath.VolumeName(e.Cwd) + string(filepath.Separator)
}

// WriteString writes s to w and flushes w when it is buffered
func WriteString(w io.Writer, s string) error {
	if w == nil {
		return nil
	}
	if _, err := io.WriteString(w, s); err != nil {
		return fmt.Errorf("%w: %v", ErrOutput, err)
	}
	if f, ok := w.(Flusher); ok {
		if err := f.Flush(); err != nil {
			return fmt.Errorf("%w: %v", ErrOutput, err)
		}
	}
	return nil
}
