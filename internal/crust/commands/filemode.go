package commands

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
)

// File open modes used by the built-ins
const (
	ModeRead     = "r" // read only
	ModeTruncate = "w" // create or truncate, write only
	ModeAppend   = "a" // create or append, write only
)

// newFilePerm is the mode of files created by the built-ins, before umask
const newFilePerm os.FileMode = 0666

// ParseFileMode converts a file mode string to os flags
func ParseFileMode(mode string) (int, error) {
	switch mode {
	case ModeRead:
		return os.O_RDONLY, nil
	case ModeTruncate:
		return os.O_WRONLY | os.O_CREATE | os.O_TRUNC, nil
	case ModeAppend:
		return os.O_WRONLY | os.O_CREATE | os.O_APPEND, nil
	default:
		return 0, fmt.Errorf("invalid mode: %s (valid modes: r, w, a)", mode)
	}
}

// OpenFile opens path, relative to the working directory, in the given mode
func (e *Env) OpenFile(path, mode string) (afero.File, error) {
	flag, err := ParseFileMode(mode)
	if err != nil {
		return nil, err
	}
	return e.Fs.OpenFile(e.Resolve(path), flag, newFilePerm)
}
