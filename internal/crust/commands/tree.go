package commands

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// Mkdir creates a directory together with any missing parents. An
// existing path is an error.
func Mkdir(env *Env, args []string) error {
	if len(args) < 1 {
		return usageError("mkdir: requires 1 argument")
	}
	path := env.Resolve(args[0])
	if _, err := env.Fs.Stat(path); err == nil {
		return newError(KindFailed, "Could not make directory '%s'", args[0]).wrap(os.ErrExist)
	}
	if err := env.Fs.MkdirAll(path, 0777); err != nil {
		return newError(kindOf(err), "Could not make directory '%s'", args[0]).wrap(err)
	}
	return nil
}

// Rmdir removes each named directory tree, reporting failures one by one
func Rmdir(env *Env, args []string) error {
	if len(args) < 1 {
		return usageError("rmdir: requires at least 1 argument")
	}
	for _, arg := range args {
		if err := env.Report(removeTree(env, arg)); err != nil {
			return err
		}
	}
	return nil
}

func removeTree(env *Env, name string) error {
	path := env.Resolve(name)
	info, err := env.Fs.Stat(path)
	if err != nil {
		return newError(kindOf(err), "Could not remove directory '%s'", name).wrap(err)
	}
	if !info.IsDir() {
		return newError(KindNotDir, "'%s' is not a directory", name)
	}
	if err := env.Fs.RemoveAll(path); err != nil {
		return newError(kindOf(err), "Could not remove directory '%s'", name).wrap(err)
	}
	return nil
}

// Rm removes each named entry; directories are removed like rmdir does
func Rm(env *Env, args []string) error {
	if len(args) < 1 {
		return usageError("rm: requires at least 1 argument")
	}
	for _, arg := range args {
		var err error
		if env.IsDir(arg) {
			err = removeTree(env, arg)
		} else if rmErr := env.Fs.Remove(env.Resolve(arg)); rmErr != nil {
			err = newError(kindOf(rmErr), "Could not remove '%s'", arg).wrap(rmErr)
		}
		if err := env.Report(err); err != nil {
			return err
		}
	}
	return nil
}

// Touch makes sure each named file exists without changing its content
func Touch(env *Env, args []string) error {
	if len(args) < 1 {
		return usageError("touch: requires at least 1 argument")
	}
	for _, arg := range args {
		var err error
		f, openErr := env.OpenFile(arg, ModeAppend)
		if openErr != nil {
			err = newError(kindOf(openErr), "Could not open file '%s'", arg).wrap(openErr)
		} else {
			f.Close()
		}
		if err := env.Report(err); err != nil {
			return err
		}
	}
	return nil
}

// linksToDir reports whether the walked entry is a symbolic link whose
// target is a directory. Walk does not follow links, so such an entry
// arrives with a non-directory mode.
func linksToDir(env *Env, path string, info os.FileInfo) bool {
	if info.Mode()&os.ModeSymlink == 0 {
		return false
	}
	target, err := env.Fs.Stat(path)
	return err == nil && target.IsDir()
}

// Locate prints the full path of every file below the filesystem root
// whose name contains the given substring. Directories that cannot be read
// are skipped.
func Locate(env *Env, args []string) error {
	if len(args) < 1 {
		return usageError("locate: requires at least 1 argument")
	}
	pattern := args[0]

	var found strings.Builder
	walkErr := afero.Walk(env.Fs, env.locateRoot(), func(path string, info os.FileInfo, err error) error {
		if err != nil || info == nil {
			return nil
		}
		if info.IsDir() || linksToDir(env, path, info) {
			return nil
		}
		if strings.Contains(info.Name(), pattern) {
			found.WriteString(filepath.Clean(path))
			found.WriteByte('\n')
		}
		return nil
	})
	if walkErr != nil && found.Len() == 0 {
		return newError(kindOf(walkErr), "Could not find '%s'", pattern).wrap(walkErr)
	}
	if found.Len() == 0 {
		return newError(KindNotFound, "Could not find '%s'", pattern)
	}
	return env.Print(found.String())
}
