package commands

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"syscall"

	"github.com/spf13/afero"
)

const (
	redirectOut    = ">"
	redirectAppend = ">>"
)

// Cp copies a file to a file or into a directory, or several files into a
// directory given last.
func Cp(env *Env, args []string) error {
	if len(args) < 2 {
		return usageError("cp: requires at least 2 arguments")
	}
	if len(args) == 2 {
		return copyOne(env, args[0], args[1])
	}

	sources, dir := args[:len(args)-1], args[len(args)-1]
	for _, source := range sources {
		if !env.IsFile(source) {
			return newError(KindNotFile, "cp: '%s' needs to be a file", source)
		}
	}
	if !env.IsDir(dir) {
		return newError(KindNotDir, "cp: '%s' needs to be a directory", dir)
	}
	for _, source := range sources {
		dest := filepath.Join(dir, filepath.Base(source))
		if err := copyFile(env, source, dest); err != nil {
			return cpError("cp", source, dest, err)
		}
	}
	return nil
}

func copyOne(env *Env, source, dest string) error {
	if env.IsDir(source) {
		return newError(KindIsDir, "cp: '%s' cannot be a directory", source)
	}
	if env.IsDir(dest) {
		dest = filepath.Join(dest, filepath.Base(source))
	}
	if err := copyFile(env, source, dest); err != nil {
		return cpError("cp", source, dest, err)
	}
	return nil
}

// errSameFile is returned by copyFile and Mv when both paths name one file
var errSameFile = errors.New("same file")

// copyFile copies the bytes of source to dest, truncating dest. The
// destination is only created once the source has been opened.
func copyFile(env *Env, source, dest string) error {
	if sameFile(env, source, dest) {
		return errSameFile
	}
	in, err := env.OpenFile(source, ModeRead)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := env.OpenFile(dest, ModeTruncate)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// sameFile reports whether both paths resolve to one existing file
func sameFile(env *Env, a, b string) bool {
	pathA, pathB := env.Resolve(a), env.Resolve(b)
	infoA, errA := env.Fs.Stat(pathA)
	if errA != nil {
		return false
	}
	if pathA == pathB {
		return true
	}
	infoB, errB := env.Fs.Stat(pathB)
	return errB == nil && os.SameFile(infoA, infoB)
}

// cpError maps a copy or move failure to the one-line message of name
func cpError(name, source, dest string, err error) error {
	if errors.Is(err, errSameFile) {
		return newError(KindSameFile, "%s: '%s' and '%s' are the same file", name, source, dest)
	}
	switch kind := kindOf(err); kind {
	case KindPermission:
		return newError(kind, "%s: Permission denied", name).wrap(err)
	case KindNotFound:
		return newError(kind, "%s: No such file or directory", name).wrap(err)
	default:
		return err
	}
}

// Mv renames source to dest, or moves it into dest when dest is a directory
func Mv(env *Env, args []string) error {
	if len(args) < 2 {
		return usageError("mv: requires at least 2 arguments")
	}
	source, dest := args[0], args[1]
	if sameFile(env, source, dest) {
		return cpError("mv", source, dest, errSameFile)
	}
	if env.IsDir(dest) {
		dest = filepath.Join(dest, filepath.Base(source))
		if _, err := env.Stat(dest); err == nil {
			return newError(KindFailed, "mv: Destination path '%s' already exists", dest)
		}
	}

	err := env.Fs.Rename(env.Resolve(source), env.Resolve(dest))
	if errors.Is(err, syscall.EXDEV) {
		// rename cannot cross devices: copy, then drop the original
		err = moveAcross(env, source, dest)
	}
	if err != nil {
		return cpError("mv", source, dest, err)
	}
	return nil
}

func moveAcross(env *Env, source, dest string) error {
	if !env.IsDir(source) {
		if err := copyFile(env, source, dest); err != nil {
			return err
		}
		return env.Fs.Remove(env.Resolve(source))
	}
	if err := copyTree(env, env.Resolve(source), env.Resolve(dest)); err != nil {
		return err
	}
	return env.Fs.RemoveAll(env.Resolve(source))
}

// copyTree recreates the directory tree at root under target, copying the
// content of every file it holds
func copyTree(env *Env, root, target string) error {
	return afero.Walk(env.Fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		to := filepath.Join(target, rel)
		if info.IsDir() {
			return env.Fs.MkdirAll(to, info.Mode().Perm()|0700)
		}
		return copyFile(env, path, to)
	})
}

// Cat concatenates files to the output stream, or to a file given after
// '>' (truncate) or '>>' (append). Tokens after the target are ignored.
func Cat(env *Env, args []string) error {
	if len(args) == 0 {
		return usageError("cat: requires at least 1 argument")
	}

	var content bytes.Buffer
	target, appendMode := "", false
	for i, arg := range args {
		if arg == redirectOut || arg == redirectAppend {
			if i+1 == len(args) {
				return usageError("A target file is required with use of '%s'", arg)
			}
			target, appendMode = args[i+1], arg == redirectAppend
			break
		}
		if err := readInto(env, arg, &content); err != nil {
			return err
		}
	}

	if target == "" {
		return env.Print(content.String())
	}

	mode := ModeTruncate
	if appendMode {
		mode = ModeAppend
	}
	f, err := env.OpenFile(target, mode)
	if err != nil {
		return newError(kindOf(err), "Could not write to file '%s'", target).wrap(err)
	}
	if _, err := f.Write(content.Bytes()); err != nil {
		f.Close()
		return newError(KindFailed, "Could not write to file '%s'", target).wrap(err)
	}
	if err := f.Close(); err != nil {
		return newError(KindFailed, "Could not write to file '%s'", target).wrap(err)
	}
	return nil
}

func readInto(env *Env, name string, buf *bytes.Buffer) error {
	path := env.Resolve(name)
	info, err := env.Fs.Stat(path)
	if err != nil {
		if kind := kindOf(err); kind == KindPermission {
			return newError(kind, "cat: %s: Permission denied", name).wrap(err)
		}
		return newError(KindNotFound, "Could not find file '%s'", name).wrap(err)
	}
	if info.IsDir() {
		return newError(KindIsDir, "cat: %s: Is a directory", name)
	}

	f, err := env.Fs.Open(path)
	if err != nil {
		if kind := kindOf(err); kind == KindPermission {
			return newError(kind, "cat: %s: Permission denied", name).wrap(err)
		}
		return newError(KindNotFound, "Could not find file '%s'", name).wrap(err)
	}
	defer f.Close()
	_, err = buf.ReadFrom(f)
	return err
}
