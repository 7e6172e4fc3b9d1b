package commands

// Pwd prints the working directory of the session
func Pwd(env *Env, args []string) error {
	return env.Print(env.Cwd + "\n")
}

// Cd changes the working directory of the session. Without an argument it
// changes to the home directory.
func Cd(env *Env, args []string) error {
	target := env.Home
	if len(args) > 0 {
		target = args[0]
	}
	if target == "" {
		return newError(KindNotFound, "cd: HOME not set")
	}

	dir := env.Resolve(target)
	info, err := env.Fs.Stat(dir)
	if err != nil {
		switch kind := kindOf(err); kind {
		case KindPermission:
			return newError(kind, "cd: %s: Permission denied", target).wrap(err)
		default:
			return newError(KindNotFound, "cd: %s: No such file or directory", target).wrap(err)
		}
	}
	if !info.IsDir() {
		return newError(KindNotDir, "cd: %s: Not a directory", target)
	}

	// a directory that cannot be opened cannot be entered either
	f, err := env.Fs.Open(dir)
	if err != nil {
		return newError(kindOf(err), "cd: %s: Permission denied", target).wrap(err)
	}
	f.Close()

	env.Cwd = dir
	return nil
}
