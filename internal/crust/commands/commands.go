package commands

import (
	"sort"
	"strings"
)

// CommandFunc represents a built-in command. It receives the argument
// tokens only, the command name is already stripped.
type CommandFunc func(env *Env, args []string) error

// Commands maps command names to their implementations
var Commands = map[string]CommandFunc{
	"pwd":    Pwd,
	"cd":     Cd,
	"ls":     Ls,
	"cp":     Cp,
	"cat":    Cat,
	"mv":     Mv,
	"mkdir":  Mkdir,
	"rmdir":  Rmdir,
	"rm":     Rm,
	"touch":  Touch,
	"locate": Locate,
}

func init() {
	// help lists Commands, so it cannot appear in the literal above
	Commands["help"] = Help
}

// Lookup returns the built-in registered under name (case-sensitive)
func Lookup(name string) (CommandFunc, bool) {
	fn, ok := Commands[name]
	return fn, ok
}

// Names returns the sorted names of all built-ins
func Names() []string {
	names := make([]string, 0, len(Commands))
	for name := range Commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Help lists the available commands, one per line
func Help(env *Env, args []string) error {
	names := append(Names(), "exit")
	sort.Strings(names)
	return env.Print(strings.Join(names, "\n") + "\n")
}
