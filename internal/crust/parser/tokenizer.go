package parser

import (
	"strings"
)

// Separator splits one input line into several commands
const Separator = ";"

// Command is a single tokenized command: token 0 is the command name,
// the remaining tokens are its arguments.
type Command []string

// Name returns the command name or "" for an empty command
func (c Command) Name() string {
	if len(c) == 0 {
		return ""
	}
	return c[0]
}

// Args returns the argument tokens (command name stripped)
func (c Command) Args() []string {
	if len(c) < 2 {
		return nil
	}
	return c[1:]
}

// IsEmpty reports whether the command has no tokens (blank line or segment)
func (c Command) IsEmpty() bool {
	return len(c) == 0
}

func (c Command) String() string {
	return strings.Join(c, " ")
}

// Parse splits raw input into an ordered command line.
//
// The input is trimmed and split on ';'. Every segment yields exactly one
// Command made of its whitespace separated tokens, so empty segments become
// empty commands. Quotes and escapes get no special treatment.
func Parse(raw string) []Command {
	raw = strings.TrimSpace(raw)
	segments := strings.Split(raw, Separator)

	commands := make([]Command, 0, len(segments))
	for _, segment := range segments {
		commands = append(commands, Command(strings.Fields(segment)))
	}
	return commands
}
