package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/rgill02/crust/internal/crust"
	"github.com/rgill02/crust/internal/crust/commands"
)

// Common errors for control flow
var (
	ErrShowHelp    = errors.New("show help")
	ErrShowVersion = errors.New("show version")
)

// Config holds all configuration for the crust binaries
type Config struct {
	// Command line options
	Command     string // -c: Command line to run instead of an interactive session (crust)
	Addr        string // -a: Server address to connect to (crustc) or listen on (crustd)
	Dir         string // -d: Initial working directory
	Home        string // --home: Target of a bare cd
	Root        string // --root: Directory locate starts from
	Prompt      string // --prompt: Prompt template, {dir} is the working directory name
	ChunkSize   int    // --chunk-size: Transport buffer size
	MaxSessions int    // -m: Concurrent session limit, 0 means unlimited (crustd)
	AuditLog    string // --audit-log: Audit trail file
	TraceFile   string // --trace-file: OpenTelemetry span output file
	HistoryFile string // --history: Readline history file (crust)
	Verbose     bool   // -v: Verbose logging
	ConfigFile  string // -f: Configuration file URL

	// Positional arguments
	Args []string

	// flags given explicitly on the command line
	set map[string]bool
}

// ParseArgs parses command line arguments for the binary called name
func ParseArgs(name string, args []string) (*Config, error) {
	config := Config{
		ChunkSize: DefaultChunkSize,
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	// Define flags with both short and long options where appropriate
	fs.StringVar(&config.Command, "c", "", "Command line to run")
	fs.StringVar(&config.Command, "command", "", "Command line to run")

	fs.StringVar(&config.Addr, "a", "", "Server address")
	fs.StringVar(&config.Addr, "addr", "", "Server address")

	fs.StringVar(&config.Dir, "d", "", "Initial working directory")
	fs.StringVar(&config.Dir, "dir", "", "Initial working directory")

	fs.StringVar(&config.Home, "home", "", "Home directory for cd")
	fs.StringVar(&config.Root, "root", "", "Root directory for locate")
	fs.StringVar(&config.Prompt, "prompt", "", "Prompt template")
	fs.IntVar(&config.ChunkSize, "chunk-size", DefaultChunkSize, "Transport buffer size")

	fs.IntVar(&config.MaxSessions, "m", 0, "Concurrent session limit")
	fs.IntVar(&config.MaxSessions, "max-sessions", 0, "Concurrent session limit")

	fs.StringVar(&config.AuditLog, "audit-log", "", "Audit log file")
	fs.StringVar(&config.TraceFile, "trace-file", "", "Trace output file")
	fs.StringVar(&config.HistoryFile, "history", "", "History file")

	fs.StringVar(&config.ConfigFile, "f", "", "Configuration file")
	fs.StringVar(&config.ConfigFile, "config", "", "Configuration file")

	fs.BoolVar(&config.Verbose, "v", false, "Enable verbose logging")
	fs.BoolVar(&config.Verbose, "verbose", false, "Enable verbose logging")

	// Handle help and version flags
	var showHelp, showVersion bool
	fs.BoolVar(&showHelp, "h", false, "Show help")
	fs.BoolVar(&showHelp, "help", false, "Show help")
	fs.BoolVar(&showVersion, "V", false, "Show version")
	fs.BoolVar(&showVersion, "version", false, "Show version")

	// Parse arguments
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, ErrShowHelp
		}
		return nil, err
	}

	// Handle help/version first
	if showHelp {
		return nil, ErrShowHelp
	}
	if showVersion {
		return nil, ErrShowVersion
	}

	config.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		config.set[canonical(f.Name)] = true
	})
	config.Args = fs.Args()

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	// Set default config file if not specified
	if config.ConfigFile == "" {
		config.ConfigFile = DefaultConfigPath()
	}

	return &config, nil
}

// canonical maps short flag names to their long form
func canonical(name string) string {
	switch name {
	case "c":
		return "command"
	case "a":
		return "addr"
	case "d":
		return "dir"
	case "m":
		return "max-sessions"
	case "f":
		return "config"
	case "v":
		return "verbose"
	}
	return name
}

// IsSet reports whether the long-form flag name was given explicitly
func (c *Config) IsSet(name string) bool {
	return c.set[name]
}

// Merge fills every option not given on the command line from file
func (c *Config) Merge(file *ConfigFile) {
	if file == nil {
		return
	}
	if !c.IsSet("addr") {
		c.Addr = file.Listen
	}
	if !c.IsSet("home") {
		c.Home = file.Home
	}
	if !c.IsSet("root") {
		c.Root = file.Root
	}
	if !c.IsSet("prompt") {
		c.Prompt = file.Prompt
	}
	if !c.IsSet("chunk-size") && file.ChunkSize > 0 {
		c.ChunkSize = file.ChunkSize
	}
	if !c.IsSet("max-sessions") {
		c.MaxSessions = file.MaxSessions
	}
	if !c.IsSet("audit-log") {
		c.AuditLog = file.AuditLog
	}
	if !c.IsSet("trace-file") {
		c.TraceFile = file.TraceFile
	}
	if !c.IsSet("verbose") {
		c.Verbose = file.Verbose
	}
}

// validateConfig validates the parsed configuration
func validateConfig(config *Config) error {
	if config.ChunkSize < 1 {
		return fmt.Errorf("chunk size must be positive: %d", config.ChunkSize)
	}
	if config.MaxSessions < 0 {
		return fmt.Errorf("max sessions cannot be negative: %d", config.MaxSessions)
	}
	if config.Dir != "" {
		info, err := os.Stat(config.Dir)
		if err != nil {
			return fmt.Errorf("working directory does not exist: %s", config.Dir)
		}
		if !info.IsDir() {
			return fmt.Errorf("not a directory: %s", config.Dir)
		}
	}
	return nil
}

// ShowHelp displays help information for the binary called name
func ShowHelp(w io.Writer, name string) {
	var usage, options string
	switch name {
	case "crustd":
		usage = "crustd [OPTIONS]"
		options = `    -a, --addr <host:port>  Listen address (default: ` + DefaultListen + `)
    -m, --max-sessions <n>  Concurrent session limit, 0 = unlimited
    --chunk-size <n>        Transport buffer size (default: 1024)
`
	case "crustc":
		usage = "crustc [OPTIONS]"
		options = `    -a, --addr <host:port>  Server address (default: ` + DefaultListen + `)
    --chunk-size <n>        Transport buffer size (default: 1024)
`
	default:
		usage = "crust [OPTIONS]"
		options = `    -c, --command <line>    Run one command line and exit
    --history <file>        Readline history file
`
	}

	fmt.Fprintf(w, `%s - minimal file-management shell

USAGE:
    %s

OPTIONS:
%s    -d, --dir <path>        Initial working directory
    --home <path>           Target of a bare cd
    --root <path>           Directory locate starts from
    --prompt <template>     Prompt, {dir} is the working directory name
    --audit-log <file>      Append audit events as JSON lines
    --trace-file <file>     Write OpenTelemetry spans to file
    -f, --config <url>      Configuration file (default: ~/%s)
    -v, --verbose           Enable verbose logging
    -h, --help              Show this help message
    -V, --version           Show version information

BUILT-IN COMMANDS:
    %s

CONFIGURATION:
    YAML keys: listen, home, root, prompt, chunkSize, maxSessions,
    auditLog, traceFile, verbose. Command line options take precedence.
`, name, usage, options, DefaultFileName, strings.Join(builtins(), " "))
}

// builtins is the command set shown in help text
func builtins() []string {
	names := append(commands.Names(), crust.ExitCommand)
	sort.Strings(names)
	return names
}
