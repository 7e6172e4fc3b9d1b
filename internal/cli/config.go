package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/viant/afs"
	"gopkg.in/yaml.v3"
)

// Defaults
const (
	DefaultListen    = "127.0.0.1:30000"
	DefaultChunkSize = 1024
	DefaultFileName  = ".crust.yaml"
)

// ConfigFile represents configuration loaded from file
type ConfigFile struct {
	Listen      string `yaml:"listen"`
	Home        string `yaml:"home"`
	Root        string `yaml:"root"`
	Prompt      string `yaml:"prompt"`
	ChunkSize   int    `yaml:"chunkSize"`
	MaxSessions int    `yaml:"maxSessions"`
	AuditLog    string `yaml:"auditLog"`
	TraceFile   string `yaml:"traceFile"`
	Verbose     bool   `yaml:"verbose"`
}

// DefaultConfig returns default configuration values
func DefaultConfig() *ConfigFile {
	return &ConfigFile{
		Listen:    DefaultListen,
		ChunkSize: DefaultChunkSize,
		// Empty prompt means the shell's built-in prompt
		// Empty home means the user's home directory
		// Empty root means the filesystem root
	}
}

// DefaultConfigPath returns ~/.crust.yaml, or "" when the home directory
// is unknown
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, DefaultFileName)
}

// LoadConfigFile loads configuration from a YAML document at URL. Any
// scheme supported by afs works; a plain path is a local file. A missing
// document yields the defaults.
func LoadConfigFile(ctx context.Context, URL string) (*ConfigFile, error) {
	return loadConfigFile(ctx, afs.New(), URL)
}

func loadConfigFile(ctx context.Context, fs afs.Service, URL string) (*ConfigFile, error) {
	config := DefaultConfig()
	if URL == "" {
		return config, nil
	}

	exists, err := fs.Exists(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to check config file: %w", err)
	}
	if !exists {
		return config, nil
	}

	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", URL, err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", URL, err)
	}
	return config, nil
}

// Validate rejects values no component can work with
func (c *ConfigFile) Validate() error {
	if c.ChunkSize < 0 {
		return fmt.Errorf("invalid chunkSize: %d", c.ChunkSize)
	}
	if c.MaxSessions < 0 {
		return fmt.Errorf("invalid maxSessions: %d", c.MaxSessions)
	}
	return nil
}

// Load parses args for the binary called name and merges the
// configuration file they point to. Command line options take precedence.
func Load(ctx context.Context, name string, args []string) (*Config, error) {
	config, err := ParseArgs(name, args)
	if err != nil {
		return nil, err
	}
	file, err := LoadConfigFile(ctx, config.ConfigFile)
	if err != nil {
		return nil, err
	}
	config.Merge(file)
	return config, nil
}
