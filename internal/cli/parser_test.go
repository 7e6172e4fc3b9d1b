package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgs(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		args    []string
		want    *Config
		wantErr error
	}{
		{
			name: "defaults",
			args: []string{},
			want: &Config{ChunkSize: DefaultChunkSize},
		},
		{
			name: "short options",
			args: []string{"-c", "pwd; ls", "-a", "example.com:7000", "-d", dir, "-m", "3", "-v"},
			want: &Config{
				Command:     "pwd; ls",
				Addr:        "example.com:7000",
				Dir:         dir,
				MaxSessions: 3,
				ChunkSize:   DefaultChunkSize,
				Verbose:     true,
			},
		},
		{
			name: "long options",
			args: []string{"--command", "ls", "--addr", ":9000", "--home", "/home/x", "--root", "/srv", "--prompt", "{dir}$ ", "--chunk-size", "64", "--audit-log", "a.log", "--trace-file", "t.json", "extra"},
			want: &Config{
				Command:   "ls",
				Addr:      ":9000",
				Home:      "/home/x",
				Root:      "/srv",
				Prompt:    "{dir}$ ",
				ChunkSize: 64,
				AuditLog:  "a.log",
				TraceFile: "t.json",
				Args:      []string{"extra"},
			},
		},
		{
			name:    "help flag",
			args:    []string{"-h"},
			wantErr: ErrShowHelp,
		},
		{
			name:    "version flag",
			args:    []string{"--version"},
			wantErr: ErrShowVersion,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseArgs("crust", tt.args)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want.Command, got.Command)
			assert.Equal(t, tt.want.Addr, got.Addr)
			assert.Equal(t, tt.want.Dir, got.Dir)
			assert.Equal(t, tt.want.Home, got.Home)
			assert.Equal(t, tt.want.Root, got.Root)
			assert.Equal(t, tt.want.Prompt, got.Prompt)
			assert.Equal(t, tt.want.ChunkSize, got.ChunkSize)
			assert.Equal(t, tt.want.MaxSessions, got.MaxSessions)
			assert.Equal(t, tt.want.AuditLog, got.AuditLog)
			assert.Equal(t, tt.want.TraceFile, got.TraceFile)
			assert.Equal(t, tt.want.Verbose, got.Verbose)
			assert.ElementsMatch(t, tt.want.Args, got.Args)
		})
	}
}

func TestParseArgsInvalid(t *testing.T) {
	file := filepath.Join(t.TempDir(), "plain.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	tests := []struct {
		name string
		args []string
	}{
		{name: "unknown flag", args: []string{"--bogus"}},
		{name: "zero chunk size", args: []string{"--chunk-size", "0"}},
		{name: "negative session limit", args: []string{"-m", "-1"}},
		{name: "missing directory", args: []string{"-d", filepath.Join(t.TempDir(), "missing")}},
		{name: "directory is a file", args: []string{"-d", file}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseArgs("crustd", tt.args)
			assert.Error(t, err)
		})
	}
}

func TestMerge(t *testing.T) {
	file := &ConfigFile{
		Listen:      "0.0.0.0:4000",
		Home:        "/home/file",
		Prompt:      "file> ",
		ChunkSize:   2048,
		MaxSessions: 8,
		AuditLog:    "/var/log/crust.log",
		Verbose:     true,
	}

	config, err := ParseArgs("crustd", []string{"--addr", ":5000", "--chunk-size", "16", "-v=false"})
	require.NoError(t, err)
	config.Merge(file)

	assert.Equal(t, ":5000", config.Addr, "flags take precedence")
	assert.Equal(t, 16, config.ChunkSize)
	assert.False(t, config.Verbose)
	assert.Equal(t, "/home/file", config.Home, "unset flags come from the file")
	assert.Equal(t, "file> ", config.Prompt)
	assert.Equal(t, 8, config.MaxSessions)
	assert.Equal(t, "/var/log/crust.log", config.AuditLog)
	assert.True(t, config.IsSet("verbose"))
	assert.False(t, config.IsSet("home"))
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	assert.Equal(t, DefaultListen, config.Listen)
	assert.Equal(t, 1024, config.ChunkSize)
	assert.Zero(t, config.MaxSessions)
	assert.Empty(t, config.Prompt)
}

func TestLoadConfigFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	t.Run("missing file yields defaults", func(t *testing.T) {
		config, err := LoadConfigFile(ctx, filepath.Join(dir, "absent.yaml"))
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), config)
	})

	t.Run("empty location yields defaults", func(t *testing.T) {
		config, err := LoadConfigFile(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), config)
	})

	t.Run("yaml overrides defaults", func(t *testing.T) {
		path := filepath.Join(dir, "crust.yaml")
		content := "listen: 0.0.0.0:31000\nprompt: \"> \"\nmaxSessions: 4\nauditLog: /tmp/audit.log\nverbose: true\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		config, err := LoadConfigFile(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, "0.0.0.0:31000", config.Listen)
		assert.Equal(t, "> ", config.Prompt)
		assert.Equal(t, 4, config.MaxSessions)
		assert.Equal(t, "/tmp/audit.log", config.AuditLog)
		assert.True(t, config.Verbose)
		assert.Equal(t, DefaultChunkSize, config.ChunkSize, "absent keys keep their default")
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := filepath.Join(dir, "broken.yaml")
		require.NoError(t, os.WriteFile(path, []byte("listen: [unterminated\n"), 0644))
		_, err := LoadConfigFile(ctx, path)
		assert.Error(t, err)
	})

	t.Run("invalid values", func(t *testing.T) {
		path := filepath.Join(dir, "invalid.yaml")
		require.NoError(t, os.WriteFile(path, []byte("chunkSize: -5\n"), 0644))
		_, err := LoadConfigFile(ctx, path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "chunkSize")
	})
}

func TestShowHelp(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{name: "crust", want: "--command"},
		{name: "crustd", want: "--max-sessions"},
		{name: "crustc", want: "Server address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			ShowHelp(&buf, tt.name)
			assert.Contains(t, buf.String(), tt.want)
			assert.Contains(t, buf.String(), "locate")
			assert.Contains(t, buf.String(), "exit")
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crust.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: 127.0.0.1:32000\nmaxSessions: 2\nprompt: \"$ \"\n"), 0644))

	config, err := Load(context.Background(), "crustd", []string{"-f", path, "--prompt", "# "})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:32000", config.Addr)
	assert.Equal(t, 2, config.MaxSessions)
	assert.Equal(t, "# ", config.Prompt)
	assert.Equal(t, DefaultChunkSize, config.ChunkSize)

	_, err = Load(context.Background(), "crustd", []string{"--help"})
	assert.Equal(t, ErrShowHelp, err)
}
