package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/rgill02/crust/internal/audit"
	"github.com/rgill02/crust/internal/cli"
	"github.com/rgill02/crust/internal/crust"
	"github.com/rgill02/crust/internal/tracing"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	config, err := cli.Load(ctx, crust.Name, args)
	switch {
	case errors.Is(err, cli.ErrShowHelp):
		cli.ShowHelp(os.Stdout, crust.Name)
		return nil
	case errors.Is(err, cli.ErrShowVersion):
		fmt.Printf("%s version %s (%s)\n", crust.Name, crust.Version, crust.BuildCommit)
		return nil
	case err != nil:
		return err
	}

	if config.TraceFile != "" {
		if err := tracing.Init(crust.Name, crust.Version, config.TraceFile); err != nil {
			return fmt.Errorf("failed to initialize tracing: %w", err)
		}
		defer func() {
			if err := tracing.Shutdown(ctx); err != nil {
				log.Printf("Failed to flush traces: %v", err)
			}
		}()
	}

	logger, err := audit.Open(config.AuditLog)
	if err != nil {
		return err
	}
	defer logger.Close()

	sessionConfig := &crust.Config{
		Dir:     config.Dir,
		Home:    config.Home,
		Root:    config.Root,
		Prompt:  config.Prompt,
		Remote:  "local",
		Audit:   logger,
		Verbose: config.Verbose,
	}

	// One-shot command line
	if config.Command != "" {
		out := bufio.NewWriter(os.Stdout)
		sess, err := crust.NewSession(crust.NewStreamReader(strings.NewReader("")), out, os.Stderr, sessionConfig)
		if err != nil {
			return err
		}
		return sess.Execute(ctx, config.Command)
	}

	// Interactive terminal
	if readline.IsTerminal(int(os.Stdin.Fd())) {
		var sess *crust.Session
		reader, err := crust.NewTerminalReader(config.HistoryFile, func(line string) []string {
			if sess == nil {
				return nil
			}
			return sess.Entries(line)
		})
		if err != nil {
			return fmt.Errorf("failed to create readline: %w", err)
		}
		defer reader.Close()

		sess, err = crust.NewSession(reader, reader.Stdout(), reader.Stderr(), sessionConfig)
		if err != nil {
			return err
		}
		fmt.Printf("Welcome to %s %s\n", crust.Name, crust.Version)
		fmt.Println("Type 'help' for available commands, 'exit' to quit")
		return sess.Run(ctx)
	}

	// Script from a pipe or redirection
	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()
	sess, err := crust.NewSession(crust.NewStreamReader(os.Stdin), out, os.Stderr, sessionConfig)
	if err != nil {
		return err
	}
	return sess.Run(ctx)
}
