package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rgill02/crust/internal/audit"
	"github.com/rgill02/crust/internal/cli"
	"github.com/rgill02/crust/internal/crust"
	"github.com/rgill02/crust/internal/server"
	"github.com/rgill02/crust/internal/tracing"
)

const (
	AppName         = "crustd"
	shutdownTimeout = 5 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run(ctx context.Context, args []string) error {
	config, err := cli.Load(ctx, AppName, args)
	switch {
	case errors.Is(err, cli.ErrShowHelp):
		cli.ShowHelp(os.Stdout, AppName)
		return nil
	case errors.Is(err, cli.ErrShowVersion):
		fmt.Printf("%s version %s (%s)\n", AppName, crust.Version, crust.BuildCommit)
		return nil
	case err != nil:
		return err
	}

	if config.TraceFile != "" {
		if err := tracing.Init(AppName, crust.Version, config.TraceFile); err != nil {
			return fmt.Errorf("failed to initialize tracing: %w", err)
		}
		defer func() {
			if err := tracing.Shutdown(context.Background()); err != nil {
				log.Printf("Failed to flush traces: %v", err)
			}
		}()
	}

	logger, err := audit.Open(config.AuditLog)
	if err != nil {
		return err
	}
	defer logger.Close()

	srv := server.New(server.Config{
		Addr:        config.Addr,
		Dir:         config.Dir,
		Home:        config.Home,
		Root:        config.Root,
		Prompt:      config.Prompt,
		ChunkSize:   config.ChunkSize,
		MaxSessions: config.MaxSessions,
		Verbose:     config.Verbose,
	}, server.WithAudit(logger))

	serveErr := srv.ListenAndServe(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server: Shutdown incomplete: %v", err)
	}
	return serveErr
}
