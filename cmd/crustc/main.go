package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"

	"github.com/rgill02/crust/internal/bridge"
	"github.com/rgill02/crust/internal/cli"
	"github.com/rgill02/crust/internal/crust"
)

const AppName = "crustc"

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
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

	fmt.Println("Connecting to server...")
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", config.Addr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", config.Addr, err)
	}
	defer conn.Close()
	fmt.Println("Connected to server")

	// The terminal streams are wrapped so the pumps never close them
	stdout := struct{ io.Writer }{os.Stdout}
	stdin := struct{ io.Reader }{os.Stdin}
	b := bridge.New(conn, stdout, stdin,
		bridge.WithChunkSize(config.ChunkSize),
		bridge.WithName(AppName),
		bridge.WithVerbose(config.Verbose),
	)
	b.Start()

	outboundDone := b.OutboundDone()
	for {
		select {
		case <-b.InboundDone():
			// server closed the connection
			return nil
		case <-outboundDone:
			// local input ended, let the server see end of input
			if cw, ok := conn.(interface{ CloseWrite() error }); ok {
				if err := cw.CloseWrite(); err != nil {
					return err
				}
			}
			outboundDone = nil
		}
	}
}
