// Command coiserve serves the current directory on the loopback interface
// with cross-origin isolation headers, for local testing of pages that need
// SharedArrayBuffer.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"

	"github.com/f4ah6o/coiserve/internal/config"
	"github.com/f4ah6o/coiserve/internal/server"
)

// Exit codes.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

var errColor = color.New(color.FgRed)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, filepath.Base(os.Args[0]), os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, name string, args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Parse(name, args, stderr)
	switch {
	case errors.Is(err, flag.ErrHelp):
		return exitOK
	case errors.Is(err, config.ErrUsage):
		return exitUsage
	case err != nil:
		errColor.Fprintf(stderr, "Failed to start: %v\n", err)
		return exitError
	}

	srv := server.New(cfg, server.WithAccessLog(stderr))
	if err := srv.Listen(); err != nil {
		errColor.Fprintf(stderr, "Failed to start server: %v\n", err)
		return exitError
	}

	srv.PrintBanner(stdout)

	if err := srv.Serve(ctx); err != nil {
		errColor.Fprintf(stderr, "Server error: %v\n", err)
		return exitError
	}
	fmt.Fprintln(stderr, "Server stopped")
	return exitOK
}
