// Package config resolves the server configuration from the command line.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
)

const (
	// DefaultHost is the only address the server binds to.
	DefaultHost = "127.0.0.1"
	// DefaultPort is used when no port argument is given.
	DefaultPort = 8080
)

// ErrUsage marks errors caused by malformed command-line arguments.
// The message and usage text have already been written when it is returned.
var ErrUsage = errors.New("invalid arguments")

// Config holds the listener configuration and the filesystem root.
// It is built once at startup and never mutated afterwards.
type Config struct {
	// Host is the loopback address the listener binds to.
	Host string
	// Port is the TCP port to bind. Range checking is left to the socket API.
	Port int
	// Root is the absolute path of the directory served to clients.
	Root string
}

// Addr returns the host:port pair the listener binds to.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Parse resolves a Config from args, which exclude the program name.
//
// It accepts at most one positional argument, the port. Diagnostics and usage
// are written to stderr. A help request returns flag.ErrHelp; argument errors
// wrap ErrUsage. The root is the working directory at the time of the call.
func Parse(name string, args []string, stderr io.Writer) (*Config, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: %s [port]\n\n", name)
		fmt.Fprintf(fs.Output(), "Serve the current directory on http://%s:<port> with cross-origin isolation headers.\n\n", DefaultHost)
		fmt.Fprintf(fs.Output(), "  port\tTCP port to listen on (default %d)\n", DefaultPort)
	}

	if err := fs.Parse(positionalNumbers(args)); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}

	cfg := &Config{
		Host: DefaultHost,
		Port: DefaultPort,
	}

	switch fs.NArg() {
	case 0:
	case 1:
		port, err := strconv.Atoi(fs.Arg(0))
		if err != nil {
			return nil, usageError(fs, "argument port: invalid int value: %q", fs.Arg(0))
		}
		cfg.Port = port
	default:
		return nil, usageError(fs, "unrecognized arguments: %s", strings.Join(fs.Args()[1:], " "))
	}

	root, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolve working directory: %w", err)
	}
	cfg.Root = root

	return cfg, nil
}

// positionalNumbers ends flag parsing before the first negative integer so
// that "-1" reaches the port argument instead of being read as a flag.
func positionalNumbers(args []string) []string {
	for i, arg := range args {
		if arg == "--" {
			break
		}
		if !strings.HasPrefix(arg, "-") {
			continue
		}
		if _, err := strconv.Atoi(arg); err == nil {
			out := make([]string, 0, len(args)+1)
			out = append(out, args[:i]...)
			out = append(out, "--")
			return append(out, args[i:]...)
		}
	}
	return args
}

func usageError(fs *flag.FlagSet, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(fs.Output(), "%s: error: %s\n", fs.Name(), msg)
	fs.Usage()
	return fmt.Errorf("%w: %s", ErrUsage, msg)
}
