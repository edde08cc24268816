package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/blobvault/internal/client/client"
	"github.com/dmitrijs2005/blobvault/internal/client/config"
	"github.com/dmitrijs2005/blobvault/internal/flagx"
)

// valueFlags are the blobctl flags that take a value.
var valueFlags = []string{"-a", "-t", "-w", "-r", "-c", "-config"}

var ErrUsage = errors.New("usage")

type App struct {
	config *config.Config
	client client.Client
	in     io.Reader
	out    io.Writer
}

// NewApp connects to the configured server, prompting for an access token
// when none is configured.
func NewApp(c *config.Config) (*App, error) {
	if c.AccessToken == "" {
		token, err := GetToken(os.Stderr)
		if err != nil {
			return nil, fmt.Errorf("read token: %w", err)
		}
		c.AccessToken = token
	}

	apiClient, err := client.NewBlobClient(c.ServerEndpointAddr, c.AccessToken, c.SpoolDir)
	if err != nil {
		return nil, err
	}

	return &App{config: c, client: apiClient, in: os.Stdin, out: os.Stdout}, nil
}

// Run executes the command given on the command line, or reads commands
// from standard input when there is none.
func (a *App) Run(ctx context.Context) error {
	defer a.client.Close()

	args := flagx.Positional(os.Args[1:], valueFlags)
	if len(args) > 0 {
		return a.Execute(ctx, args)
	}
	return a.repl(ctx)
}

func (a *App) repl(ctx context.Context) error {
	fmt.Fprintln(a.out, "Welcome to blobctl (type 'help' for commands)")
	scanner := bufio.NewScanner(a.in)

	for {
		fmt.Fprint(a.out, "blobctl> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}

		switch parts[0] {
		case "exit", "quit":
			fmt.Fprintln(a.out, "Bye!")
			return nil
		}

		if err := a.Execute(ctx, parts); err != nil {
			fmt.Fprintln(a.out, "error:", err)
		}
	}
}

// Execute runs one command.
func (a *App) Execute(ctx context.Context, args []string) error {
	cmd, args := args[0], args[1:]

	switch cmd {
	case "help":
		a.help()
		return nil
	case "list", "ls":
		return a.list(ctx, args)
	case "upload":
		return a.upload(ctx, args, false)
	case "upload-big":
		return a.upload(ctx, args, true)
	case "replace":
		return a.replace(ctx, args)
	case "download", "get":
		return a.download(ctx, args)
	case "delete", "rm":
		return a.delete(ctx, args)
	default:
		return fmt.Errorf("%w: unknown command %q", ErrUsage, cmd)
	}
}

func (a *App) help() {
	fmt.Fprintln(a.out, "Available commands: list, upload, upload-big, replace, download, delete, exit")
}
