// Command dataflow browses, uploads and exports the collaborator's record set.
//
// Usage:
//
//	dataflow [command] [flags]
//
// Commands:
//
//	serve    run the local browser UI (default)
//	login    sign in and persist the session
//	logout   clear the persisted session
//	view     print the filtered, sorted records and stats
//	upload   validate and upload a file
//	export   write the full record set as xlsx, pdf or both
//	watch    upload files dropped into a folder
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/dataflow/internal/config"
	"github.com/JonMunkholm/dataflow/internal/core"
	_ "github.com/JonMunkholm/dataflow/internal/core/schemas" // Register schemas
	"github.com/JonMunkholm/dataflow/internal/logging"
)

type command struct {
	name  string
	usage string
	run   func(ctx context.Context, cfg *config.Config, args []string) error
}

var commands = []command{
	{"serve", "run the local browser UI", runServe},
	{"login", "sign in and persist the session", runLogin},
	{"logout", "clear the persisted session", runLogout},
	{"view", "print the filtered, sorted records and stats", runView},
	{"upload", "validate and upload a file", runUpload},
	{"export", "write the full record set to the output directory", runExport},
	{"watch", "upload files dropped into a folder", runWatch},
}

func main() {
	// Existing environment variables take precedence over .env
	if err := godotenv.Load(); err == nil {
		slog.Debug("loaded .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	name, args := "serve", os.Args[1:]
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		name, args = args[0], args[1:]
	}

	cmd, ok := lookup(name)
	if !ok {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.run(ctx, cfg, args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		slog.Debug("command failed", "command", name, "error", err)
		fmt.Fprintln(os.Stderr, core.FormatUserError(err))
		var ne *core.NetworkError
		if errors.As(err, &ne) && ne.Detail != "" {
			fmt.Fprintln(os.Stderr, "  server said:", ne.Detail)
		}
		os.Exit(1)
	}
}

func lookup(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: dataflow <command> [flags]")
	fmt.Fprintln(os.Stderr, "\ncommands:")
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "  %-8s %s\n", c.name, c.usage)
	}
}
