package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/ldi/clipflow/internal/logger"
	"github.com/ldi/clipflow/internal/mcp"
	"github.com/ldi/clipflow/internal/ui"
)

var (
	configPath string
	dbPath     string
	baseURL    string
	verbose    bool

	stdout io.Writer = os.Stdout
	stdin  io.Reader = os.Stdin

	runHistoryTUI = ui.RunHistory
	serveMCP      = mcp.Serve
)

func main() {
	flag.StringVar(&configPath, "config", "", "Path to config file (default: config.json next to the database)")
	flag.StringVar(&dbPath, "db-path", defaultDBPath, "Path to local database file")
	flag.StringVar(&baseURL, "base-url", "", "Backend base URL")
	flag.BoolVar(&verbose, "verbose", false, "Enable verbose logging")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: failed to load .env: %v\n", err)
	}

	var command string
	var args []string

	if flag.NArg() == 0 {
		selected, err := ui.RunMenu()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error running menu: %v\n", err)
			os.Exit(1)
		}
		if selected == "" {
			os.Exit(0)
		}
		command = selected
		args = []string{}
	} else {
		command = flag.Arg(0)
		args = flag.Args()[1:]
	}

	if err := execute(command, args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var errUnknownCommand = errors.New("unknown command")

func execute(command string, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	closer, err := logger.Init(os.Stderr, cfg.LogDir, verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch command {
	case "history":
		return runHistory(ctx, cfg, args)
	case "list":
		return runList(ctx, cfg, args)
	case "stats":
		return runStats(ctx, cfg, args)
	case "show":
		return runShow(ctx, cfg, args)
	case "delete":
		return runDelete(ctx, cfg, args)
	case "download":
		return runDownload(ctx, cfg, args)
	case "whoami":
		return runWhoami(ctx, args)
	case "token":
		return runToken(ctx, cfg, args)
	case "serve":
		return runServe(ctx, cfg, args)
	case "mcp":
		return runMCP(ctx, cfg, args)
	case "init":
		return runInit(ctx, args)
	case "db":
		return runDB(ctx, args)
	default:
		return fmt.Errorf("%w: %s", errUnknownCommand, command)
	}
}
