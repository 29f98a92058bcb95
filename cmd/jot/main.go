package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"

	"github.com/hpungsan/jot/internal/config"
	"github.com/hpungsan/jot/internal/db"
	"github.com/hpungsan/jot/internal/mcp"
	"github.com/hpungsan/jot/internal/ops"
	"github.com/hpungsan/jot/internal/vcs"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"add": true, "get": true, "update": true, "rm": true,
	"search": true, "expiring": true, "cleanup": true,
	"contexts": true, "context": true, "context-rm": true,
	"export": true, "import": true, "serve": true,
	"help": true, "h": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode(args []string) bool {
	if len(args) < 2 {
		return false
	}
	return cliCommands[args[1]] || isHelpOrVersion(args)
}

// isHelpOrVersion reports whether only usage or version output is wanted.
func isHelpOrVersion(args []string) bool {
	if len(args) < 2 {
		return false
	}
	switch args[1] {
	case "--help", "-h", "--version", "-v", "help", "h":
		return true
	}
	return false
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) != 0
}

func printBanner() {
	fmt.Println(`
     _       _
    (_) ___ | |_
    | |/ _ \| __|
    | | (_) | |_
   _/ |\___/ \__|
  |__/

  Context-aware notes for your repositories

  Usage: jot <command> [options]
         jot --help

  MCP server mode requires piped input (or 'jot serve').`)
}

func main() {
	if err := run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	// No args + interactive terminal → show banner and exit
	if len(args) < 2 && isTerminal() {
		printBanner()
		return nil
	}

	// Help and version need no database.
	if isHelpOrVersion(args) {
		return newCLIApp(nil).Run(args)
	}

	// Unknown argument + terminal → don't start the MCP server
	if len(args) >= 2 && !isCLIMode(args) && isTerminal() {
		return fmt.Errorf("unknown command %q; run 'jot --help' for usage", args[1])
	}

	home, err := config.HomeDir()
	if err != nil {
		return err
	}
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("could not determine working directory: %w", err)
	}

	cfg, err := config.LoadWithRepo(home, cwd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		logger.Warn("unknown tools in disabled_tools", "tools", unknown)
	}

	dbPath := config.DBPath(home)
	database, err := db.Init(dbPath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()
	db.ConfigurePool(database, cfg)
	logger.Debug("database ready", "path", dbPath)

	svc := ops.NewService(db.NewRepository(database), cfg,
		ops.WithLogger(logger),
		ops.WithHome(home),
		ops.WithInspector(vcs.NewGit(cwd)),
	)
	defer svc.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if isCLIMode(args) {
		return newCLIApp(svc).RunContext(ctx, args)
	}

	// MCP server mode (default)
	return mcp.Run(ctx, svc, Version)
}
