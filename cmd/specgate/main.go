// specgate validates markdown specifications against a project's rules.
//
// Usage:
//
//	specgate validate [spec...]   # validate specs, exit 1 on failure
//	specgate serve                # MCP server on stdio
//	specgate http                 # JSON API
//	specgate watch                # re-validate on change
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/HendryAvila/specgate/internal/config"
	"github.com/HendryAvila/specgate/internal/history"
	"github.com/HendryAvila/specgate/internal/logger"
	sgserver "github.com/HendryAvila/specgate/internal/server"
	"github.com/HendryAvila/specgate/internal/workspace"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdout, os.Stderr).RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// env carries what every command needs. It is filled in by the app's
// Before hook.
type env struct {
	stdout io.Writer
	stderr io.Writer
	rt     config.Runtime
	log    *slog.Logger
	root   string
}

func newApp(stdout, stderr io.Writer) *cli.App {
	e := &env{stdout: stdout, stderr: stderr}

	return &cli.App{
		Name:      "specgate",
		Usage:     "validate markdown specs: structure, sub-spec size and cross-references",
		Version:   sgserver.Version,
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"C"},
				Usage:   "project root (default: nearest directory with .specgate/config.yaml)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error (default $SPECGATE_LOG_LEVEL or info)",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "text or json (default $SPECGATE_LOG_FORMAT or text)",
			},
		},
		Before: func(c *cli.Context) error {
			return e.setup(c)
		},
		Commands: []*cli.Command{
			validateCommand(e),
			listCommand(e),
			tokensCommand(e),
			initCommand(e),
			watchCommand(e),
			serveCommand(e),
			httpCommand(e),
			historyCommand(e),
			updateCommand(e),
			versionCommand(e),
		},
	}
}

func (e *env) setup(c *cli.Context) error {
	e.rt = config.LoadRuntime()
	if v := c.String("log-level"); v != "" {
		e.rt.LogLevel = v
	}
	if v := c.String("log-format"); v != "" {
		e.rt.LogFormat = v
	}

	level, err := logger.ParseLevel(e.rt.LogLevel)
	if err != nil {
		return err
	}
	cfg := logger.DefaultConfig()
	cfg.Level = level
	cfg.Format = e.rt.LogFormat
	cfg.Output = e.stderr
	logger.Init(cfg)
	e.log = slog.Default()

	e.root = c.String("root")
	return nil
}

// projectRoot returns --root or the nearest initialized ancestor of the
// working directory.
func (e *env) projectRoot() (string, error) {
	if e.root != "" {
		return e.root, nil
	}
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting working directory: %w", err)
	}
	return config.FindProjectRoot(dir)
}

func (e *env) workspaceOptions() workspace.Options {
	return workspace.Options{
		Concurrency: e.rt.MaxConcurrency,
		Store:       config.NewFileStore(),
		Logger:      e.log.With("component", "workspace"),
	}
}

func (e *env) workspace() (*workspace.Workspace, error) {
	root, err := e.projectRoot()
	if err != nil {
		return nil, err
	}
	return workspace.Open(root, e.workspaceOptions())
}

// history opens the history database. Callers must Close it.
func (e *env) history() (*history.Store, error) {
	hs, err := history.New(history.DefaultConfig(e.rt.DataDir))
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}
	return hs, nil
}
