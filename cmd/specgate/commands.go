package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v2"

	"github.com/HendryAvila/specgate/internal/api"
	"github.com/HendryAvila/specgate/internal/config"
	"github.com/HendryAvila/specgate/internal/history"
	"github.com/HendryAvila/specgate/internal/report"
	sgserver "github.com/HendryAvila/specgate/internal/server"
	"github.com/HendryAvila/specgate/internal/updater"
	"github.com/HendryAvila/specgate/internal/validate"
	"github.com/HendryAvila/specgate/internal/watcher"
	"github.com/HendryAvila/specgate/internal/workspace"
)

func detailFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "detail",
		Usage: "summary, standard or full",
		Value: report.DetailStandard,
	}
}

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "json",
		Usage: "print JSON instead of text",
	}
}

// validateOverrides maps --strict and --no-xref onto workspace options,
// leaving the configured value in place when a flag is not given.
func validateOverrides(c *cli.Context) workspace.ValidateOptions {
	var vo workspace.ValidateOptions
	if c.IsSet("strict") {
		strict := c.Bool("strict")
		vo.Strict = &strict
	}
	if c.Bool("no-xref") {
		off := false
		vo.CheckCrossReferences = &off
	}
	return vo
}

// ─── validate ────────────────────────────────────────────────────────────────

func validateCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "validate specs; exits 1 when any spec fails",
		ArgsUsage: "[spec...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "strict", Usage: "treat missing required sections as errors"},
			&cli.BoolFlag{Name: "no-xref", Usage: "skip cross-reference checks"},
			&cli.BoolFlag{Name: "record", Usage: "store the run in the history database"},
			jsonFlag(),
			detailFlag(),
		},
		Action: func(c *cli.Context) error {
			ws, err := e.workspace()
			if err != nil {
				return err
			}
			rep, err := ws.Validate(c.Context, c.Args().Slice(), validateOverrides(c))
			if err != nil {
				return err
			}

			if c.Bool("record") {
				hs, err := e.history()
				if err != nil {
					return err
				}
				defer func() { _ = hs.Close() }()
				if _, err := ws.Record(hs, rep.Specs...); err != nil {
					return err
				}
			}

			if c.Bool("json") {
				err = report.JSON(e.stdout, rep)
			} else {
				err = report.Text(e.stdout, rep, c.String("detail"))
			}
			if err != nil {
				return err
			}
			if !rep.Passed {
				return cli.Exit("", 1)
			}
			return nil
		},
	}
}

// ─── list / tokens / init ────────────────────────────────────────────────────

func listCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "list discovered specs",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "status", Usage: "only specs with this frontmatter status"},
			jsonFlag(),
			detailFlag(),
		},
		Action: func(c *cli.Context) error {
			ws, err := e.workspace()
			if err != nil {
				return err
			}
			list, err := ws.List(c.Context, c.String("status"))
			if err != nil {
				return err
			}
			if c.Bool("json") {
				return report.JSON(e.stdout, list)
			}
			_, err = fmt.Fprint(e.stdout, report.SpecList(list, c.String("detail")))
			return err
		},
	}
}

func tokensCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:      "tokens",
		Usage:     "show the token size of a spec and its sub-specs",
		ArgsUsage: "<spec>",
		Flags:     []cli.Flag{jsonFlag()},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("tokens needs exactly one spec reference", 2)
			}
			ws, err := e.workspace()
			if err != nil {
				return err
			}
			tr, err := ws.Tokens(c.Context, c.Args().First())
			if err != nil {
				return err
			}
			if c.Bool("json") {
				return report.JSON(e.stdout, tr)
			}
			_, err = fmt.Fprint(e.stdout, report.Tokens(tr))
			return err
		},
	}
}

func initCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "write .specgate/config.yaml with the default rules",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "specs-dir", Usage: "specs directory relative to the root", Value: "specs"},
		},
		Action: func(c *cli.Context) error {
			root := e.root
			if root == "" {
				dir, err := os.Getwd()
				if err != nil {
					return err
				}
				root = dir
			}
			cfg, err := config.Init(config.NewFileStore(), root, c.String("specs-dir"))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(e.stdout, "Initialized %s (specs in %s/)\n", config.ConfigPath(root), cfg.SpecsDir)
			return err
		},
	}
}

// ─── watch ───────────────────────────────────────────────────────────────────

func watchCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "re-validate specs as their files change",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "strict", Usage: "treat missing required sections as errors"},
			&cli.BoolFlag{Name: "no-xref", Usage: "skip cross-reference checks"},
			&cli.BoolFlag{Name: "record", Usage: "store each run in the history database"},
			detailFlag(),
		},
		Action: func(c *cli.Context) error {
			ws, err := e.workspace()
			if err != nil {
				return err
			}
			vo := validateOverrides(c)
			detail := c.String("detail")

			var rec workspace.Recorder
			if c.Bool("record") {
				hs, err := e.history()
				if err != nil {
					return err
				}
				defer func() { _ = hs.Close() }()
				rec = hs
			}

			rep, err := ws.Validate(c.Context, nil, vo)
			if err != nil {
				return err
			}
			_, _ = ws.Record(rec, rep.Specs...)
			if err := report.Text(e.stdout, rep, report.DetailSummary); err != nil {
				return err
			}

			cfg := watcher.DefaultConfig()
			cfg.DebounceWindow = e.rt.WatchDebounce
			cfg.Validate = vo
			w, err := watcher.New(ws, cfg, func(res watcher.Result) {
				_, _ = ws.Record(rec, res.Report)
				fmt.Fprintf(e.stdout, "\n[%s]\n", time.Now().Format(time.TimeOnly))
				_ = report.Text(e.stdout, validate.NewReport(res.Report), detail)
			})
			if err != nil {
				return err
			}
			return w.Run(c.Context)
		},
	}
}

// ─── serve / http ────────────────────────────────────────────────────────────

func serveCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the MCP server on stdio",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "no-history", Usage: "do not open the history database"},
			&cli.BoolFlag{Name: "no-update-check", Usage: "skip the background release check"},
		},
		Action: func(c *cli.Context) error {
			s, cleanup, err := sgserver.New(sgserver.Options{
				Runtime:        e.rt,
				Logger:         e.log,
				Root:           e.root,
				DisableHistory: c.Bool("no-history"),
			})
			if err != nil {
				return fmt.Errorf("creating server: %w", err)
			}
			defer cleanup()

			if !c.Bool("no-update-check") {
				// stderr only: stdout carries the MCP protocol.
				go e.checkForUpdates(c.Context)
			}
			return mcpserver.ServeStdio(s)
		},
	}
}

func httpCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "http",
		Usage: "serve the JSON API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "listen address (default $SPECGATE_HTTP_ADDR or :8088)"},
		},
		Action: func(c *cli.Context) error {
			root, err := e.projectRoot()
			if err != nil {
				return err
			}
			opts := e.workspaceOptions()
			open := func(ctx context.Context) (*workspace.Workspace, error) {
				return workspace.Open(root, opts)
			}

			hs, err := e.history()
			if err != nil {
				e.log.Warn("history subsystem disabled", "error", err)
			} else {
				defer func() { _ = hs.Close() }()
			}

			addr := c.String("addr")
			if addr == "" {
				addr = e.rt.HTTPAddr
			}
			log := e.log.With("component", "api")
			httpServer := &http.Server{
				Addr:         addr,
				Handler:      api.NewServer(open, hs, log, api.Config{APIKey: e.rt.APIKey}),
				ReadTimeout:  30 * time.Second,
				WriteTimeout: 120 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info("starting specgate api", "addr", addr, "root", root, "auth", e.rt.APIKey != "")
				errCh <- httpServer.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-c.Context.Done():
				log.Info("shutting down...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return httpServer.Shutdown(shutdownCtx)
			}
		},
	}
}

// ─── history ─────────────────────────────────────────────────────────────────

func historyCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:      "history",
		Usage:     "search recorded validation issues, or list recent runs",
		ArgsUsage: "[query]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "spec", Usage: "only this spec"},
			&cli.IntFlag{Name: "limit", Usage: "maximum results", Value: 10},
			&cli.BoolFlag{Name: "all", Usage: "include every project, not just this one"},
			&cli.BoolFlag{Name: "stats", Usage: "print aggregate statistics"},
			&cli.IntFlag{Name: "prune", Usage: "keep only the newest N runs per spec", Value: -1},
			jsonFlag(),
			detailFlag(),
		},
		Action: func(c *cli.Context) error {
			ws, err := e.workspace()
			if err != nil {
				return err
			}
			hs, err := e.history()
			if err != nil {
				return err
			}
			defer func() { _ = hs.Close() }()

			if keep := c.Int("prune"); keep >= 0 {
				n, err := hs.Prune(keep)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(e.stdout, "Pruned %d run(s).\n", n)
				return err
			}

			project := ws.Project()
			if c.Bool("all") {
				project = ""
			}

			if c.Bool("stats") {
				st, err := hs.Stats(project)
				if err != nil {
					return err
				}
				if c.Bool("json") {
					return report.JSON(e.stdout, st)
				}
				_, err = fmt.Fprint(e.stdout, report.Stats(st))
				return err
			}

			specPath := c.String("spec")
			if specPath != "" {
				if spec, err := ws.Find(c.Context, specPath); err == nil {
					specPath = spec.Path
				}
			}
			now := time.Now()

			if query := c.Args().First(); query != "" {
				issues, err := hs.Search(query, history.SearchOptions{
					Project:  project,
					SpecPath: specPath,
					Limit:    c.Int("limit"),
				})
				if err != nil {
					return err
				}
				if c.Bool("json") {
					return report.JSON(e.stdout, issues)
				}
				_, err = fmt.Fprint(e.stdout, report.Issues(issues, now, c.String("detail")))
				return err
			}

			runs, err := hs.Recent(project, specPath, c.Int("limit"))
			if err != nil {
				return err
			}
			if c.Bool("json") {
				return report.JSON(e.stdout, runs)
			}
			_, err = fmt.Fprint(e.stdout, report.Runs(runs, now))
			return err
		},
	}
}

// ─── update / version ────────────────────────────────────────────────────────

func updateCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "update",
		Usage: "replace this binary with the latest release",
		Action: func(c *cli.Context) error {
			exe, err := os.Executable()
			if err != nil {
				return fmt.Errorf("finding current executable: %w", err)
			}
			fmt.Fprintf(e.stderr, "🔍 Checking for updates...\n")

			version, err := updater.New("").Apply(c.Context, sgserver.Version, exe)
			if errors.Is(err, updater.ErrUpToDate) {
				fmt.Fprintf(e.stderr, "✅ %v\n", err)
				return nil
			}
			if err != nil {
				return fmt.Errorf("update failed: %w", err)
			}
			fmt.Fprintf(e.stderr, "✅ Updated to v%s. Restart specgate to use it.\n", version)
			return nil
		},
	}
}

func versionCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "print the version",
		Action: func(c *cli.Context) error {
			_, err := fmt.Fprintf(e.stdout, "specgate v%s\n", sgserver.Version)
			return err
		},
	}
}

// checkForUpdates prints a notice to stderr when a newer release exists.
// Network failures are ignored.
func (e *env) checkForUpdates(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	result, err := updater.New("").Check(ctx, sgserver.Version)
	if err != nil || !result.UpdateAvailable {
		return
	}
	fmt.Fprintf(e.stderr,
		"\n  📦 Update available: v%s → v%s\n"+
			"     Run: specgate update\n"+
			"     Release: %s\n\n",
		result.CurrentVersion, result.LatestVersion, result.ReleaseURL,
	)
}
