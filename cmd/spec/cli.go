package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/spec/internal/config"
	"github.com/hpungsan/spec/internal/db"
	"github.com/hpungsan/spec/internal/errors"
	"github.com/hpungsan/spec/internal/generator"
	"github.com/hpungsan/spec/internal/git"
	"github.com/hpungsan/spec/internal/logger"
	"github.com/hpungsan/spec/internal/mcp"
	"github.com/hpungsan/spec/internal/ops"
	"github.com/hpungsan/spec/internal/web"
)

// cliEnv holds the process surface the commands talk to, so tests can swap it.
type cliEnv struct {
	stdout io.Writer
	stderr io.Writer
	getenv func(string) string

	// dir is the working directory; empty means os.Getwd.
	dir string

	// journalDir holds spec.db; empty means ~/.spec.
	journalDir string

	// interactive reports whether a terminal is attached for the init wizard.
	interactive bool

	slog *slog.Logger
}

func defaultEnv() *cliEnv {
	return &cliEnv{
		stdout:      os.Stdout,
		stderr:      os.Stderr,
		getenv:      os.Getenv,
		interactive: logger.IsTerminal(os.Stdin) && logger.IsTerminal(os.Stdout),
	}
}

// newCLIApp creates the CLI application with all commands.
func newCLIApp(env *cliEnv) *cli.App {
	app := &cli.App{
		Name:      "spec",
		Usage:     "Feature-branch workflow with generated slugs",
		Version:   Version,
		Writer:    env.stdout,
		ErrWriter: env.stderr,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "debug", Usage: "Log diagnostics to stderr (also " + logger.EnvDebug + "=1)"},
		},
		Before: func(c *cli.Context) error {
			env.slog = logger.NewSlog(env.stderr, c.Bool("debug") || logger.DebugFromEnv(env.getenv))
			slog.SetDefault(env.slog)
			return nil
		},
		Commands: []*cli.Command{
			initCmd(env),
			createCmd(env),
			listCmd(env),
			mergeCmd(env),
			historyCmd(env),
			mcpCmd(env),
			serveCmd(env),
		},
	}
	// Exit codes are handled in main; this keeps errors returnable in tests.
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// initCmd creates the init command.
func initCmd(env *cliEnv) *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Create " + config.FileName + " with an interactive wizard",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "force", Aliases: []string{"f"}, Usage: "Overwrite an existing configuration without asking"},
		},
		Action: func(c *cli.Context) error {
			log := env.logger(false)
			if !env.interactive {
				return outputError(log, errors.NewPrecondition("spec init requires an interactive terminal."))
			}

			root, err := env.repoRoot(c.Context)
			if err != nil {
				return outputError(log, err)
			}

			out, err := ops.Init(c.Context, ops.InitInput{
				RepoRoot: root,
				Force:    c.Bool("force"),
				Prompter: &ops.HuhPrompter{Accessible: env.getenv("ACCESSIBLE") != ""},
			})
			if err != nil {
				return outputError(log, err)
			}
			if out.Cancelled {
				log.Cancelled()
				return cli.Exit("", errors.ExitUnknown)
			}

			log.Success("Configuration saved to " + out.Path)
			log.Field("Docs directory", out.Config.DocsDir)
			log.Field("Branch format", out.Config.BranchFormat)
			log.Field("Merge target", out.Config.DefaultMergeTarget)
			if len(out.Config.ScaffoldPaths) > 0 {
				log.Field("Scaffold paths", strings.Join(out.Config.ScaffoldPaths, ", "))
			}
			return nil
		},
	}
}

// createCmd creates the create command.
func createCmd(env *cliEnv) *cli.Command {
	return &cli.Command{
		Name:      "create",
		Usage:     "Create a feature branch with documentation from a description",
		ArgsUsage: "<description>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "offline", Usage: "Derive the slug from the description instead of calling a model"},
			&cli.IntFlag{Name: "max-attempts", Usage: "Generation attempts per candidate (default from " + config.EnvMaxAttempts + " or 3)"},
			&cli.BoolFlag{Name: "json", Usage: "Print the result as JSON"},
		},
		Action: func(c *cli.Context) error {
			log := env.logger(false)
			description := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if description == "" {
				sErr := errors.NewInvalidRequest("Feature description is required.")
				sErr.Hint = `Usage: spec create "<description>"`
				return outputError(log, sErr)
			}

			root, cfg, err := env.loadRepo(c.Context)
			if err != nil {
				return outputError(log, err)
			}

			settings := config.LoadGeneratorSettings(env.getenv)
			if c.Bool("offline") {
				settings.Provider = config.ProviderHeuristic
			}
			if c.IsSet("max-attempts") {
				settings.MaxAttempts = c.Int("max-attempts")
			}
			gen, err := generator.New(settings)
			if err != nil {
				return outputError(log, err)
			}

			journal := env.optionalJournal(log)
			if journal != nil {
				defer journal.Close()
			}

			out, err := ops.Create(c.Context, ops.CreateInput{
				RepoRoot:    root,
				Config:      cfg,
				Repo:        git.Open(root),
				Generator:   gen,
				Description: description,
				MaxAttempts: settings.MaxAttempts,
				DB:          journal,
				Progress:    log.Step,
				Logger:      env.slog,
			})
			if err != nil {
				return outputError(log, err)
			}

			if c.Bool("json") {
				return outputJSON(env.stdout, out)
			}
			log.Success(fmt.Sprintf("Created feature %s", out.Slug))
			log.Field("Branch", out.Branch)
			if out.Base != "" {
				log.Field("Base", out.Base)
			}
			log.Field("Commit", out.CommitHash)
			log.Field("Documents", fmt.Sprintf("%d", len(out.DocFiles)))
			log.Field("Scaffold paths", fmt.Sprintf("%d", len(out.ScaffoldPaths)))
			if len(out.Rejected) > 0 {
				log.Verbose(fmt.Sprintf("%d candidate(s) rejected before %s", len(out.Rejected), out.Slug))
			}
			return nil
		},
	}
}

// listCmd creates the list command.
func listCmd(env *cliEnv) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List features that have documentation",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "long", Aliases: []string{"l"}, Usage: "Include each feature's summary"},
			&cli.BoolFlag{Name: "json", Usage: "Print the result as JSON"},
		},
		Action: func(c *cli.Context) error {
			log := env.logger(false)
			root, cfg, err := env.loadRepo(c.Context)
			if err != nil {
				return outputError(log, err)
			}

			out, err := ops.List(ops.ListInput{RepoRoot: root, Config: cfg, Long: c.Bool("long")})
			if err != nil {
				return outputError(log, err)
			}

			if c.Bool("json") {
				return outputJSON(env.stdout, out)
			}
			if len(out.Items) == 0 {
				log.Info("No features found.")
				return nil
			}
			for _, item := range out.Items {
				fmt.Fprintln(env.stdout, item.Slug)
				if item.Summary == nil {
					continue
				}
				if item.Summary.Title != "" {
					fmt.Fprintf(env.stdout, "  %s\n", item.Summary.Title)
				}
				if item.Summary.Excerpt != "" {
					fmt.Fprintf(env.stdout, "  %s\n", item.Summary.Excerpt)
				}
			}
			return nil
		},
	}
}

// mergeCmd creates the merge command.
func mergeCmd(env *cliEnv) *cli.Command {
	return &cli.Command{
		Name:      "merge",
		Usage:     "Merge a feature branch into the target branch and push",
		ArgsUsage: "<slug>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "Print each git command"},
			&cli.BoolFlag{Name: "no-push", Usage: "Skip pushing the target branch"},
			&cli.StringFlag{Name: "target", Aliases: []string{"t"}, Usage: "Target branch (default from configuration)"},
			&cli.BoolFlag{Name: "json", Usage: "Print the result as JSON"},
		},
		Action: func(c *cli.Context) error {
			log := env.logger(c.Bool("verbose"))
			if c.NArg() != 1 {
				sErr := errors.NewInvalidRequest("Exactly one feature slug is required.")
				sErr.Hint = "Usage: spec merge <slug>"
				return outputError(log, sErr)
			}
			featureSlug := c.Args().First()
			if err := ops.ValidateSlugArg(featureSlug); err != nil {
				return outputError(log, err)
			}

			root, cfg, err := env.loadRepo(c.Context)
			if err != nil {
				return outputError(log, err)
			}

			journal := env.optionalJournal(log)
			if journal != nil {
				defer journal.Close()
			}

			input := ops.MergeInput{
				RepoRoot: root,
				Config:   cfg,
				Repo:     git.Open(root),
				Slug:     featureSlug,
				Target:   c.String("target"),
				NoPush:   c.Bool("no-push"),
				Progress: log.Step,
				DB:       journal,
				Logger:   env.slog,
			}
			if log.VerboseEnabled() {
				input.Verbose = log.Verbose
			}

			out, err := ops.Merge(c.Context, input)
			if out != nil && err != nil {
				log.Success(fmt.Sprintf("Merged %s into %s (%s)", out.Branch, out.Target, out.MergeHash))
			}
			if err != nil {
				return outputError(log, err)
			}

			if c.Bool("json") {
				return outputJSON(env.stdout, out)
			}
			log.Success(fmt.Sprintf("Merged %s into %s", out.Branch, out.Target))
			log.Field("Merge commit", out.MergeHash)
			switch {
			case out.Pushed:
				log.Field("Pushed to", out.Upstream)
			case out.Upstream == "":
				log.Info(fmt.Sprintf("%s has no upstream; nothing was pulled or pushed.", out.Target))
			default:
				log.Info("Push skipped.")
			}
			return nil
		},
	}
}

// historyCmd creates the history command.
func historyCmd(env *cliEnv) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Print the feature journal for this repository as JSON",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: db.DefaultHistoryLimit, Usage: "Maximum entries to return"},
		},
		Action: func(c *cli.Context) error {
			log := env.logger(false)
			root, err := env.repoRoot(c.Context)
			if err != nil {
				return outputError(log, err)
			}

			journal, err := env.openJournal()
			if err != nil {
				return outputError(log, err)
			}
			defer journal.Close()

			out, err := ops.History(c.Context, journal, ops.HistoryInput{RepoRoot: root, Limit: c.Int("limit")})
			if err != nil {
				return outputError(log, err)
			}
			return outputJSON(env.stdout, out)
		},
	}
}

// mcpCmd creates the mcp command.
func mcpCmd(env *cliEnv) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve feature tools over MCP on stdio",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "disable", Usage: "Tool to hide (repeatable): " + strings.Join(mcp.AllToolNames(), ", ")},
		},
		Action: func(c *cli.Context) error {
			log := env.logger(false)
			disabled := c.StringSlice("disable")
			if unknown := mcp.ValidateDisabledTools(disabled); len(unknown) > 0 {
				sErr := errors.NewInvalidRequest(fmt.Sprintf("unknown tool(s): %s", strings.Join(unknown, ", ")))
				sErr.Hint = "Available tools: " + strings.Join(mcp.AllToolNames(), ", ")
				return outputError(log, sErr)
			}

			root, cfg, err := env.loadRepo(c.Context)
			if err != nil {
				return outputError(log, err)
			}

			settings := config.LoadGeneratorSettings(env.getenv)
			gen, err := generator.New(settings)
			if err != nil {
				env.slog.Warn("slug suggestions disabled", "error", err)
				gen = nil
			}

			journal := env.optionalJournal(log)
			if journal != nil {
				defer journal.Close()
			}

			h := mcp.NewHandlers(mcp.Deps{
				RepoRoot:    root,
				Config:      cfg,
				DB:          journal,
				Repo:        git.Open(root),
				Generator:   gen,
				MaxAttempts: settings.MaxAttempts,
				Logger:      env.slog,
			})
			if err := mcp.Run(h, Version, disabled...); err != nil {
				return outputError(log, errors.NewInternal(err))
			}
			return nil
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(env *cliEnv) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Browse features and their documents in a local web UI",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Address to listen on"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: web.DefaultPort, Usage: "Port to listen on"},
		},
		Action: func(c *cli.Context) error {
			log := env.logger(false)
			root, cfg, err := env.loadRepo(c.Context)
			if err != nil {
				return outputError(log, err)
			}

			journal := env.optionalJournal(log)
			if journal != nil {
				defer journal.Close()
			}

			srv, err := web.NewServer(web.Options{
				RepoRoot: root,
				Config:   cfg,
				DB:       journal,
				Version:  Version,
				Bind:     c.String("bind"),
				Port:     c.Int("port"),
				Logger:   env.slog,
			})
			if err != nil {
				return outputError(log, errors.NewInternal(err))
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			log.Info(fmt.Sprintf("Serving features at http://%s (Ctrl+C to stop)", srv.Addr))
			if err := web.Run(ctx, srv, env.slog); err != nil {
				return outputError(log, errors.NewInternal(err))
			}
			return nil
		},
	}
}

// Helper functions

func (e *cliEnv) logger(verbose bool) *logger.Logger {
	return logger.New(e.stderr, verbose)
}

func (e *cliEnv) workDir() (string, error) {
	if e.dir != "" {
		return e.dir, nil
	}
	return os.Getwd()
}

// repoRoot resolves the top-level directory of the current repository.
func (e *cliEnv) repoRoot(ctx context.Context) (string, error) {
	dir, err := e.workDir()
	if err != nil {
		return "", errors.NewInternal(err)
	}
	return git.FindRoot(ctx, dir)
}

// loadRepo resolves the repository root and loads its configuration.
func (e *cliEnv) loadRepo(ctx context.Context) (string, *config.Config, error) {
	root, err := e.repoRoot(ctx)
	if err != nil {
		return "", nil, err
	}
	cfg, err := config.Load(root)
	if config.IsNotFound(err) {
		sErr, _ := errors.As(err)
		sErr.Hint = fmt.Sprintf("Looked for %s in %s", config.FileName, root)
		return "", nil, sErr
	}
	if err != nil {
		return "", nil, err
	}
	return root, cfg, nil
}

func (e *cliEnv) openJournal() (*sql.DB, error) {
	baseDir := e.journalDir
	if baseDir == "" {
		var err error
		if baseDir, err = db.DefaultBaseDir(); err != nil {
			return nil, errors.NewInternal(err)
		}
	}
	database, err := db.Init(baseDir)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to open feature journal: %w", err))
	}
	return database, nil
}

// optionalJournal opens the journal, or returns nil with a warning.
func (e *cliEnv) optionalJournal(log *logger.Logger) *sql.DB {
	database, err := e.openJournal()
	if err != nil {
		e.slog.Warn("feature journal unavailable", "error", err)
		log.Verbose("Feature journal unavailable; continuing without it.")
		return nil
	}
	return database
}

// outputJSON marshals result to w as JSON.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError prints err with its hint and converts it to an exit code.
func outputError(log *logger.Logger, err error) error {
	sErr, ok := errors.As(err)
	if !ok {
		sErr = errors.NewInternal(err)
	}

	log.Error(sErr.Message)
	if sErr.Hint != "" {
		log.Hint(sErr.Hint)
	}
	if errors.Operation(sErr) == git.OpMerge && sErr.Hint != "" {
		log.Hint("To resolve:\n" + strings.Join(git.MergeConflictSteps, "\n"))
	}
	return cli.Exit(fmt.Sprintf("[%s] %s", sErr.Code, sErr.Message), errors.ExitCodeOf(err))
}
