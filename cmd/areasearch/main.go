// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// areasearch lists the objects in the region around the agent and
// keeps the list current as objects appear, change, and disappear.
//
// On a terminal it opens an interactive table. With --once, or when
// stdout is not a terminal, it waits until every listed object has its
// properties and names, prints the table, and exits.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/termenv"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/bureau-foundation/areasearch/lib/areasearch"
	"github.com/bureau-foundation/areasearch/lib/clock"
	"github.com/bureau-foundation/areasearch/lib/config"
	"github.com/bureau-foundation/areasearch/lib/process"
	"github.com/bureau-foundation/areasearch/lib/resultview"
	"github.com/bureau-foundation/areasearch/lib/session"
	"github.com/bureau-foundation/areasearch/lib/version"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		process.Fatal(err)
	}
}

// options holds the command-line flags. Flags that were not given
// leave the configuration file's values alone.
type options struct {
	configPath string
	stateDir   string
	address    string
	agentName  string

	name        string
	description string
	owner       string
	group       string
	types       []string

	once     bool
	timeout  time.Duration
	export   string
	teleport string
	width    int

	logLevel string
	logFile  string
}

func newFlagSet(opts *options) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet("areasearch", pflag.ContinueOnError)
	flagSet.StringVar(&opts.configPath, "config", "", "configuration file (default: $"+config.EnvVar+", then built-in defaults)")
	flagSet.StringVar(&opts.stateDir, "state-dir", "", "directory for the name cache and block list databases")
	flagSet.StringVarP(&opts.address, "address", "a", "", "grid address: host:port, unix:path, or a socket path")
	flagSet.StringVar(&opts.agentName, "agent-name", "", "name presented at login")

	flagSet.StringVarP(&opts.name, "name", "n", "", "list objects whose name contains this text")
	flagSet.StringVarP(&opts.description, "description", "d", "", "list objects whose description contains this text")
	flagSet.StringVarP(&opts.owner, "owner", "o", "", "list objects whose owner name contains this text")
	flagSet.StringVarP(&opts.group, "group", "g", "", "list objects whose group name contains this text")
	flagSet.StringSliceVarP(&opts.types, "types", "t", nil, "object kinds to list: physical, temporary, attachment, other")

	flagSet.BoolVar(&opts.once, "once", false, "print the settled table and exit instead of opening the interactive view")
	flagSet.DurationVar(&opts.timeout, "timeout", 30*time.Second, "with --once, print whatever is listed after this long")
	flagSet.StringVarP(&opts.export, "export", "e", "", "write results here (.yaml, .json, .cbor, optionally .zst)")
	flagSet.StringVar(&opts.teleport, "teleport", "", "teleport to a region first: a region name or grid coordinates x,y")
	flagSet.IntVar(&opts.width, "width", 0, "table width for printed output (default: terminal width)")

	flagSet.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn, or error")
	flagSet.StringVar(&opts.logFile, "log-file", "", "write logs here (the interactive view logs to <state-dir>/areasearch.log)")
	flagSet.Bool("version", false, "print version and exit")
	flagSet.BoolP("help", "h", false, "show help")
	return flagSet
}

func run(args []string, stdout io.Writer) error {
	var opts options
	flagSet := newFlagSet(&opts)
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if showVersion, _ := flagSet.GetBool("version"); showVersion {
		version.Print("areasearch")
		return nil
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return fmt.Errorf("unexpected argument: %s", rest[0])
	}

	cfg, err := config.Resolve(opts.configPath)
	if err != nil {
		return err
	}
	if err := opts.apply(cfg, flagSet); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.EnsurePaths(); err != nil {
		return err
	}
	lock, err := process.LockDirectory(cfg.Paths.State)
	if err != nil {
		if errors.Is(err, process.ErrLocked) {
			return fmt.Errorf("another areasearch is using %s; pass --state-dir to run a second one", cfg.Paths.State)
		}
		return err
	}
	defer lock.Unlock()

	interactive := !opts.once && isTerminal(stdout)

	logger, closeLog, err := openLogger(cfg, opts.logFile, interactive)
	if err != nil {
		return err
	}
	defer closeLog()

	sessionPath := filepath.Join(cfg.Paths.State, session.FileName)
	if interactive && !opts.filtersGiven(flagSet) {
		restoreSession(sessionPath, cfg, logger)
	}

	ctx, stop := process.SignalContext(context.Background())
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	app, err := newApp(ctx, cfg, logger, opts.export)
	if err != nil {
		return err
	}
	defer app.Close()

	served := make(chan error, 1)
	go func() {
		served <- app.serve(ctx)
		cancel()
	}()
	// result stops the grid connection. A failure of serve is reported in
	// place of err.
	result := func(err error) error {
		cancel()
		if serveErr := <-served; serveErr != nil {
			return serveErr
		}
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	if opts.teleport != "" {
		if err := app.teleport(ctx, opts.teleport); err != nil {
			return result(err)
		}
	}

	if interactive {
		program := tea.NewProgram(resultview.NewModel(app.table, app), tea.WithAltScreen(), tea.WithContext(ctx))
		_, err := program.Run()
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			err = nil
		}
		if saveErr := app.saveSession(sessionPath); saveErr != nil {
			logger.Warn("saving session", "error", saveErr)
		}
		return result(err)
	}

	if err := app.waitSettled(ctx, opts.timeout); err != nil {
		return result(err)
	}
	printer := resultview.NewPrinter(stdout, printWidth(stdout, opts.width), termenv.NewOutput(stdout).EnvColorProfile())
	if err := printer.Print(app.table.Entries(), app.table.Status()); err != nil {
		return result(err)
	}
	if opts.export != "" {
		if _, err := app.Export(); err != nil {
			return result(err)
		}
	}
	return result(nil)
}

// filtersGiven reports whether any filter flag was on the command line.
func (opts *options) filtersGiven(flagSet *pflag.FlagSet) bool {
	for _, name := range []string{"name", "description", "owner", "group", "types"} {
		if flagSet.Changed(name) {
			return true
		}
	}
	return false
}

// restoreSession replaces cfg's filters with those the last interactive
// run saved, when that run was recent.
func restoreSession(path string, cfg *config.Config, logger *slog.Logger) {
	state, ok, err := session.Restore(path, session.DefaultMaxAge, clock.Real().Now())
	if err != nil {
		logger.Warn("ignoring saved session", "path", path, "error", err)
		return
	}
	if !ok {
		return
	}
	cfg.Filters = state.Filters
	logger.Info("restored filters from last session", "saved_at", state.SavedAt, "region", state.Region)
}

// apply copies the flags that were given onto cfg.
func (opts *options) apply(cfg *config.Config, flagSet *pflag.FlagSet) error {
	if flagSet.Changed("state-dir") {
		cfg.Paths.State = opts.stateDir
		cfg.Paths.NameCache = filepath.Join(opts.stateDir, "names.db")
		cfg.Paths.BlockList = filepath.Join(opts.stateDir, "blocked.db")
	}
	if flagSet.Changed("address") {
		cfg.Grid.Address = opts.address
	}
	if flagSet.Changed("agent-name") {
		cfg.Grid.AgentName = opts.agentName
	}
	if flagSet.Changed("name") {
		cfg.Filters.Name = opts.name
	}
	if flagSet.Changed("description") {
		cfg.Filters.Description = opts.description
	}
	if flagSet.Changed("owner") {
		cfg.Filters.Owner = opts.owner
	}
	if flagSet.Changed("group") {
		cfg.Filters.Group = opts.group
	}
	if flagSet.Changed("types") {
		types, err := parseTypes(opts.types)
		if err != nil {
			return err
		}
		cfg.Filters.Types = types
	}
	if flagSet.Changed("log-level") {
		cfg.Log.Level = opts.logLevel
	}
	return nil
}

func parseTypes(names []string) (areasearch.TypeFilter, error) {
	var types areasearch.TypeFilter
	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "physical":
			types.Physical = true
		case "temporary":
			types.Temporary = true
		case "attachment", "attachments":
			types.Attachment = true
		case "other":
			types.Other = true
		case "all":
			types = areasearch.AllTypes()
		default:
			return types, fmt.Errorf("--types: unknown object kind %q", name)
		}
	}
	return types, nil
}

// openLogger writes to logFile when given, to a file in the state
// directory when the interactive view owns the terminal, and to stderr
// otherwise.
func openLogger(cfg *config.Config, logFile string, interactive bool) (*slog.Logger, func(), error) {
	level, err := config.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	if logFile == "" && interactive {
		logFile = filepath.Join(cfg.Paths.State, "areasearch.log")
	}
	if logFile == "" {
		return process.NewLogger(os.Stderr, level), func() {}, nil
	}
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	return process.NewLogger(file, level), func() { file.Close() }, nil
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}

func printWidth(w io.Writer, requested int) int {
	if requested > 0 {
		return requested
	}
	if file, ok := w.(*os.File); ok {
		if width, _, err := term.GetSize(int(file.Fd())); err == nil && width > 0 {
			return width
		}
	}
	return resultview.DefaultPrintWidth
}

// defaultExportPath names an export file when the interactive view
// asks for one without --export.
func defaultExportPath(now time.Time) string {
	return "areasearch-" + now.UTC().Format("20060102-150405") + ".yaml"
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `areasearch lists the objects around the agent on a grid.

Each object's properties are requested from its region, paced so the
region is never flooded, and the list is filtered by name, description,
owner, group, and kind as replies arrive.

The interactive view saves its filters on exit and reuses them next
time unless a filter flag is given.

Usage:
  areasearch [flags]

Examples:
  # Browse a local simulator interactively
  areasearch --address 127.0.0.1:13000

  # Print every physical object owned by someone named Ada
  areasearch --once --owner ada --types physical

  # Teleport two regions east and export the results
  areasearch --teleport 1002,1000 --once --export results.yaml.zst

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
