// Package main is the filedb command line tool.
//
// filedb manipulates a store of LF-delimited record columns. Configuration
// is read from CLI flags and filedb.yaml in the store directory; flags win.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/maruel/filedb/internal/config"
	"github.com/maruel/filedb/internal/filedb"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "filedb: %v\n", err)
		os.Exit(1)
	}
}

// env is what a command runs against.
type env struct {
	db     *filedb.DB
	cfg    *config.Config
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

type command struct {
	usage string
	// noDB commands run without opening the store.
	noDB bool
	run  func(ctx context.Context, e *env, args []string) error
}

var commands map[string]command

func init() {
	// Set in init since commands refer back to the table for their usage.
	commands = map[string]command{
		"ls":      {usage: "ls", run: cmdLs},
		"insert":  {usage: "insert [-id] <col> <record>...", run: cmdInsert},
		"import":  {usage: "import [-rate n] <col>  (records from stdin)", run: cmdImport},
		"cat":     {usage: "cat [-n] [-limit n] <col>", run: cmdCat},
		"export":  {usage: "export <col>  (JSON Lines)", run: cmdExport},
		"grep":    {usage: "grep [-v] <col> <substr>  (rewrites the column)", run: cmdGrep},
		"sed":     {usage: "sed <col> <old> <new>", run: cmdSed},
		"rm":      {usage: "rm <col> <substr>", run: cmdRm},
		"drop":    {usage: "drop <col>", run: cmdDrop},
		"stats":   {usage: "stats", run: cmdStats},
		"tail":    {usage: "tail <col>", run: cmdTail},
		"schema":  {usage: "schema  (filedb.yaml JSON schema)", noDB: true, run: cmdSchema},
		"version": {usage: "version", noDB: true, run: cmdVersion},
	}
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "usage: filedb [flags] <command> [args]\n\nCommands:\n")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		fmt.Fprintf(out, "  %s\n", commands[name].usage)
	}
	fmt.Fprintf(out, "\nFlags:\n")
	flag.PrintDefaults()
}

func mainImpl() error {
	root := flag.String("root", "", "Store directory (default ~/.filedb)")
	configPath := flag.String("config", "", "Configuration file (default <root>/"+config.FileName+")")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	syncWrites := flag.Bool("sync", false, "Fsync after every insert and rewrite")
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() == 0 {
		usage()
		return errors.New("missing command")
	}
	cmd, ok := commands[flag.Arg(0)]
	if !ok {
		return fmt.Errorf("unknown command %q", flag.Arg(0))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()
	ll := &slog.LevelVar{}
	ll.Set(slog.LevelInfo)
	slog.SetDefault(newLogger(os.Stderr, ll))

	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})
	cfg, err := loadConfig(*configPath, *root)
	if err != nil {
		return err
	}
	if set["root"] {
		cfg.Root = *root
	}
	if set["log-level"] {
		cfg.LogLevel = *logLevel
	}
	if set["sync"] {
		cfg.Sync = *syncWrites
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	lvl, err := cfg.Level()
	if err != nil {
		return err
	}
	ll.Set(lvl)

	e := &env{cfg: cfg, stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}
	if !cmd.noDB {
		dir, err := cfg.ExpandRoot()
		if err != nil {
			return err
		}
		if e.db, err = filedb.Connect(dir, filedb.WithLogger(slog.Default()), filedb.WithSync(cfg.Sync)); err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer func() {
			if err := e.db.Close(); err != nil {
				slog.WarnContext(ctx, "Failed to close store", "err", err)
			}
		}()
	}
	return cmd.run(ctx, e, flag.Args()[1:])
}

// loadConfig finds filedb.yaml. Without -config it is looked up in the store
// directory given by -root, or the default one.
func loadConfig(path, root string) (*config.Config, error) {
	if path == "" {
		// Same expansion as the store directory itself.
		dir, err := (&config.Config{Root: root}).ExpandRoot()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, config.FileName)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// newLogger returns a tint logger writing to w, colored when w is a terminal.
func newLogger(w *os.File, level slog.Leveler) *slog.Logger {
	// Skip timestamps when running under systemd (it adds its own).
	underSystemd := os.Getenv("JOURNAL_STREAM") != ""
	return slog.New(tint.NewHandler(colorable.NewColorable(w), &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(w.Fd()),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if underSystemd && a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			val := a.Value.Any()
			skip := false
			switch t := val.(type) {
			case string:
				skip = t == ""
			case bool:
				skip = !t
			case time.Duration:
				skip = t == 0
			case nil:
				skip = true
			}
			if skip {
				return slog.Attr{}
			}
			return a
		},
	}))
}

// newFlagSet returns the flag set of a subcommand. Errors are returned, not
// fatal.
func newFlagSet(e *env, name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: filedb %s\n", commands[name].usage)
		fs.PrintDefaults()
	}
	return fs
}

// parseArgs parses args into fs and checks the positional argument count.
func parseArgs(fs *flag.FlagSet, args []string, minArgs, maxArgs int) ([]string, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	rest := fs.Args()
	if len(rest) < minArgs || (maxArgs >= 0 && len(rest) > maxArgs) {
		fs.Usage()
		return nil, fmt.Errorf("%s: wrong number of arguments", fs.Name())
	}
	return rest, nil
}

// cmdVersion prints the module version and the VCS stamp embedded at build
// time.
func cmdVersion(_ context.Context, e *env, args []string) error {
	if _, err := parseArgs(newFlagSet(e, "version"), args, 0, 0); err != nil {
		return err
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		_, err := fmt.Fprintln(e.stdout, "filedb unknown")
		return err
	}
	v := info.Main.Version
	if v == "" || v == "(devel)" {
		v = "dev"
	}
	fmt.Fprintf(e.stdout, "filedb %s %s\n", v, info.GoVersion)
	for _, s := range info.Settings {
		if k, ok := strings.CutPrefix(s.Key, "vcs."); ok {
			fmt.Fprintf(e.stdout, "  %-9s %s\n", k+":", s.Value)
		}
	}
	return nil
}
