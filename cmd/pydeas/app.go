package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/Bilodev/Pydeas/internal/codec"
	"github.com/Bilodev/Pydeas/internal/config"
	"github.com/Bilodev/Pydeas/internal/directory"
	dberrors "github.com/Bilodev/Pydeas/internal/errors"
	"github.com/Bilodev/Pydeas/internal/history"
	"github.com/Bilodev/Pydeas/internal/relation"
	"github.com/Bilodev/Pydeas/internal/render"
	"github.com/mattn/go-isatty"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// app is the state shared by every command of one process, including the
// commands run from the shell.
type app struct {
	fs     afero.Fs
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	level  *slog.LevelVar

	cfg   *config.Config
	color bool
	repo  *history.Repo
}

func newApp(stdin io.Reader, stdout, stderr io.Writer, level *slog.LevelVar) *app {
	return &app{
		fs:     afero.NewOsFs(),
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		level:  level,
	}
}

// persistent flag name -> configuration key.
var flagKeys = map[string]string{
	"data-dir":  "data_dir",
	"log-level": "log_level",
	"lenient":   "lenient",
	"in-place":  "in_place",
	"format":    "format",
	"color":     "color",
	"git":       "git.enabled",
}

// load merges defaults, the configuration file, the environment and the
// flags of cmd into a.cfg.
func (a *app) load(cmd *cobra.Command) error {
	v := config.New()
	flags := cmd.Root().PersistentFlags()
	for name, key := range flagKeys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("failed to bind --%s: %w", name, err)
		}
	}
	path, err := flags.GetString("config")
	if err != nil {
		return err
	}
	cfg, err := config.Load(v, path)
	if err != nil {
		return err
	}
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	if a.level != nil {
		a.level.Set(level)
	}
	if a.repo != nil && (a.cfg == nil || a.cfg.DataDir != cfg.DataDir) {
		a.repo = nil
	}
	a.cfg = cfg
	a.color = cfg.UseColor(isTerminal(a.stdout))
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

// dir opens the data directory, creating it when missing.
func (a *app) dir() (*directory.Dir, error) {
	return directory.OpenOrCreate(a.fs, a.cfg.DataDir, a.cfg.Options())
}

// relation opens an existing relation of the data directory.
func (a *app) relation(name string) (*relation.File, error) {
	d, err := a.dir()
	if err != nil {
		return nil, err
	}
	return d.Open(name)
}

// history returns the journal of the data directory, or nil when disabled.
func (a *app) history() (*history.Repo, error) {
	if !a.cfg.Git.Enabled {
		return nil, nil
	}
	if a.repo == nil {
		if _, err := a.dir(); err != nil {
			return nil, err
		}
		r, err := history.Open(a.cfg.DataDir, a.cfg.Git.Name, a.cfg.Git.Email)
		if err != nil {
			return nil, err
		}
		a.repo = r
	}
	return a.repo, nil
}

// commit records the changes made by a command when history is enabled.
func (a *app) commit(ctx context.Context, format string, args ...any) error {
	r, err := a.history()
	if err != nil || r == nil {
		return err
	}
	msg := fmt.Sprintf(format, args...)
	ok, err := r.Commit(ctx, msg)
	if err != nil {
		return err
	}
	if ok {
		slog.DebugContext(ctx, "Committed", "msg", msg)
	}
	return nil
}

func (a *app) format() render.Format {
	// Validated when the configuration was loaded.
	f, _ := render.ParseFormat(a.cfg.Format)
	return f
}

// write renders t in the configured format.
func (a *app) write(t *codec.Table) error {
	return render.Write(a.stdout, a.format(), t, render.Options{Color: a.color})
}

// writeResult renders res, reporting an empty result as an error so the
// process exits with a distinct status.
func (a *app) writeResult(res *relation.Result) error {
	if res.Empty() {
		return dberrors.EmptyResult()
	}
	return a.write(res.Table())
}

// parseAssignments turns column=value arguments into a map.
func parseAssignments(args []string) (map[string]string, error) {
	if len(args) == 0 {
		return nil, dberrors.New(dberrors.CodeInvalidExpression, "no column=value assignment given")
	}
	values := make(map[string]string, len(args))
	for _, arg := range args {
		col, value, ok := strings.Cut(arg, "=")
		if !ok || col == "" {
			return nil, dberrors.Newf(dberrors.CodeInvalidExpression, "invalid assignment %q, want column=value", arg)
		}
		values[col] = value
	}
	return values, nil
}
