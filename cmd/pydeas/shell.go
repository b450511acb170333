package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	dberrors "github.com/Bilodev/Pydeas/internal/errors"
	"github.com/kballard/go-shellquote"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const prompt = "pydeas> "

// lineReader reads shell input. *liner.State implements it.
type lineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

func newShellCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Run commands interactively",
		Long:  "Run commands interactively. Each line is a pydeas command without the leading \"pydeas\"; exit or Ctrl-D leaves.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			line := liner.NewLiner()
			defer func() { _ = line.Close() }()
			line.SetCtrlCAborts(true)
			line.SetCompleter(a.complete(cmd.Root()))

			hist := historyPath()
			if f, err := os.Open(hist); err == nil {
				_, _ = line.ReadHistory(f)
				_ = f.Close()
			}
			defer func() {
				if hist == "" {
					return
				}
				if err := os.MkdirAll(filepath.Dir(hist), 0o755); err != nil {
					return
				}
				if f, err := os.Create(hist); err == nil {
					_, _ = line.WriteHistory(f)
					_ = f.Close()
				}
			}()
			fmt.Fprintf(a.stdout, "pydeas shell on %s. Type help for commands, exit to leave.\n", a.cfg.DataDir)
			return a.runShell(cmd.Context(), line, cmd.Root())
		},
	}
}

// runShell executes lines from in until exit, end of input or cancellation.
// Each line runs through a fresh command tree inheriting the flags of parent.
func (a *app) runShell(ctx context.Context, in lineReader, parent *cobra.Command) error {
	base := inheritedFlags(parent)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err := in.Prompt(prompt)
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				continue
			}
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(a.stdout)
				return nil
			}
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		in.AppendHistory(line)
		args, err := shellquote.Split(line)
		if err != nil {
			fmt.Fprintf(a.stderr, "error: %v\n", err)
			continue
		}
		if len(args) == 0 {
			continue
		}
		switch args[0] {
		case "exit", "quit":
			return nil
		case "shell":
			fmt.Fprintln(a.stderr, "error: already in a shell")
			continue
		}
		root := newRootCmd(a)
		root.SetArgs(append(slices.Clone(base), args...))
		if err := root.ExecuteContext(ctx); err != nil {
			if dberrors.HasCode(err, dberrors.CodeEmptyResult) {
				fmt.Fprintln(a.stdout, err)
				continue
			}
			fmt.Fprintf(a.stderr, "error: %v\n", err)
		}
	}
}

// inheritedFlags returns the persistent flags explicitly set on cmd, so the
// commands run from the shell see the same settings.
func inheritedFlags(cmd *cobra.Command) []string {
	var args []string
	cmd.PersistentFlags().Visit(func(f *pflag.Flag) {
		args = append(args, "--"+f.Name+"="+f.Value.String())
	})
	return args
}

// complete suggests command names for the first word, relation names after.
func (a *app) complete(root *cobra.Command) liner.Completer {
	return func(line string) []string {
		words := strings.Fields(line)
		if len(words) == 0 || (len(words) == 1 && !strings.HasSuffix(line, " ")) {
			prefix := strings.TrimSpace(line)
			var out []string
			for _, c := range root.Commands() {
				if strings.HasPrefix(c.Name(), prefix) {
					out = append(out, c.Name()+" ")
				}
			}
			return out
		}
		d, err := a.dir()
		if err != nil {
			return nil
		}
		names, err := d.Relations()
		if err != nil {
			return nil
		}
		head, last := line, ""
		if !strings.HasSuffix(line, " ") {
			i := strings.LastIndexByte(line, ' ')
			head, last = line[:i+1], line[i+1:]
		}
		var out []string
		for _, n := range names {
			if strings.HasPrefix(n, last) {
				out = append(out, head+n)
			}
		}
		return out
	}
}

// historyPath returns where the shell history is kept, or "" when there is
// no user cache directory.
func historyPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		slog.Debug("No cache directory, shell history is not kept", "err", err)
		return ""
	}
	return filepath.Join(dir, "pydeas", "history")
}
