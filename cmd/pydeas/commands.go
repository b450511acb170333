package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Bilodev/Pydeas/internal/codec"
	"github.com/Bilodev/Pydeas/internal/config"
	dberrors "github.com/Bilodev/Pydeas/internal/errors"
	"github.com/Bilodev/Pydeas/internal/predicate"
	"github.com/Bilodev/Pydeas/internal/relation"
	"github.com/Bilodev/Pydeas/internal/render"
	"github.com/Bilodev/Pydeas/internal/watch"
	"github.com/spf13/cobra"
)

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "pydeas",
		Short:         "Embedded CSV record store",
		Long:          "pydeas stores each relation as a CSV file in a data directory.\nRows are addressed by the positional identifier held in the \"#\" column.",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	d := config.Default()
	pf := root.PersistentFlags()
	pf.String("config", "", "configuration file (default: pydeas.yaml in the working or user config directory)")
	pf.String("data-dir", d.DataDir, "data directory holding the relations")
	pf.String("log-level", d.LogLevel, "log level (debug, info, warn, error)")
	pf.Bool("lenient", d.Lenient, "skip malformed lines instead of failing")
	pf.Bool("in-place", d.InPlace, "rewrite files in place instead of through a temporary file")
	pf.String("format", d.Format, "output format (table, csv, json, yaml)")
	pf.String("color", d.Color, "colorize table output (auto, always, never)")
	pf.Bool("git", d.Git.Enabled, "commit every change to a git repository in the data directory")

	root.AddCommand(
		newInitCmd(a),
		newCreateCmd(a),
		newMkdirCmd(a),
		newLsCmd(a),
		newRmCmd(a),
		newShowCmd(a),
		newAddColumnCmd(a),
		newSetColumnCmd(a),
		newDropColumnCmd(a),
		newInsertCmd(a),
		newUpdateCmd(a),
		newDeleteCmd(a),
		newQueryCmd(a),
		newSearchCmd(a),
		newCountCmd(a),
		newSchemaCmd(a),
		newWatchCmd(a),
		newLogCmd(a),
		newShellCmd(a),
		newVersionCmd(a),
	)
	return root
}

func newInitCmd(a *app) *cobra.Command {
	var writeConfig string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the data directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := a.dir(); err != nil {
				return err
			}
			if writeConfig != "" {
				if err := a.cfg.Save(writeConfig); err != nil {
					return err
				}
				fmt.Fprintf(a.stdout, "wrote %s\n", writeConfig)
			}
			return a.commit(cmd.Context(), "init")
		},
	}
	cmd.Flags().StringVar(&writeConfig, "write-config", "", "save the effective settings to this file, such as "+config.FileName+".yaml")
	return cmd
}

func newCreateCmd(a *app) *cobra.Command {
	var columns []string
	cmd := &cobra.Command{
		Use:   "create NAME...",
		Short: "Create header-only relations",
		Long:  "Create header-only relations. Existing relations are left untouched.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.dir()
			if err != nil {
				return err
			}
			files, err := d.CreateFiles(args...)
			if err != nil {
				return err
			}
			for _, f := range files {
				if err := f.AddColumns(columns...); err != nil {
					return err
				}
			}
			return a.commit(cmd.Context(), "create %s", strings.Join(args, ", "))
		},
	}
	cmd.Flags().StringSliceVarP(&columns, "columns", "c", nil, "columns to add to each relation")
	return cmd
}

func newMkdirCmd(a *app) *cobra.Command {
	var parents bool
	cmd := &cobra.Command{
		Use:   "mkdir NAME...",
		Short: "Create child directories",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			d, err := a.dir()
			if err != nil {
				return err
			}
			if parents {
				return d.AddDirectories(args...)
			}
			for _, name := range args {
				if err := d.AddDirectory(name); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&parents, "parents", "p", false, "ignore directories that already exist")
	return cmd
}

func newLsCmd(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List relations",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			d, err := a.dir()
			if err != nil {
				return err
			}
			list := d.Relations
			if all {
				list = d.List
			}
			names, err := list()
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(a.stdout, name)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "list every entry of the data directory")
	return cmd
}

func newRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm NAME...",
		Short: "Remove relations or empty directories",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.dir()
			if err != nil {
				return err
			}
			for _, name := range args {
				if err := d.Remove(name); err != nil {
					return err
				}
			}
			return a.commit(cmd.Context(), "remove %s", strings.Join(args, ", "))
		},
	}
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show NAME",
		Short: "Print a relation",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			f, err := a.relation(args[0])
			if err != nil {
				return err
			}
			t, err := f.Table()
			if err != nil {
				return err
			}
			return a.write(t)
		},
	}
}

func newAddColumnCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add-column NAME COLUMN...",
		Short: "Add columns, holding empty values",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.relation(args[0])
			if err != nil {
				return err
			}
			if err := f.AddColumns(args[1:]...); err != nil {
				return err
			}
			return a.commit(cmd.Context(), "%s: add column %s", f.Name(), strings.Join(args[1:], ", "))
		},
	}
}

func newSetColumnCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set-column NAME COLUMN VALUE",
		Short: "Store one value in a column of every row",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.relation(args[0])
			if err != nil {
				return err
			}
			if err := f.SetColumn(args[1], args[2]); err != nil {
				return err
			}
			return a.commit(cmd.Context(), "%s: set column %s", f.Name(), args[1])
		},
	}
}

func newDropColumnCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "drop-column NAME COLUMN",
		Short: "Remove a column",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.relation(args[0])
			if err != nil {
				return err
			}
			if err := f.RemoveColumn(args[1]); err != nil {
				return err
			}
			return a.commit(cmd.Context(), "%s: drop column %s", f.Name(), args[1])
		},
	}
}

func newInsertCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "insert NAME [VALUE...]",
		Short: "Append a row and print its identifier",
		Long:  "Append a row and print its identifier. Values fill the columns after \"#\" in order; missing values are empty.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.relation(args[0])
			if err != nil {
				return err
			}
			id, err := f.AddRow(args[1:]...)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, id)
			return a.commit(cmd.Context(), "%s: insert row %d", f.Name(), id)
		},
	}
}

func newUpdateCmd(a *app) *cobra.Command {
	var where string
	cmd := &cobra.Command{
		Use:   "update NAME (ID | --where EXPR) COLUMN=VALUE...",
		Short: "Overwrite columns of one row or of every matching row",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.relation(args[0])
			if err != nil {
				return err
			}
			if where != "" {
				values, err := parseAssignments(args[1:])
				if err != nil {
					return err
				}
				ok, err := f.Update(where, values)
				if err != nil {
					return err
				}
				if !ok {
					return dberrors.EmptyResult()
				}
				return a.commit(cmd.Context(), "%s: update where %s", f.Name(), where)
			}
			id, err := parseID(args[1])
			if err != nil {
				return err
			}
			values, err := parseAssignments(args[2:])
			if err != nil {
				return err
			}
			if err := f.UpdateByIndex(id, values); err != nil {
				return err
			}
			return a.commit(cmd.Context(), "%s: update row %d", f.Name(), id)
		},
	}
	cmd.Flags().StringVarP(&where, "where", "w", "", "update every row matching the expression")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	var where string
	cmd := &cobra.Command{
		Use:   "delete NAME (ID... | --where EXPR)",
		Short: "Delete rows by identifier or by expression",
		Long:  "Delete rows by identifier or by expression. Identifiers refer to the rows as they were before the command; the remaining rows are renumbered.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.relation(args[0])
			if err != nil {
				return err
			}
			if where != "" {
				if len(args) > 1 {
					return dberrors.New(dberrors.CodeInvalidExpression, "identifiers and --where are mutually exclusive")
				}
				ok, err := f.Delete(where)
				if err != nil {
					return err
				}
				if !ok {
					return dberrors.EmptyResult()
				}
				return a.commit(cmd.Context(), "%s: delete where %s", f.Name(), where)
			}
			if len(args) < 2 {
				return dberrors.New(dberrors.CodeInvalidExpression, "give row identifiers or --where")
			}
			ids := make([]int, 0, len(args)-1)
			for _, arg := range args[1:] {
				id, err := parseID(arg)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			err = f.DeleteByIndex(ids...)
			if cerr := a.commit(cmd.Context(), "%s: delete rows %s", f.Name(), strings.Join(args[1:], ", ")); err == nil {
				err = cerr
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&where, "where", "w", "", "delete every row matching the expression")
	return cmd
}

func newQueryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "query NAME EXPR",
		Short: "Print the rows matching an expression",
		Long: `Print the rows matching an expression such as

  age >= 18 and (city == "Rome" or ` + "`zip code`" + ` == '00100')

Values compare as numbers when both sides are numeric, as text otherwise.`,
		Args: cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			f, err := a.relation(args[0])
			if err != nil {
				return err
			}
			res, err := f.Query(args[1])
			if err != nil {
				return err
			}
			return a.writeResult(res)
		},
	}
}

func newSearchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "search NAME [COLUMN=VALUE...]",
		Short: "Print the rows holding every given value",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			f, err := a.relation(args[0])
			if err != nil {
				return err
			}
			filter, err := predicate.ParseFilter(args[1:])
			if err != nil {
				return err
			}
			res, err := f.Search(filter)
			if err != nil {
				return err
			}
			return a.writeResult(res)
		},
	}
}

func newCountCmd(a *app) *cobra.Command {
	var where string
	cmd := &cobra.Command{
		Use:   "count NAME",
		Short: "Print the number of rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			f, err := a.relation(args[0])
			if err != nil {
				return err
			}
			var n int
			if where != "" {
				res, err := f.Query(where)
				if err != nil {
					return err
				}
				n = res.Len()
			} else if n, err = f.Len(); err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, n)
			return nil
		},
	}
	cmd.Flags().StringVarP(&where, "where", "w", "", "count only the rows matching the expression")
	return cmd
}

func newSchemaCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "schema NAME",
		Short: "Print the JSON Schema of a row",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			f, err := a.relation(args[0])
			if err != nil {
				return err
			}
			cols, err := f.Columns()
			if err != nil {
				return err
			}
			return render.Schema(a.stdout, f.Name(), cols)
		},
	}
}

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch NAME",
		Short: "Print a relation each time it changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.relation(args[0])
			if err != nil {
				return err
			}
			show := func() error {
				t, err := f.Table()
				if err != nil {
					// The file may be mid-replacement; the next event reprints it.
					if dberrors.HasCode(err, dberrors.CodeNotFound) {
						return nil
					}
					return err
				}
				return a.write(t)
			}
			if err := show(); err != nil {
				return err
			}
			path, err := filepath.Abs(f.Path())
			if err != nil {
				return err
			}
			return watch.Watch(cmd.Context(), path, func(_ context.Context) error {
				fmt.Fprintln(a.stdout)
				return show()
			})
		},
	}
}

func newLogCmd(a *app) *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "log [NAME]",
		Short: "Print the change history",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.history()
			if err != nil {
				return err
			}
			if r == nil {
				return dberrors.New(dberrors.CodeInvalidConfig, "history is disabled, enable it with --git or git.enabled")
			}
			path := ""
			if len(args) == 1 {
				path = strings.TrimSuffix(args[0], relation.Ext) + relation.Ext
			}
			commits, err := r.Log(cmd.Context(), path, n)
			if err != nil {
				return err
			}
			t := &codec.Table{Columns: []string{"commit", "date", "author", "message"}}
			for _, c := range commits {
				t.Rows = append(t.Rows, []string{c.Hash[:min(len(c.Hash), 12)], c.Date.Format("2006-01-02 15:04:05"), c.Author, c.Message})
			}
			return a.write(t)
		},
	}
	cmd.Flags().IntVarP(&n, "max-count", "n", 20, "number of commits to print")
	return cmd
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			version, goVersion, revision, dirty := buildInfo()
			fmt.Fprintf(a.stdout, "pydeas %s\n", version)
			fmt.Fprintf(a.stdout, "  Go version: %s\n", goVersion)
			fmt.Fprintf(a.stdout, "  Revision:   %s\n", revision)
			if dirty {
				fmt.Fprintf(a.stdout, "  Modified:   true\n")
			}
			return nil
		},
	}
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id < 1 {
		return 0, dberrors.Newf(dberrors.CodeRowNotFound, "invalid row identifier %q", s)
	}
	return id, nil
}
