package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/starford/studycards/internal/sheet"
	"github.com/starford/studycards/internal/study"
)

// withLibrary runs fn against the configured library with logs on stderr,
// keeping stdout for command output.
func withLibrary(opts []Option, fn func(app *application, ctrl *study.Controller) error) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := newLogger(app.config, os.Stderr)
	slog.SetDefault(logger)

	lib, err := openLibrary(app.config, logger)
	if err != nil {
		return err
	}
	defer lib.Close()
	return fn(app, lib.ctrl)
}

// ImportFile imports a .json, .xlsx or .csv card file into the library.
func ImportFile(_ context.Context, path string, opts ...Option) error {
	return withLibrary(opts, func(app *application, ctrl *study.Controller) error {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open import file: %w", err)
		}
		defer f.Close()

		text, err := sheet.ToImportJSON(filepath.Base(path), f)
		if err != nil {
			return err
		}
		n, err := ctrl.ImportSets(text)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(app.out, "imported %d set(s) from %s\n", n, filepath.Base(path))
		return err
	})
}

// Export writes the whole library as indented JSON to outPath, or to the
// command output when outPath is empty.
func Export(_ context.Context, outPath string, opts ...Option) error {
	return withLibrary(opts, func(app *application, ctrl *study.Controller) error {
		data, err := ctrl.ExportAll()
		if err != nil {
			return err
		}
		if outPath == "" {
			_, err = app.out.Write(append(data, '\n'))
			return err
		}
		if err := os.WriteFile(outPath, data, 0o644); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
		_, err = fmt.Fprintf(app.out, "exported to %s\n", outPath)
		return err
	})
}

// ListSets prints each set with its card count.
func ListSets(_ context.Context, opts ...Option) error {
	return withLibrary(opts, func(app *application, ctrl *study.Controller) error {
		sets := ctrl.Sets()
		if len(sets) == 0 {
			_, err := fmt.Fprintln(app.out, "no card sets")
			return err
		}
		tw := tabwriter.NewWriter(app.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SET\tCARDS")
		for _, s := range sets {
			fmt.Fprintf(tw, "%s\t%d\n", s.Name, s.Count)
		}
		return tw.Flush()
	})
}

// DeleteSet removes the named set from the library.
func DeleteSet(_ context.Context, name string, opts ...Option) error {
	return withLibrary(opts, func(app *application, ctrl *study.Controller) error {
		if err := ctrl.DeleteSet(name); err != nil {
			return err
		}
		_, err := fmt.Fprintf(app.out, "deleted %s\n", name)
		return err
	})
}
