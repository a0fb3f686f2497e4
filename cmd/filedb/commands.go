package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/maruel/filedb/internal/column"
	"github.com/maruel/filedb/internal/config"
	"github.com/maruel/ksid"
)

func cmdLs(_ context.Context, e *env, args []string) error {
	if _, err := parseArgs(newFlagSet(e, "ls"), args, 0, 0); err != nil {
		return err
	}
	names, err := e.db.ColNames()
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Fprintln(e.stdout, name)
	}
	return nil
}

func cmdInsert(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "insert")
	withID := fs.Bool("id", false, "Prefix each record with a k-sortable ID and a tab")
	rest, err := parseArgs(fs, args, 2, -1)
	if err != nil {
		return err
	}
	col, err := e.db.C(rest[0])
	if err != nil {
		return err
	}
	for _, rec := range rest[1:] {
		data := []byte(rec)
		if *withID {
			data = append([]byte(ksid.NewID().String()+"\t"), data...)
		}
		if err := col.Insert(data); err != nil {
			return err
		}
	}
	slog.DebugContext(ctx, "Inserted", "col", col.Name(), "count", len(rest)-1)
	return nil
}

func cmdCat(_ context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "cat")
	number := fs.Bool("n", false, "Prefix each record with its index")
	limit := fs.Int("limit", 0, "Stop after this many records; 0 prints all")
	rest, err := parseArgs(fs, args, 1, 1)
	if err != nil {
		return err
	}
	col, err := e.db.C(rest[0])
	if err != nil {
		return err
	}
	var werr error
	_, err = col.ForEach(func(i int, rec []byte) column.ForEachResult {
		if *number {
			_, werr = fmt.Fprintf(e.stdout, "%d\t%s\n", i, rec)
		} else {
			_, werr = fmt.Fprintf(e.stdout, "%s\n", rec)
		}
		return column.ForEachResult{Stop: werr != nil || (*limit > 0 && i+1 >= *limit)}
	})
	if err != nil {
		return err
	}
	return werr
}

func cmdGrep(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "grep")
	invert := fs.Bool("v", false, "Keep the records that do not match")
	rest, err := parseArgs(fs, args, 2, 2)
	if err != nil {
		return err
	}
	col, err := e.db.C(rest[0])
	if err != nil {
		return err
	}
	substr := []byte(rest[1])
	kept := 0
	n, err := col.SelectEach(func(_ int, rec []byte) column.SelectResult {
		keep := bytes.Contains(rec, substr) != *invert
		if keep {
			kept++
		}
		return column.SelectResult{Keep: keep, Data: rec}
	})
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "Filtered", "col", col.Name(), "records", n, "kept", kept)
	return nil
}

func cmdSed(ctx context.Context, e *env, args []string) error {
	rest, err := parseArgs(newFlagSet(e, "sed"), args, 3, 3)
	if err != nil {
		return err
	}
	if rest[1] == "" {
		return errors.New("sed: empty pattern")
	}
	col, err := e.db.C(rest[0])
	if err != nil {
		return err
	}
	old, repl := []byte(rest[1]), []byte(rest[2])
	changed := 0
	n, err := col.SelectEach(func(_ int, rec []byte) column.SelectResult {
		if !bytes.Contains(rec, old) {
			return column.SelectResult{Keep: true, Data: rec}
		}
		changed++
		return column.SelectResult{Keep: true, Data: bytes.ReplaceAll(rec, old, repl)}
	})
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "Replaced", "col", col.Name(), "records", n, "changed", changed)
	return nil
}

func cmdRm(ctx context.Context, e *env, args []string) error {
	rest, err := parseArgs(newFlagSet(e, "rm"), args, 2, 2)
	if err != nil {
		return err
	}
	col, err := e.db.C(rest[0])
	if err != nil {
		return err
	}
	substr := []byte(rest[1])
	removed := 0
	n, err := col.RemoveEach(func(_ int, rec []byte) column.RemoveResult {
		r := bytes.Contains(rec, substr)
		if r {
			removed++
		}
		return column.RemoveResult{Remove: r}
	})
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "Removed", "col", col.Name(), "records", n, "removed", removed)
	return nil
}

func cmdDrop(_ context.Context, e *env, args []string) error {
	rest, err := parseArgs(newFlagSet(e, "drop"), args, 1, 1)
	if err != nil {
		return err
	}
	col, err := e.db.C(rest[0])
	if err != nil {
		return err
	}
	return col.Delete()
}

func cmdStats(ctx context.Context, e *env, args []string) error {
	if _, err := parseArgs(newFlagSet(e, "stats"), args, 0, 0); err != nil {
		return err
	}
	stats, err := e.db.Stats(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(e.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "NAME\tRECORDS\tBYTES\tXXH3\t\n")
	for _, s := range stats {
		fmt.Fprintf(w, "%s\t%d\t%d\t%016x\t\n", s.Name, s.Records, s.Bytes, s.Digest)
	}
	return w.Flush()
}

func cmdSchema(_ context.Context, e *env, args []string) error {
	if _, err := parseArgs(newFlagSet(e, "schema"), args, 0, 0); err != nil {
		return err
	}
	data, err := config.Schema()
	if err != nil {
		return err
	}
	_, err = e.stdout.Write(data)
	return err
}
