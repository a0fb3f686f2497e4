package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maruel/filedb/internal/column"
	"github.com/maruel/filedb/internal/filedb"
)

// cmdTail prints records as they are appended to a column until interrupted.
func cmdTail(ctx context.Context, e *env, args []string) error {
	rest, err := parseArgs(newFlagSet(e, "tail"), args, 1, 1)
	if err != nil {
		return err
	}
	col, err := e.db.C(rest[0])
	if err != nil {
		return err
	}
	t := &tailer{db: e.db, name: col.Name(), w: e}
	if t.seen, err = col.ForEach(func(int, []byte) column.ForEachResult {
		return column.ForEachResult{}
	}); err != nil {
		return err
	}
	return e.db.Watch(ctx, func(ev filedb.Event) {
		if ev.Name != t.name {
			return
		}
		if ev.Op == filedb.OpRemove {
			slog.InfoContext(ctx, "Column removed", "col", ev.Name)
			t.seen = 0
			return
		}
		if err := t.flush(); err != nil {
			slog.WarnContext(ctx, "Failed to read column", "col", ev.Name, "err", err)
		}
	})
}

type tailer struct {
	db   *filedb.DB
	name string
	w    *env
	seen int
}

// flush prints the records past the last seen index. A column that shrank
// was rewritten; printing restarts from its new end. The handle is looked up
// each time since a removed column's handle is evicted.
func (t *tailer) flush() error {
	col, err := t.db.C(t.name)
	if err != nil {
		return err
	}
	n, err := col.ForEach(func(i int, rec []byte) column.ForEachResult {
		if i >= t.seen {
			fmt.Fprintf(t.w.stdout, "%s\n", rec)
		}
		return column.ForEachResult{}
	})
	if err != nil {
		return err
	}
	t.seen = n
	return nil
}
