package main

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/maruel/filedb/internal/column"
	"golang.org/x/time/rate"
)

func cmdImport(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "import")
	perSecond := fs.Float64("rate", e.cfg.ImportRate, "Maximum records per second; 0 is unlimited")
	rest, err := parseArgs(fs, args, 1, 1)
	if err != nil {
		return err
	}
	col, err := e.db.C(rest[0])
	if err != nil {
		return err
	}
	var limiter *rate.Limiter
	if *perSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(*perSecond), 1)
	}
	start := time.Now()
	n := 0
	d := column.NewDecoder(e.stdin)
	for {
		rec, err := d.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
		if err := col.Insert(rec); err != nil {
			return err
		}
		n++
	}
	slog.InfoContext(ctx, "Imported", "col", col.Name(), "records", n, "dur", time.Since(start).Round(time.Millisecond))
	return nil
}
