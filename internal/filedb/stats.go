package filedb

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Stat summarizes one column.
type Stat struct {
	Name    string
	Records int
	Bytes   int64
	// Digest is the XXH3-64 hash of the file contents.
	Digest uint64
}

// Stats scans every column listed by ColNames in parallel. The result is in
// ColNames order.
func (db *DB) Stats(ctx context.Context) ([]Stat, error) {
	names, err := db.ColNames()
	if err != nil {
		return nil, err
	}
	stats := make([]Stat, len(names))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, name := range names {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			col, err := db.C(name)
			if err != nil {
				return err
			}
			stats[i], err = col.stat()
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stats, nil
}
