package main

import (
	"bufio"
	"context"

	"github.com/goccy/go-json"
	"github.com/maruel/filedb/internal/column"
)

// exportRecord is one line of `filedb export`.
type exportRecord struct {
	Index int    `json:"index"`
	Data  string `json:"data"`
}

func cmdExport(_ context.Context, e *env, args []string) error {
	rest, err := parseArgs(newFlagSet(e, "export"), args, 1, 1)
	if err != nil {
		return err
	}
	col, err := e.db.C(rest[0])
	if err != nil {
		return err
	}
	w := bufio.NewWriter(e.stdout)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	var werr error
	_, err = col.ForEach(func(i int, rec []byte) column.ForEachResult {
		werr = enc.Encode(exportRecord{Index: i, Data: string(rec)})
		return column.ForEachResult{Stop: werr != nil}
	})
	if err != nil {
		return err
	}
	if werr != nil {
		return werr
	}
	return w.Flush()
}
