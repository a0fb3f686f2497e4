package filedb

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/maruel/filedb/internal/errors"
)

// Op is the kind of change reported by Watch.
type Op int

const (
	// OpCreate reports a column file that appeared or was replaced by a
	// rename, including rewrites done through this package.
	OpCreate Op = iota + 1
	// OpWrite reports appended data.
	OpWrite
	// OpRemove reports a column file that was removed or renamed away.
	OpRemove
)

func (o Op) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpWrite:
		return "write"
	case OpRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// Event is a change to a column file.
type Event struct {
	Name string
	Op   Op
}

// Watch reports changes to the columns directly in the store directory
// until ctx is done, and returns ctx.Err() then.
//
// Cached handles whose file is replaced, by this process or another, are
// reopened on their next use. Handles whose file is removed are evicted and
// closed; C then starts a new, empty column. fn runs on the watching
// goroutine and may use the DB.
func (db *DB) Watch(ctx context.Context, fn func(Event)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.IO("watch", db.root, err)
	}
	defer func() { _ = w.Close() }()
	if err := w.Add(db.root); err != nil {
		return errors.IO("watch", db.root, err)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev, ok := db.translate(event); ok {
				fn(ev)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			db.log.WarnContext(ctx, "Error watching store", "root", db.root, "err", err)
		}
	}
}

// translate converts an fsnotify event on a column file and updates the
// cached handle when the file identity changed.
func (db *DB) translate(event fsnotify.Event) (Event, bool) {
	if filepath.Dir(event.Name) != db.root || !strings.HasSuffix(event.Name, "."+Ext) {
		return Event{}, false
	}
	ev := Event{Name: db.nameOf(event.Name)}
	switch {
	case event.Has(fsnotify.Create):
		ev.Op = OpCreate
		db.markStale(event.Name)
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		ev.Op = OpRemove
		db.dropRemoved(event.Name)
	case event.Has(fsnotify.Write):
		ev.Op = OpWrite
	default:
		return Event{}, false
	}
	return ev, true
}
