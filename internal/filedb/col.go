package filedb

import (
	"os"
	"sync"
	"sync/atomic"

	"github.com/maruel/filedb/internal/column"
	"github.com/maruel/filedb/internal/errors"
)

// Col is a column handle shared through a DB. Its methods are safe for
// concurrent use; callbacks run with the handle locked and must not call
// back into the same Col or its DB.
type Col struct {
	db   *DB
	name string
	path string

	// stale is set when the file was replaced or removed behind our back.
	stale atomic.Bool

	// mu protects c and closed. closed is set by Delete and DB.Close.
	mu     sync.Mutex
	c      *column.Column
	closed bool
}

// Name returns the column name, without extension.
func (col *Col) Name() string {
	return col.name
}

// Path returns the column file path.
func (col *Col) Path() string {
	return col.path
}

// Insert appends rec. See [column.Column.Insert].
func (col *Col) Insert(rec []byte) error {
	col.mu.Lock()
	defer col.mu.Unlock()
	if err := col.refresh(); err != nil {
		return err
	}
	return col.c.Insert(rec)
}

// ForEach scans the column. See [column.Column.ForEach].
func (col *Col) ForEach(fn func(index int, rec []byte) column.ForEachResult) (int, error) {
	col.mu.Lock()
	defer col.mu.Unlock()
	if err := col.refresh(); err != nil {
		return 0, err
	}
	return col.c.ForEach(fn)
}

// SelectEach rewrites the column. See [column.Column.SelectEach].
func (col *Col) SelectEach(fn func(index int, rec []byte) column.SelectResult) (int, error) {
	col.mu.Lock()
	defer col.mu.Unlock()
	if err := col.refresh(); err != nil {
		return 0, err
	}
	return col.c.SelectEach(fn)
}

// RemoveEach drops records. See [column.Column.RemoveEach].
func (col *Col) RemoveEach(fn func(index int, rec []byte) column.RemoveResult) (int, error) {
	col.mu.Lock()
	defer col.mu.Unlock()
	if err := col.refresh(); err != nil {
		return 0, err
	}
	return col.c.RemoveEach(fn)
}

// Size returns the column file length in bytes.
func (col *Col) Size() (int64, error) {
	col.mu.Lock()
	defer col.mu.Unlock()
	if err := col.refresh(); err != nil {
		return 0, err
	}
	return col.c.Size()
}

// Digest returns the XXH3-64 hash of the column file.
func (col *Col) Digest() (uint64, error) {
	col.mu.Lock()
	defer col.mu.Unlock()
	if err := col.refresh(); err != nil {
		return 0, err
	}
	return col.c.Digest()
}

// Delete removes the column file. The handle is dropped from the DB; a
// later DB.C with the same name starts an empty column. Deleting a handle
// closed by DB.Close or an earlier Delete fails without touching the file.
func (col *Col) Delete() error {
	col.mu.Lock()
	if col.closed {
		col.mu.Unlock()
		return errors.IO("delete", col.path, os.ErrClosed)
	}
	err := col.c.Delete()
	if err == nil {
		col.closed = true
	}
	col.mu.Unlock()
	if err != nil {
		return err
	}
	col.db.evict(col)
	col.db.log.Info("column deleted", "name", col.name)
	return nil
}

// stat gathers Stat under a single lock so the three values agree.
func (col *Col) stat() (Stat, error) {
	col.mu.Lock()
	defer col.mu.Unlock()
	st := Stat{Name: col.name}
	if err := col.refresh(); err != nil {
		return st, err
	}
	var err error
	if st.Bytes, err = col.c.Size(); err != nil {
		return st, err
	}
	if st.Digest, err = col.c.Digest(); err != nil {
		return st, err
	}
	st.Records, err = col.c.ForEach(func(int, []byte) column.ForEachResult {
		return column.ForEachResult{}
	})
	return st, err
}

// refresh reopens the file if the watcher flagged it. Must hold mu.
func (col *Col) refresh() error {
	if col.closed || !col.stale.Swap(false) {
		return nil
	}
	f, err := column.OpenFile(col.path)
	if err != nil {
		col.stale.Store(true)
		return err
	}
	if err := col.c.Close(); err != nil {
		col.db.log.Warn("failed to close stale column file", "name", col.name, "err", err)
	}
	col.c = column.New(col.path, f, col.db.columnOptions()...)
	col.db.log.Debug("column reopened", "name", col.name)
	return nil
}
