// Package filedb is a directory of append-only record columns.
//
// A store is a directory. Each column is a file named <name>.filedb holding
// LF-terminated records, managed by package column. DB resolves names to
// files, keeps one open handle per column and serializes access to it.
package filedb

import (
	stderrors "errors"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/maruel/filedb/internal/column"
	"github.com/maruel/filedb/internal/errors"
)

// Ext is the file extension of column files.
const Ext = "filedb"

// DefaultDir is the store directory used by Default, relative to the
// user's home.
const DefaultDir = ".filedb"

// Option configures a DB.
type Option func(*DB)

// WithLogger sets the logger for the store and its columns.
func WithLogger(l *slog.Logger) Option {
	return func(db *DB) { db.log = l }
}

// WithSync makes every insert and rewrite fsync before returning.
func WithSync(sync bool) Option {
	return func(db *DB) { db.sync = sync }
}

// DB is a store rooted at a directory. It is safe for concurrent use.
type DB struct {
	root string
	log  *slog.Logger
	sync bool

	// mu protects cols.
	mu   sync.Mutex
	cols map[string]*Col
}

// Connect opens the store at root, creating the directory if needed.
//
// It fails with a DBFile error if root exists and is not a directory.
func Connect(root string, opts ...Option) (*DB, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.IO("abs", root, err)
	}
	fi, err := os.Stat(abs)
	switch {
	case os.IsNotExist(err):
		if err := os.MkdirAll(abs, 0o755); err != nil {
			return nil, errors.IO("mkdir", abs, err)
		}
	case err != nil:
		return nil, errors.IO("stat", abs, err)
	case !fi.IsDir():
		return nil, errors.DBFile(abs)
	}
	db := &DB{
		root: abs,
		log:  slog.Default(),
		cols: make(map[string]*Col),
	}
	for _, o := range opts {
		o(db)
	}
	db.log.Debug("store opened", "root", abs)
	return db, nil
}

// Default opens the store in ~/.filedb.
func Default(opts ...Option) (*DB, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.IO("home", "", err)
	}
	return Connect(filepath.Join(home, DefaultDir), opts...)
}

// Root returns the absolute store directory.
func (db *DB) Root() string {
	return db.root
}

// C returns the handle for the named column, creating the column file on
// first use. Repeated calls with the same name return the same *Col.
//
// A name may carry the .filedb extension. Slash-separated names address
// columns in subdirectories, which are created as needed.
func (db *DB) C(name string) (*Col, error) {
	path, err := db.resolve(name)
	if err != nil {
		return nil, err
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	if col, ok := db.cols[path]; ok {
		return col, nil
	}
	f, err := column.OpenFile(path)
	if err != nil {
		return nil, err
	}
	col := &Col{
		db:   db,
		name: db.nameOf(path),
		path: path,
		c:    column.New(path, f, db.columnOptions()...),
	}
	db.cols[path] = col
	db.log.Debug("column opened", "name", col.name)
	return col, nil
}

// ColNames returns the sorted names of the columns directly in the store
// directory.
func (db *DB) ColNames() ([]string, error) {
	entries, err := os.ReadDir(db.root)
	if err != nil {
		return nil, errors.IO("readdir", db.root, err)
	}
	var names []string
	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.HasSuffix(e.Name(), "."+Ext) {
			continue
		}
		// Only list names that C maps back to this very file.
		path := filepath.Join(db.root, e.Name())
		name := db.nameOf(path)
		if p, err := db.resolve(name); err != nil || p != path {
			continue
		}
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

// Close closes every open column handle. The DB can be reused afterwards;
// handles are reopened on demand.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	var errs []error
	for path, col := range db.cols {
		col.mu.Lock()
		if !col.closed {
			errs = append(errs, col.c.Close())
		}
		col.closed = true
		col.mu.Unlock()
		delete(db.cols, path)
	}
	return stderrors.Join(errs...)
}

// resolve maps a column name to its file path inside the store.
func (db *DB) resolve(name string) (string, error) {
	n := strings.TrimSuffix(name, "."+Ext)
	if n == "" || filepath.IsAbs(n) {
		return "", errors.DBFile(name)
	}
	path := filepath.Join(db.root, filepath.FromSlash(n)) + "." + Ext
	rel, err := filepath.Rel(db.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.DBFile(name)
	}
	return path, nil
}

// nameOf is the inverse of resolve. A file named like x.filedb.filedb keeps
// its full name since C strips a single extension.
func (db *DB) nameOf(path string) string {
	rel, err := filepath.Rel(db.root, path)
	if err != nil {
		return path
	}
	rel = filepath.ToSlash(rel)
	if name := strings.TrimSuffix(rel, "."+Ext); !strings.HasSuffix(name, "."+Ext) {
		return name
	}
	return rel
}

func (db *DB) columnOptions() []column.Option {
	return []column.Option{column.WithLogger(db.log), column.WithSync(db.sync)}
}

// evict forgets col if it is still the cached handle for its path.
func (db *DB) evict(col *Col) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.cols[col.path] == col {
		delete(db.cols, col.path)
	}
}

// dropRemoved handles a column file that disappeared. If it is really gone
// the cached handle is evicted and closed, so later calls on it fail and C
// starts a new column. A file already recreated only needs reopening.
func (db *DB) dropRemoved(path string) {
	if _, err := os.Lstat(path); err == nil {
		db.markStale(path)
		return
	}
	db.mu.Lock()
	col := db.cols[path]
	delete(db.cols, path)
	db.mu.Unlock()
	if col == nil {
		return
	}
	col.mu.Lock()
	if !col.closed {
		if err := col.c.Close(); err != nil {
			db.log.Warn("failed to close removed column file", "name", col.name, "err", err)
		}
		col.closed = true
	}
	col.mu.Unlock()
	db.log.Debug("column evicted", "name", col.name)
}

// markStale flags the cached handle for path, if any, for reopening.
func (db *DB) markStale(path string) {
	db.mu.Lock()
	col := db.cols[path]
	db.mu.Unlock()
	if col != nil {
		col.stale.Store(true)
	}
}
