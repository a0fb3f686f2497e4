package column

import (
	"bufio"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/maruel/filedb/internal/errors"
	"github.com/zeebo/xxh3"
)

// tempPattern names rewrite files. The leading dot and the suffix keep them
// out of column listings.
const tempPattern = ".filedb-*.tmp"

// ForEachResult is returned by a ForEach callback.
type ForEachResult struct {
	// Stop ends the scan after the current record.
	Stop bool
}

// SelectResult is returned by a SelectEach callback.
type SelectResult struct {
	// Keep writes Data to the rewritten column. When false the record is
	// dropped.
	Keep bool
	// Data replaces the record when Keep is set. It may differ from the
	// input.
	Data []byte
	// Stop ends the rewrite after the current record. Remaining records are
	// not carried over.
	Stop bool
}

// RemoveResult is returned by a RemoveEach callback.
type RemoveResult struct {
	// Remove drops the record from the column.
	Remove bool
	// Stop ends the rewrite after the current record. Remaining records are
	// not carried over.
	Stop bool
}

// Option configures a Column.
type Option func(*Column)

// WithLogger sets the logger used for rewrite diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Column) { c.log = l }
}

// WithSync makes Insert and SelectEach fsync before returning.
func WithSync(sync bool) Option {
	return func(c *Column) { c.sync = sync }
}

// Column owns the open file of one column.
type Column struct {
	path string
	file *os.File
	log  *slog.Logger
	sync bool
}

// New returns a Column over file, which must be open for read and append on
// path.
func New(path string, file *os.File, opts ...Option) *Column {
	c := &Column{path: path, file: file, log: slog.Default()}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Open opens or creates the column file at path and returns a Column on it.
func Open(path string, opts ...Option) (*Column, error) {
	f, err := OpenFile(path)
	if err != nil {
		return nil, err
	}
	return New(path, f, opts...), nil
}

// OpenFile opens path for read and append. A missing file is created along
// with its parent directories.
func OpenFile(path string) (*os.File, error) {
	if _, err := os.Stat(path); err == nil {
		f, err := os.OpenFile(path, os.O_RDWR|os.O_APPEND, 0)
		return f, errors.IO("open", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.IO("mkdir", filepath.Dir(path), err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_APPEND|os.O_CREATE, 0o644)
	return f, errors.IO("create", path, err)
}

// Path returns the backing file path.
func (c *Column) Path() string {
	return c.path
}

// Close releases the file descriptor.
func (c *Column) Close() error {
	return errors.IO("close", c.path, c.file.Close())
}

// Delete removes the backing file and closes the handle. Later operations
// on c fail.
func (c *Column) Delete() error {
	if err := os.Remove(c.path); err != nil {
		return errors.IO("delete", c.path, err)
	}
	_ = c.file.Close()
	return nil
}

// Size returns the current length of the file in bytes.
func (c *Column) Size() (int64, error) {
	fi, err := c.file.Stat()
	if err != nil {
		return 0, errors.IO("stat", c.path, err)
	}
	return fi.Size(), nil
}

// Digest returns the XXH3-64 hash of the file contents.
func (c *Column) Digest() (uint64, error) {
	size, err := c.Size()
	if err != nil {
		return 0, err
	}
	h := xxh3.New()
	if _, err := io.Copy(h, io.NewSectionReader(c.file, 0, size)); err != nil {
		return 0, errors.IO("read", c.path, err)
	}
	return h.Sum64(), nil
}

// Insert appends rec as a new record. The write is flushed to the kernel
// before Insert returns.
func (c *Column) Insert(rec []byte) error {
	if err := ValidRecord(rec); err != nil {
		return errors.Record("insert", c.path, err.Error())
	}
	w := bufio.NewWriterSize(c.file, len(rec)+1)
	if err := Encode(w, rec); err != nil {
		return errors.IO("insert", c.path, err)
	}
	if err := w.Flush(); err != nil {
		return errors.IO("insert", c.path, err)
	}
	if c.sync {
		return errors.IO("sync", c.path, c.file.Sync())
	}
	return nil
}

// ForEach calls fn for each record in file order with its zero-based index.
// It returns the number of records passed to fn, including the one that
// asked to stop.
func (c *Column) ForEach(fn func(index int, rec []byte) ForEachResult) (int, error) {
	if _, err := c.file.Seek(0, io.SeekStart); err != nil {
		return 0, errors.IO("seek", c.path, err)
	}
	d := NewDecoder(c.file)
	n := 0
	for {
		rec, err := d.Next()
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return n, errors.IO("read", c.path, err)
		}
		n++
		if fn(n-1, rec).Stop {
			return n, nil
		}
	}
}

// SelectEach rewrites the column through fn. It returns the number of
// records passed to fn, not the number kept.
//
// If fn returns data containing LF the rewrite is abandoned and the column
// is left unchanged.
func (c *Column) SelectEach(fn func(index int, rec []byte) SelectResult) (int, error) {
	start := time.Now()
	if _, err := c.file.Seek(0, io.SeekStart); err != nil {
		return 0, errors.IO("seek", c.path, err)
	}
	fi, err := c.file.Stat()
	if err != nil {
		return 0, errors.IO("stat", c.path, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(c.path), tempPattern)
	if err != nil {
		return 0, errors.IO("tempfile", c.path, err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	w := bufio.NewWriter(tmp)
	d := NewDecoder(c.file)
	n, kept := 0, 0
	for {
		rec, err := d.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return n, errors.IO("read", c.path, err)
		}
		res := fn(n, rec)
		n++
		if res.Keep {
			if err := ValidRecord(res.Data); err != nil {
				return n, errors.Record("select", c.path, err.Error())
			}
			if err := Encode(w, res.Data); err != nil {
				return n, errors.IO("write", tmp.Name(), err)
			}
			kept++
		}
		if res.Stop {
			break
		}
	}

	if err := w.Flush(); err != nil {
		return n, errors.IO("write", tmp.Name(), err)
	}
	if err := tmp.Chmod(fi.Mode().Perm()); err != nil {
		return n, errors.IO("chmod", tmp.Name(), err)
	}
	if c.sync {
		if err := tmp.Sync(); err != nil {
			return n, errors.IO("sync", tmp.Name(), err)
		}
	}
	if err := tmp.Close(); err != nil {
		return n, errors.IO("close", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		return n, errors.IO("rename", c.path, err)
	}
	committed = true
	if c.sync {
		if err := syncDir(filepath.Dir(c.path)); err != nil {
			return n, err
		}
	}
	if err := c.reopen(); err != nil {
		return n, err
	}
	c.log.Debug("column rewritten", "path", c.path, "processed", n, "kept", kept, "dur", time.Since(start))
	return n, nil
}

// RemoveEach drops every record for which fn reports Remove. It returns the
// number of records passed to fn.
func (c *Column) RemoveEach(fn func(index int, rec []byte) RemoveResult) (int, error) {
	return c.SelectEach(func(index int, rec []byte) SelectResult {
		r := fn(index, rec)
		return SelectResult{Keep: !r.Remove, Data: rec, Stop: r.Stop}
	})
}

// reopen replaces the file descriptor with a fresh one on c.path. Called
// after a rename so c does not keep reading the replaced inode.
func (c *Column) reopen() error {
	f, err := os.OpenFile(c.path, os.O_RDWR|os.O_APPEND, 0)
	if err != nil {
		return errors.IO("reopen", c.path, err)
	}
	old := c.file
	c.file = f
	if err := old.Close(); err != nil {
		c.log.Warn("failed to close replaced column file", "path", c.path, "err", err)
	}
	return nil
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return errors.IO("open", dir, err)
	}
	defer func() { _ = d.Close() }()
	return errors.IO("sync", dir, d.Sync())
}
