// Package column implements the append-and-rewrite engine behind a single
// store column.
//
// # File Format
//
// A column is one file. Records are arbitrary byte strings, each followed by
// a single LF (0x0A). There is no header, checksum or escaping; a record
// therefore cannot contain LF and [Column.Insert] rejects one that does. A
// final record missing its LF (the trace of an interrupted insert) is still
// read back as a record.
//
// # Operations
//
// [Column.Insert] appends. [Column.ForEach] scans read-only.
// [Column.SelectEach] rewrites the file through a callback that decides, per
// record, whether to keep it and with which bytes. [Column.RemoveEach] is the
// deletion-only form of SelectEach.
//
// # Rewrite
//
// SelectEach streams the kept records into a temporary file created next to
// the column, then renames it over the column path. The path is never
// absent. The Column reopens the path after the rename so later operations
// see the new contents. Stopping early truncates: records after the stop
// point are not carried into the new file.
//
// # Concurrency
//
// A Column performs no locking. Callers serialize access, as the store does
// with one mutex per handle. Two handles on the same path race.
package column
