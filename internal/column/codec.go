package column

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"iter"
)

// Separator terminates every record on disk.
const Separator = '\n'

var errEmbeddedSeparator = errors.New("record contains LF separator")

// ValidRecord returns an error if rec cannot be stored as a single record.
func ValidRecord(rec []byte) error {
	if bytes.IndexByte(rec, Separator) >= 0 {
		return errEmbeddedSeparator
	}
	return nil
}

// Encode writes rec followed by the separator.
//
// Encode does not check rec; callers that need the framing guarantee use
// ValidRecord first.
func Encode(w io.Writer, rec []byte) error {
	if bw, ok := w.(io.ByteWriter); ok {
		if _, err := w.Write(rec); err != nil {
			return err
		}
		return bw.WriteByte(Separator)
	}
	buf := make([]byte, len(rec)+1)
	copy(buf, rec)
	buf[len(rec)] = Separator
	_, err := w.Write(buf)
	return err
}

// Decoder reads separator-terminated records from a stream.
//
// A final record missing its terminator is returned as a regular record.
// Records have no length limit.
type Decoder struct {
	r *bufio.Reader
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Next returns the next record without its terminator. The returned slice
// is owned by the caller. Returns io.EOF when the stream is exhausted.
func (d *Decoder) Next() ([]byte, error) {
	line, err := d.r.ReadBytes(Separator)
	if err != nil {
		if err == io.EOF && len(line) > 0 {
			// Unterminated tail, e.g. from an interrupted insert.
			return line, nil
		}
		return nil, err
	}
	return line[:len(line)-1], nil
}

// Records returns the records of r as a sequence. Iteration ends at the
// first error, which is yielded with a nil record. io.EOF is not yielded.
func Records(r io.Reader) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		d := NewDecoder(r)
		for {
			rec, err := d.Next()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}
