package errors

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"testing"
)

func TestError(t *testing.T) {
	t.Run("IO", func(t *testing.T) {
		t.Run("nil cause", func(t *testing.T) {
			if err := IO("open", "/x", nil); err != nil {
				t.Errorf("IO(nil) = %v, want nil", err)
			}
		})

		t.Run("wraps cause", func(t *testing.T) {
			err := IO("open", "/x/docs.filedb", fs.ErrNotExist)
			if !stderrors.Is(err, fs.ErrNotExist) {
				t.Error("cause not reachable through errors.Is")
			}
			if !stderrors.Is(err, ErrIO) {
				t.Error("IO error does not match ErrIO")
			}
			if stderrors.Is(err, ErrDBFile) {
				t.Error("IO error matches ErrDBFile")
			}
			if got := err.Error(); !strings.Contains(got, "open /x/docs.filedb") {
				t.Errorf("Error() = %q, want op and path", got)
			}
		})

		t.Run("survives fmt wrapping", func(t *testing.T) {
			err := fmt.Errorf("outer: %w", IO("rename", "/a", os.ErrPermission))
			if KindOf(err) != KindIO {
				t.Errorf("KindOf = %q, want %q", KindOf(err), KindIO)
			}
			if !stderrors.Is(err, os.ErrPermission) {
				t.Error("permission cause lost")
			}
		})
	})

	t.Run("DBFile", func(t *testing.T) {
		err := DBFile("/etc/passwd")
		if !stderrors.Is(err, ErrDBFile) {
			t.Error("DBFile does not match ErrDBFile")
		}
		if got := err.Error(); got != "filedb: not a store path: /etc/passwd" {
			t.Errorf("Error() = %q", got)
		}
		if err.Unwrap() != nil {
			t.Error("DBFile should have no cause")
		}
	})

	t.Run("Record", func(t *testing.T) {
		err := Record("insert", "/a.filedb", "record contains LF")
		if !stderrors.Is(err, ErrRecord) {
			t.Error("Record does not match ErrRecord")
		}
		if KindOf(err) != KindRecord {
			t.Errorf("KindOf = %q", KindOf(err))
		}
	})

	t.Run("KindOf foreign error", func(t *testing.T) {
		if k := KindOf(stderrors.New("plain")); k != "" {
			t.Errorf("KindOf(plain) = %q, want empty", k)
		}
		if k := KindOf(nil); k != "" {
			t.Errorf("KindOf(nil) = %q, want empty", k)
		}
	})
}
