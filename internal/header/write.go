package header

import (
	"fmt"
	"os"
	"path/filepath"

	"plcabi/internal/diag"
)

// WriteError reports a failed artifact write. The previous artifact, if any,
// is left untouched.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string   { return fmt.Sprintf("write %s: %v", e.Path, e.Err) }
func (e *WriteError) Unwrap() error   { return e.Err }
func (e *WriteError) Code() diag.Code { return diag.HeaderWrite }
func (e *WriteError) Subject() string { return e.Path }

// WriteAtomic replaces path with data. The data goes to a temporary file in
// the same directory which is then renamed over path, so readers see either
// the old or the new artifact in full.
func WriteAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	if _, err = f.Write(data); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	if err = f.Sync(); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	if err = f.Close(); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	if err = os.Chmod(tmp, 0o644); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	if err = os.Rename(tmp, path); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	return nil
}
