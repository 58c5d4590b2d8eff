// Copyright (c) 2021-2026 Rustam Gilyazov and Contributors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package osext

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rusq/fsadapter"
)

// MoveFile moves a file from src to dst on the filesystem fs.  If dst already
// exists, it will be overwritten.  The source is removed only after it was
// copied completely.
//
// Adopted solution from https://stackoverflow.com/questions/50740902/move-a-file-to-a-different-drive-with-go
func MoveFile(src string, fs fsadapter.FS, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("unable to open source file: %w", err)
	}

	out, err := fs.Create(dst)
	if err != nil {
		in.Close()
		return fmt.Errorf("unable to open destination file: %w", err)
	}

	_, err = io.Copy(out, in)
	in.Close()
	if err != nil {
		out.Close()
		return fmt.Errorf("error writing output: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("error closing output: %w", err)
	}

	if err := os.Remove(src); err != nil {
		return fmt.Errorf("failed removing source: %w", err)
	}
	return nil
}

// WriteFileAtomic writes data to a temporary file in the same directory as
// name, and then renames it to name, so that readers never observe a
// partially written file.
func WriteFileAtomic(name string, data []byte, perm os.FileMode) error {
	tf, err := os.CreateTemp(filepath.Dir(name), "."+filepath.Base(name)+".*")
	if err != nil {
		return err
	}
	tmpname := tf.Name()
	defer os.Remove(tmpname) // no-op after a successful rename

	if _, err := tf.Write(data); err != nil {
		tf.Close()
		return &Error{File: tmpname, Err: err}
	}
	if err := tf.Sync(); err != nil {
		tf.Close()
		return &Error{File: tmpname, Err: err}
	}
	if err := tf.Close(); err != nil {
		return &Error{File: tmpname, Err: err}
	}
	if err := os.Chmod(tmpname, perm); err != nil {
		return &Error{File: tmpname, Err: err}
	}
	return os.Rename(tmpname, name)
}
