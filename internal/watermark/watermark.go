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

// Package watermark persists the timestamp boundary of the last complete
// sync pass.
package watermark

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rusq/slackfiles/internal/osext"
)

// DefFilename is the default name of the watermark file.
const DefFilename = "offset.txt"

var ErrNegative = errors.New("negative watermark")

// Store is a file-backed watermark.
type Store struct {
	filename string
	lg       *slog.Logger
}

type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(lg *slog.Logger) Option {
	return func(s *Store) {
		if lg != nil {
			s.lg = lg
		}
	}
}

// New returns a Store backed by filename.  If filename is empty, the
// DefaultPath is used.
func New(filename string, opts ...Option) (*Store, error) {
	if filename == "" {
		var err error
		filename, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	s := &Store{filename: filename, lg: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// DefaultPath returns the path of the watermark file in the directory of the
// running executable.
func DefaultPath() (string, error) {
	dir, err := osext.ExecDir()
	if err != nil {
		return "", fmt.Errorf("watermark: %w", err)
	}
	return filepath.Join(dir, DefFilename), nil
}

// Filename returns the path of the watermark file.
func (s *Store) Filename() string {
	return s.filename
}

// Load returns the persisted watermark.  It returns false if the file does
// not exist, or if its contents can not be parsed.
func (s *Store) Load() (int64, bool) {
	data, err := os.ReadFile(s.filename)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.lg.Warn("unable to read watermark, starting from scratch", "file", s.filename, "error", err)
		}
		return 0, false
	}
	ts, err := parse(data)
	if err != nil {
		s.lg.Warn("corrupt watermark, starting from scratch", "file", s.filename, "error", err)
		return 0, false
	}
	return ts, true
}

func parse(data []byte) (int64, error) {
	ts, err := strconv.ParseInt(string(bytes.TrimSpace(data)), 10, 64)
	if err != nil {
		return 0, err
	}
	if ts < 0 {
		return 0, ErrNegative
	}
	return ts, nil
}

// Save replaces the persisted watermark with ts.
func (s *Store) Save(ts int64) error {
	if ts < 0 {
		return ErrNegative
	}
	data := strconv.AppendInt(nil, ts, 10)
	data = append(data, '\n')
	if err := osext.WriteFileAtomic(s.filename, data, 0o644); err != nil {
		return fmt.Errorf("watermark: %w", err)
	}
	return nil
}
