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

// Package downloader materializes Slack files on the local filesystem.
package downloader

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/trace"
	"strconv"
	"strings"

	"github.com/rusq/fsadapter"
	"github.com/rusq/slack"

	"github.com/rusq/slackfiles/internal/osext"
)

// chunkSize is the size of the write buffer for the downloaded content.
const chunkSize = 32 * 1024

// Downloader is the file downloader interface.  It exists primarily for
// mocking in tests.
type Downloader interface {
	// GetFileContext retrieves a given file from its private download URL.
	GetFileContext(ctx context.Context, downloadURL string, writer io.Writer) error
}

// Progress receives the downloaded bytes as they arrive.
type Progress interface {
	io.Writer
	Finish() error
}

// ProgressFunc returns a Progress for the file name of the given size.  The
// size is -1 if unknown.
type ProgressFunc func(name string, size int64) Progress

// Client is the instance of the downloader.
type Client struct {
	client   Downloader
	dir      string
	fs       fsadapter.FS
	lg       *slog.Logger
	progress ProgressFunc
}

// Option is the function signature for the option functions.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(lg *slog.Logger) Option {
	return func(c *Client) {
		if lg != nil {
			c.lg = lg
		}
	}
}

// WithProgress sets the progress function.  A nil function disables progress
// reporting.
func WithProgress(fn ProgressFunc) Option {
	return func(c *Client) {
		c.progress = fn
	}
}

// New initialises new file downloader that places files under dir.
func New(client Downloader, dir string, opts ...Option) *Client {
	if client == nil {
		panic("programming error:  client is nil")
	}
	c := &Client{
		client: client,
		dir:    dir,
		fs:     fsadapter.NewDirectory(dir),
		lg:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Filename returns the name of the local file for f:  "{timestamp}-{id}{ext}".
// The extension of the original file name is preserved as-is.
func Filename(f *slack.File) string {
	return strconv.FormatInt(int64(f.Timestamp), 10) + "-" + f.ID + ext(f.Name)
}

// Path returns the path of the local file for f, relative to the output root.
func Path(channel string, f *slack.File) string {
	return filepath.Join(channel, Filename(f))
}

// ext returns the extension of the name.  Leading dots are not treated as
// an extension separator, so ".bashrc" has no extension.
func ext(name string) string {
	base := strings.TrimLeft(filepath.Base(name), ".")
	if base == "" {
		return ""
	}
	return filepath.Ext(base)
}

// Exists reports whether the file at path, relative to the output root,
// exists.
func (c *Client) Exists(path string) (bool, error) {
	return osext.FileExists(filepath.Join(c.dir, path))
}

var ErrNoURL = errors.New("no download url")

// Materialize downloads the file at the url and places it at path, relative to
// the output root, creating the parent directory if necessary.  It returns the
// number of bytes written.  On error, nothing is left at path.
func (c *Client) Materialize(ctx context.Context, url string, path string) (int64, error) {
	return c.materialize(ctx, url, path, -1)
}

// MaterializeFile is Materialize for the slack file f.
func (c *Client) MaterializeFile(ctx context.Context, f *slack.File, path string) (int64, error) {
	return c.materialize(ctx, f.URLPrivateDownload, path, int64(f.Size))
}

func (c *Client) materialize(ctx context.Context, url string, path string, size int64) (int64, error) {
	ctx, task := trace.NewTask(ctx, "Materialize")
	defer task.End()

	if url == "" {
		return 0, ErrNoURL
	}

	tf, err := os.CreateTemp("", "slackfiles-*")
	if err != nil {
		return 0, err
	}
	tmpname := tf.Name()
	defer os.Remove(tmpname)

	n, err := c.fetch(ctx, tf, url, path, size)
	if cerr := tf.Close(); cerr != nil && err == nil {
		err = &osext.Error{File: tmpname, Err: cerr}
	}
	if err != nil {
		return 0, fmt.Errorf("download %q to %q failed: %w", url, path, err)
	}

	if err := osext.MoveFile(tmpname, c.fs, path); err != nil {
		// MoveFile may leave a partial destination behind.
		if rerr := os.Remove(filepath.Join(c.dir, path)); rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
			c.lg.WarnContext(ctx, "unable to remove partial file", "path", path, "error", rerr)
		}
		return 0, fmt.Errorf("unable to place %q: %w", path, err)
	}
	return n, nil
}

// fetch streams the file content into w.
func (c *Client) fetch(ctx context.Context, w io.Writer, url string, path string, size int64) (int64, error) {
	region := trace.StartRegion(ctx, "GetFileContext")
	defer region.End()

	bw := bufio.NewWriterSize(w, chunkSize)
	cw := &countWriter{w: bw}
	var dst io.Writer = cw
	if c.progress != nil {
		pb := c.progress(filepath.Base(path), size)
		defer func() {
			if err := pb.Finish(); err != nil {
				c.lg.DebugContext(ctx, "progress", "error", err)
			}
		}()
		dst = io.MultiWriter(cw, pb)
	}

	if err := c.client.GetFileContext(ctx, url, dst); err != nil {
		return 0, err
	}
	if err := bw.Flush(); err != nil {
		return 0, err
	}
	return cw.n, nil
}

type countWriter struct {
	w io.Writer
	n int64
}

func (cw *countWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}
