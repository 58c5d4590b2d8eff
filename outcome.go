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

package slackfiles

import (
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize"
)

// Outcome is the result of the sync of a single file.
type Outcome uint8

const (
	Downloaded Outcome = iota
	Exists
	NotApproved
	NoChannel
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Downloaded:
		return "downloaded"
	case Exists:
		return "exists"
	case NotApproved:
		return "not approved"
	case NoChannel:
		return "no channel"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("Outcome(%d)", uint8(o))
	}
}

// ErrorKind is the stage at which the file sync failed.
type ErrorKind uint8

const (
	KindLookup ErrorKind = iota
	KindDownload
)

func (k ErrorKind) String() string {
	switch k {
	case KindLookup:
		return "lookup"
	case KindDownload:
		return "download"
	default:
		return fmt.Sprintf("ErrorKind(%d)", uint8(k))
	}
}

// FileError is the error of the sync of a single file.
type FileError struct {
	FileID  string
	Channel string
	User    string
	Kind    ErrorKind
	Err     error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("file %s: %s: %s", e.FileID, e.Kind, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// Result is the statistics of a sync pass.
type Result struct {
	Pages      int   // number of non-empty pages
	Files      int   // files considered
	Downloaded int   // files downloaded
	Existing   int   // files that were already present
	Skipped    int   // files not approved or without a channel
	Failed     int   // files that failed to sync
	Bytes      int64 // bytes written
	// Watermark is the new watermark.  It is zero if nothing was seen.
	Watermark int64
	Saved     bool  // watermark persisted
	SaveErr   error // watermark persistence error
}

func (r *Result) record(o Outcome, n int64) {
	r.Files++
	switch o {
	case Downloaded:
		r.Downloaded++
		r.Bytes += n
	case Exists:
		r.Existing++
	case NotApproved, NoChannel:
		r.Skipped++
	case Failed:
		r.Failed++
	}
}

// Attr returns the result as a log attribute group.
func (r *Result) Attr() slog.Attr {
	return slog.Group("result",
		slog.Int("pages", r.Pages),
		slog.Int("files", r.Files),
		slog.Int("downloaded", r.Downloaded),
		slog.Int("existing", r.Existing),
		slog.Int("skipped", r.Skipped),
		slog.Int("failed", r.Failed),
		slog.String("bytes", humanize.Bytes(uint64(r.Bytes))),
		slog.Int64("watermark", r.Watermark),
		slog.Bool("saved", r.Saved),
	)
}
