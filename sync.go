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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/trace"

	"github.com/google/uuid"
	"github.com/rusq/slack"

	"github.com/rusq/slackfiles/downloader"
	"github.com/rusq/slackfiles/internal/cache"
)

var errNoChannel = errors.New("file is not shared in any channel or group")

// Sync runs a single sync pass.  It lists all files newer than the persisted
// watermark, and places each one of them into the directory of its channel,
// unless it is already there.  Errors on individual files are logged, and do
// not stop the pass.  The watermark is persisted only if the listing
// completes, in which case the returned error is nil.  Every listed file
// advances the watermark, including the ones that failed.  A page answered
// with ok:false is skipped, but maxAPIErrors (3) consecutive ones abort the
// pass with ErrListing.
func (s *Session) Sync(ctx context.Context) (Result, error) {
	ctx, task := trace.NewTask(ctx, "Sync")
	defer task.End()

	lg := s.lg.With("run_id", uuid.NewString())

	var res Result
	loaded, hasWM := s.wm.Load()
	var since *int64
	if hasWM {
		since = &loaded
		lg.InfoContext(ctx, "resuming sync", "watermark", loaded)
	} else {
		lg.InfoContext(ctx, "no watermark, full sync")
	}

	rs := cache.NewResolver(s.client, cache.WithLogger(lg), cache.WithDebug(s.cfg.apiDebug))

	var (
		runningMax int64
		seen       bool
		apiErrs    int
	)
	for page := 1; ; page++ {
		files, hasMore, err := listPage(ctx, s.client, page, since)
		if err != nil {
			if !isAPIError(err) {
				return res, err
			}
			apiErrs++
			lg.WarnContext(ctx, "API error, skipping page", "page", page, "error", err, "consecutive", apiErrs)
			if apiErrs >= s.cfg.maxAPIErrors {
				return res, fmt.Errorf("%w: %d consecutive API errors: %w", ErrListing, apiErrs, err)
			}
			continue
		}
		apiErrs = 0
		if len(files) == 0 {
			lg.DebugContext(ctx, "empty page, done", "page", page)
			break
		}
		res.Pages++
		lg.DebugContext(ctx, "got page", "page", page, "files", len(files), "has_more", hasMore)

		for i := range files {
			if err := ctx.Err(); err != nil {
				return res, fmt.Errorf("sync interrupted: %w", err)
			}
			f := &files[i]
			outcome, n, err := s.syncFile(ctx, rs, f)
			res.record(outcome, n)
			logOutcome(ctx, lg, f, outcome, n, err)
			if ts := int64(f.Timestamp); !seen || ts > runningMax {
				runningMax = ts
				seen = true
			}
		}
	}

	if !seen {
		lg.InfoContext(ctx, "nothing new", res.Attr())
		return res, nil
	}
	next := runningMax + 1
	if hasWM && loaded > next {
		next = loaded
	}
	res.Watermark = next
	if err := s.wm.Save(next); err != nil {
		res.SaveErr = err
		lg.ErrorContext(ctx, "unable to save the watermark", "watermark", next, "error", err)
	} else {
		res.Saved = true
	}
	lg.InfoContext(ctx, "sync complete", res.Attr())
	return res, nil
}

func logOutcome(ctx context.Context, lg *slog.Logger, f *slack.File, o Outcome, n int64, err error) {
	attrs := []any{"file_id", f.ID, "name", f.Name, "outcome", o}
	switch o {
	case Failed:
		var fe *FileError
		if errors.As(err, &fe) {
			attrs = append(attrs, "channel", fe.Channel, "user", fe.User, "kind", fe.Kind)
		}
		lg.ErrorContext(ctx, "file sync failed", append(attrs, "error", err)...)
	case Downloaded:
		lg.InfoContext(ctx, "file downloaded", append(attrs, "bytes", n)...)
	default:
		lg.DebugContext(ctx, "file skipped", attrs...)
	}
}

// syncFile places the file f into the directory of its channel.
func (s *Session) syncFile(ctx context.Context, rs *cache.Resolver, f *slack.File) (Outcome, int64, error) {
	user, err := rs.User(ctx, f.User)
	if err != nil {
		return Failed, 0, &FileError{FileID: f.ID, Kind: KindLookup, Err: err}
	}
	channel, err := channelName(ctx, rs, f)
	if err != nil {
		if errors.Is(err, errNoChannel) {
			return NoChannel, 0, nil
		}
		return Failed, 0, &FileError{FileID: f.ID, User: user, Kind: KindLookup, Err: err}
	}
	if !s.cfg.isApproved(channel) {
		return NotApproved, 0, nil
	}

	path := downloader.Path(channel, f)
	exists, err := s.dl.Exists(path)
	if err != nil {
		return Failed, 0, &FileError{FileID: f.ID, Channel: channel, User: user, Kind: KindDownload, Err: err}
	}
	if exists {
		return Exists, 0, nil
	}
	n, err := s.dl.MaterializeFile(ctx, f, path)
	if err != nil {
		return Failed, 0, &FileError{FileID: f.ID, Channel: channel, User: user, Kind: KindDownload, Err: err}
	}
	return Downloaded, n, nil
}

// channelName returns the name of the channel the file belongs to.  Public
// channels take precedence over groups.
func channelName(ctx context.Context, rs *cache.Resolver, f *slack.File) (string, error) {
	if len(f.Channels) > 0 {
		return rs.Channel(ctx, f.Channels[0])
	}
	if len(f.Groups) > 0 {
		return rs.Group(ctx, f.Groups[0])
	}
	return "", errNoChannel
}
