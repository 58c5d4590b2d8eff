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

// Package slackfiles incrementally mirrors the files of a Slack workspace to
// the local disk, placing them into per-channel directories.
package slackfiles

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"runtime/trace"

	"github.com/rusq/slack"

	"github.com/rusq/slackfiles/auth"
	"github.com/rusq/slackfiles/downloader"
	"github.com/rusq/slackfiles/internal/client"
	"github.com/rusq/slackfiles/internal/osext"
	"github.com/rusq/slackfiles/internal/watermark"
)

// Session stores basic session parameters.  Zero value is not usable, must be
// initialised with New.
type Session struct {
	client client.Slack
	dl     *downloader.Client
	wm     WatermarkStore
	lg     *slog.Logger

	wspInfo *WorkspaceInfo

	cfg config
}

// WorkspaceInfo is an type alias for [slack.AuthTestResponse].
type WorkspaceInfo = slack.AuthTestResponse

// WatermarkStore persists the sync boundary between runs.
type WatermarkStore interface {
	Load() (int64, bool)
	Save(int64) error
}

// Option is the signature of the option-setting function.
type Option func(*Session)

// WithSlackClient sets the Slack client to use for the session.  If this
// option is not given, the client is created from the auth provider.
func WithSlackClient(cl client.Slack) Option {
	return func(s *Session) {
		if cl != nil {
			s.client = cl
		}
	}
}

// WithOutputDir sets the output root.  If not set, the "data" directory next
// to the executable is used.
func WithOutputDir(dir string) Option {
	return func(s *Session) {
		s.cfg.outputDir = dir
	}
}

// WithApprovedChannels restricts the sync to the channels with the given
// names.  An empty list allows all channels.
func WithApprovedChannels(names ...string) Option {
	return func(s *Session) {
		s.cfg.approved = make(map[string]struct{}, len(names))
		for _, n := range names {
			if n != "" {
				s.cfg.approved[n] = struct{}{}
			}
		}
	}
}

// WithWatermarkFile sets the watermark file.  If not set, the offset.txt next
// to the executable is used.
func WithWatermarkFile(filename string) Option {
	return func(s *Session) {
		s.cfg.watermarkFile = filename
	}
}

// WithWatermarkStore sets the watermark store, overriding WithWatermarkFile.
func WithWatermarkStore(wm WatermarkStore) Option {
	return func(s *Session) {
		if wm != nil {
			s.wm = wm
		}
	}
}

// WithLogger sets the logger to use for the session.  If not given,
// slog.Default() is used.
func WithLogger(lg *slog.Logger) Option {
	return func(s *Session) {
		if lg != nil {
			s.lg = lg
		}
	}
}

// WithAPIDebug enables the debug output of the API calls and the name cache.
func WithAPIDebug(b bool) Option {
	return func(s *Session) {
		s.cfg.apiDebug = b
	}
}

// WithProgress sets the download progress function.
func WithProgress(fn downloader.ProgressFunc) Option {
	return func(s *Session) {
		s.cfg.progress = fn
	}
}

// New creates new session with provided options.  It runs the auth test, and
// if it fails, *auth.Error is returned.
func New(ctx context.Context, prov auth.Provider, opts ...Option) (*Session, error) {
	ctx, task := trace.NewTask(ctx, "New")
	defer task.End()

	if err := prov.Validate(); err != nil {
		return nil, fmt.Errorf("auth provider validation error: %w", err)
	}

	s := &Session{
		cfg: defConfig,
		lg:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.cfg.resolveDefaults(); err != nil {
		return nil, err
	}
	// a missing output directory is created on the first download.
	if err := osext.DirExists(s.cfg.outputDir); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("output directory %s: %w", s.cfg.outputDir, err)
	}

	if s.client == nil {
		var copts []client.Option
		if s.cfg.apiDebug {
			copts = append(copts, client.WithDebug(s.lg))
		}
		cl, err := client.New(ctx, prov, copts...)
		if err != nil {
			return nil, &auth.Error{Err: err}
		}
		s.client = cl
	}
	wi, err := s.client.AuthTestContext(ctx)
	if err != nil {
		return nil, &auth.Error{Err: err}
	}
	s.wspInfo = wi

	if s.wm == nil {
		wm, err := watermark.New(s.cfg.watermarkFile, watermark.WithLogger(s.lg))
		if err != nil {
			return nil, err
		}
		s.wm = wm
	}
	s.dl = downloader.New(s.client, s.cfg.outputDir, downloader.WithLogger(s.lg), downloader.WithProgress(s.cfg.progress))

	return s, nil
}

// Info returns the workspace information captured during the auth test.
func (s *Session) Info() *WorkspaceInfo {
	return s.wspInfo
}

// OutputDir returns the output root.
func (s *Session) OutputDir() string {
	return s.cfg.outputDir
}

// ErrListing is returned when the file listing fails and the pass can not
// be completed.
var ErrListing = errors.New("file listing failed")
