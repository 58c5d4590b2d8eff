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
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/rusq/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/rusq/slackfiles/auth"
	"github.com/rusq/slackfiles/internal/cache"
	"github.com/rusq/slackfiles/internal/client"
	"github.com/rusq/slackfiles/internal/client/mock_client"
	"github.com/rusq/slackfiles/internal/osext"
	"github.com/rusq/slackfiles/internal/slacktest"
	"github.com/rusq/slackfiles/internal/watermark"
)

type testEnv struct {
	srv    *slacktest.Server
	outDir string
	wmFile string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	srv := slacktest.NewServer()
	t.Cleanup(srv.Close)
	dir := t.TempDir()
	return &testEnv{
		srv:    srv,
		outDir: filepath.Join(dir, "data"),
		wmFile: filepath.Join(dir, "offset.txt"),
	}
}

func (e *testEnv) session(t *testing.T, opts ...Option) *Session {
	t.Helper()
	prov, err := auth.NewValueAuth(slacktest.DefToken)
	require.NoError(t, err)
	base := []Option{
		WithSlackClient(client.Wrap(e.srv.Client())),
		WithOutputDir(e.outDir),
		WithWatermarkFile(e.wmFile),
	}
	s, err := New(t.Context(), prov, append(base, opts...)...)
	require.NoError(t, err)
	return s
}

func (e *testEnv) watermark(t *testing.T) (int64, bool) {
	t.Helper()
	wm, err := watermark.New(e.wmFile)
	require.NoError(t, err)
	return wm.Load()
}

func (e *testEnv) read(t *testing.T, elem ...string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(append([]string{e.outDir}, elem...)...))
	require.NoError(t, err)
	return string(data)
}

func (e *testEnv) exists(elem ...string) bool {
	_, err := os.Stat(filepath.Join(append([]string{e.outDir}, elem...)...))
	return err == nil
}

func file(id string, ts int64, user string, channel string, name string) slack.File {
	f := slack.File{ID: id, Name: name, Timestamp: slack.JSONTime(ts), User: user}
	if channel != "" {
		f.Channels = []string{channel}
	}
	return f
}

func TestSession_Sync(t *testing.T) {
	e := newTestEnv(t)
	e.srv.AddUser("U1", "alice")
	e.srv.AddConversation("C1", "eng")
	e.srv.AddFile(file("F1", 100, "U1", "C1", "a.txt"), "first")
	e.srv.AddFile(file("F2", 200, "U1", "C1", "report.PDF"), "second")

	s := e.session(t)
	res, err := s.Sync(t.Context())
	require.NoError(t, err)

	assert.Equal(t, 2, res.Downloaded)
	assert.Equal(t, int64(len("first")+len("second")), res.Bytes)
	assert.Equal(t, int64(201), res.Watermark)
	assert.True(t, res.Saved)

	assert.Equal(t, "first", e.read(t, "eng", "100-F1.txt"))
	assert.Equal(t, "second", e.read(t, "eng", "200-F2.PDF"))

	wm, ok := e.watermark(t)
	assert.True(t, ok)
	assert.Equal(t, int64(201), wm)

	// watermark was absent, so no ts_from.
	reqs := e.srv.ListRequests()
	require.Len(t, reqs, 2)
	assert.False(t, reqs[0].Has("ts_from"))
	assert.Equal(t, 1, e.srv.Calls("users.info"), "user lookups must be cached")
	assert.Equal(t, 1, e.srv.Calls("conversations.info"), "channel lookups must be cached")
}

func TestSession_Sync_Idempotent(t *testing.T) {
	e := newTestEnv(t)
	e.srv.AddUser("U1", "alice")
	e.srv.AddConversation("C1", "eng")
	e.srv.AddFile(file("F1", 100, "U1", "C1", "a.txt"), "first")
	e.srv.AddFile(file("F2", 200, "U1", "C1", "b.txt"), "second")

	_, err := e.session(t).Sync(t.Context())
	require.NoError(t, err)
	e.srv.Reset()

	t.Run("second run lists from the watermark", func(t *testing.T) {
		res, err := e.session(t).Sync(t.Context())
		require.NoError(t, err)
		assert.Equal(t, 0, res.Files)
		assert.False(t, res.Saved)

		reqs := e.srv.ListRequests()
		require.NotEmpty(t, reqs)
		assert.Equal(t, "201", reqs[0].Get("ts_from"))
		assert.Equal(t, 0, e.srv.Calls("download"))

		wm, ok := e.watermark(t)
		assert.True(t, ok)
		assert.Equal(t, int64(201), wm)
	})
	t.Run("lost watermark does not redownload", func(t *testing.T) {
		e.srv.Reset()
		require.NoError(t, os.Remove(e.wmFile))

		res, err := e.session(t).Sync(t.Context())
		require.NoError(t, err)
		assert.Equal(t, 2, res.Existing)
		assert.Equal(t, 0, res.Downloaded)
		assert.Equal(t, 0, e.srv.Calls("download"))

		wm, ok := e.watermark(t)
		assert.True(t, ok)
		assert.Equal(t, int64(201), wm)
	})
	t.Run("new file after the watermark", func(t *testing.T) {
		e.srv.Reset()
		e.srv.AddFile(file("F3", 300, "U1", "C1", "c.txt"), "third")

		res, err := e.session(t).Sync(t.Context())
		require.NoError(t, err)
		assert.Equal(t, 1, res.Files)
		assert.Equal(t, 1, res.Downloaded)
		assert.Equal(t, int64(301), res.Watermark)
		assert.Equal(t, "third", e.read(t, "eng", "300-F3.txt"))
	})
}

func TestSession_Sync_ApprovedChannels(t *testing.T) {
	e := newTestEnv(t)
	e.srv.AddUser("U1", "alice")
	e.srv.AddConversation("C1", "general")
	e.srv.AddConversation("C2", "random")
	e.srv.AddFile(file("F1", 100, "U1", "C1", "a.txt"), "general")
	e.srv.AddFile(file("F2", 200, "U1", "C2", "b.txt"), "random")

	res, err := e.session(t, WithApprovedChannels("general")).Sync(t.Context())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Downloaded)
	assert.Equal(t, 1, res.Skipped)
	assert.True(t, e.exists("general", "100-F1.txt"))
	assert.False(t, e.exists("random"))
	// skipped files still advance the watermark.
	assert.Equal(t, int64(201), res.Watermark)
}

func TestSession_Sync_Pagination(t *testing.T) {
	e := newTestEnv(t)
	e.srv.AddUser("U1", "alice")
	e.srv.AddConversation("C1", "eng")
	const numFiles = 250 // default page size is 100
	for i := range numFiles {
		e.srv.AddFile(file(fmt.Sprintf("F%03d", i), int64(1000+i), "U1", "C1", "x.bin"), "x")
	}

	res, err := e.session(t).Sync(t.Context())
	require.NoError(t, err)
	assert.Equal(t, numFiles, res.Downloaded)
	assert.Equal(t, 3, res.Pages)
	assert.Equal(t, int64(1000+numFiles), res.Watermark)

	reqs := e.srv.ListRequests()
	require.Len(t, reqs, 4, "must stop right after the empty page")
	assert.Equal(t, "", reqs[0].Get("page"))
	assert.Equal(t, "4", reqs[3].Get("page"))
}

func TestSession_Sync_APIErrors(t *testing.T) {
	setup := func(t *testing.T) *testEnv {
		e := newTestEnv(t)
		e.srv.AddUser("U1", "alice")
		e.srv.AddConversation("C1", "eng")
		for i := range 150 {
			e.srv.AddFile(file(fmt.Sprintf("F%03d", i), int64(1000+i), "U1", "C1", "x.bin"), "x")
		}
		return e
	}
	t.Run("bad page is skipped", func(t *testing.T) {
		e := setup(t)
		e.srv.FailPage(1, "internal_error")

		res, err := e.session(t).Sync(t.Context())
		require.NoError(t, err)
		assert.Equal(t, 50, res.Downloaded)
		assert.Equal(t, int64(1150), res.Watermark)
		assert.Len(t, e.srv.ListRequests(), 3)
	})
	t.Run("too many consecutive errors", func(t *testing.T) {
		e := setup(t)
		e.srv.FailPage(1, "internal_error")
		e.srv.FailPage(2, "internal_error")
		e.srv.FailPage(3, "internal_error")

		_, err := e.session(t).Sync(t.Context())
		require.ErrorIs(t, err, ErrListing)
		_, ok := e.watermark(t)
		assert.False(t, ok)
	})
}

func TestSession_Sync_FatalListing(t *testing.T) {
	t.Run("first page", func(t *testing.T) {
		e := newTestEnv(t)
		e.srv.FailPageStatus(1, http.StatusInternalServerError)

		_, err := e.session(t).Sync(t.Context())
		require.ErrorIs(t, err, ErrListing)
		var sce slack.StatusCodeError
		assert.ErrorAs(t, err, &sce)
	})
	t.Run("second page", func(t *testing.T) {
		e := newTestEnv(t)
		e.srv.AddUser("U1", "alice")
		e.srv.AddConversation("C1", "eng")
		e.srv.AddFile(file("F1", 100, "U1", "C1", "a.txt"), "first")
		e.srv.FailPageStatus(2, http.StatusInternalServerError)

		res, err := e.session(t).Sync(t.Context())
		require.ErrorIs(t, err, ErrListing)
		assert.Equal(t, 1, res.Downloaded)
		assert.False(t, res.Saved)
		_, ok := e.watermark(t)
		assert.False(t, ok, "incomplete pass must not persist the watermark")
	})
	t.Run("cancelled", func(t *testing.T) {
		e := newTestEnv(t)
		s := e.session(t)
		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		_, err := s.Sync(ctx)
		require.ErrorIs(t, err, ErrListing)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestSession_Sync_FileErrors(t *testing.T) {
	t.Run("lookup failure skips one file", func(t *testing.T) {
		e := newTestEnv(t)
		e.srv.AddUser("U1", "alice")
		e.srv.AddConversation("C1", "eng")
		e.srv.AddFile(file("F1", 100, "U1", "C1", "a.txt"), "first")
		e.srv.AddFile(file("F2", 300, "U2", "C1", "b.txt"), "second") // U2 unknown

		res, err := e.session(t).Sync(t.Context())
		require.NoError(t, err)
		assert.Equal(t, 1, res.Downloaded)
		assert.Equal(t, 1, res.Failed)
		assert.Equal(t, int64(301), res.Watermark, "failed files advance the watermark")
	})
	t.Run("channel lookup failure", func(t *testing.T) {
		e := newTestEnv(t)
		e.srv.AddUser("U1", "alice")
		e.srv.AddConversation("C1", "eng")
		e.srv.FailLookup("C1", "channel_not_found")

		s := e.session(t)
		rs := cache.NewResolver(s.client)
		f := file("F1", 100, "U1", "C1", "a.txt")
		o, _, err := s.syncFile(t.Context(), rs, &f)
		assert.Equal(t, Failed, o)
		var fe *FileError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, KindLookup, fe.Kind)
		assert.Equal(t, "alice", fe.User)
	})
	t.Run("download failure", func(t *testing.T) {
		e := newTestEnv(t)
		e.srv.AddUser("U1", "alice")
		e.srv.AddConversation("C1", "eng")
		e.srv.AddFile(file("F1", 100, "U1", "C1", "a.txt"), "first")
		e.srv.AddFile(file("F2", 200, "U1", "C1", "b.txt"), "second")
		e.srv.FailDownload("F2", http.StatusInternalServerError)

		res, err := e.session(t).Sync(t.Context())
		require.NoError(t, err)
		assert.Equal(t, 1, res.Downloaded)
		assert.Equal(t, 1, res.Failed)
		assert.True(t, res.Saved)
		assert.Equal(t, int64(201), res.Watermark)
		assert.False(t, e.exists("eng", "200-F2.txt"))
		wm, ok := e.watermark(t)
		require.True(t, ok)
		assert.Equal(t, int64(201), wm)

		// the failed file is past the watermark now
		e.srv.Reset()
		res, err = e.session(t).Sync(t.Context())
		require.NoError(t, err)
		assert.Zero(t, res.Downloaded)
		assert.False(t, e.exists("eng", "200-F2.txt"))

		// unless the watermark is removed
		require.NoError(t, os.Remove(e.wmFile))
		res, err = e.session(t).Sync(t.Context())
		require.NoError(t, err)
		assert.Equal(t, 1, res.Downloaded)
		assert.Equal(t, 1, res.Existing)
		assert.Equal(t, "second", e.read(t, "eng", "200-F2.txt"))
	})
}

func TestSession_Sync_Placement(t *testing.T) {
	e := newTestEnv(t)
	e.srv.AddUser("U1", "alice")
	e.srv.AddConversation("C1", "eng")
	e.srv.AddConversation("G1", "secret")

	dup := file("F1", 100, "U1", "C1", "a.txt")
	e.srv.AddFile(dup, "first")
	e.srv.AddFile(dup, "first")
	grp := file("F2", 150, "U1", "", "g.txt")
	grp.Groups = []string{"G1"}
	e.srv.AddFile(grp, "group")
	both := file("F3", 160, "U1", "C1", "both.txt")
	both.Groups = []string{"G1"}
	e.srv.AddFile(both, "both")
	e.srv.AddFile(file("F4", 400, "U1", "", "dm.txt"), "dm")

	res, err := e.session(t).Sync(t.Context())
	require.NoError(t, err)

	assert.Equal(t, 3, res.Downloaded)
	assert.Equal(t, 1, res.Existing, "duplicate is materialised once")
	assert.Equal(t, 1, res.Skipped, "file without channel")
	assert.Equal(t, 3, e.srv.Calls("download"))

	assert.Equal(t, "group", e.read(t, "secret", "150-F2.txt"))
	assert.Equal(t, "both", e.read(t, "eng", "160-F3.txt"))
	assert.Equal(t, int64(401), res.Watermark)
}

type fakeStore struct {
	loaded  int64
	has     bool
	saved   []int64
	saveErr error
}

func (s *fakeStore) Load() (int64, bool) { return s.loaded, s.has }

func (s *fakeStore) Save(ts int64) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, ts)
	return nil
}

func TestSession_Sync_SaveError(t *testing.T) {
	e := newTestEnv(t)
	e.srv.AddUser("U1", "alice")
	e.srv.AddConversation("C1", "eng")
	e.srv.AddFile(file("F1", 100, "U1", "C1", "a.txt"), "first")

	errDisk := errors.New("disk full")
	st := &fakeStore{saveErr: errDisk}
	res, err := e.session(t, WithWatermarkStore(st)).Sync(t.Context())
	require.NoError(t, err, "save failure does not fail the pass")
	assert.False(t, res.Saved)
	assert.ErrorIs(t, res.SaveErr, errDisk)
	assert.Equal(t, 1, res.Downloaded)
}

func TestSession_Sync_MonotonicWatermark(t *testing.T) {
	ctrl := gomock.NewController(t)
	ms := mock_client.NewMockSlack(ctrl)
	ms.EXPECT().AuthTestContext(gomock.Any()).Return(&slack.AuthTestResponse{UserID: "U0"}, nil)
	// a misbehaving server returns a file older than the watermark.
	ms.EXPECT().GetFilesContext(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, p slack.GetFilesParameters) ([]slack.File, *slack.Paging, error) {
			assert.Equal(t, slack.JSONTime(1000), p.TimestampFrom)
			if p.Page == 1 {
				return []slack.File{file("F1", 100, "U1", "C1", "a.txt")}, &slack.Paging{Page: 1, Pages: 1}, nil
			}
			return nil, &slack.Paging{Page: p.Page, Pages: 1}, nil
		}).Times(2)
	ms.EXPECT().GetUserInfoContext(gomock.Any(), "U1").Return(&slack.User{ID: "U1", Name: "alice"}, nil)
	ms.EXPECT().GetConversationInfoContext(gomock.Any(), gomock.Any()).Return(chanNamed("eng"), nil)
	ms.EXPECT().GetFileContext(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	st := &fakeStore{loaded: 1000, has: true}
	prov, err := auth.NewValueAuth("xoxb-test")
	require.NoError(t, err)
	s, err := New(t.Context(), prov, WithSlackClient(ms), WithWatermarkStore(st), WithOutputDir(t.TempDir()))
	require.NoError(t, err)

	res, err := s.Sync(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []int64{1000}, st.saved)
	assert.Equal(t, int64(1000), res.Watermark)
}

func TestNew_AuthError(t *testing.T) {
	ctrl := gomock.NewController(t)
	ms := mock_client.NewMockSlack(ctrl)
	ms.EXPECT().AuthTestContext(gomock.Any()).Return(nil, slack.SlackErrorResponse{Err: "invalid_auth"})

	prov, err := auth.NewValueAuth("xoxb-test")
	require.NoError(t, err)
	_, err = New(t.Context(), prov, WithSlackClient(ms), WithOutputDir(t.TempDir()), WithWatermarkStore(&fakeStore{}))
	var ae *auth.Error
	require.ErrorAs(t, err, &ae)
	assert.True(t, auth.IsInvalidAuthErr(err))
}

func TestNew_OutputIsAFile(t *testing.T) {
	e := newTestEnv(t)
	out := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(out, nil, 0o600))

	prov, err := auth.NewValueAuth(slacktest.DefToken)
	require.NoError(t, err)
	_, err = New(t.Context(), prov, WithSlackClient(client.Wrap(e.srv.Client())), WithOutputDir(out), WithWatermarkFile(e.wmFile))
	assert.ErrorIs(t, err, osext.ErrNotADir)
}

func chanNamed(name string) *slack.Channel {
	var ch slack.Channel
	ch.Name = name
	return &ch
}
