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

// Package slacktest provides a fake Slack Web API server for tests.  It
// serves auth.test, files.list, users.info, conversations.info and private
// file downloads from in-memory data.
package slacktest

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"

	"github.com/rusq/slack"
)

// DefToken is the token that the server accepts, unless changed.
const DefToken = "xoxb-slacktest"

// Server is the fake Slack API server.
type Server struct {
	*httptest.Server

	mu    sync.Mutex
	token string

	files   []slack.File
	content map[string]string
	users   map[string]string
	convs   map[string]string

	pageErr        map[int]string
	pageStatus     map[int]int
	lookupErr      map[string]string
	downloadStatus map[string]int

	calls    map[string]int
	listReqs []url.Values
}

// NewServer starts and returns a new Server.  Caller must call Close when
// finished.
func NewServer() *Server {
	s := &Server{
		token:          DefToken,
		content:        make(map[string]string),
		users:          make(map[string]string),
		convs:          make(map[string]string),
		pageErr:        make(map[int]string),
		pageStatus:     make(map[int]int),
		lookupErr:      make(map[string]string),
		downloadStatus: make(map[string]int),
		calls:          make(map[string]int),
	}
	s.Server = httptest.NewServer(s.router())
	return s
}

// URL returns the API URL to be used with slack.OptionAPIURL.
func (s *Server) URL() string {
	return s.Server.URL + "/api/"
}

// Token returns the accepted token.
func (s *Server) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// SetToken sets the accepted token.
func (s *Server) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// Client returns a slack client configured to talk to this server.
func (s *Server) Client(opts ...slack.Option) *slack.Client {
	return slack.New(s.Token(), append([]slack.Option{slack.OptionAPIURL(s.URL())}, opts...)...)
}

// AddFile adds the file with the given content to the listing.  The private
// download URL of the file is set to point to this server.  Files are listed
// in the order they were added.
func (s *Server) AddFile(f slack.File, content string) slack.File {
	s.mu.Lock()
	defer s.mu.Unlock()
	f.URLPrivateDownload = s.Server.URL + "/download/" + url.PathEscape(f.ID)
	f.Size = len(content)
	s.files = append(s.files, f)
	s.content[f.ID] = content
	return f
}

// AddUser registers the user.
func (s *Server) AddUser(id, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id] = name
}

// AddConversation registers the channel or group.
func (s *Server) AddConversation(id, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.convs[id] = name
}

// FailPage makes the files.list page return ok:false with the slack error.
func (s *Server) FailPage(page int, slackErr string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pageErr[page] = slackErr
}

// FailPageStatus makes the files.list page respond with the HTTP status.
func (s *Server) FailPageStatus(page int, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pageStatus[page] = status
}

// FailLookup makes users.info or conversations.info for the id return
// ok:false with the slack error.
func (s *Server) FailLookup(id string, slackErr string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookupErr[id] = slackErr
}

// FailDownload makes the download of the file respond with the HTTP status.
func (s *Server) FailDownload(fileID string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.downloadStatus[fileID] = status
}

// Reset clears the failures and the counters, leaving the data intact.
func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.pageErr)
	clear(s.pageStatus)
	clear(s.lookupErr)
	clear(s.downloadStatus)
	clear(s.calls)
	s.listReqs = nil
}

// Calls returns the number of calls to the method, i.e. "files.list", or
// "download".
func (s *Server) Calls(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

// ListRequests returns the form values of all files.list requests.
func (s *Server) ListRequests() []url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	ret := make([]url.Values, len(s.listReqs))
	copy(ret, s.listReqs)
	return ret
}

func (s *Server) router() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/auth.test", s.counted("auth.test", s.authorised(s.handleAuthTest)))
	mux.Handle("/api/files.list", s.counted("files.list", s.authorised(s.handleFilesList)))
	mux.Handle("/api/users.info", s.counted("users.info", s.authorised(s.handleUsersInfo)))
	mux.Handle("/api/conversations.info", s.counted("conversations.info", s.authorised(s.handleConversationsInfo)))
	mux.Handle("/download/", s.counted("download", http.HandlerFunc(s.handleDownload)))
	return mux
}

func (s *Server) counted(method string, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[method]++
		s.mu.Unlock()
		h.ServeHTTP(w, r)
	})
}

// requestToken returns the token from the Authorization header or the form.
func requestToken(r *http.Request) string {
	if tok, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return tok
	}
	return r.FormValue("token")
}

// authorised responds with invalid_auth if the token does not match.
func (s *Server) authorised(h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requestToken(r) != s.Token() {
			writeError(w, "invalid_auth")
			return
		}
		h(w, r)
	})
}
