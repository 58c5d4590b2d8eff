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

package slacktest

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/rusq/slack"
)

// defCount is the default files.list page size.
const defCount = 100

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("slacktest: error encoding response: %s", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, slackErr string) {
	writeJSON(w, slack.SlackResponse{Ok: false, Error: slackErr})
}

func (s *Server) handleAuthTest(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"ok":      true,
		"url":     "https://test.slack.com/",
		"team":    "Test Team",
		"user":    "tester",
		"team_id": "T0TEST",
		"user_id": "U0TEST",
	})
}

type filesListResponse struct {
	slack.SlackResponse
	Files  []slack.File `json:"files"`
	Paging slack.Paging `json:"paging"`
}

func intValue(r *http.Request, key string, def int) int {
	v := r.FormValue(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func (s *Server) handleFilesList(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	page := max(intValue(r, "page", 1), 1)
	count := intValue(r, "count", defCount)
	if count <= 0 {
		count = defCount
	}
	tsFrom, hasFrom := int64(0), r.Form.Has("ts_from")
	if hasFrom {
		v, err := strconv.ParseInt(r.FormValue("ts_from"), 10, 64)
		if err != nil {
			writeError(w, "invalid_ts_from")
			return
		}
		tsFrom = v
	}

	s.mu.Lock()
	s.listReqs = append(s.listReqs, r.Form)
	status, hasStatus := s.pageStatus[page]
	slackErr, hasErr := s.pageErr[page]
	var matching []slack.File
	for _, f := range s.files {
		if hasFrom && int64(f.Timestamp) < tsFrom {
			continue
		}
		matching = append(matching, f)
	}
	s.mu.Unlock()

	if hasStatus {
		http.Error(w, http.StatusText(status), status)
		return
	}
	if hasErr {
		writeError(w, slackErr)
		return
	}

	total := len(matching)
	pages := (total + count - 1) / count
	lo := min((page-1)*count, total)
	hi := min(lo+count, total)
	writeJSON(w, filesListResponse{
		SlackResponse: slack.SlackResponse{Ok: true},
		Files:         append([]slack.File{}, matching[lo:hi]...),
		Paging: slack.Paging{
			Count: count,
			Total: total,
			Page:  page,
			Pages: pages,
		},
	})
}

func (s *Server) handleUsersInfo(w http.ResponseWriter, r *http.Request) {
	id := r.FormValue("user")
	s.mu.Lock()
	name, ok := s.users[id]
	slackErr, failed := s.lookupErr[id]
	s.mu.Unlock()
	if failed {
		writeError(w, slackErr)
		return
	}
	if !ok {
		writeError(w, "user_not_found")
		return
	}
	writeJSON(w, map[string]any{
		"ok":   true,
		"user": slack.User{ID: id, Name: name},
	})
}

func (s *Server) handleConversationsInfo(w http.ResponseWriter, r *http.Request) {
	id := r.FormValue("channel")
	s.mu.Lock()
	name, ok := s.convs[id]
	slackErr, failed := s.lookupErr[id]
	s.mu.Unlock()
	if failed {
		writeError(w, slackErr)
		return
	}
	if !ok {
		writeError(w, "channel_not_found")
		return
	}
	var ch slack.Channel
	ch.ID = id
	ch.Name = name
	ch.IsPrivate = strings.HasPrefix(id, "G")
	writeJSON(w, map[string]any{
		"ok":      true,
		"channel": ch,
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if requestToken(r) != s.Token() {
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/download/")
	s.mu.Lock()
	content, ok := s.content[id]
	status, failed := s.downloadStatus[id]
	s.mu.Unlock()
	if failed {
		http.Error(w, http.StatusText(status), status)
		return
	}
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	io.WriteString(w, content)
}
