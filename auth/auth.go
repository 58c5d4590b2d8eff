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

// Package auth contains the Slack credential providers.
package auth

import (
	"errors"
	"net/http"
	"strings"
)

// Provider is the Slack Authentication provider.
type Provider interface {
	// SlackToken should return the Slack Token value.
	SlackToken() string
	// HTTPClient should return the HTTP client that will be used for all
	// API calls and file downloads.
	HTTPClient() (*http.Client, error)
	// Validate should return error, in case the token cannot be used.
	Validate() error
}

var (
	ErrNoToken      = errors.New("no token")
	ErrInvalidToken = errors.New("token must start with xoxa-, xoxb-, xoxe- or xoxp-")
	ErrClientToken  = errors.New("client tokens (xoxc-) require browser cookies and are not supported, use a bot or user token")
)

// token prefixes: a - app, b - bot, e - export, p - user (legacy).
var tokenPrefixes = []string{"xoxa-", "xoxb-", "xoxe-", "xoxp-"}

const clientTokenPrefix = "xoxc-"

// ValidateToken checks that the token looks like a Slack token that can be
// sent as a bearer credential.
func ValidateToken(token string) error {
	if token == "" {
		return ErrNoToken
	}
	if strings.HasPrefix(token, clientTokenPrefix) {
		return ErrClientToken
	}
	for _, p := range tokenPrefixes {
		if strings.HasPrefix(token, p) && len(token) > len(p) {
			return nil
		}
	}
	return ErrInvalidToken
}
