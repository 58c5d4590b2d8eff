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

package auth

import "net/http"

var _ Provider = ValueAuth{}

// ValueAuth stores the Slack token.
type ValueAuth struct {
	token string
}

// NewValueAuth returns the provider for the token value.  It returns an error
// if the token does not pass validation.
func NewValueAuth(token string) (ValueAuth, error) {
	va := ValueAuth{token: token}
	if err := va.Validate(); err != nil {
		return ValueAuth{}, err
	}
	return va, nil
}

func (va ValueAuth) SlackToken() string {
	return va.token
}

// HTTPClient returns a plain HTTP client.  No timeout is set, a stalled
// transfer blocks until the server gives up.
func (ValueAuth) HTTPClient() (*http.Client, error) {
	return &http.Client{}, nil
}

func (va ValueAuth) Validate() error {
	return ValidateToken(va.token)
}
