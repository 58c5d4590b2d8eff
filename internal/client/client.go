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

// Package client contains the Slack API surface used by the file sync.
package client

import (
	"context"
	"io"
	"log/slog"

	"github.com/rusq/slack"

	"github.com/rusq/slackfiles/auth"
)

//go:generate mockgen -destination mock_client/mock_client.go . Slack

// Slack is an interface that defines the methods that a Slack client should
// provide.
type Slack interface {
	AuthTestContext(ctx context.Context) (response *slack.AuthTestResponse, err error)
	GetConversationInfoContext(ctx context.Context, input *slack.GetConversationInfoInput) (*slack.Channel, error)
	GetFileContext(ctx context.Context, downloadURL string, writer io.Writer) error
	GetFilesContext(ctx context.Context, params slack.GetFilesParameters) ([]slack.File, *slack.Paging, error)
	GetUserInfoContext(ctx context.Context, user string) (*slack.User, error)
}

var _ Slack = (*Client)(nil)

// Client wraps *slack.Client and caches the workspace information captured
// on initialisation.
type Client struct {
	*slack.Client
	wi *slack.AuthTestResponse
}

// Wrap wraps a *slack.Client and returns a *Client that implements the Slack
// interface. Intended for testing.
func Wrap(cl *slack.Client) *Client {
	return &Client{
		Client: cl,
	}
}

type options struct {
	apiURL string
	debug  *slog.Logger
}

type Option func(*options)

// WithAPIURL overrides the Slack API endpoint.  The url must end with a slash.
func WithAPIURL(url string) Option {
	return func(o *options) {
		o.apiURL = url
	}
}

// WithDebug enables the API debug output of the Slack client.  Requests and
// responses are logged to lg at the debug level.  If lg is nil, debug
// output stays disabled.
func WithDebug(lg *slog.Logger) Option {
	return func(o *options) {
		o.debug = lg
	}
}

func (o options) slackOptions() []slack.Option {
	var opts []slack.Option
	if o.apiURL != "" {
		opts = append(opts, slack.OptionAPIURL(o.apiURL))
	}
	if o.debug != nil {
		opts = append(opts,
			slack.OptionDebug(true),
			slack.OptionLog(slog.NewLogLogger(o.debug.Handler(), slog.LevelDebug)),
		)
	}
	return opts
}

// New creates a new Client instance and runs the auth test, the result of
// which is cached.
func New(ctx context.Context, prov auth.Provider, opts ...Option) (*Client, error) {
	var opt options
	for _, o := range opts {
		o(&opt)
	}

	hcl, err := prov.HTTPClient()
	if err != nil {
		return nil, err
	}
	sopts := append([]slack.Option{slack.OptionHTTPClient(hcl)}, opt.slackOptions()...)
	scl := slack.New(prov.SlackToken(), sopts...)

	wi, err := scl.AuthTestContext(ctx)
	if err != nil {
		return nil, err
	}
	return &Client{Client: scl, wi: wi}, nil
}

// AuthTestContext returns the cached workspace information that was captured
// on initialisation.  If the cache is empty it calls the API.
func (c *Client) AuthTestContext(ctx context.Context) (*slack.AuthTestResponse, error) {
	if c.wi == nil {
		wi, err := c.Client.AuthTestContext(ctx)
		if err != nil {
			return nil, err
		}
		c.wi = wi
	}
	return c.wi, nil
}
