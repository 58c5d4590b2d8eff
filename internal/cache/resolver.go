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

// Package cache resolves Slack user, channel and group identifiers to their
// display names, memoising the results for the lifetime of a single run.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rusq/slack"
)

// Lookuper is the subset of the Slack API that the Resolver needs.
type Lookuper interface {
	GetUserInfoContext(ctx context.Context, user string) (*slack.User, error)
	GetConversationInfoContext(ctx context.Context, input *slack.GetConversationInfoInput) (*slack.Channel, error)
}

// Kind is the kind of identifier being resolved.
type Kind uint8

const (
	KindUser Kind = iota
	KindChannel
	KindGroup
)

func (k Kind) String() string {
	switch k {
	case KindUser:
		return "user"
	case KindChannel:
		return "channel"
	case KindGroup:
		return "group"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

var (
	ErrEmptyID  = errors.New("empty identifier")
	ErrNotFound = errors.New("empty response")
)

// LookupError is returned when the identifier can not be resolved.
type LookupError struct {
	Kind Kind
	ID   string
	Err  error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("%s lookup %q: %s", e.Kind, e.ID, e.Err)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

// Resolver is a per-run name cache.  Entries are never evicted, and failed
// lookups are not cached.  Resolver is not safe for concurrent use.
type Resolver struct {
	cl    Lookuper
	lg    *slog.Logger
	debug bool

	users    map[string]string
	channels map[string]string
	groups   map[string]string
}

type Option func(*Resolver)

// WithLogger sets the logger.
func WithLogger(lg *slog.Logger) Option {
	return func(r *Resolver) {
		if lg != nil {
			r.lg = lg
		}
	}
}

// WithDebug enables logging of cache hits.
func WithDebug(b bool) Option {
	return func(r *Resolver) {
		r.debug = b
	}
}

// NewResolver returns a new Resolver with empty caches.
func NewResolver(cl Lookuper, opts ...Option) *Resolver {
	if cl == nil {
		panic("programming error:  client is nil")
	}
	r := &Resolver{
		cl:       cl,
		lg:       slog.Default(),
		users:    make(map[string]string),
		channels: make(map[string]string),
		groups:   make(map[string]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// User returns the name of the user with the given id.
func (r *Resolver) User(ctx context.Context, id string) (string, error) {
	return r.resolve(ctx, KindUser, r.users, id, func(ctx context.Context, id string) (string, error) {
		u, err := r.cl.GetUserInfoContext(ctx, id)
		if err != nil {
			return "", err
		}
		if u == nil {
			return "", ErrNotFound
		}
		return u.Name, nil
	})
}

// Channel returns the name of the public channel with the given id.
func (r *Resolver) Channel(ctx context.Context, id string) (string, error) {
	return r.resolve(ctx, KindChannel, r.channels, id, r.conversationName)
}

// Group returns the name of the private channel with the given id.
func (r *Resolver) Group(ctx context.Context, id string) (string, error) {
	return r.resolve(ctx, KindGroup, r.groups, id, r.conversationName)
}

func (r *Resolver) conversationName(ctx context.Context, id string) (string, error) {
	ch, err := r.cl.GetConversationInfoContext(ctx, &slack.GetConversationInfoInput{ChannelID: id})
	if err != nil {
		return "", err
	}
	if ch == nil {
		return "", ErrNotFound
	}
	return ch.Name, nil
}

type fetchFunc func(ctx context.Context, id string) (string, error)

func (r *Resolver) resolve(ctx context.Context, kind Kind, m map[string]string, id string, fetch fetchFunc) (string, error) {
	if id == "" {
		return "", &LookupError{Kind: kind, ID: id, Err: ErrEmptyID}
	}
	if name, ok := m[id]; ok {
		if r.debug {
			r.lg.DebugContext(ctx, "cache hit", "kind", kind, "id", id, "name", name)
		}
		return name, nil
	}
	name, err := fetch(ctx, id)
	if err != nil {
		return "", &LookupError{Kind: kind, ID: id, Err: err}
	}
	m[id] = name
	return name, nil
}

// Len returns the number of cached entries of the given kind.
func (r *Resolver) Len(kind Kind) int {
	switch kind {
	case KindUser:
		return len(r.users)
	case KindChannel:
		return len(r.channels)
	case KindGroup:
		return len(r.groups)
	}
	return 0
}
