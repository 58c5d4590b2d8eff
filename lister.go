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
	"runtime/trace"

	"github.com/rusq/slack"
)

// FileLister is the subset of the Slack API used for listing.
type FileLister interface {
	GetFilesContext(ctx context.Context, params slack.GetFilesParameters) ([]slack.File, *slack.Paging, error)
}

// listPage returns the files on the page, filtered by the watermark, if it's
// not nil, and whether there are more pages.  Slack API errors (ok:false) are
// returned as is, any other error is wrapped in ErrListing.
func listPage(ctx context.Context, cl FileLister, page int, watermark *int64) ([]slack.File, bool, error) {
	ctx, task := trace.NewTask(ctx, "listPage")
	defer task.End()

	params := slack.NewGetFilesParameters()
	params.Page = page
	if watermark != nil {
		params.TimestampFrom = slack.JSONTime(*watermark)
	}
	trace.Logf(ctx, "params", "page=%d ts_from=%d", page, params.TimestampFrom)

	ff, paging, err := cl.GetFilesContext(ctx, params)
	if err != nil {
		if isAPIError(err) {
			return nil, false, fmt.Errorf("files.list page %d: %w", page, err)
		}
		return nil, false, fmt.Errorf("%w: page %d: %w", ErrListing, page, err)
	}
	hasMore := paging != nil && paging.Page < paging.Pages
	return ff, hasMore, nil
}

// isAPIError reports whether the err is a Slack API error, i.e. the response
// had ok:false.
func isAPIError(err error) bool {
	var se slack.SlackErrorResponse
	return errors.As(err, &se)
}
