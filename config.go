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

// In this file: session config.

import (
	"path/filepath"

	"github.com/rusq/slackfiles/downloader"
	"github.com/rusq/slackfiles/internal/osext"
	"github.com/rusq/slackfiles/internal/watermark"
)

const (
	// DefOutputDir is the name of the output directory next to the
	// executable.
	DefOutputDir = "data"
	// maxAPIErrors is the number of consecutive ok:false listing responses
	// after which the pass is abandoned.
	maxAPIErrors = 3
)

type config struct {
	outputDir     string
	approved      map[string]struct{} // approved channel names, empty means all
	watermarkFile string
	apiDebug      bool                    // log API requests and cache hits
	progress      downloader.ProgressFunc // nil means no progress
	maxAPIErrors  int
}

var defConfig = config{
	outputDir:     "",
	watermarkFile: "",
	maxAPIErrors:  maxAPIErrors,
}

// resolveDefaults fills in the empty locations with the defaults in the
// directory of the executable.
func (c *config) resolveDefaults() error {
	if c.outputDir != "" && c.watermarkFile != "" {
		return nil
	}
	dir, err := osext.ExecDir()
	if err != nil {
		return err
	}
	if c.outputDir == "" {
		c.outputDir = filepath.Join(dir, DefOutputDir)
	}
	if c.watermarkFile == "" {
		c.watermarkFile = filepath.Join(dir, watermark.DefFilename)
	}
	return nil
}

// isApproved reports whether the files of the channel should be synced.
func (c *config) isApproved(channel string) bool {
	if len(c.approved) == 0 {
		return true
	}
	_, ok := c.approved[channel]
	return ok
}
