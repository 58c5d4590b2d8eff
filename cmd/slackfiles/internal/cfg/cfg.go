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

// Package cfg contains the command line flags and their values.
package cfg

import (
	"flag"
	"fmt"
	"log/slog"

	"github.com/rusq/osenv/v2"

	"github.com/rusq/slackfiles/internal/config"
)

var (
	TraceFile   string
	LogFile     string
	JSONHandler bool
	Verbose     bool
	APIDebug    bool

	ConfigFile string

	SlackToken string
	OutputDir  string
	Channels   StringSlice
	OffsetFile string

	NoProgress   bool
	PrintVersion bool

	Log = slog.Default()
)

// SetFlags sets the flags on fs.  The defaults are taken from the
// environment.  It returns an error if an environment value can't be parsed.
func SetFlags(fs *flag.FlagSet) error {
	fs.StringVar(&TraceFile, "trace", osenv.Value("TRACE_FILE", ""), "trace `filename`")
	fs.StringVar(&LogFile, "log", osenv.Value("LOG_FILE", ""), "log `file`, if not specified, messages are printed to STDERR")
	fs.BoolVar(&JSONHandler, "log-json", osenv.Value("JSON_LOG", false), "log in JSON format")
	fs.BoolVar(&Verbose, "v", osenv.Value("DEBUG", false), "verbose messages")
	fs.BoolVar(&APIDebug, "api-debug", osenv.Value("EXTREME_DEBUG", false), "log Slack API requests and name cache hits, implies -v")

	fs.StringVar(&ConfigFile, "config", osenv.Value("SLACKFILES_CONFIG", ""), "configuration `file` (TOML, or JSON if the extension is .json)\n(default: config.toml or config.json next to the executable)")

	fs.StringVar(&SlackToken, "token", osenv.Secret("SLACK_TOKEN", ""), "Slack `token`")
	fs.StringVar(&OutputDir, "o", osenv.Value("OUTPUT_DIR", ""), "output `directory` (default: data next to the executable)")
	var err error
	if v := osenv.Value("SLACK_CHANNELS", ""); v != "" {
		if e := Channels.Set(v); e != nil {
			err = fmt.Errorf("SLACK_CHANNELS: %w", e)
		}
	}
	fs.Var(&Channels, "channels", "comma-separated list of channel `names` to sync, all if empty")
	fs.StringVar(&OffsetFile, "offset-file", osenv.Value("OFFSET_FILE", ""), "watermark `file` (default: offset.txt next to the executable)")

	fs.BoolVar(&NoProgress, "no-progress", false, "disable download progress bars")
	fs.BoolVar(&PrintVersion, "V", false, "print version and exit")
	return err
}

// Params returns the run parameters set by flags.
func Params() config.Params {
	return config.Params{
		Token:      SlackToken,
		Channels:   append([]string(nil), Channels...),
		OutputDir:  OutputDir,
		OffsetFile: OffsetFile,
		Verbose:    Verbose || APIDebug,
		APIDebug:   APIDebug,
	}
}
