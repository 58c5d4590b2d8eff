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

// Command slackfiles mirrors the files of a Slack workspace to the local
// disk.  Each run downloads the files uploaded since the previous run.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/rusq/slackfiles"
	"github.com/rusq/slackfiles/auth"
	"github.com/rusq/slackfiles/cmd/slackfiles/internal/cfg"
	"github.com/rusq/slackfiles/internal/config"
	"github.com/rusq/slackfiles/internal/osext"
)

// secrets defines the names of the supported secret files that we load our
// secrets from.  Inexperienced windows users might have bad experience trying
// to create .env file with the notepad as it will battle for having the
// "txt" extension.  Let it have it.
var secrets = []string{".env", ".env.txt", "secrets.txt"}

func main() {
	loadSecrets(secrets)

	fs := flag.NewFlagSet(filepath.Base(os.Args[0]), flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(),
			"slackfiles %s\n\n"+
				"Downloads files uploaded to Slack since the last run, placing them\n"+
				"into directories named after the channels.\n\n"+
				"Usage:  %s [flags]\n\n",
			version, fs.Name())
		fs.PrintDefaults()
	}
	if err := cfg.SetFlags(fs); err != nil {
		fmt.Fprintln(os.Stderr, "invalid environment:", err)
		os.Exit(int(SInvalidParameters))
	}
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(int(SHelpRequested))
		}
		os.Exit(int(SInvalidParameters))
	}
	if cfg.PrintVersion {
		fmt.Printf("%s (commit: %s) built on: %s\n", version, commit, date)
		return
	}

	lg, closeLog, err := initLog(cfg.LogFile, cfg.JSONHandler, cfg.Verbose || cfg.APIDebug)
	if err != nil {
		slog.Error("failed to initialise logging", "error", err)
		os.Exit(int(SInitializationError))
	}
	cfg.Log = lg
	stopTrace := initTrace(cfg.TraceFile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Stdout, cfg.Params(), cfg.ConfigFile, !cfg.NoProgress)
	stop()
	stopTrace()
	closeLog()

	os.Exit(int(code))
}

// loadSecrets load secrets from the files in secrets slice.
func loadSecrets(files []string) {
	for _, f := range files {
		_ = godotenv.Load(f)
	}
}

// run runs a single sync pass with parameters p, merged with the config
// file, and prints the summary to w.
func run(ctx context.Context, w io.Writer, p config.Params, configFile string, progress bool, opts ...slackfiles.Option) StatusCode {
	lg := cfg.Log

	f, name, err := config.Lookup(configFile)
	if err != nil {
		lg.ErrorContext(ctx, "unable to load the config file", "error", err)
		return SInvalidParameters
	}
	if name != "" {
		lg.DebugContext(ctx, "loaded config file", "filename", name)
	}
	p.Merge(f)
	if err := p.Validate(); err != nil {
		lg.ErrorContext(ctx, "configuration error", "error", err)
		return SInvalidParameters
	}

	prov, err := auth.NewValueAuth(p.Token)
	if err != nil {
		lg.ErrorContext(ctx, "invalid token", "error", err)
		return SAuthError
	}

	sopts := []slackfiles.Option{
		slackfiles.WithLogger(lg),
		slackfiles.WithOutputDir(p.OutputDir),
		slackfiles.WithWatermarkFile(p.OffsetFile),
		slackfiles.WithApprovedChannels(p.Channels...),
		slackfiles.WithAPIDebug(p.APIDebug),
	}
	if progress && !p.Verbose && osext.IsInteractive() {
		sopts = append(sopts, slackfiles.WithProgress(newProgress))
	}
	sess, err := slackfiles.New(ctx, prov, append(sopts, opts...)...)
	if err != nil {
		lg.ErrorContext(ctx, "unable to start the session", "error", err)
		return statusFor(err)
	}
	if wi := sess.Info(); wi != nil {
		lg.InfoContext(ctx, "connected", "team", wi.Team, "user", wi.User, "output", sess.OutputDir())
	}

	res, err := sess.Sync(ctx)
	if err != nil {
		lg.ErrorContext(ctx, "sync failed", "error", err, res.Attr())
		return statusFor(err)
	}
	printSummary(w, &res)
	return SNoError
}

// statusFor returns the exit status for the error.
func statusFor(err error) StatusCode {
	var ae *auth.Error
	switch {
	case err == nil:
		return SNoError
	case errors.As(err, &ae):
		return SAuthError
	case errors.Is(err, config.ErrInvalid):
		return SInvalidParameters
	case errors.Is(err, slackfiles.ErrListing):
		return SApplicationError
	default:
		return SGenericError
	}
}

func printSummary(w io.Writer, res *slackfiles.Result) {
	green := color.New(color.FgGreen, color.Bold)
	green.Fprint(w, "Finished.")
	fmt.Fprintf(w, " %d downloaded (%s), %d already present, %d skipped", res.Downloaded, humanBytes(res.Bytes), res.Existing, res.Skipped)
	if res.Failed > 0 {
		fmt.Fprint(w, ", ")
		color.New(color.FgYellow).Fprintf(w, "%d failed", res.Failed)
	}
	fmt.Fprintln(w, ".")
	if res.SaveErr != nil {
		color.New(color.FgRed).Fprintf(w, "Unable to save the watermark: %s\n", res.SaveErr)
	}
}
