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

// Package config contains the configuration file loader and the run
// parameters.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/rusq/slackfiles/internal/osext"
)

// Default config file names, in the order of lookup.
var DefFilenames = []string{"config.toml", "config.json"}

// File is the configuration file.  It can be in TOML, or in JSON format, if
// the file extension is ".json".
type File struct {
	Token      string   `toml:"token" json:"token"`
	Channels   []string `toml:"channels" json:"channels"`
	Output     string   `toml:"output" json:"output"`
	OffsetFile string   `toml:"offset_file" json:"offset_file"`
}

// Load loads the configuration file.  Unknown keys in TOML files are
// logged as warnings.
func Load(filename string) (File, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return File{}, fmt.Errorf("failed to read config file %s: %w", filename, err)
	}
	var f File
	if strings.EqualFold(filepath.Ext(filename), ".json") {
		if err := json.Unmarshal(data, &f); err != nil {
			return File{}, fmt.Errorf("failed to parse config file %s: %w", filename, err)
		}
		return f, nil
	}

	md, err := toml.Decode(string(data), &f)
	if err != nil {
		return File{}, fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		slog.Warn("config file contains undecoded keys", "path", filename, "keys", keys)
	}
	return f, nil
}

// LoadDefault loads the first of DefFilenames that exists in dir.  If dir is
// empty, the directory of the executable is used.  If none of the files
// exist, it returns an empty File and an empty filename.
func LoadDefault(dir string) (File, string, error) {
	if dir == "" {
		var err error
		dir, err = osext.ExecDir()
		if err != nil {
			return File{}, "", err
		}
	}
	for _, name := range DefFilenames {
		filename := filepath.Join(dir, name)
		ok, err := osext.FileExists(filename)
		if err != nil {
			return File{}, "", err
		}
		if !ok {
			continue
		}
		f, err := Load(filename)
		if err != nil {
			return File{}, "", err
		}
		return f, filename, nil
	}
	return File{}, "", nil
}

// Lookup loads the config file from filename, or if it's empty, the default
// config file.  A missing default file is not an error.
func Lookup(filename string) (File, string, error) {
	if filename == "" {
		return LoadDefault("")
	}
	f, err := Load(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return File{}, "", fmt.Errorf("%w: config file %s not found", ErrInvalid, filename)
		}
		return File{}, "", err
	}
	return f, filename, nil
}
