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

package cfg

import (
	"flag"
	"fmt"
	"strings"
	"unicode"
)

const stringSliceSep = ","

// StringSlice provides a flag.Value interface for a slice of strings.  Empty
// elements are dropped, elements with whitespace inside are rejected.
type StringSlice []string

var _ flag.Value = new(StringSlice)

func (ss *StringSlice) Set(s string) error {
	parts := strings.Split(s, stringSliceSep)
	res := make(StringSlice, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if strings.ContainsFunc(p, unicode.IsSpace) {
			return fmt.Errorf("invalid element %q: contains whitespace", p)
		}
		res = append(res, p)
	}
	*ss = res
	return nil
}

func (ss *StringSlice) String() string {
	if ss == nil {
		return ""
	}
	return strings.Join(*ss, stringSliceSep)
}
