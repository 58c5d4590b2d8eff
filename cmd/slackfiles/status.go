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

package main

import "fmt"

// StatusCode is the code returned to the OS.
type StatusCode uint8

// Status codes returned by the main executable.
const (
	SNoError StatusCode = iota
	SGenericError
	SHelpRequested
	SInvalidParameters
	SAuthError
	SInitializationError
	SApplicationError
)

func (s StatusCode) String() string {
	switch s {
	case SNoError:
		return "NoError"
	case SGenericError:
		return "GenericError"
	case SHelpRequested:
		return "HelpRequested"
	case SInvalidParameters:
		return "InvalidParameters"
	case SAuthError:
		return "AuthError"
	case SInitializationError:
		return "InitializationError"
	case SApplicationError:
		return "ApplicationError"
	default:
		return fmt.Sprintf("StatusCode(%d)", uint8(s))
	}
}
