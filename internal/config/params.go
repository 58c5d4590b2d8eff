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

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// ErrInvalid is returned when the parameters fail validation.
var ErrInvalid = errors.New("invalid configuration")

var (
	validate = validator.New(validator.WithRequiredStructEnabled())

	// ErrTranslations is the translator for the validation errors.
	ErrTranslations ut.Translator
)

func init() {
	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	ErrTranslations, _ = uni.GetTranslator("en")
	if err := en_translations.RegisterDefaultTranslations(validate, ErrTranslations); err != nil {
		panic(err)
	}
}

// Params are the run parameters.
type Params struct {
	Token      string   `validate:"required,startswith=xox"`
	Channels   []string `validate:"dive,required,excludesall=/\\"`
	OutputDir  string
	OffsetFile string
	Verbose    bool // debug logging
	APIDebug   bool // log API requests
}

// Merge fills the empty parameters with the values from the config file.
// The values that are already set take precedence.
func (p *Params) Merge(f File) {
	if p.Token == "" {
		p.Token = f.Token
	}
	if len(p.Channels) == 0 {
		p.Channels = append([]string(nil), f.Channels...)
	}
	if p.OutputDir == "" {
		p.OutputDir = f.Output
	}
	if p.OffsetFile == "" {
		p.OffsetFile = f.OffsetFile
	}
}

// Validate validates the parameters.  The returned error wraps ErrInvalid.
func (p *Params) Validate() error {
	if err := validate.Struct(p); err != nil {
		var vErr validator.ValidationErrors
		if errors.As(err, &vErr) {
			msgs := make([]string, 0, len(vErr))
			for _, e := range vErr {
				msgs = append(msgs, e.Translate(ErrTranslations))
			}
			return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}
