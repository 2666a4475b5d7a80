// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"termviz/pkg/bitint"

	"github.com/go-playground/validator/v10"
)

// WindowNames lists the analysis window functions accepted in
// analysis.window.
var WindowNames = []string{
	"BartlettHann", "Blackman", "BlackmanHarris", "BlackmanNuttall",
	"FlatTop", "Hamming", "Hann", "Lanczos", "Nuttall", "Rectangular",
}

// validate is the shared validator instance for configuration checks.
var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// Report YAML keys rather than Go field names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	// The FFT length must be a power of two.
	_ = validate.RegisterValidation("pow2", func(fl validator.FieldLevel) bool {
		return bitint.IsPowerOfTwo(int(fl.Field().Int()))
	})
}

// Validate checks every field constraint and the rules that span sections.
// All violations are reported together.
func (c *Config) Validate() error {
	var errs []error

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, e := range verrs {
			errs = append(errs, fmt.Errorf("%s %s", fieldPath(e), formatValidationMessage(e)))
		}
	}

	if !validWindow(c.Analysis.Window) {
		errs = append(errs, fmt.Errorf("analysis.window must be one of: %s", strings.Join(WindowNames, " ")))
	}

	nyquist := c.Audio.SampleRate / 2
	if c.Analysis.MaxHz > nyquist {
		errs = append(errs, fmt.Errorf("analysis.max_hz %.0f is above the Nyquist frequency %.0f", c.Analysis.MaxHz, nyquist))
	}

	if s := c.Display.Sensitivity; s < c.Display.MinSensitivity || s > c.Display.MaxSensitivity {
		errs = append(errs, fmt.Errorf("display.sensitivity must be within [%g, %g]",
			c.Display.MinSensitivity, c.Display.MaxSensitivity))
	}

	if c.Audio.InputFile != "" && c.Recording.Enabled {
		errs = append(errs, errors.New("recording.enabled cannot be combined with audio.input_file"))
	}

	return errors.Join(errs...)
}

func validWindow(name string) bool {
	for _, n := range WindowNames {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}

// fieldPath turns "Config.audio.frames_per_buffer" into
// "audio.frames_per_buffer".
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

// formatValidationMessage creates a human-readable message from a validator error.
func formatValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "required_if":
		return "is required when " + strings.ReplaceAll(e.Param(), " ", " is ")
	case "min":
		return fmt.Sprintf("must have at least %s entries", e.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", e.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", e.Param())
	case "lt":
		return fmt.Sprintf("must be less than %s", e.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", e.Param())
	case "gtfield":
		return fmt.Sprintf("must be greater than %s", e.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", e.Param())
	case "pow2":
		if n, ok := e.Value().(int); ok && n > 0 {
			return fmt.Sprintf("must be a power of two (try %d or %d)",
				bitint.PreviousPowerOfTwo(n), bitint.NextPowerOfTwo(n))
		}
		return "must be a power of two"
	default:
		return fmt.Sprintf("failed validation '%s'", e.Tag())
	}
}
