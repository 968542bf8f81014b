// Package validation registers the custom binding rules used by request DTOs.
package validation

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	slugPattern     = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	slugStrip       = regexp.MustCompile(`[^a-z0-9]+`)
)

// CustomTags lists the rules added by Register, for translation registration.
var CustomTags = []string{"slug", "username"}

// Register adds the custom rules and reports field names by their json tag.
func Register(v *validator.Validate) error {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})

	if err := v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return IsSlug(fl.Field().String())
	}); err != nil {
		return err
	}
	return v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
}

func IsSlug(s string) bool {
	return slugPattern.MatchString(s)
}

// Slugify lowercases s and collapses every run of other characters into one dash.
func Slugify(s string) string {
	s = slugStrip.ReplaceAllString(strings.ToLower(s), "-")
	return strings.Trim(s, "-")
}
