// Package sanitize cleans user supplied text before it is stored.
package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	richPolicy  = bluemonday.UGCPolicy()
	plainPolicy = bluemonday.StrictPolicy()
)

// HTML keeps the safe subset of HTML used in post bodies.
func HTML(s string) string {
	return strings.TrimSpace(richPolicy.Sanitize(s))
}

// Text strips every tag. Entities are decoded again so the stored value is plain text.
func Text(s string) string {
	return strings.TrimSpace(html.UnescapeString(plainPolicy.Sanitize(s)))
}
