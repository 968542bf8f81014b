package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTML(t *testing.T) {
	out := HTML(`<p>Great <b>run</b><script>alert(1)</script></p><a href="javascript:alert(1)">x</a>`)
	assert.Contains(t, out, "<b>run</b>")
	assert.NotContains(t, out, "script")
	assert.NotContains(t, out, "javascript:")
}

func TestText(t *testing.T) {
	assert.Equal(t, "hello world", Text("  <i>hello</i> <img src=x onerror=alert(1)>world "))
	assert.Equal(t, "Tom & Jerry", Text("Tom &amp; Jerry"))
}
