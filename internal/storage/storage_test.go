package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	s, err := NewLocal(dir, "/media/")
	require.NoError(t, err)
	ctx := context.Background()

	n, err := s.Save(ctx, "a.png", strings.NewReader("data"))
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	content, err := os.ReadFile(filepath.Join(dir, "a.png"))
	require.NoError(t, err)
	assert.Equal(t, "data", string(content))
	assert.Equal(t, "/media/a.png", s.URL("a.png"))

	_, err = s.Save(ctx, "a.png", strings.NewReader("again"))
	assert.Error(t, err, "existing files are never overwritten")

	require.NoError(t, s.Delete(ctx, "a.png"))
	require.NoError(t, s.Delete(ctx, "a.png"))
}

func TestLocal_RejectsTraversal(t *testing.T) {
	s, err := NewLocal(t.TempDir(), "/media")
	require.NoError(t, err)

	for _, name := range []string{"../x.png", "sub/x.png", ".hidden", ""} {
		_, err := s.Save(context.Background(), name, strings.NewReader("x"))
		assert.Error(t, err, name)
	}
}
