package media

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fernpost/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2)))
	require.NoError(t, err)
	return buf.Bytes()
}

func TestSaveValidImage(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	relPath, err := store.Save("small.png", bytes.NewReader(pngBytes(t)))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(relPath, "posts/"))
	assert.True(t, strings.HasSuffix(relPath, ".png"))

	data, err := os.ReadFile(filepath.Join(store.Root(), filepath.FromSlash(relPath)))
	require.NoError(t, err)
	assert.Equal(t, pngBytes(t), data)
}

func TestSaveRejectsNonImage(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save("notes.txt", strings.NewReader("plain text, not an image"))
	require.Error(t, err)

	assert.True(t, utils.IsErrorCode(err, utils.ErrInvalidImage))
	assert.Contains(t, err.Error(), ErrNotAnImage)
}
