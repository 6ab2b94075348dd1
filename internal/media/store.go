package media

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	// Registered decoders define the accepted upload formats.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"fernpost/internal/utils"

	"github.com/google/uuid"
)

// ErrNotAnImage is the fixed validation message returned for any upload that
// does not decode as a supported image format.
const ErrNotAnImage = "Upload a valid image. The file you uploaded was either not an image or a corrupted image."

// Store writes validated post images below a root directory and hands back
// the relative path persisted on the post row.
type Store struct {
	root string
}

func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(root, "posts"), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}
	return &Store{root: root}, nil
}

// Save validates that r decodes as a supported image and stores it under
// posts/ with a generated name. The original filename only contributes its
// extension.
func (s *Store) Save(filename string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", utils.NewAppError(utils.ErrDatabase, "failed to read upload", err)
	}

	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return "", utils.NewAppError(utils.ErrInvalidImage, ErrNotAnImage, err)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".img"
	}
	relPath := path.Join("posts", uuid.New().String()+ext)

	if err := os.WriteFile(filepath.Join(s.root, filepath.FromSlash(relPath)), data, 0o644); err != nil {
		return "", utils.NewAppError(utils.ErrDatabase, "failed to store image", err)
	}
	return relPath, nil
}

// Root is the directory served under /media/.
func (s *Store) Root() string {
	return s.root
}
