// Package uploads stores submitted waste images on the local file system
package uploads

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrNotFound is returned by Open for references outside the store
var ErrNotFound = eris.New("upload not found")

// Store writes uploads into a single content directory
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir, defaulting to "uploads"
func NewStore(dir string) *Store {
	if dir == "" {
		dir = "uploads"
	}
	return &Store{dir: dir}
}

// Dir returns the content directory
func (s *Store) Dir() string {
	return s.dir
}

// Save writes data under a unique name derived from name and returns the
// reference to store with the observation
func (s *Store) Save(name string, data []byte) (string, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", eris.Wrap(err, "failed to create upload directory")
	}

	ref := filepath.Join(s.dir, uuid.NewString()+"-"+sanitize(name))
	if err := os.WriteFile(ref, data, 0644); err != nil {
		return "", eris.Wrapf(err, "failed to write upload %s", ref)
	}

	zap.L().Debug("stored upload", zap.String("ref", ref), zap.Int("bytes", len(data)))
	return ref, nil
}

// Open re-opens a stored upload by the base name of its reference
func (s *Store) Open(name string) (*os.File, error) {
	base := filepath.Base(name)
	if base == "." || base == string(filepath.Separator) {
		return nil, ErrNotFound
	}
	if base != name && filepath.Join(s.dir, base) != filepath.Clean(name) {
		return nil, ErrNotFound
	}

	f, err := os.Open(filepath.Join(s.dir, base))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "failed to open upload %s", base)
	}
	return f, nil
}

// sanitize keeps the file name portion of a client supplied name
func sanitize(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == "/" {
		return "image"
	}
	return name
}
