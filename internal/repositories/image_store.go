package repositories

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ImageStore persists uploaded product images.
type ImageStore interface {
	// Save stores content and returns the relative path the image is served under.
	Save(fileName string, content []byte) (string, error)
	Delete(path string) error
}

const imagesPrefix = "images/"

// DiskImageStore keeps images below a media directory.
type DiskImageStore struct {
	dir string
}

// NewDiskImageStore creates the images directory below dir if needed.
func NewDiskImageStore(dir string) (*DiskImageStore, error) {
	if err := os.MkdirAll(filepath.Join(dir, imagesPrefix), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}
	return &DiskImageStore{dir: dir}, nil
}

// Dir returns the media root directory.
func (s *DiskImageStore) Dir() string {
	return s.dir
}

// Save writes content under a fresh name that keeps the original extension.
func (s *DiskImageStore) Save(fileName string, content []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	rel := imagesPrefix + uuid.New().String() + ext
	if err := os.WriteFile(filepath.Join(s.dir, filepath.FromSlash(rel)), content, 0o644); err != nil {
		return "", fmt.Errorf("failed to save image %s: %w", fileName, err)
	}
	return rel, nil
}

// Delete removes a previously saved image. Missing files are ignored.
func (s *DiskImageStore) Delete(path string) error {
	if path == "" || !strings.HasPrefix(path, imagesPrefix) || strings.Contains(path, "..") {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, filepath.FromSlash(path)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete image %s: %w", path, err)
	}
	return nil
}
