package service

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// MediaStore keeps uploaded product images.
type MediaStore interface {
	// Save stores the image and returns the name to record on the product.
	Save(filename string, body io.Reader) (string, error)
	// Remove deletes a previously saved image. Missing images are ignored.
	Remove(name string) error
}

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
}

// LocalMedia writes images under Dir with random names.
type LocalMedia struct {
	Dir string
}

func (m LocalMedia) Save(filename string, body io.Reader) (string, error) {
	ext := strings.ToLower(path.Ext(filename))
	if !imageExtensions[ext] {
		return "", fmt.Errorf("%w: unsupported image type %q", ErrInvalidProduct, ext)
	}
	if err := os.MkdirAll(filepath.Join(m.Dir, "products"), 0o755); err != nil {
		return "", fmt.Errorf("failed to create media dir: %w", err)
	}

	name := path.Join("products", uuid.NewString()+ext)
	f, err := os.Create(m.path(name))
	if err != nil {
		return "", fmt.Errorf("failed to create image: %w", err)
	}

	_, err = io.Copy(f, body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(m.path(name))
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	return name, nil
}

func (m LocalMedia) Remove(name string) error {
	if err := os.Remove(m.path(name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove image: %w", err)
	}
	return nil
}

func (m LocalMedia) path(name string) string {
	return filepath.Join(m.Dir, filepath.FromSlash(name))
}
