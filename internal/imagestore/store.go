// Package imagestore persists decoded page images as PNG files under a
// caller-supplied directory and reports stored file sizes.
package imagestore

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/local/pdfextract/internal/reader"
)

// DirStore writes PNG files into a single directory.
type DirStore struct {
	dir string
}

// NewDirStore creates the directory if absent and returns a store rooted
// at it.
func NewDirStore(dir string) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create images dir: %w", err)
	}
	return &DirStore{dir: dir}, nil
}

// SavePNG encodes img as PNG and writes it under the store directory.
func (s *DirStore) SavePNG(name string, img image.Image) error {
	path := filepath.Join(s.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	log.Debug().Str("file", path).Msg("saved page image")
	return nil
}

// FileSize returns the stored byte size for name, or 0 when the file
// cannot be examined.
func (s *DirStore) FileSize(name string) int64 {
	fi, err := os.Stat(filepath.Join(s.dir, name))
	if err != nil {
		return 0
	}
	return fi.Size()
}

// Factory creates DirStores; it satisfies the extractor's StoreFactory.
type Factory struct{}

func (Factory) For(dir string) (reader.ImageStore, error) { return NewDirStore(dir) }
