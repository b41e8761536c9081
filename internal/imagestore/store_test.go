package imagestore

import (
	"image"
	"os"
	"path/filepath"
	"testing"
)

func TestDirStoreSaveAndSize(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "images")

	store, err := NewDirStore(dir)
	if err != nil {
		t.Fatalf("NewDirStore: %v", err)
	}

	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	if err := store.SavePNG("image-1.png", img); err != nil {
		t.Fatalf("SavePNG: %v", err)
	}

	fi, err := os.Stat(filepath.Join(dir, "image-1.png"))
	if err != nil {
		t.Fatalf("stat saved image: %v", err)
	}
	if got := store.FileSize("image-1.png"); got != fi.Size() {
		t.Fatalf("FileSize = %d, want %d", got, fi.Size())
	}
}

func TestNewDirStoreIdempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "images")
	if _, err := NewDirStore(dir); err != nil {
		t.Fatalf("first NewDirStore: %v", err)
	}
	if _, err := NewDirStore(dir); err != nil {
		t.Fatalf("second NewDirStore: %v", err)
	}
}

func TestFileSizeMissingFile(t *testing.T) {
	store, err := NewDirStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDirStore: %v", err)
	}
	if got := store.FileSize("missing.png"); got != 0 {
		t.Fatalf("FileSize = %d, want 0", got)
	}
}
