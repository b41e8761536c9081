// Package reader reconstructs human reading order from the unordered,
// positioned content objects of a single PDF page. It orders objects
// top-to-bottom, groups objects that share a visual line, merges text
// fragments into line strings, extracts images and associates each image
// with its nearest caption-like text lines.
package reader

import (
	"context"
	"image"
)

// SameLineTolerance is the maximum vertical distance, in page units,
// between two objects still considered to sit on the same visual line.
// It absorbs sub-pixel baseline jitter between glyph runs.
const SameLineTolerance = 5.0

// ObjectKind discriminates page content object types.
type ObjectKind int

const (
	KindText ObjectKind = iota
	KindImage
	KindOther
)

// Bounds is an object rectangle in page coordinates. The origin sits at
// the page bottom, so a larger Top means higher on the page.
type Bounds struct {
	Top    float64
	Left   float64
	Bottom float64
	Right  float64
}

// Object is a single positioned content object owned by a page. Accessors
// are fallible: a malformed object may have no usable bounds, text or
// pixel data.
type Object interface {
	Kind() ObjectKind

	// Bounds returns the object rectangle, or an error when the geometry
	// is unobtainable.
	Bounds() (Bounds, error)

	// Text returns the extracted text of a text object.
	Text() (string, error)

	// Image returns the decoded raster of an image object.
	Image() (image.Image, error)
}

// Document is one open source document. Objects loads the full content
// object set of a page together with its text layer; a failure there is
// fatal for the whole extraction.
type Document interface {
	NumPages() int
	Objects(page int) ([]Object, error)
	Close() error
}

// DocumentOpener resolves and opens a source reference.
type DocumentOpener interface {
	Open(ctx context.Context, source string) (Document, error)
}

// ImageStore persists decoded images under caller-chosen filenames and
// reports stored file sizes. Save failures are recoverable: the affected
// image is skipped and page processing continues.
type ImageStore interface {
	SavePNG(name string, img image.Image) error

	// FileSize returns the stored byte size for name, or 0 when it cannot
	// be determined.
	FileSize(name string) int64
}

// StoreFactory creates an ImageStore rooted at a directory, creating the
// directory if absent.
type StoreFactory interface {
	For(dir string) (ImageStore, error)
}

// PageItem is one entry of a page's assembled reading order: either a
// completed text line or a reference to an extracted image. The sequence
// order is the page's reading order; association logic depends on it.
type PageItem interface {
	isPageItem()
}

// TextLine is a fully assembled line of page text.
type TextLine string

func (TextLine) isPageItem() {}

// ImageRef references an image extracted to the image store.
type ImageRef struct {
	Filename string
}

func (ImageRef) isPageItem() {}

// ExtractedImageMeta is the per-image output: stored filename, stored
// byte size and up to two related text lines serving as a caption proxy.
type ExtractedImageMeta struct {
	Filename      string   `json:"filename"`
	FileSizeBytes int64    `json:"file_size_bytes"`
	RelatedText   []string `json:"related_text"`
}

// ExtractedPage is the final per-page output. PageTextLines carries every
// assembled line, including short artifacts that association filters out.
type ExtractedPage struct {
	PageTextLines []string             `json:"page_text_lines"`
	PageImages    []ExtractedImageMeta `json:"page_images"`
}
