// Package render produces raster previews of PDF pages for the HTTP API.
package render

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"

	"github.com/gen2brain/go-fitz"
	"github.com/rs/zerolog/log"
)

// ColorMode defines the color mode for rendering
type ColorMode string

const (
	ColorRGB  ColorMode = "rgb"
	ColorGray ColorMode = "gray"
)

// PagePNG renders one PDF page as a PNG image (in-memory).
// Returns PNG bytes, width, height, error. Pages are 1-based.
func PagePNG(pdfPath string, pageNum, dpi int, colorMode ColorMode) ([]byte, int, int, error) {
	doc, err := fitz.New(pdfPath)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	if pageNum < 1 || pageNum > doc.NumPage() {
		return nil, 0, 0, fmt.Errorf("page %d out of range 1..%d", pageNum, doc.NumPage())
	}

	// go-fitz uses 0-based indexing
	img, err := doc.ImageDPI(pageNum-1, float64(dpi))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to render page %d: %w", pageNum, err)
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	var finalImg image.Image
	if colorMode == ColorGray {
		grayImg := image.NewGray(bounds)
		draw.Draw(grayImg, bounds, img, image.Point{}, draw.Src)
		finalImg = grayImg
	} else {
		finalImg = img
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, finalImg); err != nil {
		return nil, 0, 0, fmt.Errorf("failed to encode PNG: %w", err)
	}

	log.Debug().
		Int("page", pageNum).
		Int("width", width).
		Int("height", height).
		Int("png_size", buf.Len()).
		Int("dpi", dpi).
		Str("color", string(colorMode)).
		Msg("rendered page preview")

	return buf.Bytes(), width, height, nil
}

// PageCount reports the number of pages in the document.
func PageCount(pdfPath string) (int, error) {
	doc, err := fitz.New(pdfPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()
	return doc.NumPage(), nil
}
