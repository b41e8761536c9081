package reader

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/local/pdfextract/internal/metrics"
)

// assembler folds the ordered object sequence into an interleaved sequence
// of text lines and image references. State is deliberately small: the
// accumulating line buffer, the top coordinate of the previously visited
// object, and the next image filename index.
type assembler struct {
	store ImageStore

	items   []PageItem
	buf     string
	lastTop float64
	hasLast bool
	nameIdx int
}

// assemblePageItems walks objects in reading order and returns the page's
// interleaved item sequence plus the next unused image filename index.
// The index is document-scoped: it continues across pages so filenames
// stay unique within one extraction.
func assemblePageItems(objs []Object, store ImageStore, nameIdx int) ([]PageItem, int) {
	a := assembler{store: store, nameIdx: nameIdx}
	for _, o := range objs {
		a.visit(o)
	}
	a.flushLine()
	return a.items, a.nameIdx
}

func (a *assembler) visit(o Object) {
	// Objects without obtainable bounds sink to top 0.0, the page bottom.
	top := 0.0
	if b, err := o.Bounds(); err == nil {
		top = b.Top
	}

	switch o.Kind() {
	case KindImage:
		a.visitImage(o)
	case KindText:
		a.visitText(o, top)
	}

	// An image also resets the continuation reference point, so text
	// resuming after an image starts a fresh line.
	a.lastTop = top
	a.hasLast = true
}

func (a *assembler) visitImage(o Object) {
	img, err := o.Image()
	if err != nil {
		log.Warn().Err(err).Msg("failed to decode image; skipping object")
		metrics.IncObjectSkipped("decode")
		return
	}

	name := fmt.Sprintf("image-%d.png", a.nameIdx)
	if err := a.store.SavePNG(name, img); err != nil {
		log.Error().Err(err).Str("filename", name).Msg("failed to save image")
		metrics.IncObjectSkipped("save")
		return
	}
	// A skipped image does not consume a filename index.
	a.nameIdx++

	a.flushLine()
	a.items = append(a.items, ImageRef{Filename: name})
	metrics.IncImageExtracted("ok")
}

func (a *assembler) visitText(o Object, top float64) {
	txt, err := o.Text()
	if err != nil {
		log.Debug().Err(err).Msg("text accessor failed during assembly; skipping object")
		metrics.IncObjectSkipped("text")
		return
	}
	txt = strings.TrimSpace(txt)

	switch {
	case !a.hasLast:
		a.buf = txt
	case top > a.lastTop-SameLineTolerance:
		// Same visual line, small vertical misalignment allowed.
		if a.buf == "" {
			a.buf = txt
		} else {
			a.buf += " " + txt
		}
	default:
		a.flushLine()
		a.buf = txt
	}
}

func (a *assembler) flushLine() {
	if a.buf == "" {
		return
	}
	a.items = append(a.items, TextLine(a.buf))
	a.buf = ""
}
