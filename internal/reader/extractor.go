package reader

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/pdfextract/internal/metrics"
)

// Dependencies wires the external collaborators the extractor needs: a
// document/page provider and an image store factory.
type Dependencies struct {
	Opener DocumentOpener
	Stores StoreFactory
}

// Extractor runs the per-page pipeline: object filter, line clustering and
// sort, line assembly, then association and projection. It holds no state
// across calls; each call is a deterministic function of the source.
type Extractor struct {
	deps Dependencies
}

func New(deps Dependencies) *Extractor {
	return &Extractor{deps: deps}
}

// ExtractTextAndImages processes every page of the referenced document and
// returns the assembled text lines and extracted images per page. Images
// are written as PNG files named image-<n>.png under imagesDir, with <n>
// sequential across the whole document.
func (e *Extractor) ExtractTextAndImages(ctx context.Context, source, imagesDir string) ([]ExtractedPage, error) {
	start := time.Now()

	doc, err := e.deps.Opener.Open(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("open document %s: %w", source, err)
	}
	defer doc.Close()

	store, err := e.deps.Stores.For(imagesDir)
	if err != nil {
		return nil, fmt.Errorf("prepare images dir %s: %w", imagesDir, err)
	}

	pages := make([]ExtractedPage, 0, doc.NumPages())
	nameIdx := 1
	for i := 0; i < doc.NumPages(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		objs, err := doc.Objects(i)
		if err != nil {
			// A page whose text layer cannot be loaded aborts the whole
			// extraction; there is no partial-page skip.
			return nil, fmt.Errorf("load page %d: %w", i+1, err)
		}

		ordered := sortReadingOrder(eligibleObjects(objs))

		var items []PageItem
		items, nameIdx = assemblePageItems(ordered, store, nameIdx)

		pages = append(pages, projectPage(items, store))
		metrics.IncPageProcessed("ok")
	}

	metrics.ObserveExtract(time.Since(start))
	log.Info().
		Str("source", source).
		Int("pages", len(pages)).
		Int("images", nameIdx-1).
		Dur("elapsed", time.Since(start)).
		Msg("document extracted")

	return pages, nil
}

// ExtractText returns one concatenated string per page: the raw text of
// every text object joined with no separator. It bypasses clustering and
// line assembly entirely.
func (e *Extractor) ExtractText(ctx context.Context, source string) ([]string, error) {
	doc, err := e.deps.Opener.Open(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("open document %s: %w", source, err)
	}
	defer doc.Close()

	out := make([]string, 0, doc.NumPages())
	for i := 0; i < doc.NumPages(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		objs, err := doc.Objects(i)
		if err != nil {
			return nil, fmt.Errorf("load page %d: %w", i+1, err)
		}
		var sb strings.Builder
		for _, o := range objs {
			if o.Kind() != KindText {
				continue
			}
			txt, err := o.Text()
			if err != nil {
				continue
			}
			sb.WriteString(txt)
		}
		out = append(out, sb.String())
	}
	return out, nil
}
