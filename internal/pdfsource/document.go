// Package pdfsource provides the document/page provider consumed by the
// reading-order extractor: it opens a PDF, enumerates positioned content
// objects per page (text runs and image placements) and exposes fallible
// accessors for geometry, text and raster data.
package pdfsource

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/rs/zerolog/log"

	"github.com/local/pdfextract/internal/fetch"
	"github.com/local/pdfextract/internal/reader"
)

var (
	// ErrNoBounds marks an object whose geometry could not be determined.
	ErrNoBounds = errors.New("object bounds unavailable")

	errNotText  = errors.New("not a text object")
	errNotImage = errors.New("not an image object")
)

// Opener resolves a source reference (local path, file://, http(s)://,
// s3://) and opens it as a Document.
type Opener struct{}

func (Opener) Open(ctx context.Context, source string) (reader.Document, error) {
	local, tmp, err := fetch.EnsureLocal(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("resolve source: %w", err)
	}
	doc, err := openLocal(local)
	if err != nil {
		if tmp != "" {
			os.Remove(tmp)
		}
		return nil, err
	}
	doc.tmp = tmp
	return doc, nil
}

// Document is one open PDF file.
type Document struct {
	path string
	tmp  string
	file *os.File
	rdr  *pdf.Reader
}

func openLocal(path string) (*Document, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, fmt.Errorf("detect file type: %w", err)
	}
	if !mtype.Is("application/pdf") {
		return nil, fmt.Errorf("unsupported file type %s for %s", mtype.String(), path)
	}

	// Cheap structural validation before handing the file to the parser.
	pageCount, err := api.PageCountFile(path)
	if err != nil {
		return nil, fmt.Errorf("pdf page count failed: %w", err)
	}

	f, rdr, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	if rdr.NumPage() != pageCount {
		log.Warn().Int("pdfcpu", pageCount).Int("parser", rdr.NumPage()).Str("file", path).Msg("page count mismatch between validators")
	}

	return &Document{path: path, file: f, rdr: rdr}, nil
}

func (d *Document) NumPages() int { return d.rdr.NumPage() }

func (d *Document) Close() error {
	err := d.file.Close()
	if d.tmp != "" {
		os.Remove(d.tmp)
	}
	return err
}

// Objects loads one page's content objects. The page's text layer (its
// parsed content) is loaded once here; if that fails the error aborts the
// whole extraction. Image placement or decode trouble is reported on the
// individual objects instead.
func (d *Document) Objects(page int) ([]reader.Object, error) {
	p := d.rdr.Page(page + 1)
	if p.V.IsNull() {
		return nil, fmt.Errorf("invalid page %d", page+1)
	}

	content, err := pageContent(p)
	if err != nil {
		return nil, fmt.Errorf("load text layer: %w", err)
	}

	objs := make([]reader.Object, 0, 16)
	for _, run := range buildTextRuns(content.Text) {
		objs = append(objs, &textObject{run: run})
	}
	for _, io := range d.imageObjects(p, page+1) {
		objs = append(objs, io)
	}
	return objs, nil
}

// pageContent reads the parsed page content. The underlying parser panics
// on malformed streams; the panic is converted into an error here.
func pageContent(p pdf.Page) (content pdf.Content, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse page content: %v", r)
		}
	}()
	content = p.Content()
	return content, nil
}

// textObject is a coalesced run of characters sharing a baseline.
type textObject struct {
	run textRun
}

func (t *textObject) Kind() reader.ObjectKind { return reader.KindText }

func (t *textObject) Bounds() (reader.Bounds, error) { return t.run.rect, nil }

func (t *textObject) Text() (string, error) { return t.run.text, nil }

func (t *textObject) Image() (image.Image, error) { return nil, errNotImage }

// imageObject is one placed raster image.
type imageObject struct {
	rect    reader.Bounds
	rectErr error
	img     image.Image
	imgErr  error
}

func (i *imageObject) Kind() reader.ObjectKind { return reader.KindImage }

func (i *imageObject) Bounds() (reader.Bounds, error) {
	if i.rectErr != nil {
		return reader.Bounds{}, i.rectErr
	}
	return i.rect, nil
}

func (i *imageObject) Text() (string, error) { return "", errNotText }

func (i *imageObject) Image() (image.Image, error) {
	if i.imgErr != nil {
		return nil, i.imgErr
	}
	return i.img, nil
}
