package pdfsource

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"os"
	"strconv"

	_ "image/jpeg"
	_ "image/png"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/rs/zerolog/log"
	_ "golang.org/x/image/tiff"

	"github.com/local/pdfextract/internal/reader"
)

// imageObjects enumerates the page's placed raster images. Placement
// geometry comes from the content stream (cm transforms active at each Do);
// pixel data comes from a separate raw extraction pass and is matched to
// placements by the XObject's intrinsic pixel dimensions. A placement whose
// pixels cannot be recovered still yields an object, carrying the error in
// its image accessor.
func (d *Document) imageObjects(p pdf.Page, pageNr int) []reader.Object {
	stream, err := pageContentBytes(p)
	if err != nil {
		log.Debug().Err(err).Int("page", pageNr).Msg("content stream unreadable, skipping image scan")
		return nil
	}

	xobjs := p.Resources().Key("XObject")

	type wanted struct {
		rect reader.Bounds
		w, h int64
	}
	var want []wanted
	for _, pl := range scanPlacements(stream) {
		xo := xobjs.Key(pl.name)
		if xo.Kind() != pdf.Stream || xo.Key("Subtype").Name() != "Image" {
			continue
		}
		want = append(want, wanted{
			rect: pl.rect,
			w:    xo.Key("Width").Int64(),
			h:    xo.Key("Height").Int64(),
		})
	}
	if len(want) == 0 {
		return nil
	}

	pixels, pixErr := d.decodePageImages(pageNr)

	objs := make([]reader.Object, 0, len(want))
	for _, w := range want {
		obj := &imageObject{rect: w.rect}
		switch {
		case pixErr != nil:
			obj.imgErr = pixErr
		default:
			img := claimByDims(pixels, w.w, w.h)
			if img == nil {
				obj.imgErr = fmt.Errorf("no pixel data for %dx%d image on page %d", w.w, w.h, pageNr)
			} else {
				obj.img = img
			}
		}
		objs = append(objs, obj)
	}
	return objs
}

// decodedImage is one raster recovered from the file, claimable once so two
// same-sized placements do not share pixels.
type decodedImage struct {
	img     image.Image
	claimed bool
}

func claimByDims(pool []decodedImage, w, h int64) image.Image {
	for i := range pool {
		if pool[i].claimed {
			continue
		}
		b := pool[i].img.Bounds()
		if int64(b.Dx()) == w && int64(b.Dy()) == h {
			pool[i].claimed = true
			return pool[i].img
		}
	}
	return nil
}

// decodePageImages pulls the raw image resources of one page and decodes
// them. The file is reopened because the raw extractor needs its own
// read position.
func (d *Document) decodePageImages(pageNr int) ([]decodedImage, error) {
	f, err := os.Open(d.path)
	if err != nil {
		return nil, fmt.Errorf("reopen for image extraction: %w", err)
	}
	defer f.Close()

	pages, err := api.ExtractImagesRaw(f, []string{strconv.Itoa(pageNr)}, nil)
	if err != nil {
		return nil, fmt.Errorf("extract images: %w", err)
	}

	var out []decodedImage
	for _, byObj := range pages {
		for objNr, raw := range byObj {
			img, _, err := image.Decode(raw)
			if err != nil {
				log.Debug().Err(err).Int("page", pageNr).Int("obj", objNr).Msg("undecodable image resource")
				continue
			}
			out = append(out, decodedImage{img: img})
		}
	}
	return out, nil
}

// pageContentBytes concatenates the page's content streams. The underlying
// stream decoder panics on unsupported or corrupt filters; that is turned
// into an error here.
func pageContentBytes(p pdf.Page) (b []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("decode content stream: %v", r)
		}
	}()

	v := p.V.Key("Contents")
	switch v.Kind() {
	case pdf.Stream:
		return io.ReadAll(v.Reader())
	case pdf.Array:
		var buf bytes.Buffer
		for i := 0; i < v.Len(); i++ {
			part, err := io.ReadAll(v.Index(i).Reader())
			if err != nil {
				return nil, err
			}
			buf.Write(part)
			// Operators may not span stream boundaries.
			buf.WriteByte('\n')
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unexpected contents kind %v", v.Kind())
	}
}
