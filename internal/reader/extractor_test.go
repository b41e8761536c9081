package reader

import (
	"context"
	"testing"
)

func newTestExtractor(doc *fakeDocument, store *memStore) *Extractor {
	return New(Dependencies{
		Opener: &fakeOpener{doc: doc},
		Stores: &memStoreFactory{store: store},
	})
}

func TestExtractTextAndImagesRoundTrip(t *testing.T) {
	doc := &fakeDocument{pages: [][]Object{{
		textObj("Fig. 1", 100, 0),
		imageObj(95, 0),
		textObj("shows", 50, 0),
		textObj("a graph", 50, 30),
	}}}
	store := newMemStore()

	pages, err := newTestExtractor(doc, store).ExtractTextAndImages(context.Background(), "test.pdf", "out")
	if err != nil {
		t.Fatalf("ExtractTextAndImages: %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("pages = %d, want 1", len(pages))
	}

	page := pages[0]
	assertStrings(t, page.PageTextLines, []string{"Fig. 1", "shows a graph"})
	if len(page.PageImages) != 1 {
		t.Fatalf("page images = %d, want 1", len(page.PageImages))
	}
	img := page.PageImages[0]
	if img.Filename != "image-1.png" {
		t.Fatalf("filename = %q, want image-1.png", img.Filename)
	}
	// The image is not first in the filtered view, so it relates to the
	// nearest preceding line; no second preceding line exists.
	assertStrings(t, img.RelatedText, []string{"Fig. 1"})

	if !doc.closed {
		t.Fatal("document was not closed")
	}
}

func TestExtractTextAndImagesScrambledEnumeration(t *testing.T) {
	// Provider enumeration order is meaningless; reading order must come
	// out of the geometry alone.
	doc := &fakeDocument{pages: [][]Object{{
		textObj("world", 50, 40),
		textObj("Title", 200, 0),
		textObj("hello", 50, 0),
	}}}

	pages, err := newTestExtractor(doc, newMemStore()).ExtractTextAndImages(context.Background(), "test.pdf", "out")
	if err != nil {
		t.Fatalf("ExtractTextAndImages: %v", err)
	}
	assertStrings(t, pages[0].PageTextLines, []string{"Title", "hello world"})
}

func TestExtractTextAndImagesFiltersIneligibleObjects(t *testing.T) {
	doc := &fakeDocument{pages: [][]Object{{
		textObj("   ", 100, 0),
		&fakeObject{kind: KindText, textErr: errFake, bounds: Bounds{Top: 90}},
		&fakeObject{kind: KindOther, bounds: Bounds{Top: 80}},
		textObj("survivor", 70, 0),
	}}}

	pages, err := newTestExtractor(doc, newMemStore()).ExtractTextAndImages(context.Background(), "test.pdf", "out")
	if err != nil {
		t.Fatalf("ExtractTextAndImages: %v", err)
	}
	assertStrings(t, pages[0].PageTextLines, []string{"survivor"})
}

func TestExtractTextAndImagesEmptyPage(t *testing.T) {
	doc := &fakeDocument{pages: [][]Object{{}}}

	pages, err := newTestExtractor(doc, newMemStore()).ExtractTextAndImages(context.Background(), "test.pdf", "out")
	if err != nil {
		t.Fatalf("ExtractTextAndImages: %v", err)
	}
	page := pages[0]
	if len(page.PageTextLines) != 0 || len(page.PageImages) != 0 {
		t.Fatalf("want empty page, got %+v", page)
	}
}

func TestExtractTextAndImagesCounterSpansPages(t *testing.T) {
	doc := &fakeDocument{pages: [][]Object{
		{imageObj(100, 0)},
		{imageObj(100, 0)},
	}}
	store := newMemStore()

	pages, err := newTestExtractor(doc, store).ExtractTextAndImages(context.Background(), "test.pdf", "out")
	if err != nil {
		t.Fatalf("ExtractTextAndImages: %v", err)
	}
	if pages[0].PageImages[0].Filename != "image-1.png" {
		t.Fatalf("page 1 filename = %q", pages[0].PageImages[0].Filename)
	}
	if pages[1].PageImages[0].Filename != "image-2.png" {
		t.Fatalf("page 2 filename = %q", pages[1].PageImages[0].Filename)
	}
}

func TestExtractTextAndImagesPageFailureIsFatal(t *testing.T) {
	doc := &fakeDocument{
		pages:   [][]Object{{textObj("ok", 100, 0)}, nil},
		pageErr: map[int]error{1: errFake},
	}

	_, err := newTestExtractor(doc, newMemStore()).ExtractTextAndImages(context.Background(), "test.pdf", "out")
	if err == nil {
		t.Fatal("want error for failed page load, got nil")
	}
}

func TestExtractText(t *testing.T) {
	doc := &fakeDocument{pages: [][]Object{
		{
			textObj("Hello, ", 100, 0),
			imageObj(90, 0),
			textObj("world", 80, 0),
		},
		{
			textObj("second page", 100, 0),
		},
	}}

	got, err := newTestExtractor(doc, newMemStore()).ExtractText(context.Background(), "test.pdf")
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	// Raw text objects joined with no separator, images ignored, no
	// clustering involved.
	assertStrings(t, got, []string{"Hello, world", "second page"})
}
