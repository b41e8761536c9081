package reader

import (
	"context"
	"errors"
	"image"
)

// fakeObject is a scriptable content object for pipeline tests.
type fakeObject struct {
	kind    ObjectKind
	text    string
	textErr error
	bounds  Bounds
	bErr    error
	img     image.Image
	imgErr  error
}

func (f *fakeObject) Kind() ObjectKind { return f.kind }

func (f *fakeObject) Bounds() (Bounds, error) {
	if f.bErr != nil {
		return Bounds{}, f.bErr
	}
	return f.bounds, nil
}

func (f *fakeObject) Text() (string, error) {
	if f.textErr != nil {
		return "", f.textErr
	}
	return f.text, nil
}

func (f *fakeObject) Image() (image.Image, error) {
	if f.imgErr != nil {
		return nil, f.imgErr
	}
	if f.img != nil {
		return f.img, nil
	}
	return image.NewNRGBA(image.Rect(0, 0, 2, 2)), nil
}

func textObj(s string, top, left float64) *fakeObject {
	return &fakeObject{kind: KindText, text: s, bounds: Bounds{Top: top, Left: left, Bottom: top - 10, Right: left + 20}}
}

func imageObj(top, left float64) *fakeObject {
	return &fakeObject{kind: KindImage, bounds: Bounds{Top: top, Left: left, Bottom: top - 50, Right: left + 50}}
}

var errFake = errors.New("fake failure")

// memStore keeps saved images in memory and reports scripted sizes.
type memStore struct {
	saved   []string
	sizes   map[string]int64
	saveErr error
}

func newMemStore() *memStore {
	return &memStore{sizes: map[string]int64{}}
}

func (m *memStore) SavePNG(name string, img image.Image) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, name)
	if _, ok := m.sizes[name]; !ok {
		m.sizes[name] = 128
	}
	return nil
}

func (m *memStore) FileSize(name string) int64 { return m.sizes[name] }

// fakeDocument serves scripted objects per page.
type fakeDocument struct {
	pages   [][]Object
	pageErr map[int]error
	closed  bool
}

func (d *fakeDocument) NumPages() int { return len(d.pages) }

func (d *fakeDocument) Objects(page int) ([]Object, error) {
	if err := d.pageErr[page]; err != nil {
		return nil, err
	}
	return d.pages[page], nil
}

func (d *fakeDocument) Close() error {
	d.closed = true
	return nil
}

type fakeOpener struct {
	doc *fakeDocument
	err error
}

func (o *fakeOpener) Open(ctx context.Context, source string) (Document, error) {
	if o.err != nil {
		return nil, o.err
	}
	return o.doc, nil
}

type memStoreFactory struct {
	store *memStore
}

func (f *memStoreFactory) For(dir string) (ImageStore, error) { return f.store, nil }
