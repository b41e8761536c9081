package reader

import (
	"testing"
)

func itemStrings(items []PageItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		switch v := it.(type) {
		case TextLine:
			out[i] = "text:" + string(v)
		case ImageRef:
			out[i] = "image:" + v.Filename
		}
	}
	return out
}

func assertItems(t *testing.T, items []PageItem, want []string) {
	t.Helper()
	got := itemStrings(items)
	if len(got) != len(want) {
		t.Fatalf("items = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("items[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestAssembleMergesFragmentsWithinTolerance(t *testing.T) {
	tests := []struct {
		name string
		objs []Object
		want []string
	}{
		{
			name: "tops within tolerance join with one space",
			objs: []Object{textObj("Hello", 100, 0), textObj("world", 96.5, 40)},
			want: []string{"text:Hello world"},
		},
		{
			name: "exactly tolerance apart splits",
			objs: []Object{textObj("Hello", 100, 0), textObj("world", 95, 0)},
			want: []string{"text:Hello", "text:world"},
		},
		{
			name: "fragments are trimmed before joining",
			objs: []Object{textObj("  Hello ", 100, 0), textObj(" world  ", 99, 40)},
			want: []string{"text:Hello world"},
		},
		{
			name: "three lines",
			objs: []Object{
				textObj("one", 100, 0),
				textObj("two", 80, 0),
				textObj("three", 60, 0),
			},
			want: []string{"text:one", "text:two", "text:three"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, _ := assemblePageItems(tt.objs, newMemStore(), 1)
			assertItems(t, items, tt.want)
		})
	}
}

func TestAssembleImageFlushesPendingLine(t *testing.T) {
	objs := []Object{
		textObj("Fig. 1", 100, 0),
		imageObj(95, 0),
		textObj("caption below", 40, 0),
	}

	items, next := assemblePageItems(objs, newMemStore(), 1)

	assertItems(t, items, []string{"text:Fig. 1", "image:image-1.png", "text:caption below"})
	if next != 2 {
		t.Fatalf("next filename index = %d, want 2", next)
	}
}

func TestAssembleTextAfterImageStartsFreshLine(t *testing.T) {
	// The trailing text sits within tolerance of the image top; it must
	// still open a new line instead of merging with pre-image text.
	objs := []Object{
		textObj("before", 100, 0),
		imageObj(99, 50),
		textObj("after", 98, 100),
	}

	items, _ := assemblePageItems(objs, newMemStore(), 1)

	assertItems(t, items, []string{"text:before", "image:image-1.png", "text:after"})
}

func TestAssembleDecodeFailureSkipsObject(t *testing.T) {
	broken := imageObj(90, 0)
	broken.imgErr = errFake
	objs := []Object{
		textObj("line one", 100, 0),
		broken,
		imageObj(70, 0),
	}

	store := newMemStore()
	items, next := assemblePageItems(objs, store, 1)

	// The failed image emits nothing and does not consume a filename
	// index; the pending text flushes when the healthy image arrives.
	assertItems(t, items, []string{"text:line one", "image:image-1.png"})
	if next != 2 {
		t.Fatalf("next filename index = %d, want 2", next)
	}
	if len(store.saved) != 1 || store.saved[0] != "image-1.png" {
		t.Fatalf("saved = %v, want [image-1.png]", store.saved)
	}
}

func TestAssembleSaveFailureSkipsObject(t *testing.T) {
	store := newMemStore()
	store.saveErr = errFake
	objs := []Object{
		textObj("kept", 100, 0),
		imageObj(90, 0),
	}

	items, next := assemblePageItems(objs, store, 1)

	// Save failure leaves the buffer untouched; the line still flushes at
	// end of page.
	assertItems(t, items, []string{"text:kept"})
	if next != 1 {
		t.Fatalf("next filename index = %d, want 1", next)
	}
}

func TestAssembleFilenameIndexContinues(t *testing.T) {
	objs := []Object{imageObj(100, 0)}

	items, next := assemblePageItems(objs, newMemStore(), 7)

	assertItems(t, items, []string{"image:image-7.png"})
	if next != 8 {
		t.Fatalf("next filename index = %d, want 8", next)
	}
}

func TestAssembleBoundsFailureTreatedAsPageBottom(t *testing.T) {
	noBounds := &fakeObject{kind: KindText, text: "floating", bErr: errFake}
	objs := []Object{
		textObj("anchored", 100, 0),
		noBounds,
		textObj("next", 99, 0),
	}

	items, _ := assemblePageItems(objs, newMemStore(), 1)

	// The object without bounds gets top 0.0: it breaks the line, and the
	// following text starts another line because 99 > 0-5 holds.
	assertItems(t, items, []string{"text:anchored", "text:floating next"})
}

func TestAssembleEmptySequence(t *testing.T) {
	items, next := assemblePageItems(nil, newMemStore(), 1)
	if len(items) != 0 {
		t.Fatalf("items = %v, want empty", itemStrings(items))
	}
	if next != 1 {
		t.Fatalf("next filename index = %d, want 1", next)
	}
}
